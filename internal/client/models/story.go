// Package models defines the client-side story types: remote stories mirrored
// locally, pending (offline) submissions, and the submission form input.
package models

import (
	"fmt"
	"time"

	"github.com/adiwira/kuliner-nusantara/internal/common"
)

// MaxPhotoSize is the largest photo payload the API accepts, in bytes.
const MaxPhotoSize = 1 << 20

// MaxSubmitAttempts is the ceiling on server-rejected resubmissions of one
// pending story. Once reached, the record is marked failed and excluded
// from future drains.
const MaxSubmitAttempts = 5

// Story is a remote submission mirrored locally for offline viewing.
// All fields are stored verbatim as the server returned them.
type Story struct {
	ID          string
	Name        string
	Description string
	PhotoURL    string
	Lat         *float64
	Lon         *float64
	CreatedAt   time.Time
}

// PendingStory is an unsent user submission queued while offline.
// Records are never mutated after creation except for the attempt counters;
// resubmission re-reads the same record.
type PendingStory struct {
	ID          string
	Description string
	Photo       []byte
	PhotoName   string
	Lat         *float64
	Lon         *float64
	CreatedAt   time.Time
	Attempts    int
	Failed      bool
}

// NewStory is the payload of a create call: what actually goes to the server.
type NewStory struct {
	Description string
	Photo       []byte
	PhotoName   string
	Lat         *float64
	Lon         *float64
}

// Payload converts a queued record back into a create payload.
func (p *PendingStory) Payload() NewStory {
	return NewStory{
		Description: p.Description,
		Photo:       p.Photo,
		PhotoName:   p.PhotoName,
		Lat:         p.Lat,
		Lon:         p.Lon,
	}
}

// Session is the authenticated identity issued by the server on login.
type Session struct {
	UserID string
	Name   string
	Token  string
}

// StoryInput is the raw submission form: a description, exactly one photo
// source (an uploaded file or a captured shot), and an optional location.
type StoryInput struct {
	Description     string
	PhotoFile       []byte
	PhotoFileName   string
	CapturedPhoto   []byte
	IncludeLocation bool
	Lat             *float64
	Lon             *float64
}

// Validate checks the form input without performing any I/O.
// All failures wrap common.ErrValidation.
func (in *StoryInput) Validate() error {
	if in.Description == "" {
		return fmt.Errorf("%w: description is required", common.ErrValidation)
	}

	hasFile := len(in.PhotoFile) > 0
	hasCaptured := len(in.CapturedPhoto) > 0
	if !hasFile && !hasCaptured {
		return fmt.Errorf("%w: a photo is required", common.ErrValidation)
	}
	if hasFile && hasCaptured {
		return fmt.Errorf("%w: provide either an uploaded or a captured photo, not both", common.ErrValidation)
	}

	photo, _ := in.Photo()
	if len(photo) > MaxPhotoSize {
		return fmt.Errorf("%w: photo must be smaller than 1 MiB", common.ErrValidation)
	}

	if in.IncludeLocation && (in.Lat == nil || in.Lon == nil) {
		return fmt.Errorf("%w: location requested but coordinates are incomplete", common.ErrValidation)
	}

	return nil
}

// Photo returns the selected photo payload and its file name.
func (in *StoryInput) Photo() ([]byte, string) {
	if len(in.PhotoFile) > 0 {
		name := in.PhotoFileName
		if name == "" {
			name = "photo.jpg"
		}
		return in.PhotoFile, name
	}
	return in.CapturedPhoto, "photo.jpg"
}

// Location returns the coordinates to submit, or nils when the user did not
// opt in.
func (in *StoryInput) Location() (*float64, *float64) {
	if !in.IncludeLocation {
		return nil, nil
	}
	return in.Lat, in.Lon
}
