package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

// AddStory interactively builds a story submission: a description, a photo
// file, and an optional location. While offline the story is queued locally
// and sent once connectivity returns.
func (a *App) AddStory(ctx context.Context) error {
	description, err := GetMultiline(a.reader, "Enter story text", a.out)
	if err != nil {
		return err
	}

	photoPath, err := getSimpleText(a.reader, "Path to photo file", a.out)
	if err != nil {
		return err
	}

	input := models.StoryInput{Description: description}

	if photoPath != "" {
		photo, err := readFile(photoPath)
		if err != nil {
			fmt.Fprintf(a.out, "Cannot read photo: %s\n", err.Error())
			return err
		}
		input.PhotoFile = photo
		input.PhotoFileName = filepath.Base(photoPath)
	}

	answer, err := getSimpleText(a.reader, "Attach location? (y/N)", a.out)
	if err != nil {
		return err
	}
	if strings.EqualFold(answer, "y") {
		lat, err := a.readCoordinate(ctx, "Latitude")
		if err != nil {
			return err
		}
		lon, err := a.readCoordinate(ctx, "Longitude")
		if err != nil {
			return err
		}
		input.IncludeLocation = true
		input.Lat = &lat
		input.Lon = &lon
	}

	queued, err := a.stories.Add(ctx, input)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	if queued {
		fmt.Fprintln(a.out, "You are offline; the story was queued and will be sent when the connection returns.")
	} else {
		fmt.Fprintln(a.out, "Story published.")
	}
	return nil
}

func (a *App) readCoordinate(_ context.Context, prompt string) (float64, error) {
	text, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Not a number: %s\n", text)
		return 0, err
	}
	return value, nil
}

// List prints the first page of stories, marking results served from the
// local cache.
func (a *App) List(ctx context.Context) error {
	result, fromCache, err := a.stories.List(ctx, 1, 20)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	if fromCache {
		fmt.Fprintln(a.out, "(showing cached stories; server unreachable)")
	}
	for i := range result {
		a.printStoryLine(&result[i])
	}
	return nil
}

// Show prints one story in full.
func (a *App) Show(ctx context.Context, id string) error {
	story, fromCache, err := a.stories.Get(ctx, id)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	if fromCache {
		fmt.Fprintln(a.out, "(showing cached story; server unreachable)")
	}
	fmt.Fprintf(a.out, "%s — %s\n", story.Name, story.CreatedAt.Format("2 Jan 2006 15:04"))
	fmt.Fprintln(a.out, story.Description)
	if story.PhotoURL != "" {
		fmt.Fprintf(a.out, "Photo: %s\n", story.PhotoURL)
	}
	if story.Lat != nil && story.Lon != nil {
		fmt.Fprintf(a.out, "Location: %.5f, %.5f\n", *story.Lat, *story.Lon)
	}
	return nil
}

// Sync pushes queued stories to the server now.
func (a *App) Sync(ctx context.Context) error {
	if err := a.stories.Drain(ctx); err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	return a.Pending(ctx)
}

// Pending reports how many stories wait to be sent.
func (a *App) Pending(ctx context.Context) error {
	n, err := a.stories.PendingCount(ctx)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return err
	}

	switch n {
	case 0:
		fmt.Fprintln(a.out, "No stories waiting.")
	case 1:
		fmt.Fprintln(a.out, "1 story waiting to be sent.")
	default:
		fmt.Fprintf(a.out, "%d stories waiting to be sent.\n", n)
	}
	return nil
}

func (a *App) printStoryLine(s *models.Story) {
	desc := s.Description
	if len(desc) > 60 {
		desc = desc[:57] + "..."
	}
	fmt.Fprintf(a.out, "%s  %-12s  %s\n", s.ID, s.Name, desc)
}
