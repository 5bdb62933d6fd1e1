package pending

import (
	"context"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
)

// Repository describes storage operations for queued offline submissions.
// Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Create inserts a new pending story or overwrites an existing one by id.
	Create(ctx context.Context, story *models.PendingStory) error

	// GetAll returns pending stories that are still eligible for sending,
	// in insertion order. Records marked failed are excluded.
	GetAll(ctx context.Context) ([]*models.PendingStory, error)

	// GetByID returns a single pending story, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.PendingStory, error)

	// FindByDescription returns the oldest pending story with the given
	// description, or common.ErrNotFound. Used as a fallback match when a
	// direct submission has no correlation id to go on.
	FindByDescription(ctx context.Context, description string) (*models.PendingStory, error)

	// DeleteByID removes a pending story. Deleting an absent id is not an
	// error; an unsent record must only ever be deleted after the server
	// confirmed acceptance, and confirmation may race a manual cleanup.
	DeleteByID(ctx context.Context, id string) error

	// IncrementAttempts bumps the rejection counter and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// MarkFailed flags a record as terminally failed so drains skip it.
	MarkFailed(ctx context.Context, id string) error
}
