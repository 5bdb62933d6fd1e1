package stories

import (
	"context"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
)

// Repository is the local mirror of remote stories, used as a read fallback
// when the network is unavailable. Records are upserted on every successful
// list or detail fetch and never actively deleted.
type Repository interface {
	// Upsert inserts or overwrites a story by its server-assigned id.
	Upsert(ctx context.Context, story *models.Story) error

	// GetAll returns every cached story in insertion order.
	GetAll(ctx context.Context) ([]models.Story, error)

	// GetByID returns a cached story, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Story, error)
}
