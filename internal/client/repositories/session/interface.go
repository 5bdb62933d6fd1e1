package session

import (
	"context"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
)

// Repository persists the authenticated identity across restarts so that
// components can read the current credential without ambient global state.
type Repository interface {
	// Save stores the session, replacing any previous one.
	Save(ctx context.Context, s *models.Session) error

	// Get returns the stored session, or common.ErrNotFound when nobody is
	// logged in.
	Get(ctx context.Context) (*models.Session, error)

	// Clear wipes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
