// Package storage opens the local client database and wires up the
// repositories that partition it: pending submissions, cached stories,
// cached images, and the session blob.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adiwira/kuliner-nusantara/internal/client/migrations"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/images"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/pending"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/session"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/stories"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories bundles the per-partition record stores plus the underlying
// handle, which services use for cross-repository transactions.
type Repositories struct {
	Pending pending.Repository
	Stories stories.Repository
	Images  images.Repository
	Session session.Repository
	DB      *sql.DB
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if necessary) the local database at dsn,
// migrates it, and returns the repository set.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	repos := &Repositories{
		Pending: pending.NewSQLiteRepository(db),
		Stories: stories.NewSQLiteRepository(db),
		Images:  images.NewSQLiteRepository(db),
		Session: session.NewSQLiteRepository(db),
		DB:      db,
	}
	return repos, nil
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}
