package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, url string, blob []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO images (url, blob) VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET blob = excluded.blob
	`, url, blob)
	if err != nil {
		return fmt.Errorf("failed to store image[%s]: %w", url, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, url string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT blob FROM images WHERE url = ?`, url).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image[%s]: %w", url, err)
	}
	return blob, nil
}
