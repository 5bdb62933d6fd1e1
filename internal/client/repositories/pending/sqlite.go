package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
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

// Create upserts a pending story by id. On conflict the payload columns are
// replaced; the attempt counters are reset because a rewrite means new content.
func (r *SQLiteRepository) Create(ctx context.Context, s *models.PendingStory) error {
	query := `INSERT INTO pending_stories (id, description, photo, photo_name, lat, lon, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET description = excluded.description,
				photo = excluded.photo,
				photo_name = excluded.photo_name,
				lat = excluded.lat,
				lon = excluded.lon,
				created_at = excluded.created_at,
				attempts = 0,
				failed = 0
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Description, s.Photo, s.PhotoName, s.Lat, s.Lon,
		s.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert pending story: %w", err)
	}
	return nil
}

// GetAll lists unsent, non-failed stories in insertion order.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.PendingStory, error) {
	query := `SELECT id, description, photo, photo_name, lat, lon, created_at, attempts, failed
			FROM pending_stories WHERE failed=0 ORDER BY rowid`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending stories: %w", err)
	}
	defer rows.Close()

	var result []*models.PendingStory
	for rows.Next() {
		item, err := scanPending(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single pending story by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.PendingStory, error) {
	query := `SELECT id, description, photo, photo_name, lat, lon, created_at, attempts, failed
			FROM pending_stories WHERE id=?`
	row := r.db.QueryRowContext(ctx, query, id)

	item, err := scanPending(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending story: %w", err)
	}
	return item, nil
}

// FindByDescription returns the oldest pending story carrying the given text.
func (r *SQLiteRepository) FindByDescription(ctx context.Context, description string) (*models.PendingStory, error) {
	query := `SELECT id, description, photo, photo_name, lat, lon, created_at, attempts, failed
			FROM pending_stories WHERE description=? ORDER BY rowid LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, description)

	item, err := scanPending(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending story: %w", err)
	}
	return item, nil
}

// DeleteByID removes a pending story. Absent ids are a no-op.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_stories WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending story: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the rejection counter and returns the new value.
func (r *SQLiteRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_stories SET attempts = attempts + 1 WHERE id=?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return 0, common.ErrNotFound
	}

	var attempts int
	err = r.db.QueryRowContext(ctx, `SELECT attempts FROM pending_stories WHERE id=?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to read attempts: %w", err)
	}
	return attempts, nil
}

// MarkFailed flags a record as terminally failed.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_stories SET failed=1 WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark story failed: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

func scanPending(scan func(dest ...any) error) (*models.PendingStory, error) {
	item := &models.PendingStory{}
	var createdAt string
	var failed int
	if err := scan(&item.ID, &item.Description, &item.Photo, &item.PhotoName,
		&item.Lat, &item.Lon, &createdAt, &item.Attempts, &failed); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	item.CreatedAt = ts
	item.Failed = failed != 0
	return item, nil
}
