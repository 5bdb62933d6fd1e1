package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adiwira/kuliner-nusantara/internal/client/models"
	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/dbx"
)

const (
	keyUserID      = "user_id"
	keyUserName    = "user_name"
	keyAccessToken = "access_token"
)

// SQLiteRepository stores the session as key-value rows in the session table.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) set(ctx context.Context, key string, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, []byte(value))
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, key string) (string, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return string(value), nil
}

// Save stores all session fields.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	if err := r.set(ctx, keyUserID, s.UserID); err != nil {
		return err
	}
	if err := r.set(ctx, keyUserName, s.Name); err != nil {
		return err
	}
	return r.set(ctx, keyAccessToken, s.Token)
}

// Get returns the stored session. A missing token means nobody is logged in.
func (r *SQLiteRepository) Get(ctx context.Context) (*models.Session, error) {
	token, err := r.get(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}

	userID, err := r.get(ctx, keyUserID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	userName, err := r.get(ctx, keyUserName)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	return &models.Session{UserID: userID, Name: userName, Token: token}, nil
}

// Clear wipes the stored session.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session`)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
