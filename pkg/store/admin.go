package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AdminStore keeps the single admin password hash
type AdminStore struct {
	db *sql.DB
}

// NewAdminStore returns an AdminStore over db
func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

// PasswordHash returns the stored hash, or ErrNotFound when none is set
func (s *AdminStore) PasswordHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM admin_settings WHERE id = 1`).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read admin settings: %w", err)
	}
	return hash, nil
}

// SetPasswordHash upserts the single admin row
func (s *AdminStore) SetPasswordHash(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_settings (id, password_hash) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET password_hash = EXCLUDED.password_hash`, hash)
	if err != nil {
		return fmt.Errorf("failed to write admin settings: %w", err)
	}
	return nil
}
