package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MigrationStatus returns the recorded status of a data migration, or "".
func (s *Store) MigrationStatus(ctx context.Context, name string) (string, error) {
	var status string
	err := s.conn().queryRow(ctx, `SELECT status FROM data_migrations WHERE name = ?`, name).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: migration %q status: %w", name, err)
	}
	return status, nil
}

// SetMigrationStatus records the status of a data migration.
func (s *Store) SetMigrationStatus(ctx context.Context, name, status string) error {
	_, err := s.conn().exec(ctx,
		`INSERT INTO data_migrations (name, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		name, status, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("storage: set migration %q status: %w", name, err)
	}
	return nil
}
