package storage

import (
	"context"
	"fmt"
)

// Options returns every stored option.
func (s *Store) Options(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn().query(ctx, `SELECT name, value FROM options`)
	if err != nil {
		return nil, fmt.Errorf("storage: options: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("storage: scan option: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// SetOption inserts or replaces an option.
func (s *Store) SetOption(ctx context.Context, name, value string) error {
	_, err := s.conn().exec(ctx,
		`INSERT INTO options (name, value) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value`, name, value)
	if err != nil {
		return fmt.Errorf("storage: set option %q: %w", name, err)
	}
	return nil
}

// DeleteOption removes an option. Missing options are ignored.
func (s *Store) DeleteOption(ctx context.Context, name string) error {
	if _, err := s.conn().exec(ctx, `DELETE FROM options WHERE name = ?`, name); err != nil {
		return fmt.Errorf("storage: delete option %q: %w", name, err)
	}
	return nil
}
