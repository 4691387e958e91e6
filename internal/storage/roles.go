package storage

import (
	"context"
	"fmt"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// AddRole creates a role. Existing roles keep their label.
func (s *Store) AddRole(ctx context.Context, key, label string) error {
	_, err := s.conn().exec(ctx,
		`INSERT INTO roles (name, label) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`, key, label)
	if err != nil {
		return fmt.Errorf("storage: add role %q: %w", key, err)
	}
	return nil
}

// RemoveRole deletes a role, its capabilities and its user assignments.
func (s *Store) RemoveRole(ctx context.Context, key string) error {
	return s.withTx(ctx, func(c conn) error {
		for _, stmt := range []string{
			`DELETE FROM role_caps WHERE role = ?`,
			`DELETE FROM user_roles WHERE role = ?`,
			`DELETE FROM roles WHERE name = ?`,
		} {
			if _, err := c.exec(ctx, stmt, key); err != nil {
				return fmt.Errorf("storage: remove role %q: %w", key, err)
			}
		}
		return nil
	})
}

// HasRole reports whether a role exists.
func (s *Store) HasRole(ctx context.Context, key string) (bool, error) {
	var n int
	if err := s.conn().queryRow(ctx, `SELECT COUNT(*) FROM roles WHERE name = ?`, key).Scan(&n); err != nil {
		return false, fmt.Errorf("storage: lookup role %q: %w", key, err)
	}
	return n > 0, nil
}

// Roles lists every role ordered by key.
func (s *Store) Roles(ctx context.Context) ([]model.Choice, error) {
	rows, err := s.conn().query(ctx, `SELECT name, label FROM roles ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: roles: %w", err)
	}
	defer rows.Close()

	var out []model.Choice
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.Value, &c.Label); err != nil {
			return nil, fmt.Errorf("storage: scan role: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCaps grants capabilities to a role.
func (s *Store) AddCaps(ctx context.Context, role string, caps ...string) error {
	if len(caps) == 0 {
		return nil
	}
	return s.withTx(ctx, func(c conn) error {
		for _, capability := range caps {
			if _, err := c.exec(ctx,
				`INSERT INTO role_caps (role, cap) VALUES (?, ?) ON CONFLICT (role, cap) DO NOTHING`,
				role, capability); err != nil {
				return fmt.Errorf("storage: grant %q to %q: %w", capability, role, err)
			}
		}
		return nil
	})
}

// RemoveCaps revokes capabilities from a role.
func (s *Store) RemoveCaps(ctx context.Context, role string, caps ...string) error {
	if len(caps) == 0 {
		return nil
	}
	args := append([]any{role}, stringArgs(caps)...)
	_, err := s.conn().exec(ctx,
		`DELETE FROM role_caps WHERE role = ? AND cap IN (`+placeholders(len(caps))+`)`, args...)
	if err != nil {
		return fmt.Errorf("storage: revoke caps from %q: %w", role, err)
	}
	return nil
}

// RoleCaps lists the capabilities granted to a role.
func (s *Store) RoleCaps(ctx context.Context, role string) ([]string, error) {
	rows, err := s.conn().query(ctx, `SELECT cap FROM role_caps WHERE role = ? ORDER BY cap ASC`, role)
	if err != nil {
		return nil, fmt.Errorf("storage: caps of %q: %w", role, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, fmt.Errorf("storage: scan cap: %w", err)
		}
		out = append(out, capability)
	}
	return out, rows.Err()
}

func stringArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
