package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

const userColumns = `id, login, display_name, email, first_name, last_name, password_hash`

// CreateUser inserts user with its roles and sets the ID. A duplicate login
// yields model.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	login := strings.TrimSpace(user.Login)
	if login == "" {
		return fmt.Errorf("storage: user login is required")
	}
	return s.withTx(ctx, func(c conn) error {
		var n int
		if err := c.queryRow(ctx, `SELECT COUNT(*) FROM users WHERE login = ?`, login).Scan(&n); err != nil {
			return fmt.Errorf("storage: lookup login %q: %w", login, err)
		}
		if n > 0 {
			return fmt.Errorf("storage: login %q: %w", login, model.ErrConflict)
		}
		id, err := c.insert(ctx,
			`INSERT INTO users (login, display_name, email, first_name, last_name, password_hash)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			login, user.DisplayName, user.Email, user.FirstName, user.LastName, user.PasswordHash)
		if err != nil {
			return fmt.Errorf("storage: create user %q: %w", login, err)
		}
		user.ID = id
		user.Login = login
		return setUserRoles(ctx, c, id, user.Roles)
	})
}

// UpdateUser writes the profile columns and roles of user.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	return s.withTx(ctx, func(c conn) error {
		res, err := c.exec(ctx,
			`UPDATE users SET display_name = ?, email = ?, first_name = ?, last_name = ?, password_hash = ? WHERE id = ?`,
			user.DisplayName, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.ID)
		if err != nil {
			return fmt.Errorf("storage: update user %d: %w", user.ID, err)
		}
		if err := requireAffected(res, "user", user.ID); err != nil {
			return err
		}
		return setUserRoles(ctx, c, user.ID, user.Roles)
	})
}

func setUserRoles(ctx context.Context, c conn, userID int64, roles []string) error {
	if _, err := c.exec(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("storage: reset roles of user %d: %w", userID, err)
	}
	for _, role := range roles {
		if role = strings.TrimSpace(role); role == "" {
			continue
		}
		if _, err := c.exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT (user_id, role) DO NOTHING`,
			userID, role); err != nil {
			return fmt.Errorf("storage: assign %q to user %d: %w", role, userID, err)
		}
	}
	return nil
}

// GetUser loads a user with its roles.
func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.loadUser(ctx, `WHERE id = ?`, id)
}

// UserByLogin loads a user by login name.
func (s *Store) UserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.loadUser(ctx, `WHERE login = ?`, strings.TrimSpace(login))
}

func (s *Store) loadUser(ctx context.Context, where string, arg any) (*model.User, error) {
	c := s.conn()
	var user model.User
	err := c.queryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg).Scan(
		&user.ID, &user.Login, &user.DisplayName, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash)
	if err != nil {
		return nil, notFound(err, "user", arg)
	}
	roles, err := s.userRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (s *Store) userRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.conn().query(ctx, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: roles of user %d: %w", userID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("storage: scan user role: %w", err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// ListUsers returns every user ordered by display name, without roles.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.conn().query(ctx, `SELECT `+userColumns+` FROM users ORDER BY display_name ASC, login ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list users: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Login, &user.DisplayName, &user.Email, &user.FirstName,
			&user.LastName, &user.PasswordHash); err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// UsersWithRole returns the users holding role.
func (s *Store) UsersWithRole(ctx context.Context, role string) ([]model.User, error) {
	rows, err := s.conn().query(ctx,
		`SELECT u.id, u.login, u.display_name, u.email, u.first_name, u.last_name, u.password_hash
		 FROM users u JOIN user_roles r ON r.user_id = u.id WHERE r.role = ? ORDER BY u.id ASC`, role)
	if err != nil {
		return nil, fmt.Errorf("storage: users with role %q: %w", role, err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Login, &user.DisplayName, &user.Email, &user.FirstName,
			&user.LastName, &user.PasswordHash); err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		user.Roles = []string{role}
		out = append(out, user)
	}
	return out, rows.Err()
}
