package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type schemaStep struct {
	Version    int
	Name       string
	Statements []string
}

// {{id}} expands to the dialect's auto-increment primary key.
var schemaSteps = []schemaStep{
	{
		Version: 1,
		Name:    "core tables",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS options (
				name TEXT PRIMARY KEY,
				value TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS sheets (
				id {{id}},
				title TEXT NOT NULL,
				slug TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL DEFAULT '',
				date TEXT NOT NULL DEFAULT '',
				is_active INTEGER NOT NULL DEFAULT 1,
				status TEXT NOT NULL DEFAULT 'publish',
				meta TEXT NOT NULL DEFAULT '{}',
				created_at TEXT NOT NULL DEFAULT '',
				updated_at TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id {{id}},
				sheet_id BIGINT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				qty INTEGER NOT NULL DEFAULT 1,
				position INTEGER NOT NULL DEFAULT 0,
				date TEXT NOT NULL DEFAULT '',
				row_type TEXT NOT NULL DEFAULT 'task',
				is_active INTEGER NOT NULL DEFAULT 1,
				meta TEXT NOT NULL DEFAULT '{}'
			)`,
			`CREATE INDEX IF NOT EXISTS tasks_sheet_idx ON tasks (sheet_id, position)`,
			`CREATE TABLE IF NOT EXISTS signups (
				id {{id}},
				task_id BIGINT NOT NULL,
				firstname TEXT NOT NULL DEFAULT '',
				lastname TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				city TEXT NOT NULL DEFAULT '',
				state TEXT NOT NULL DEFAULT '',
				zip TEXT NOT NULL DEFAULT '',
				user_id BIGINT NOT NULL DEFAULT 0,
				removal_token TEXT NOT NULL DEFAULT '',
				fields TEXT NOT NULL DEFAULT '{}',
				created_at TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS signups_task_idx ON signups (task_id)`,
			`CREATE INDEX IF NOT EXISTS signups_user_idx ON signups (user_id)`,
		},
	},
	{
		Version: 2,
		Name:    "users and roles",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id {{id}},
				login TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS user_roles (
				user_id BIGINT NOT NULL,
				role TEXT NOT NULL,
				PRIMARY KEY (user_id, role)
			)`,
			`CREATE TABLE IF NOT EXISTS roles (
				name TEXT PRIMARY KEY,
				label TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS role_caps (
				role TEXT NOT NULL,
				cap TEXT NOT NULL,
				PRIMARY KEY (role, cap)
			)`,
			`INSERT INTO roles (name, label) VALUES
				('administrator', 'Administrator'),
				('editor', 'Editor'),
				('author', 'Author'),
				('contributor', 'Contributor'),
				('subscriber', 'Subscriber')
				ON CONFLICT (name) DO NOTHING`,
			`INSERT INTO role_caps (role, cap) VALUES
				('administrator', 'read'),
				('administrator', 'manage_options'),
				('editor', 'read'),
				('author', 'read'),
				('contributor', 'read'),
				('subscriber', 'read')
				ON CONFLICT (role, cap) DO NOTHING`,
		},
	},
	{
		Version: 3,
		Name:    "spot lock and reminders",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS locks (
				id BIGINT PRIMARY KEY,
				locked_at TEXT NOT NULL DEFAULT ''
			)`,
			`ALTER TABLE signups ADD COLUMN reminded INTEGER NOT NULL DEFAULT 0`,
		},
	},
	{
		Version: 4,
		Name:    "data migrations",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS data_migrations (
				name TEXT PRIMARY KEY,
				status TEXT NOT NULL DEFAULT '',
				updated_at TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
}

// SchemaVersion is the latest schema version known to this build.
func SchemaVersion() int {
	return schemaSteps[len(schemaSteps)-1].Version
}

func (s *Store) expand(stmt string) string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	return strings.ReplaceAll(stmt, "{{id}}", id)
}

// AppliedVersion returns the highest schema version applied, or 0.
func (s *Store) AppliedVersion(ctx context.Context) (int, error) {
	c := s.conn()
	if _, err := c.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		applied_at TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		return 0, fmt.Errorf("storage: schema table: %w", err)
	}
	var version int
	if err := c.queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("storage: schema version: %w", err)
	}
	return version, nil
}

// Migrate applies every schema step newer than the applied version, each in
// its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	current, err := s.AppliedVersion(ctx)
	if err != nil {
		return err
	}
	for _, step := range schemaSteps {
		if step.Version <= current {
			continue
		}
		err := s.withTx(ctx, func(c conn) error {
			for _, stmt := range step.Statements {
				if _, err := c.exec(ctx, s.expand(stmt)); err != nil {
					return fmt.Errorf("storage: schema %d (%s): %w", step.Version, step.Name, err)
				}
			}
			_, err := c.exec(ctx, `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				step.Version, step.Name, formatTime(s.now()))
			return err
		})
		if err != nil {
			return err
		}
		s.logger.Info("schema migrated", zap.Int("version", step.Version), zap.String("name", step.Name))
	}
	return nil
}
