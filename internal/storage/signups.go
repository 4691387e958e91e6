package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

const signupColumns = `id, task_id, firstname, lastname, email, phone, address, city, state, zip,
	user_id, removal_token, reminded, fields, created_at`

// CreateSignup inserts a sign-up without a capacity check.
func (s *Store) CreateSignup(ctx context.Context, signup *model.Signup) error {
	return insertSignup(ctx, s.conn(), signup, s.now())
}

// ClaimSpot inserts signup when its task has fewer than qty sign-ups. The
// count and the insert run in one transaction holding the task's lock row,
// so concurrent claims cannot overfill a task. It returns model.ErrTaskFull
// when no spot is left.
func (s *Store) ClaimSpot(ctx context.Context, signup *model.Signup, qty int) error {
	err := s.withTx(ctx, func(c conn) error {
		if _, err := c.exec(ctx,
			`INSERT INTO locks (id, locked_at) VALUES (?, ?)
			 ON CONFLICT (id) DO UPDATE SET locked_at = excluded.locked_at`,
			signup.TaskID, formatTime(s.now())); err != nil {
			return fmt.Errorf("storage: lock task %d: %w", signup.TaskID, err)
		}

		var filled int
		if err := c.queryRow(ctx, `SELECT COUNT(*) FROM signups WHERE task_id = ?`, signup.TaskID).Scan(&filled); err != nil {
			return fmt.Errorf("storage: count sign-ups of task %d: %w", signup.TaskID, err)
		}
		if filled >= qty {
			return fmt.Errorf("storage: task %d: %w", signup.TaskID, model.ErrTaskFull)
		}
		if err := insertSignup(ctx, c, signup, s.now()); err != nil {
			return err
		}
		if _, err := c.exec(ctx, `DELETE FROM locks WHERE id = ?`, signup.TaskID); err != nil {
			return fmt.Errorf("storage: unlock task %d: %w", signup.TaskID, err)
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("spot claimed", zap.Int64("task_id", signup.TaskID), zap.Int64("signup_id", signup.ID))
	}
	return err
}

func insertSignup(ctx context.Context, c conn, signup *model.Signup, now time.Time) error {
	fields, err := encodeFields(signup.Fields)
	if err != nil {
		return err
	}
	if signup.CreatedAt.IsZero() {
		signup.CreatedAt = now
	}
	id, err := c.insert(ctx,
		`INSERT INTO signups (task_id, firstname, lastname, email, phone, address, city, state, zip,
			user_id, removal_token, reminded, fields, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signup.TaskID, signup.FirstName, signup.LastName, signup.Email, signup.Phone, signup.Address,
		signup.City, signup.State, signup.Zip, signup.UserID, signup.RemovalToken, boolInt(signup.Reminded),
		fields, formatTime(signup.CreatedAt))
	if err != nil {
		return fmt.Errorf("storage: create sign-up: %w", err)
	}
	signup.ID = id
	return nil
}

// UpdateSignup writes the editable columns of signup.
func (s *Store) UpdateSignup(ctx context.Context, signup *model.Signup) error {
	fields, err := encodeFields(signup.Fields)
	if err != nil {
		return err
	}
	res, err := s.conn().exec(ctx,
		`UPDATE signups SET task_id = ?, firstname = ?, lastname = ?, email = ?, phone = ?, address = ?,
			city = ?, state = ?, zip = ?, user_id = ?, reminded = ?, fields = ?
		 WHERE id = ?`,
		signup.TaskID, signup.FirstName, signup.LastName, signup.Email, signup.Phone, signup.Address,
		signup.City, signup.State, signup.Zip, signup.UserID, boolInt(signup.Reminded), fields, signup.ID)
	if err != nil {
		return fmt.Errorf("storage: update sign-up %d: %w", signup.ID, err)
	}
	return requireAffected(res, "sign-up", signup.ID)
}

// MarkReminded flags a sign-up as reminded.
func (s *Store) MarkReminded(ctx context.Context, id int64) error {
	res, err := s.conn().exec(ctx, `UPDATE signups SET reminded = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: mark sign-up %d reminded: %w", id, err)
	}
	return requireAffected(res, "sign-up", id)
}

// GetSignup loads one sign-up.
func (s *Store) GetSignup(ctx context.Context, id int64) (*model.Signup, error) {
	signup, err := s.scanSignup(s.conn().queryRow(ctx, `SELECT `+signupColumns+` FROM signups WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "sign-up", id)
	}
	return signup, nil
}

// SignupByToken loads the sign-up holding a removal token.
func (s *Store) SignupByToken(ctx context.Context, token string) (*model.Signup, error) {
	if token == "" {
		return nil, fmt.Errorf("storage: sign-up token: %w", model.ErrNotFound)
	}
	signup, err := s.scanSignup(s.conn().queryRow(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE removal_token = ?`, token))
	if err != nil {
		return nil, notFound(err, "sign-up token", "")
	}
	return signup, nil
}

// SignupsByTask returns the sign-ups of one task in creation order.
func (s *Store) SignupsByTask(ctx context.Context, taskID int64) ([]model.Signup, error) {
	return s.listSignups(ctx, `WHERE task_id = ? ORDER BY id ASC`, taskID)
}

// SignupsByTasks returns the sign-ups of several tasks grouped by task ID.
func (s *Store) SignupsByTasks(ctx context.Context, taskIDs []int64) (map[int64][]model.Signup, error) {
	out := make(map[int64][]model.Signup, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	list, err := s.listSignups(ctx, `WHERE task_id IN (`+placeholders(len(taskIDs))+`) ORDER BY id ASC`, int64Args(taskIDs)...)
	if err != nil {
		return nil, err
	}
	for _, signup := range list {
		out[signup.TaskID] = append(out[signup.TaskID], signup)
	}
	return out, nil
}

// SignupsByUser returns the sign-ups linked to a user, newest first.
func (s *Store) SignupsByUser(ctx context.Context, userID int64) ([]model.Signup, error) {
	return s.listSignups(ctx, `WHERE user_id = ? ORDER BY id DESC`, userID)
}

// CountSignups returns the number of sign-ups per task.
func (s *Store) CountSignups(ctx context.Context, taskIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	rows, err := s.conn().query(ctx,
		`SELECT task_id, COUNT(*) FROM signups WHERE task_id IN (`+placeholders(len(taskIDs))+`) GROUP BY task_id`,
		int64Args(taskIDs)...)
	if err != nil {
		return nil, fmt.Errorf("storage: count sign-ups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var taskID int64
		var n int
		if err := rows.Scan(&taskID, &n); err != nil {
			return nil, fmt.Errorf("storage: scan count: %w", err)
		}
		out[taskID] = n
	}
	return out, rows.Err()
}

// DeleteSignup removes one sign-up.
func (s *Store) DeleteSignup(ctx context.Context, id int64) error {
	res, err := s.conn().exec(ctx, `DELETE FROM signups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete sign-up %d: %w", id, err)
	}
	return requireAffected(res, "sign-up", id)
}

func (s *Store) listSignups(ctx context.Context, where string, args ...any) ([]model.Signup, error) {
	rows, err := s.conn().query(ctx, `SELECT `+signupColumns+` FROM signups `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list sign-ups: %w", err)
	}
	defer rows.Close()

	var out []model.Signup
	for rows.Next() {
		signup, err := s.scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan sign-up: %w", err)
		}
		out = append(out, *signup)
	}
	return out, rows.Err()
}

// scanSignup reads one sign-up row. Unreadable custom fields are logged and
// left empty so the sign-up itself stays usable.
func (s *Store) scanSignup(row scanner) (*model.Signup, error) {
	var (
		signup          model.Signup
		reminded        int
		fields, created string
	)
	if err := row.Scan(&signup.ID, &signup.TaskID, &signup.FirstName, &signup.LastName, &signup.Email,
		&signup.Phone, &signup.Address, &signup.City, &signup.State, &signup.Zip, &signup.UserID,
		&signup.RemovalToken, &reminded, &fields, &created); err != nil {
		return nil, err
	}
	signup.Reminded = reminded == 1
	signup.CreatedAt = parseTime(created)
	if fields != "" && fields != "{}" {
		if err := json.Unmarshal([]byte(fields), &signup.Fields); err != nil {
			s.logger.Warn("unreadable sign-up fields", zap.Int64("signup_id", signup.ID), zap.Error(err))
			signup.Fields = nil
		}
	}
	return &signup, nil
}

func encodeFields(fields map[string]string) (string, error) {
	return encodeMeta(fields)
}

// SignupsWithoutToken returns up to limit sign-ups that have no removal token.
func (s *Store) SignupsWithoutToken(ctx context.Context, limit int) ([]model.Signup, error) {
	return s.listSignups(ctx, `WHERE removal_token = '' ORDER BY id ASC LIMIT ?`, limit)
}

// SetRemovalToken stores a removal token on a sign-up.
func (s *Store) SetRemovalToken(ctx context.Context, id int64, token string) error {
	res, err := s.conn().exec(ctx, `UPDATE signups SET removal_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("storage: set removal token of sign-up %d: %w", id, err)
	}
	return requireAffected(res, "sign-up", id)
}
