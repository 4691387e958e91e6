package storage

import (
	"context"
	"fmt"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

const taskColumns = `id, sheet_id, title, qty, position, date, row_type, is_active, meta`

// SaveTask inserts task when its ID is zero and updates it otherwise.
func (s *Store) SaveTask(ctx context.Context, task *model.Task) error {
	if task.RowType == "" {
		task.RowType = model.RowTypeTask
	}
	meta, err := encodeMeta(task.Meta)
	if err != nil {
		return err
	}
	c := s.conn()
	if task.ID == 0 {
		id, err := c.insert(ctx,
			`INSERT INTO tasks (sheet_id, title, qty, position, date, row_type, is_active, meta)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.SheetID, task.Title, task.Qty, task.Position, model.FormatDate(task.Date),
			string(task.RowType), boolInt(task.IsActive), meta)
		if err != nil {
			return fmt.Errorf("storage: create task: %w", err)
		}
		task.ID = id
		return nil
	}
	res, err := c.exec(ctx,
		`UPDATE tasks SET sheet_id = ?, title = ?, qty = ?, position = ?, date = ?, row_type = ?, is_active = ?, meta = ?
		 WHERE id = ?`,
		task.SheetID, task.Title, task.Qty, task.Position, model.FormatDate(task.Date),
		string(task.RowType), boolInt(task.IsActive), meta, task.ID)
	if err != nil {
		return fmt.Errorf("storage: update task %d: %w", task.ID, err)
	}
	return requireAffected(res, "task", task.ID)
}

// GetTask loads one task.
func (s *Store) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	task, err := scanTask(s.conn().queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return task, nil
}

// TasksBySheet returns the rows of a sheet in position order.
func (s *Store) TasksBySheet(ctx context.Context, sheetID int64) ([]model.Task, error) {
	rows, err := s.conn().query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE sheet_id = ? ORDER BY position ASC, id ASC`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("storage: tasks of sheet %d: %w", sheetID, err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.conn().exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete task %d: %w", id, err)
	}
	return requireAffected(res, "task", id)
}

func scanTask(row scanner) (*model.Task, error) {
	var (
		task                model.Task
		date, rowType, meta string
		active              int
	)
	if err := row.Scan(&task.ID, &task.SheetID, &task.Title, &task.Qty, &task.Position, &date,
		&rowType, &active, &meta); err != nil {
		return nil, err
	}
	task.Date, _ = model.ParseDate(date)
	task.RowType = model.RowType(rowType)
	task.IsActive = active == 1
	task.Meta = decodeMeta(meta)
	return &task, nil
}
