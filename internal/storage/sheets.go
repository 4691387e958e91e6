package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// SheetOrder selects the ordering of ListSheets.
type SheetOrder string

const (
	OrderByDate   SheetOrder = "date"
	OrderByTitle  SheetOrder = "title"
	OrderByNewest SheetOrder = "newest"
)

// SheetFilter narrows ListSheets.
type SheetFilter struct {
	// Status limits results to one status. Empty means anything but trash.
	Status     model.Status
	ActiveOnly bool
	Order      SheetOrder
}

const sheetColumns = `id, title, slug, content, date, is_active, status, meta, created_at, updated_at`

// CreateSheet inserts sheet and sets its ID and timestamps.
func (s *Store) CreateSheet(ctx context.Context, sheet *model.Sheet) error {
	if sheet.Status == "" {
		sheet.Status = model.StatusPublish
	}
	now := s.now()
	sheet.CreatedAt, sheet.UpdatedAt = now, now
	meta, err := encodeMeta(sheet.Meta)
	if err != nil {
		return err
	}
	id, err := s.conn().insert(ctx,
		`INSERT INTO sheets (title, slug, content, date, is_active, status, meta, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sheet.Title, sheet.Slug, sheet.Content, model.FormatDate(sheet.Date), boolInt(sheet.IsActive),
		string(sheet.Status), meta, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("storage: create sheet: %w", err)
	}
	sheet.ID = id
	return nil
}

// UpdateSheet writes every column of sheet.
func (s *Store) UpdateSheet(ctx context.Context, sheet *model.Sheet) error {
	sheet.UpdatedAt = s.now()
	meta, err := encodeMeta(sheet.Meta)
	if err != nil {
		return err
	}
	res, err := s.conn().exec(ctx,
		`UPDATE sheets SET title = ?, slug = ?, content = ?, date = ?, is_active = ?, status = ?, meta = ?, updated_at = ?
		 WHERE id = ?`,
		sheet.Title, sheet.Slug, sheet.Content, model.FormatDate(sheet.Date), boolInt(sheet.IsActive),
		string(sheet.Status), meta, formatTime(sheet.UpdatedAt), sheet.ID)
	if err != nil {
		return fmt.Errorf("storage: update sheet %d: %w", sheet.ID, err)
	}
	return requireAffected(res, "sheet", sheet.ID)
}

// GetSheet loads one sheet.
func (s *Store) GetSheet(ctx context.Context, id int64) (*model.Sheet, error) {
	row := s.conn().queryRow(ctx, `SELECT `+sheetColumns+` FROM sheets WHERE id = ?`, id)
	sheet, err := scanSheet(row)
	if err != nil {
		return nil, notFound(err, "sheet", id)
	}
	return sheet, nil
}

// SheetBySlug loads the sheet with slug.
func (s *Store) SheetBySlug(ctx context.Context, slug string) (*model.Sheet, error) {
	row := s.conn().queryRow(ctx, `SELECT `+sheetColumns+` FROM sheets WHERE slug = ? ORDER BY id LIMIT 1`, slug)
	sheet, err := scanSheet(row)
	if err != nil {
		return nil, notFound(err, "sheet", slug)
	}
	return sheet, nil
}

// ListSheets returns sheets matching filter.
func (s *Store) ListSheets(ctx context.Context, filter SheetFilter) ([]model.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM sheets WHERE `
	var args []any
	if filter.Status != "" {
		query += `status = ?`
		args = append(args, string(filter.Status))
	} else {
		query += `status <> ?`
		args = append(args, string(model.StatusTrash))
	}
	if filter.ActiveOnly {
		query += ` AND is_active = 1`
	}
	switch filter.Order {
	case OrderByTitle:
		query += ` ORDER BY title ASC, id ASC`
	case OrderByNewest:
		query += ` ORDER BY id DESC`
	default:
		// Undated sheets sort last.
		query += ` ORDER BY CASE WHEN date = '' THEN 1 ELSE 0 END, date ASC, id ASC`
	}

	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list sheets: %w", err)
	}
	defer rows.Close()

	var out []model.Sheet
	for rows.Next() {
		sheet, err := scanSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan sheet: %w", err)
		}
		out = append(out, *sheet)
	}
	return out, rows.Err()
}

// TrashSheet moves a sheet to the trash.
func (s *Store) TrashSheet(ctx context.Context, id int64) error {
	res, err := s.conn().exec(ctx, `UPDATE sheets SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.StatusTrash), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("storage: trash sheet %d: %w", id, err)
	}
	return requireAffected(res, "sheet", id)
}

// DeleteSheet removes a sheet with its tasks and their sign-ups.
func (s *Store) DeleteSheet(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(c conn) error {
		if _, err := c.exec(ctx, `DELETE FROM signups WHERE task_id IN (SELECT id FROM tasks WHERE sheet_id = ?)`, id); err != nil {
			return fmt.Errorf("storage: delete sheet %d sign-ups: %w", id, err)
		}
		if _, err := c.exec(ctx, `DELETE FROM tasks WHERE sheet_id = ?`, id); err != nil {
			return fmt.Errorf("storage: delete sheet %d tasks: %w", id, err)
		}
		res, err := c.exec(ctx, `DELETE FROM sheets WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("storage: delete sheet %d: %w", id, err)
		}
		return requireAffected(res, "sheet", id)
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSheet(row scanner) (*model.Sheet, error) {
	var (
		sheet              model.Sheet
		date, status, meta string
		created, updated   string
		active             int
	)
	if err := row.Scan(&sheet.ID, &sheet.Title, &sheet.Slug, &sheet.Content, &date, &active,
		&status, &meta, &created, &updated); err != nil {
		return nil, err
	}
	sheet.Date, _ = model.ParseDate(date)
	sheet.IsActive = active == 1
	sheet.Status = model.Status(status)
	sheet.Meta = decodeMeta(meta)
	sheet.CreatedAt = parseTime(created)
	sheet.UpdatedAt = parseTime(updated)
	return &sheet, nil
}

func encodeMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("storage: encode meta: %w", err)
	}
	return string(raw), nil
}

func decodeMeta(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: %s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("storage: %s %d: %w", what, id, model.ErrNotFound)
	}
	return nil
}
