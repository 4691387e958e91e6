package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

// noDate is shown when neither the sheet nor its tasks carry a date.
const noDate = "N/A"

func displayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func dateRange(sheet *model.Sheet, tasks []model.Task) string {
	start, end := model.DateRange(sheet, tasks)
	switch {
	case start.IsZero():
		return noDate
	case start.Equal(end) || end.IsZero():
		return displayDate(start)
	}
	return displayDate(start) + " - " + displayDate(end)
}

// sheetExpired reports whether the last date of sheet has passed.
func sheetExpired(sheet *model.Sheet, tasks []model.Task, now time.Time) bool {
	_, end := model.DateRange(sheet, tasks)
	if end.IsZero() {
		return false
	}
	return (&model.Sheet{Date: end}).IsExpired(now)
}

func taskIDs(tasks []model.Task) []int64 {
	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsHeader() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func sheetOrder(raw string) storage.SheetOrder {
	switch storage.SheetOrder(raw) {
	case storage.OrderByTitle:
		return storage.OrderByTitle
	case storage.OrderByNewest:
		return storage.OrderByNewest
	}
	return storage.OrderByDate
}

// openSheets lists the published, active sheets that have not expired.
func (s *Server) openSheets(ctx context.Context) ([]views.SheetRow, error) {
	sheets, err := s.deps.Store.ListSheets(ctx, storage.SheetFilter{
		Status:     model.StatusPublish,
		ActiveOnly: true,
		Order:      sheetOrder(s.deps.Settings.Value(settings.OptSheetOrder)),
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	rows := make([]views.SheetRow, 0, len(sheets))
	for i := range sheets {
		sheet := &sheets[i]
		tasks, err := s.deps.Store.TasksBySheet(ctx, sheet.ID)
		if err != nil {
			return nil, err
		}
		if sheetExpired(sheet, tasks, now) {
			continue
		}
		counts, err := s.deps.Store.CountSignups(ctx, taskIDs(tasks))
		if err != nil {
			return nil, err
		}
		rows = append(rows, views.SheetRow{
			ID:        sheet.ID,
			Title:     sheet.Title,
			URL:       s.deps.Links.Sheet(sheet),
			Date:      dateRange(sheet, tasks),
			OpenSpots: model.OpenSpots(tasks, counts),
		})
	}
	return rows, nil
}

// visibleSheet resolves a sheet by slug or ID. Trashed sheets are never
// shown; drafts only to users who may read them.
func (s *Server) visibleSheet(r *http.Request, key string) (*model.Sheet, error) {
	ctx := r.Context()
	sheet, err := s.deps.Store.SheetBySlug(ctx, key)
	if err != nil {
		id, perr := strconv.ParseInt(key, 10, 64)
		if perr != nil {
			return nil, err
		}
		if sheet, err = s.deps.Store.GetSheet(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.checkVisible(r, sheet)
}

func (s *Server) checkVisible(r *http.Request, sheet *model.Sheet) (*model.Sheet, error) {
	switch sheet.Status {
	case model.StatusPublish:
		return sheet, nil
	case model.StatusTrash:
		return nil, statusErr(http.StatusNotFound, "Not found.")
	}
	ok, err := s.deps.Authz.CanSheet(r.Context(), auth.UserFrom(r.Context()), capabilities.ReadPost, sheet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, statusErr(http.StatusNotFound, "Not found.")
	}
	return sheet, nil
}
