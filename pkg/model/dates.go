package model

import (
	"strings"
	"time"
)

// ParseDate parses a YYYY-MM-DD value. Empty input yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}

// FormatDate renders t in DateLayout, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// expired reports whether the whole day of date has passed. A sheet dated
// today stays open until the next day begins.
func expired(date time.Time, now time.Time) bool {
	if date.IsZero() {
		return false
	}
	end := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
	return end.Before(now)
}

// IsExpired reports whether the sheet date has passed.
func (s *Sheet) IsExpired(now time.Time) bool {
	if s == nil {
		return false
	}
	return expired(s.Date, now)
}

// IsExpired reports whether the task date (or the sheet date when the task
// has none) has passed.
func (t Task) IsExpired(now time.Time, sheet *Sheet) bool {
	if !t.Date.IsZero() {
		return expired(t.Date, now)
	}
	return sheet.IsExpired(now)
}

// EffectiveDate returns the task date falling back to the sheet date.
func (t Task) EffectiveDate(sheet *Sheet) time.Time {
	if !t.Date.IsZero() || sheet == nil {
		return t.Date
	}
	return sheet.Date
}

// TaskSummary carries the date range and task count of a sheet, ignoring
// header rows.
type TaskSummary struct {
	MinDate time.Time
	// MaxDate is zero when any task is undated.
	MaxDate time.Time
	Count   int
}

// SummarizeTasks computes the date range across non-header tasks.
func SummarizeTasks(tasks []Task) TaskSummary {
	var (
		summary TaskSummary
		undated bool
	)
	for _, task := range tasks {
		if task.IsHeader() {
			continue
		}
		summary.Count++
		if task.Date.IsZero() {
			undated = true
			continue
		}
		if summary.MinDate.IsZero() || task.Date.Before(summary.MinDate) {
			summary.MinDate = task.Date
		}
		if task.Date.After(summary.MaxDate) {
			summary.MaxDate = task.Date
		}
	}
	if undated {
		summary.MaxDate = time.Time{}
	}
	return summary
}

// DateRange returns the start and end dates shown for a sheet. Task dates win
// over the sheet date when every task is dated.
func DateRange(sheet *Sheet, tasks []Task) (time.Time, time.Time) {
	summary := SummarizeTasks(tasks)
	if !summary.MaxDate.IsZero() {
		return summary.MinDate, summary.MaxDate
	}
	if sheet == nil {
		return time.Time{}, time.Time{}
	}
	return sheet.Date, sheet.Date
}
