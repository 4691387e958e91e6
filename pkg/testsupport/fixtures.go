// Package testsupport holds helpers shared by package tests: golden files,
// in-memory stores and seeded fixtures.
package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/model"
)

// Now is the fixed instant used by fixtures.
var Now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Clock returns a function reporting Now.
func Clock() func() time.Time {
	return func() time.Time { return Now }
}

// OpenStore returns a migrated in-memory SQLite store closed at cleanup.
func OpenStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(Context(), storage.DriverSQLite, ":memory:", storage.WithClock(Clock()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TaskSpec describes a task created by SeedSheet.
type TaskSpec struct {
	Title  string
	Qty    int
	Date   string
	Header bool
}

// SeedSheet creates an active published sheet dated date (YYYY-MM-DD or
// empty) with tasks in the given order.
func SeedSheet(t *testing.T, store *storage.Store, title, date string, tasks ...TaskSpec) (*model.Sheet, []model.Task) {
	t.Helper()
	ctx := Context()

	sheetDate, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("sheet date: %v", err)
	}
	sheet := &model.Sheet{Title: title, Date: sheetDate, IsActive: true, Status: model.StatusPublish}
	if err := store.CreateSheet(ctx, sheet); err != nil {
		t.Fatalf("create sheet: %v", err)
	}

	var out []model.Task
	for i, spec := range tasks {
		taskDate, err := model.ParseDate(spec.Date)
		if err != nil {
			t.Fatalf("task date: %v", err)
		}
		task := model.Task{
			SheetID:  sheet.ID,
			Title:    spec.Title,
			Qty:      spec.Qty,
			Position: i,
			Date:     taskDate,
			IsActive: true,
			RowType:  model.RowTypeTask,
		}
		if spec.Header {
			task.RowType = model.RowTypeHeader
			task.Qty = 0
		}
		if err := store.SaveTask(ctx, &task); err != nil {
			t.Fatalf("save task: %v", err)
		}
		out = append(out, task)
	}
	return sheet, out
}

// InstallRoles creates the custom roles and grants every role its
// capabilities.
func InstallRoles(t *testing.T, store *storage.Store) {
	t.Helper()
	if err := capabilities.NewManager(store, nil).AddAll(Context()); err != nil {
		t.Fatalf("install roles: %v", err)
	}
}

// SeedUser creates a user with roles. The login doubles as first name.
func SeedUser(t *testing.T, store *storage.Store, login string, roles ...string) *model.User {
	t.Helper()
	user := &model.User{
		Login:       login,
		DisplayName: login,
		FirstName:   login,
		Email:       login + "@example.org",
		Roles:       roles,
	}
	if err := store.CreateUser(Context(), user); err != nil {
		t.Fatalf("create user %s: %v", login, err)
	}
	return user
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	WriteMaybeGolden(t, path, payload)
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput runs render with a buffer and returns both the
// returned string and what was written to the buffer.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
