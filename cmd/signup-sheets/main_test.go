package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/mail"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/sitehealth"
)

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *scriptedPrompter) Input(_ context.Context, q question) (string, error) {
	p.asked = append(p.asked, q.Message)
	return p.answers[q.Message], nil
}

func (p *scriptedPrompter) Password(ctx context.Context, q question) (string, error) {
	return p.Input(ctx, q)
}

type fixture struct {
	dir string
	cfg string
	dsn string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir: dir,
		cfg: filepath.Join(dir, "signup-sheets.yaml"),
		dsn: filepath.Join(dir, "sheets.db"),
	}
	body := "database:\n  driver: sqlite\n  dsn: " + f.dsn + "\nlog:\n  level: error\n"
	if err := os.WriteFile(f.cfg, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return f
}

func (f fixture) run(t *testing.T, p prompter, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&cli{prompt: p})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", f.cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f fixture) store(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.DriverSQLite, f.dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConfigInitWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fresh.yaml")
	f := fixture{cfg: path}

	out, err := f.run(t, noPrompter{}, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Fatalf("unexpected output %q", out)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(raw), "driver: sqlite") {
		t.Fatalf("default database driver missing:\n%s", raw)
	}

	if _, err := f.run(t, noPrompter{}, "config", "init"); err == nil {
		t.Fatal("expected an error when the file exists")
	}
	if _, err := f.run(t, noPrompter{}, "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestUserAddPromptsForMissingValues(t *testing.T) {
	f := newFixture(t)
	p := &scriptedPrompter{answers: map[string]string{
		"Login:":    "coordinator",
		"Email:":    "coord@example.com",
		"Password:": "s3cret",
	}}

	out, err := f.run(t, p, "user", "add", "--display-name", "Coordinator")
	if err != nil {
		t.Fatalf("user add: %v", err)
	}
	if diff := cmp.Diff([]string{"Login:", "Email:", "Password:"}, p.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, `"coordinator" (administrator)`) {
		t.Fatalf("unexpected output %q", out)
	}

	user, err := f.store(t).UserByLogin(context.Background(), "coordinator")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user.Email != "coord@example.com" || user.DisplayName != "Coordinator" {
		t.Fatalf("unexpected user %+v", user)
	}
	if !auth.CheckPassword(user.PasswordHash, "s3cret") {
		t.Fatal("password hash does not match")
	}
}

func TestUserAddRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, noPrompter{}, "user", "add",
		"--login", "x", "--email", "x@example.com", "--password", "pw", "--role", "wizard")
	if err == nil || !strings.Contains(err.Error(), `unknown role "wizard"`) {
		t.Fatalf("expected unknown role error, got %v", err)
	}
}

func TestNoInputFailsOnMissingValues(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, &scriptedPrompter{}, "--no-input", "user", "add")
	if err == nil || err.Error() != "Login is required" {
		t.Fatalf("expected missing login error, got %v", err)
	}
}

func TestSheetCreate(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, noPrompter{}, "sheet", "create",
		"--title", "Bake Sale", "--date", "2024-06-01",
		"--task", "#Morning", "--task", "Cookies:2", "--task", "Pies")
	if err != nil {
		t.Fatalf("sheet create: %v", err)
	}
	if !strings.Contains(out, `"Bake Sale" with 3 tasks`) {
		t.Fatalf("unexpected output %q", out)
	}

	ctx := context.Background()
	store := f.store(t)
	sheet, err := store.SheetBySlug(ctx, "bake-sale")
	if err != nil {
		t.Fatalf("sheet by slug: %v", err)
	}
	if got := model.FormatDate(sheet.Date); got != "2024-06-01" {
		t.Fatalf("sheet date = %q", got)
	}
	tasks, err := store.TasksBySheet(ctx, sheet.ID)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	type row struct {
		Title   string
		Qty     int
		RowType model.RowType
	}
	var got []row
	for _, task := range tasks {
		got = append(got, row{task.Title, task.Qty, task.RowType})
	}
	want := []row{
		{"Morning", 1, model.RowTypeHeader},
		{"Cookies", 2, model.RowTypeTask},
		{"Pies", 1, model.RowTypeTask},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTaskSpecsErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want string
	}{
		{name: "zero quantity", spec: "Cookies:0", want: "quantity must be a positive number"},
		{name: "text quantity", spec: "Cookies:many", want: "quantity must be a positive number"},
		{name: "empty title", spec: ":3", want: "title is required"},
		{name: "empty header", spec: "#", want: "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTaskSpecs([]string{tt.spec})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMigrateStoresVersion(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, noPrompter{}, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "database updated: version "+version+" (free), 0 pending migrations") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = f.run(t, noPrompter{}, "migrate")
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !strings.HasPrefix(out, "database up to date") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRolesSync(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, noPrompter{}, "roles", "sync")
	if err != nil {
		t.Fatalf("roles sync: %v", err)
	}
	if strings.TrimSpace(out) != "capabilities granted" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSiteHealthJSON(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, noPrompter{}, "site-health", "--format", "json")
	if err != nil {
		t.Fatalf("site-health: %v", err)
	}
	var report sitehealth.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	var jobs []string
	for _, job := range report.Jobs {
		jobs = append(jobs, job.Name)
	}
	if diff := cmp.Diff([]string{mail.ReminderJobName}, jobs); diff != "" {
		t.Fatalf("jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestServeRequiresKeys(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, noPrompter{}, "serve")
	if err == nil || !strings.Contains(err.Error(), "security.session_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
