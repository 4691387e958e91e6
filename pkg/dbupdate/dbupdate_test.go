package dbupdate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/dbupdate"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/scheduler"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/testsupport"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2.3.1.1", "2.3.1.1", 0},
		{"2.3.1", "2.3.1.1", -1},
		{"2.3.2", "2.3.1.1", 1},
		{"2.10", "2.9", 1},
		{"", "2.3.1.1", -1},
		{"2.2-beta1", "2.2", -1},
		{"2.2-rc1", "2.2-beta3", 1},
		{"1.0", "1.0.0", 0},
	}
	for _, tc := range cases {
		if got := dbupdate.CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

type queue struct{ jobs []string }

func (q *queue) Once(name string, _ scheduler.JobFunc) { q.jobs = append(q.jobs, name) }

func TestCheckRunsOncePerVersion(t *testing.T) {
	ctx := testsupport.Context()
	store := testsupport.OpenStore(t)
	opts := settings.New(store)
	if _, err := opts.Set(ctx, settings.OptDBVersion, "2.3.1"); err != nil {
		t.Fatal(err)
	}
	if _, err := opts.Set(ctx, settings.OptDisableSignupLinkHash, "true"); err != nil {
		t.Fatal(err)
	}

	var hooks int
	q := &queue{}
	u := dbupdate.New(store, opts, "2.4.0",
		dbupdate.WithQueue(q),
		dbupdate.WithHooks(func(context.Context) error { hooks++; return nil }))

	ran, err := u.Check(ctx)
	if err != nil || !ran {
		t.Fatalf("first check ran=%v err=%v", ran, err)
	}
	if got := opts.Value(settings.OptSignupLinkHash); got != "off" {
		t.Fatalf("link hash = %q, want off", got)
	}
	if _, ok := opts.Lookup(settings.OptDisableSignupLinkHash); ok {
		t.Fatalf("deprecated option should be deleted")
	}
	if opts.Value(settings.OptDBVersion) != "2.4.0" || opts.Value(settings.OptDBVersionType) != "free" {
		t.Fatalf("version not stored: %q %q", opts.Value(settings.OptDBVersion), opts.Value(settings.OptDBVersionType))
	}
	if opts.Value(settings.OptSheetSlug) != settings.DefaultSheetSlug {
		t.Fatalf("defaults should be applied")
	}
	if diff := cmp.Diff([]string{dbupdate.AsyncJobName}, q.jobs); diff != "" {
		t.Fatalf("scheduled jobs mismatch (-want +got):\n%s", diff)
	}

	ran, err = u.Check(ctx)
	if err != nil || ran {
		t.Fatalf("second check ran=%v err=%v", ran, err)
	}
	if hooks != 1 {
		t.Fatalf("hooks ran %d times", hooks)
	}

	// switching edition triggers the update again
	pro := dbupdate.New(store, settings.New(store, settings.WithPro(true), settings.WithValues(opts.All())), "2.4.0")
	if ran, _ := pro.Check(ctx); !ran {
		t.Fatalf("edition change should run the update")
	}
}

func TestLinkHashKeptForNewerVersions(t *testing.T) {
	ctx := testsupport.Context()
	opts := settings.New(nil, settings.WithValues(map[string]string{
		settings.OptDBVersion:             "2.3.2",
		settings.OptDisableSignupLinkHash: "true",
	}))
	u := dbupdate.New(testsupport.OpenStore(t), opts, "2.4.0")
	if _, err := u.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := opts.Lookup(settings.OptSignupLinkHash); ok {
		t.Fatalf("link hash option should not be written after 2.3.1.1")
	}
}

func TestCheckHookFailureKeepsVersion(t *testing.T) {
	opts := settings.New(nil)
	u := dbupdate.New(testsupport.OpenStore(t), opts, "2.4.0",
		dbupdate.WithHooks(func(context.Context) error { return errors.New("boom") }))
	if _, err := u.Check(testsupport.Context()); err == nil {
		t.Fatalf("expected hook error")
	}
	if opts.Value(settings.OptDBVersion) != "" {
		t.Fatalf("version must not be stored when the update fails")
	}
}

func TestAsyncUpdateBackfillsTokens(t *testing.T) {
	ctx := testsupport.Context()
	store := testsupport.OpenStore(t)
	_, tasks := testsupport.SeedSheet(t, store, "Picnic", "2024-06-01", testsupport.TaskSpec{Title: "Chairs", Qty: 10})
	for i := 0; i < 5; i++ {
		if err := store.CreateSignup(ctx, &model.Signup{TaskID: tasks[0].ID, FirstName: fmt.Sprint("v", i)}); err != nil {
			t.Fatal(err)
		}
	}

	var n int
	u := dbupdate.New(store, settings.New(store), "2.4.0",
		dbupdate.WithBatchSize(2),
		dbupdate.WithTokenGenerator(func() string { n++; return fmt.Sprint("tok-", n) }))

	pending, err := u.Pending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	if err := u.AsyncUpdate(ctx); err != nil {
		t.Fatalf("async update: %v", err)
	}
	left, _ := store.SignupsWithoutToken(ctx, 10)
	if len(left) != 0 || n != 5 {
		t.Fatalf("left=%d generated=%d", len(left), n)
	}
	if status, _ := store.MigrationStatus(ctx, "removal_tokens"); status != dbupdate.StatusComplete {
		t.Fatalf("status = %q", status)
	}

	if err := u.AsyncUpdate(ctx); err != nil || n != 5 {
		t.Fatalf("completed migrations must be skipped: n=%d err=%v", n, err)
	}

	q := &queue{}
	rerun := dbupdate.New(store, settings.New(store), "2.4.0", dbupdate.WithQueue(q))
	if err := rerun.Rerun(ctx); err != nil {
		t.Fatal(err)
	}
	if pending, _ := rerun.Pending(ctx); len(pending) != 1 || len(q.jobs) != 1 {
		t.Fatalf("rerun should reset and schedule: pending=%v jobs=%v", pending, q.jobs)
	}
}

func TestAsyncUpdateDisabled(t *testing.T) {
	failing := dbupdate.Migration{Name: "never", Step: func(context.Context) (bool, error) {
		return false, errors.New("should not run")
	}}
	u := dbupdate.New(testsupport.OpenStore(t), settings.New(nil), "2.4.0",
		dbupdate.WithAsyncDisabled(true), dbupdate.WithMigrations(failing))
	if err := u.AsyncUpdate(testsupport.Context()); err != nil {
		t.Fatalf("disabled async update returned %v", err)
	}
}

// statusStore refuses to record failed migrations.
type statusStore struct {
	*storage.Store
}

func (s statusStore) SetMigrationStatus(ctx context.Context, name, status string) error {
	if status == "failed" {
		return errors.New("disk full")
	}
	return s.Store.SetMigrationStatus(ctx, name, status)
}

func TestAsyncUpdateLogsUnsavedFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	broken := dbupdate.Migration{Name: "broken", Step: func(context.Context) (bool, error) {
		return false, errors.New("step failed")
	}}
	u := dbupdate.New(statusStore{testsupport.OpenStore(t)}, settings.New(nil), "2.4.0",
		dbupdate.WithMigrations(broken), dbupdate.WithLogger(zap.New(core)))

	err := u.AsyncUpdate(testsupport.Context())
	if err == nil {
		t.Fatalf("expected the step error")
	}
	entries := logs.FilterMessage("data migration status not saved").All()
	if len(entries) != 1 {
		t.Fatalf("expected one logged status failure, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["migration"]; got != "broken" {
		t.Fatalf("logged migration = %v", got)
	}
}
