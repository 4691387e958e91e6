// Package dbupdate brings the database and stored options up to date with
// the running release.
package dbupdate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/scheduler"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// AsyncJobName is the scheduler job that runs pending data migrations.
const AsyncJobName = "fdsus_dbupdate_action"

// StatusComplete marks a finished data migration.
const StatusComplete = "complete"

// linkHashCutoff is the last release that stored the disable-link-hash flag.
const linkHashCutoff = "2.3.1.1"

// Store is the persistence the updater needs.
type Store interface {
	Migrate(ctx context.Context) error
	MigrationStatus(ctx context.Context, name string) (string, error)
	SetMigrationStatus(ctx context.Context, name, status string) error
	SignupsWithoutToken(ctx context.Context, limit int) ([]model.Signup, error)
	SetRemovalToken(ctx context.Context, id int64, token string) error
}

// Queue accepts one-off background jobs.
type Queue interface {
	Once(name string, fn scheduler.JobFunc)
}

// Hook runs after a version change was applied, before the new version is
// stored.
type Hook func(ctx context.Context) error

// Migration is a resumable data migration. Step does a bounded amount of
// work and reports whether nothing is left.
type Migration struct {
	Name string
	Step func(ctx context.Context) (done bool, err error)
}

// Updater compares the stored database version with the running release.
type Updater struct {
	store         Store
	settings      *settings.Settings
	version       string
	hooks         []Hook
	queue         Queue
	asyncDisabled bool
	migrations    []Migration
	newToken      func() string
	batch         int
	logger        *zap.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithHooks adds post-update hooks, run in order.
func WithHooks(hooks ...Hook) Option {
	return func(u *Updater) {
		u.hooks = append(u.hooks, hooks...)
	}
}

// WithQueue schedules the async update instead of leaving it to the caller.
func WithQueue(q Queue) Option {
	return func(u *Updater) {
		u.queue = q
	}
}

// WithAsyncDisabled turns the data migrations off.
func WithAsyncDisabled(disabled bool) Option {
	return func(u *Updater) {
		u.asyncDisabled = disabled
	}
}

// WithMigrations appends data migrations after the built-in ones.
func WithMigrations(m ...Migration) Option {
	return func(u *Updater) {
		u.migrations = append(u.migrations, m...)
	}
}

func WithTokenGenerator(fn func() string) Option {
	return func(u *Updater) {
		if fn != nil {
			u.newToken = fn
		}
	}
}

func WithBatchSize(n int) Option {
	return func(u *Updater) {
		if n > 0 {
			u.batch = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(u *Updater) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// New builds an Updater for the running release version.
func New(store Store, opts *settings.Settings, version string, options ...Option) *Updater {
	u := &Updater{
		store:    store,
		settings: opts,
		version:  version,
		newToken: uuid.NewString,
		batch:    200,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(u)
		}
	}
	u.migrations = append([]Migration{{Name: "removal_tokens", Step: u.backfillTokens}}, u.migrations...)
	return u
}

// Edition returns "pro" or "free".
func (u *Updater) Edition() string {
	if u.settings.IsPro() {
		return "pro"
	}
	return "free"
}

// Check runs the update when the stored version or edition differs from the
// running one. It reports whether an update ran.
func (u *Updater) Check(ctx context.Context) (bool, error) {
	previous := u.settings.Value(settings.OptDBVersion)
	if previous == u.version && u.settings.Value(settings.OptDBVersionType) == u.Edition() {
		return false, nil
	}
	if err := u.update(ctx, previous); err != nil {
		return false, err
	}
	u.logger.Info("database updated",
		zap.String("from", previous), zap.String("to", u.version), zap.String("edition", u.Edition()))
	return true, nil
}

func (u *Updater) update(ctx context.Context, previous string) error {
	if err := u.store.Migrate(ctx); err != nil {
		return fmt.Errorf("dbupdate: schema: %w", err)
	}

	if !u.asyncDisabled {
		pending, err := u.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			u.schedule()
		}
	}

	if CompareVersions(previous, linkHashCutoff) <= 0 && u.settings.IsTrue(settings.OptDisableSignupLinkHash) {
		if _, err := u.settings.Set(ctx, settings.OptSignupLinkHash, "off"); err != nil {
			return fmt.Errorf("dbupdate: link hash option: %w", err)
		}
		if err := u.settings.Delete(ctx, settings.OptDisableSignupLinkHash); err != nil {
			return fmt.Errorf("dbupdate: link hash option: %w", err)
		}
	}

	if err := u.settings.ApplyDefaults(ctx); err != nil {
		return fmt.Errorf("dbupdate: defaults: %w", err)
	}

	for _, hook := range u.hooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("dbupdate: hook: %w", err)
		}
	}

	if _, err := u.settings.Set(ctx, settings.OptDBVersion, u.version); err != nil {
		return fmt.Errorf("dbupdate: store version: %w", err)
	}
	if _, err := u.settings.Set(ctx, settings.OptDBVersionType, u.Edition()); err != nil {
		return fmt.Errorf("dbupdate: store version type: %w", err)
	}
	return nil
}

// Pending lists the data migrations not marked complete.
func (u *Updater) Pending(ctx context.Context) ([]string, error) {
	var out []string
	for _, m := range u.migrations {
		status, err := u.store.MigrationStatus(ctx, m.Name)
		if err != nil {
			return nil, fmt.Errorf("dbupdate: %w", err)
		}
		if status != StatusComplete {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

// AsyncUpdate runs every pending data migration to completion. Finished
// migrations are skipped, so calling it again is harmless.
func (u *Updater) AsyncUpdate(ctx context.Context) error {
	if u.asyncDisabled {
		u.logger.Debug("data migrations disabled")
		return nil
	}
	var errs []error
	for _, m := range u.migrations {
		if err := u.runMigration(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("dbupdate: migration %q: %w", m.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (u *Updater) runMigration(ctx context.Context, m Migration) error {
	status, err := u.store.MigrationStatus(ctx, m.Name)
	if err != nil {
		return err
	}
	if status == StatusComplete {
		return nil
	}
	if err := u.store.SetMigrationStatus(ctx, m.Name, "running"); err != nil {
		return err
	}
	for steps := 1; ; steps++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := m.Step(ctx)
		if err != nil {
			if serr := u.store.SetMigrationStatus(ctx, m.Name, "failed"); serr != nil {
				u.logger.Error("data migration status not saved",
					zap.String("migration", m.Name), zap.Error(serr))
			}
			return err
		}
		if done {
			u.logger.Info("data migration complete", zap.String("migration", m.Name), zap.Int("steps", steps))
			return u.store.SetMigrationStatus(ctx, m.Name, StatusComplete)
		}
	}
}

// Rerun clears the status of every data migration and schedules them again.
func (u *Updater) Rerun(ctx context.Context) error {
	for _, m := range u.migrations {
		if err := u.store.SetMigrationStatus(ctx, m.Name, ""); err != nil {
			return fmt.Errorf("dbupdate: rerun %q: %w", m.Name, err)
		}
	}
	u.schedule()
	return nil
}

func (u *Updater) schedule() {
	if u.queue == nil {
		return
	}
	u.queue.Once(AsyncJobName, u.AsyncUpdate)
}

// backfillTokens gives removal tokens to sign-ups created before tokens
// existed.
func (u *Updater) backfillTokens(ctx context.Context) (bool, error) {
	signups, err := u.store.SignupsWithoutToken(ctx, u.batch)
	if err != nil {
		return false, err
	}
	for _, s := range signups {
		if err := u.store.SetRemovalToken(ctx, s.ID, u.newToken()); err != nil {
			return false, err
		}
	}
	return len(signups) < u.batch, nil
}
