package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// ReminderJobName is the scheduler job sending reminders.
const ReminderJobName = "dls_sus_send_reminders"

// MetaReminderDays overrides the global reminder lead time on a sheet.
const MetaReminderDays = "dlssus_sheet_reminder_days"

// ReminderStore is the storage used by Reminder.
type ReminderStore interface {
	ListSheets(ctx context.Context, filter storage.SheetFilter) ([]model.Sheet, error)
	TasksBySheet(ctx context.Context, sheetID int64) ([]model.Task, error)
	SignupsByTask(ctx context.Context, taskID int64) ([]model.Signup, error)
	MarkReminded(ctx context.Context, id int64) error
}

// Reminder sends reminder emails for upcoming tasks.
type Reminder struct {
	store    ReminderStore
	settings *settings.Settings
	composer *Composer
	mailer   Mailer
	logger   *zap.Logger
}

// NewReminder returns a Reminder.
func NewReminder(store ReminderStore, s *settings.Settings, composer *Composer, mailer Mailer, logger *zap.Logger) *Reminder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reminder{store: store, settings: s, composer: composer, mailer: mailer, logger: logger}
}

// RunStats summarises one reminder run.
type RunStats struct {
	Sheets int `json:"sheets"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Run reminds every sign-up with an email whose task date is exactly the
// reminder lead time away from now. Each sign-up is reminded once. Nothing
// is sent while reminders are disabled.
func (r *Reminder) Run(ctx context.Context, now time.Time) (RunStats, error) {
	var stats RunStats
	if !r.settings.IsReminderEnabled() {
		return stats, nil
	}

	sheets, err := r.store.ListSheets(ctx, storage.SheetFilter{Status: model.StatusPublish, ActiveOnly: true})
	if err != nil {
		return stats, fmt.Errorf("mail: reminder sheets: %w", err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for i := range sheets {
		sheet := &sheets[i]
		days, ok := r.leadDays(sheet)
		if !ok {
			continue
		}
		stats.Sheets++

		tasks, err := r.store.TasksBySheet(ctx, sheet.ID)
		if err != nil {
			return stats, fmt.Errorf("mail: reminder tasks of sheet %d: %w", sheet.ID, err)
		}
		for j := range tasks {
			task := &tasks[j]
			if task.IsHeader() || !due(task.EffectiveDate(sheet), today, days) {
				continue
			}
			if err := r.remindTask(ctx, sheet, task, &stats); err != nil {
				return stats, err
			}
		}
	}
	r.logger.Info("reminders processed",
		zap.Int("sheets", stats.Sheets), zap.Int("sent", stats.Sent), zap.Int("failed", stats.Failed))
	return stats, nil
}

func (r *Reminder) remindTask(ctx context.Context, sheet *model.Sheet, task *model.Task, stats *RunStats) error {
	signups, err := r.store.SignupsByTask(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("mail: reminder sign-ups of task %d: %w", task.ID, err)
	}
	for k := range signups {
		signup := &signups[k]
		if signup.Reminded || signup.Email == "" {
			continue
		}
		msg, err := r.composer.Compose(settings.MailReminder, Details{Sheet: sheet, Task: task, Signup: signup})
		if err == nil {
			err = r.mailer.Send(ctx, msg)
		}
		if err != nil {
			stats.Failed++
			r.logger.Warn("reminder not sent", zap.Int64("signup", signup.ID), zap.Error(err))
			continue
		}
		if err := r.store.MarkReminded(ctx, signup.ID); err != nil {
			return fmt.Errorf("mail: mark reminded %d: %w", signup.ID, err)
		}
		stats.Sent++
	}
	return nil
}

// leadDays returns the sheet override or the global lead time. A sheet
// without any lead time is skipped.
func (r *Reminder) leadDays(sheet *model.Sheet) (int, bool) {
	if raw := sheet.MetaValue(MetaReminderDays); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil && n >= 0 {
			return n, true
		}
	}
	n := r.settings.ReminderDaysBefore()
	return n, n > 0
}

func due(date, today time.Time, days int) bool {
	if date.IsZero() {
		return false
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Equal(today.AddDate(0, 0, days))
}
