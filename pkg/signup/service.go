// Package signup implements claiming, editing and removing spots on tasks.
package signup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/captcha"
	"github.com/goliatone/go-signupsheets/pkg/mail"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// Repository is the storage used by Service. *storage.Store satisfies it.
type Repository interface {
	GetSheet(ctx context.Context, id int64) (*model.Sheet, error)
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	GetSignup(ctx context.Context, id int64) (*model.Signup, error)
	SignupByToken(ctx context.Context, token string) (*model.Signup, error)
	ClaimSpot(ctx context.Context, signup *model.Signup, qty int) error
	UpdateSignup(ctx context.Context, signup *model.Signup) error
	DeleteSignup(ctx context.Context, id int64) error
}

// Purger clears caches after a sign-up change.
type Purger interface {
	ClearSignupCache(ctx context.Context, signupID, taskID int64) cache.Result
}

// CaptchaVerifier checks reCAPTCHA responses.
type CaptchaVerifier interface {
	Verify(ctx context.Context, r captcha.Request) error
}

// Service runs the sign-up flows.
type Service struct {
	repo     Repository
	settings *settings.Settings
	authz    *capabilities.Authorizer
	mailer   mail.Mailer
	composer *mail.Composer
	purger   Purger
	verifier CaptchaVerifier
	lookupMX MXLookup
	newToken func() string
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMail enables confirmation and removal emails.
func WithMail(mailer mail.Mailer, composer *mail.Composer) Option {
	return func(s *Service) {
		s.mailer = mailer
		s.composer = composer
	}
}

func WithPurger(p Purger) Option {
	return func(s *Service) { s.purger = p }
}

func WithCaptcha(v CaptchaVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithMXLookup replaces the DNS lookup used by email validation.
func WithMXLookup(fn MXLookup) Option {
	return func(s *Service) {
		if fn != nil {
			s.lookupMX = fn
		}
	}
}

// WithTokenGenerator replaces the removal token generator.
func WithTokenGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService returns a Service.
func NewService(repo Repository, st *settings.Settings, authz *capabilities.Authorizer, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		settings: st,
		authz:    authz,
		lookupMX: LookupMX,
		newToken: func() string { return uuid.NewString() },
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submission is a front-end sign-up form post.
type Submission struct {
	Values   url.Values
	RemoteIP string
	Host     string
	User     *model.User
}

// Result lists what a submission created.
type Result struct {
	Sheet     *model.Sheet `json:"sheet"`
	TaskIDs   []int64      `json:"tasks"`
	SignupIDs []int64      `json:"signups"`
}

// Query returns the success query arguments appended to the redirect URL.
func (r Result) Query() url.Values {
	return url.Values{
		"action":  {ActionSignup},
		"status":  {"success"},
		"tasks":   {joinIDs(r.TaskIDs)},
		"signups": {joinIDs(r.SignupIDs)},
	}
}

// Submit validates a sign-up form post and claims one spot per task. A
// *ValidationError describes why nothing or not everything was claimed; the
// returned Result still lists the spots claimed before the failure.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	sheet, tasks, err := s.resolveTasks(ctx, TaskIDs(sub.Values))
	if err != nil {
		return Result{}, err
	}
	result := Result{Sheet: sheet}

	policy := s.settings.FieldPolicy(sheet)
	custom, err := s.settings.CustomFieldsFor(sheet.ID)
	if err != nil {
		return result, err
	}
	captchaOn := !s.settings.IsAllCaptchaDisabled()
	if missing := MissingFields(sub.Values, RequiredOptions{
		Policy:        policy,
		CustomFields:  custom,
		SimpleCaptcha: captchaOn && !s.settings.IsRecaptchaEnabled(),
	}); len(missing) > 0 {
		v := warn(KeyMissingFields, MsgMissingFields, strings.Join(missing, ", "))
		v.Missing = missing
		return result, v
	}
	if err := s.checkEmail(ctx, sub.Values.Get(FieldEmail), policy); err != nil {
		return result, err
	}
	if !s.settings.IsHoneypotDisabled() && strings.TrimSpace(sub.Values.Get(FieldHoneypot)) != "" {
		return result, warn(KeyHoneypot, MsgHoneypot)
	}
	if err := s.checkCaptcha(ctx, sub); err != nil {
		return result, err
	}

	for _, task := range tasks {
		signup := &model.Signup{TaskID: task.ID, RemovalToken: s.newToken()}
		Apply(signup, sub.Values, policy, custom)
		if sub.User != nil {
			signup.UserID = sub.User.ID
		}
		if err := s.repo.ClaimSpot(ctx, signup, task.Qty); err != nil {
			if errors.Is(err, model.ErrTaskFull) {
				return result, warn(KeyTaskFull, MsgTaskFull)
			}
			return result, fmt.Errorf("signup: claim task %d: %w", task.ID, err)
		}
		result.TaskIDs = append(result.TaskIDs, task.ID)
		result.SignupIDs = append(result.SignupIDs, signup.ID)
		s.logger.Info("sign-up added",
			zap.Int64("sheet", sheet.ID), zap.Int64("task", task.ID), zap.Int64("signup", signup.ID))

		if signup.Email != "" && s.settings.IsConfirmationEmailEnabled() {
			s.notify(ctx, settings.MailSignup, sheet, &task, signup)
		}
		s.purge(ctx, signup.ID, task.ID)
	}
	return result, nil
}

// resolveTasks loads the posted tasks and their common sheet, rejecting
// missing, expired, inactive and cross-sheet tasks.
func (s *Service) resolveTasks(ctx context.Context, ids []int64) (*model.Sheet, []model.Task, error) {
	now := s.now()
	var (
		sheet *model.Sheet
		tasks []model.Task
	)
	for _, id := range ids {
		task, err := s.repo.GetTask(ctx, id)
		if errors.Is(err, model.ErrNotFound) || (err == nil && task.IsHeader()) {
			return nil, nil, invalid(KeyTaskInvalid, MsgTaskInvalid)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("signup: load task %d: %w", id, err)
		}
		if sheet == nil {
			sheet, err = s.repo.GetSheet(ctx, task.SheetID)
			if errors.Is(err, model.ErrNotFound) || (err == nil && !sheet.IsPublished()) {
				return nil, nil, invalid(KeySheetInvalid, MsgSheetInvalid)
			}
			if err != nil {
				return nil, nil, fmt.Errorf("signup: load sheet %d: %w", task.SheetID, err)
			}
		}
		if task.IsExpired(now, sheet) {
			return nil, nil, invalid(KeyTaskExpired, MsgTaskExpired)
		}
		if len(tasks) == 0 {
			if sheet.IsExpired(now) {
				return nil, nil, invalid(KeySheetExpired, MsgSheetExpired)
			}
			if !sheet.IsActive {
				return nil, nil, invalid(KeySheetInactive, MsgSheetInactive)
			}
		} else if task.SheetID != sheet.ID {
			return nil, nil, invalid(KeyMultipleSheets, MsgMultipleSheets)
		}
		if !task.IsActive {
			return nil, nil, invalid(KeyTaskInactive, MsgTaskInactive)
		}
		tasks = append(tasks, *task)
	}
	if len(tasks) == 0 {
		return nil, nil, invalid(KeyNoValidTask, MsgNoValidTask)
	}
	return sheet, tasks, nil
}

func (s *Service) checkEmail(ctx context.Context, email string, policy settings.FieldPolicy) error {
	email = strings.TrimSpace(email)
	if policy.HideEmail || email == "" || !s.settings.IsEmailValidationEnabled() {
		return nil
	}
	if !ValidEmail(email) {
		return warn(KeyInvalidEmail, MsgInvalidEmail)
	}
	if !s.lookupMX(ctx, emailDomain(email)) {
		return warn(KeyEmailDomain, MsgEmailDomain)
	}
	return nil
}

// checkCaptcha runs once per submission, before the first spot is claimed.
func (s *Service) checkCaptcha(ctx context.Context, sub Submission) error {
	if s.settings.IsAllCaptchaDisabled() {
		return nil
	}
	answer := sub.Values.Get(captcha.SimpleField)
	if s.settings.IsRecaptchaEnabled() {
		if strings.TrimSpace(answer) != "" {
			return nil
		}
		secret := s.settings.Value(settings.OptRecaptchaPrivateKey)
		if strings.TrimSpace(secret) == "" || s.verifier == nil {
			return warn(KeyCaptchaKeyMissing, MsgCaptchaKeyMissing)
		}
		err := s.verifier.Verify(ctx, captcha.Request{
			Secret:   secret,
			Token:    sub.Values.Get(captcha.ResponseField),
			RemoteIP: sub.RemoteIP,
			Host:     sub.Host,
		})
		switch {
		case errors.Is(err, captcha.ErrMissingKey):
			return warn(KeyCaptchaKeyMissing, MsgCaptchaKeyMissing)
		case err != nil:
			s.logger.Debug("recaptcha rejected", zap.Error(err))
			return warn(KeyCaptcha, MsgRecaptchaInvalid)
		}
		return nil
	}
	if !captcha.CheckSimple(answer) {
		return warn(KeyCaptcha, MsgSimpleCaptcha, answer)
	}
	return nil
}

// Add creates a sign-up on taskID from the admin form.
func (s *Service) Add(ctx context.Context, actor *model.User, taskID int64, values url.Values) (*model.Signup, error) {
	if err := s.authz.Require(ctx, actor, capabilities.Signups.Get(capabilities.CreatePosts)); err != nil {
		return nil, err
	}
	task, sheet, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	policy := s.settings.FieldPolicy(sheet)
	custom, err := s.validateAdmin(sheet, policy, values)
	if err != nil {
		return nil, err
	}

	signup := &model.Signup{TaskID: task.ID, RemovalToken: s.newToken()}
	Apply(signup, values, policy, custom)
	if err := s.linkUser(ctx, actor, signup, values); err != nil {
		return nil, err
	}
	if err := s.repo.ClaimSpot(ctx, signup, task.Qty); err != nil {
		if errors.Is(err, model.ErrTaskFull) {
			return nil, warn(KeyTaskFull, MsgTaskFull)
		}
		return nil, fmt.Errorf("signup: add to task %d: %w", task.ID, err)
	}
	s.logger.Info("sign-up added by admin", zap.Int64("task", task.ID), zap.Int64("signup", signup.ID), zap.Int64("actor", actor.ID))
	s.purge(ctx, signup.ID, task.ID)
	return signup, nil
}

// Update edits an existing sign-up from the admin form.
func (s *Service) Update(ctx context.Context, actor *model.User, signupID int64, values url.Values) (*model.Signup, error) {
	signup, err := s.repo.GetSignup(ctx, signupID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, invalid(KeySignupInvalid, MsgSignupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("signup: load %d: %w", signupID, err)
	}
	ok, err := s.authz.CanEditSignup(ctx, actor, signup)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: edit sign-up %d", capabilities.ErrForbidden, signupID)
	}
	_, sheet, err := s.loadTask(ctx, signup.TaskID)
	if err != nil {
		return nil, err
	}
	policy := s.settings.FieldPolicy(sheet)
	custom, err := s.validateAdmin(sheet, policy, values)
	if err != nil {
		return nil, err
	}

	Apply(signup, values, policy, custom)
	if err := s.linkUser(ctx, actor, signup, values); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSignup(ctx, signup); err != nil {
		return nil, fmt.Errorf("signup: update %d: %w", signupID, err)
	}
	s.purge(ctx, signup.ID, signup.TaskID)
	return signup, nil
}

func (s *Service) validateAdmin(sheet *model.Sheet, policy settings.FieldPolicy, values url.Values) ([]settings.CustomField, error) {
	custom, err := s.settings.CustomFieldsFor(sheet.ID)
	if err != nil {
		return nil, err
	}
	if missing := MissingFields(values, RequiredOptions{Policy: policy, CustomFields: custom}); len(missing) > 0 {
		v := warn(KeyMissingFields, MsgMissingFields, strings.Join(missing, ", "))
		v.Missing = missing
		return nil, v
	}
	return custom, nil
}

// linkUser applies the posted linked user. Linking requires edit access to
// sign-ups, and linking anyone but yourself requires editing others' too.
func (s *Service) linkUser(ctx context.Context, actor *model.User, signup *model.Signup, values url.Values) error {
	if _, posted := values[FieldUserID]; !posted {
		return nil
	}
	raw := strings.TrimSpace(values.Get(FieldUserID))
	var userID int64
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return warn(KeySignupFormError, "Linked user is not valid.")
		}
		userID = id
	}
	if userID == signup.UserID {
		return nil
	}
	if err := s.authz.Require(ctx, actor, capabilities.Signups.Get(capabilities.EditPosts)); err != nil {
		return err
	}
	if userID != 0 && (actor == nil || userID != actor.ID) {
		if err := s.authz.Require(ctx, actor, capabilities.Signups.Get(capabilities.EditOthersPosts)); err != nil {
			return err
		}
	}
	signup.UserID = userID
	return nil
}

// Removed describes a deleted sign-up.
type Removed struct {
	Signup *model.Signup `json:"signup"`
	Task   *model.Task   `json:"task"`
	Sheet  *model.Sheet  `json:"sheet"`
}

// Remove deletes the sign-up holding token and sends the removal
// confirmation.
func (s *Service) Remove(ctx context.Context, token string) (*Removed, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalid(KeySignupInvalid, MsgSignupNotFound)
	}
	signup, err := s.repo.SignupByToken(ctx, token)
	if errors.Is(err, model.ErrNotFound) {
		return nil, invalid(KeySignupInvalid, MsgSignupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("signup: load by token: %w", err)
	}
	task, sheet, err := s.loadTask(ctx, signup.TaskID)
	if err != nil {
		return nil, err
	}
	if task.IsExpired(s.now(), sheet) {
		return nil, invalid(KeyTaskExpired, MsgTaskExpired)
	}
	if err := s.repo.DeleteSignup(ctx, signup.ID); err != nil {
		return nil, fmt.Errorf("signup: remove %d: %w", signup.ID, err)
	}
	s.logger.Info("sign-up removed", zap.Int64("task", task.ID), zap.Int64("signup", signup.ID))

	if signup.Email != "" && s.settings.IsRemovalConfirmationEmailEnabled() {
		s.notify(ctx, settings.MailRemove, sheet, task, signup)
	}
	s.purge(ctx, signup.ID, task.ID)
	return &Removed{Signup: signup, Task: task, Sheet: sheet}, nil
}

// ClearSpots deletes the given sign-ups of a sheet from the admin manage
// page. IDs belonging to other sheets are ignored. It returns the number of
// cleared spots.
func (s *Service) ClearSpots(ctx context.Context, actor *model.User, sheetID int64, ids []int64) (int, error) {
	if err := s.authz.Require(ctx, actor, capabilities.Signups.Get(capabilities.DeletePosts)); err != nil {
		return 0, err
	}
	if _, err := s.repo.GetSheet(ctx, sheetID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, invalid(KeySheetInvalid, "Invalid Sheet")
		}
		return 0, err
	}
	cleared := 0
	for _, id := range ids {
		signup, err := s.repo.GetSignup(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return cleared, fmt.Errorf("signup: load %d: %w", id, err)
		}
		task, err := s.repo.GetTask(ctx, signup.TaskID)
		if err != nil || task.SheetID != sheetID {
			continue
		}
		if err := s.repo.DeleteSignup(ctx, id); err != nil {
			return cleared, invalid(KeySignupFormError, "Error clearing a spot (Sheet ID #%d)", sheetID)
		}
		cleared++
		s.purge(ctx, id, task.ID)
	}
	s.logger.Info("spots cleared", zap.Int64("sheet", sheetID), zap.Int("count", cleared))
	return cleared, nil
}

func (s *Service) loadTask(ctx context.Context, taskID int64) (*model.Task, *model.Sheet, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil, invalid(KeyTaskInvalid, MsgTaskInvalid)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("signup: load task %d: %w", taskID, err)
	}
	sheet, err := s.repo.GetSheet(ctx, task.SheetID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil, invalid(KeySheetInvalid, MsgSheetInvalid)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("signup: load sheet %d: %w", task.SheetID, err)
	}
	return task, sheet, nil
}

func (s *Service) notify(ctx context.Context, kind string, sheet *model.Sheet, task *model.Task, signup *model.Signup) {
	if s.mailer == nil || s.composer == nil {
		return
	}
	msg, err := s.composer.Compose(kind, mail.Details{Sheet: sheet, Task: task, Signup: signup})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Warn("email not sent", zap.String("kind", kind), zap.Int64("signup", signup.ID), zap.Error(err))
	}
}

func (s *Service) purge(ctx context.Context, signupID, taskID int64) {
	if s.purger != nil {
		s.purger.ClearSignupCache(ctx, signupID, taskID)
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
