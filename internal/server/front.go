package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/captcha"
	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/nonce"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

// Form error strings shown instead of the sign-up form.
const (
	msgNoTask  = "Task not found."
	msgNoForm  = "No Sign-up Form Found."
	msgNoSheet = "No Sign-up Sheet Found."
)

// successNonceField carries the nonce proving a redirect came from a
// successful sign-up.
const successNonceField = "_susnonce"

func successAction(signups, tasks string) string {
	return "signup-success-" + signups + "-tasks-" + tasks
}

func (s *Server) sheetList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	return s.servePage(w, r, SheetListTarget, func() (string, any, error) {
		rows, err := s.openSheets(r.Context())
		if err != nil {
			return "", nil, err
		}
		return views.ViewSheetList, views.SheetList{Layout: s.layout(r, "Sign-up Sheets"), Sheets: rows}, nil
	})
}

func (s *Server) sheetPage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	sheet, err := s.visibleSheet(r, ps.ByName("sheet"))
	if err != nil {
		return err
	}
	q := r.URL.Query()
	if q.Has("task_id") || q.Has("task_ids[]") {
		return s.renderSignupForm(w, r, sheet, formTaskIDs(q), nil, nil)
	}
	return s.servePage(w, r, cache.Target{Kind: cache.KindSheet, ID: sheet.ID}, func() (string, any, error) {
		page, err := s.sheetView(r, sheet)
		return views.ViewSheet, page, err
	})
}

func formTaskIDs(q url.Values) []int64 {
	raw := append(append([]string{}, q["task_ids[]"]...), q["task_id"]...)
	var ids []int64
	for _, v := range raw {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Server) sheetView(r *http.Request, sheet *model.Sheet) (views.SheetPage, error) {
	ctx := r.Context()
	st := s.deps.Settings
	tasks, err := s.deps.Store.TasksBySheet(ctx, sheet.ID)
	if err != nil {
		return views.SheetPage{}, err
	}
	signups, err := s.deps.Store.SignupsByTasks(ctx, taskIDs(tasks))
	if err != nil {
		return views.SheetPage{}, err
	}
	custom, err := st.CustomFieldsFor(sheet.ID)
	if err != nil {
		return views.SheetPage{}, err
	}
	taskFields, err := st.CustomTaskFields()
	if err != nil {
		return views.SheetPage{}, err
	}

	var notices []render.Notice
	verified := s.verifiedSignups(r)
	if verified != nil {
		notices = append(notices, render.Notice{Level: render.LevelSuccess, Message: signup.MsgSignupSuccess})
	}

	now := s.now()
	user := auth.UserFrom(ctx)
	mode := st.DisplayNameMode()
	hash := st.SignUpLinkHash(sheet.ID)
	ownerRemoval := user != nil && !st.IsRemovalHidden() && mode != model.DisplayNameAnonymous

	page := views.SheetPage{
		Layout:         s.layout(r, sheet.Title, notices...),
		SheetID:        sheet.ID,
		Anchor:         strings.TrimPrefix(hash, "#"),
		BackURL:        s.deps.Links.Path(links.SheetsPath),
		Date:           dateRange(sheet, tasks),
		Content:        sheet.Content,
		Expired:        sheetExpired(sheet, tasks, now),
		TaskTitleLabel: st.Text("task_title_label"),
	}
	for _, task := range tasks {
		row := views.TaskRow{ID: task.ID, Title: task.Title, Header: task.IsHeader()}
		if row.Header {
			page.Tasks = append(page.Tasks, row)
			continue
		}
		if !task.Date.IsZero() {
			row.Date = displayDate(task.Date)
			page.ShowDates = true
		}
		row.Expired = task.IsExpired(now, sheet)
		for _, f := range taskFields {
			if v := strings.TrimSpace(task.Meta[f.Slug]); v != "" {
				row.Extra = append(row.Extra, views.FieldValue{Label: f.Name, Value: v})
			}
		}

		list := signups[task.ID]
		open := task.OpenSpots(len(list))
		if open > 0 && !row.Expired && sheet.IsActive && task.IsActive {
			row.SignupURL = s.deps.Links.SignupForm(sheet, hash, task.ID)
		}
		for i := 0; i < task.Qty || i < len(list); i++ {
			spot := views.SpotRow{Number: i + 1}
			if i < len(list) {
				su := list[i]
				spot.Name = su.DisplayName(mode)
				if mode != model.DisplayNameAnonymous {
					spot.Fields = s.spotFields(su, custom)
				}
				owned := ownerRemoval && su.UserID == user.ID
				if !row.Expired && su.RemovalToken != "" && (owned || verified[su.ID]) {
					spot.RemovalURL = s.deps.Links.Removal(su.RemovalToken)
				}
			}
			row.Spots = append(row.Spots, spot)
		}
		page.Tasks = append(page.Tasks, row)
	}
	return page, nil
}

// spotFields lists the sign-up details shown next to a filled spot: every
// field when all data is displayed, otherwise only custom fields flagged
// for the front-end.
func (s *Server) spotFields(su model.Signup, custom []settings.CustomField) []views.FieldValue {
	all := s.deps.Settings.IsDisplayAllSignupData()
	var out []views.FieldValue
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, views.FieldValue{Label: label, Value: value})
		}
	}
	if all {
		add("E-mail", su.Email)
		add("Phone", su.Phone)
		add("Address", strings.Join(nonEmpty(su.Address, su.City, su.State, su.Zip), ", "))
	}
	for _, f := range custom {
		if all || f.FrontendResults {
			add(f.Name, su.Fields[f.Slug])
		}
	}
	return out
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// verifiedSignups returns the sign-up IDs of a verified success redirect,
// or nil when r is not one.
func (s *Server) verifiedSignups(r *http.Request) map[int64]bool {
	q := r.URL.Query()
	if q.Get("action") != signup.ActionSignup || q.Get("status") != "success" {
		return nil
	}
	action := successAction(q.Get("signups"), q.Get("tasks"))
	if !s.deps.Nonces.Verify(q.Get(successNonceField), action, userID(r)) {
		return nil
	}
	out := map[int64]bool{}
	for _, raw := range strings.Split(q.Get("signups"), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			out[id] = true
		}
	}
	return out
}

// renderSignupForm shows the sign-up form for ids on sheet. posted refills
// the inputs after a rejected submission described by problem.
func (s *Server) renderSignupForm(w http.ResponseWriter, r *http.Request, sheet *model.Sheet, ids []int64, posted url.Values, problem *signup.ValidationError) error {
	ctx := r.Context()
	st := s.deps.Settings
	hash := st.SignUpLinkHash(sheet.ID)

	var notices []render.Notice
	if problem != nil {
		notices = append(notices, problem.Notice())
	}
	form := views.SignupForm{
		Layout:      s.layout(r, sheet.Title, notices...),
		SheetTitle:  sheet.Title,
		Action:      r.URL.RequestURI(),
		GoBackURL:   s.deps.Links.Sheet(sheet) + hash,
		SubmitLabel: "Sign me up!",
	}

	titles, formErr, err := s.formTasks(r, sheet, ids)
	if err != nil {
		return err
	}
	if formErr != "" {
		form.Error = formErr
		return s.render(w, r, http.StatusNotFound, views.ViewSignupForm, form)
	}
	form.TaskTitles = model.JoinTitles(titles)

	uid := userID(r)
	for _, id := range ids {
		form.Hidden = append(form.Hidden, render.Hidden(signup.FieldTaskIDs, id))
	}
	form.Hidden = append(form.Hidden,
		render.Hidden(signup.FieldAction, signup.ActionSignup),
		render.NonceField(s.deps.Nonces.Create(nonce.ActionSignup, uid), signup.FieldNonce),
	)

	custom, err := st.CustomFieldsFor(sheet.ID)
	if err != nil {
		return err
	}
	values := signup.InitialValues(auth.UserFrom(ctx), nil, posted, !st.IsUserAutopopulateDisabled())
	form.Inputs = signupInputs(st.FieldPolicy(sheet), custom, values)
	form.Honeypot = !st.IsHoneypotDisabled()
	if !st.IsAllCaptchaDisabled() {
		if st.IsRecaptchaEnabled() {
			form.RecaptchaSiteKey = st.Value(settings.OptRecaptchaPublicKey)
			form.RecaptchaVersion = st.RecaptchaVersion()
		} else {
			form.SimpleCaptcha = true
			form.CaptchaQuestion = captcha.SimpleQuestion
		}
	}
	return s.render(w, r, http.StatusOK, views.ViewSignupForm, form)
}

// formTasks resolves the titles of the tasks being signed up for. A non
// empty message replaces the form when the tasks do not belong to sheet.
func (s *Server) formTasks(r *http.Request, sheet *model.Sheet, ids []int64) ([]string, string, error) {
	if len(ids) == 0 {
		return nil, msgNoTask, nil
	}
	ctx := r.Context()
	var titles []string
	for _, id := range ids {
		task, err := s.deps.Store.GetTask(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			return nil, msgNoForm, nil
		}
		if err != nil {
			return nil, "", err
		}
		if task.IsHeader() {
			return nil, msgNoForm, nil
		}
		if task.SheetID != sheet.ID {
			owner, err := s.deps.Store.GetSheet(ctx, task.SheetID)
			if errors.Is(err, model.ErrNotFound) || (err == nil && owner.Status == model.StatusTrash) {
				return nil, msgNoSheet, nil
			}
			if err != nil {
				return nil, "", err
			}
			return nil, msgNoForm, nil
		}
		title := task.Title
		if d := task.EffectiveDate(sheet); !d.IsZero() {
			title += " on " + displayDate(d)
		}
		titles = append(titles, title)
	}
	return titles, "", nil
}

func (s *Server) submitSignup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	sheet, err := s.visibleSheet(r, ps.ByName("sheet"))
	if err != nil {
		return err
	}
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	ids := signup.TaskIDs(values)
	if len(ids) == 0 {
		ids = formTaskIDs(r.URL.Query())
	}
	if !s.deps.Nonces.Verify(values.Get(signup.FieldNonce), nonce.ActionSignup, userID(r)) {
		return s.renderSignupForm(w, r, sheet, ids, values, signup.ErrNonceInvalid())
	}

	result, err := s.deps.Signups.Submit(r.Context(), signup.Submission{
		Values:   values,
		RemoteIP: remoteIP(r),
		Host:     r.Host,
		User:     auth.UserFrom(r.Context()),
	})
	if err != nil {
		v, ok := signup.AsValidation(err)
		if !ok {
			return err
		}
		if len(result.SignupIDs) > 0 {
			s.logger.Info("partial sign-up kept",
				zap.Int64("sheet", sheet.ID), zap.Int64s("signups", result.SignupIDs), zap.String("reason", v.Key))
		}
		return s.renderSignupForm(w, r, sheet, ids, values, v)
	}

	target := result.Sheet
	if target == nil {
		target = sheet
	}
	q := result.Query()
	q.Set(successNonceField, s.deps.Nonces.Create(successAction(q.Get("signups"), q.Get("tasks")), userID(r)))
	dest := links.WithQuery(s.deps.Links.Sheet(target)+s.deps.Settings.SignUpLinkHash(target.ID), q)
	http.Redirect(w, r, dest, http.StatusSeeOther)
	return nil
}

func (s *Server) removeSignup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	removed, err := s.deps.Signups.Remove(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		return err
	}
	return s.render(w, r, http.StatusOK, views.ViewMessage, views.Message{
		Layout:  s.layout(r, removed.Sheet.Title, render.Notice{Level: render.LevelSuccess, Message: signup.MsgSignupRemoved}),
		Message: signup.MsgSignupRemoved,
		BackURL: s.deps.Links.Sheet(removed.Sheet),
	})
}

type userSignup struct {
	ID         int64  `json:"id"`
	Sheet      string `json:"sheet"`
	SheetURL   string `json:"sheetUrl"`
	Task       string `json:"task"`
	Date       string `json:"date,omitempty"`
	RemovalURL string `json:"-"`
}

// signupsOf lists the sign-ups linked to user with their task and sheet.
func (s *Server) signupsOf(r *http.Request, user *model.User) ([]userSignup, error) {
	ctx := r.Context()
	list, err := s.deps.Store.SignupsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	sheets := map[int64]*model.Sheet{}
	now := s.now()
	out := make([]userSignup, 0, len(list))
	for _, su := range list {
		task, err := s.deps.Store.GetTask(ctx, su.TaskID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sheet, ok := sheets[task.SheetID]
		if !ok {
			if sheet, err = s.deps.Store.GetSheet(ctx, task.SheetID); err != nil && !errors.Is(err, model.ErrNotFound) {
				return nil, err
			}
			sheets[task.SheetID] = sheet
		}
		if sheet == nil || sheet.Status == model.StatusTrash {
			continue
		}
		row := userSignup{
			ID:       su.ID,
			Sheet:    sheet.Title,
			SheetURL: s.deps.Links.Sheet(sheet),
			Task:     task.Title,
			Date:     model.FormatDate(task.EffectiveDate(sheet)),
		}
		if !s.deps.Settings.IsRemovalHidden() && !task.IsExpired(now, sheet) && su.RemovalToken != "" {
			row.RemovalURL = s.deps.Links.Removal(su.RemovalToken)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Server) userSignups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	user := auth.UserFrom(r.Context())
	if user == nil {
		return auth.ErrNoSession
	}
	list, err := s.signupsOf(r, user)
	if err != nil {
		return err
	}
	page := views.UserSignups{Layout: s.layout(r, "My Sign-ups"), Signups: []views.UserSignupRow{}}
	for _, su := range list {
		date, _ := model.ParseDate(su.Date)
		page.Signups = append(page.Signups, views.UserSignupRow{
			Sheet:      su.Sheet,
			SheetURL:   su.SheetURL,
			Task:       su.Task,
			Date:       displayDate(date),
			RemovalURL: su.RemovalURL,
		})
	}
	return s.render(w, r, http.StatusOK, views.ViewUserSignups, page)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	return s.renderLogin(w, r, http.StatusOK, "", r.URL.Query().Get("redirect_to"))
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, login, redirect string, notices ...render.Notice) error {
	return s.render(w, r, status, views.ViewLogin, views.Login{
		Layout:   s.layout(r, "Log In", notices...),
		Action:   LoginPath,
		Redirect: redirect,
		Login:    login,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	login, redirect := strings.TrimSpace(values.Get("log")), values.Get("redirect_to")
	user, err := auth.Authenticate(r.Context(), s.deps.Store, login, values.Get("pwd"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Info("login failed", zap.String("login", login), zap.String("ip", remoteIP(r)))
		return s.renderLogin(w, r, http.StatusUnauthorized, login, redirect,
			render.Notice{Level: render.LevelError, Message: "Unknown username or incorrect password."})
	}
	if err != nil {
		return err
	}
	if err := s.deps.Sessions.Issue(w, user); err != nil {
		return err
	}
	http.Redirect(w, r, localRedirect(redirect), http.StatusSeeOther)
	return nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	s.deps.Sessions.Clear(w)
	http.Redirect(w, r, links.SheetsPath, http.StatusSeeOther)
	return nil
}

// localRedirect keeps redirects on this site.
func localRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return links.SheetsPath
	}
	return raw
}
