package server

import (
	"errors"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/mail"
	"github.com/goliatone/go-signupsheets/pkg/metabox"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/nonce"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/sanitize"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/sitehealth"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

// Sheet form field names outside the meta boxes.
const (
	fieldTitle   = "post_title"
	fieldSlug    = "post_name"
	fieldContent = "post_content"
	fieldStatus  = "post_status"
	fieldActive  = "is_active"
	fieldCopyRow = "copy_row"
	fieldNonce   = "_wpnonce"
)

// adminNotices are the notices selected by the "notice" query argument
// after an admin redirect.
var adminNotices = map[string]render.Notice{
	"saved":    {Level: render.LevelSuccess, Message: "Sheet saved."},
	"copied":   {Level: render.LevelSuccess, Message: "Task copied."},
	"trashed":  {Level: render.LevelSuccess, Message: "Sheet moved to the Trash."},
	"added":    {Level: render.LevelSuccess, Message: signup.MsgSignupAdded},
	"edited":   {Level: render.LevelSuccess, Message: signup.MsgSignupUpdated},
	"cleared":  {Level: render.LevelSuccess, Message: signup.MsgSpotsCleared},
	"settings": {Level: render.LevelSuccess, Message: "Settings saved."},
	"reset":    {Level: render.LevelSuccess, Message: "Settings reset to their defaults."},
	"migrate":  {Level: render.LevelSuccess, Message: "Database migration scheduled to run again."},
	"kept":     {Level: render.LevelWarn, Message: "Tasks with sign-ups were kept. Clear their sign-ups before removing them."},
}

func queryNotices(r *http.Request) []render.Notice {
	var out []render.Notice
	for _, key := range r.URL.Query()["notice"] {
		if n, ok := adminNotices[key]; ok {
			out = append(out, n)
		}
	}
	return out
}

func withNotice(raw string, keys ...string) string {
	return links.WithQuery(raw, url.Values{"notice": keys})
}

func (s *Server) adminURL(p string) string {
	return s.deps.Links.Path(links.AdminBasePath + p)
}

func (s *Server) adminSheets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx := r.Context()
	sheets, err := s.deps.Store.ListSheets(ctx, storage.SheetFilter{Order: storage.OrderByNewest})
	if err != nil {
		return err
	}
	page := views.AdminSheets{
		Layout:      s.adminLayout(r, "Sign-up Sheets", queryNotices(r)...),
		NewURL:      s.adminURL("/new-sheet"),
		SettingsURL: s.adminURL("/settings"),
		HealthURL:   s.adminURL("/site-health"),
		Sheets:      []views.AdminSheetRow{},
	}
	for i := range sheets {
		sheet := &sheets[i]
		tasks, err := s.deps.Store.TasksBySheet(ctx, sheet.ID)
		if err != nil {
			return err
		}
		counts, err := s.deps.Store.CountSignups(ctx, taskIDs(tasks))
		if err != nil {
			return err
		}
		row := views.AdminSheetRow{
			ID:        sheet.ID,
			Title:     sheet.Title,
			Status:    string(sheet.Status),
			Date:      dateRange(sheet, tasks),
			EditURL:   s.deps.Links.EditSheet(sheet.ID),
			ManageURL: s.deps.Links.ManageSignups(sheet.ID),
			ViewURL:   s.deps.Links.Sheet(sheet),
		}
		for _, t := range tasks {
			if !t.IsHeader() {
				row.Filled += counts[t.ID]
				row.Total += t.Qty
			}
		}
		page.Sheets = append(page.Sheets, row)
	}
	return s.render(w, r, http.StatusOK, views.ViewAdminSheets, page)
}

// editableSheet loads the sheet named by the id route parameter and checks
// the user may edit it. It returns nil for the new sheet screen.
func (s *Server) editableSheet(r *http.Request, ps httprouter.Params) (*model.Sheet, error) {
	raw := ps.ByName("id")
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	sheet, err := s.deps.Store.GetSheet(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sheet.Status == model.StatusTrash {
		return nil, statusErr(http.StatusNotFound, "Not found.")
	}
	ok, err := s.deps.Authz.CanSheet(r.Context(), auth.UserFrom(r.Context()), capabilities.EditPost, sheet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, capabilities.ErrForbidden
	}
	return sheet, nil
}

func (s *Server) editSheet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	sheet, err := s.editableSheet(r, ps)
	if err != nil {
		return err
	}
	var tasks []model.Task
	if sheet != nil {
		if tasks, err = s.deps.Store.TasksBySheet(r.Context(), sheet.ID); err != nil {
			return err
		}
	}
	return s.renderSheetForm(w, r, http.StatusOK, sheet, tasks, queryNotices(r)...)
}

func (s *Server) renderSheetForm(w http.ResponseWriter, r *http.Request, status int, sheet *model.Sheet, tasks []model.Task, notices ...render.Notice) error {
	ctx := r.Context()
	pro := s.deps.Settings.IsPro()
	title := "Add New Sheet"
	form := views.EditSheet{
		Action:    s.adminURL("/new-sheet"),
		TasksName: metabox.KeyTasks,
		ShowDates: pro,
		Hidden:    []render.HiddenField{render.NonceField(s.deps.Nonces.Create(nonce.ActionEditSheet, userID(r)))},
	}

	values := map[string]string{}
	current := &model.Sheet{Status: model.StatusPublish, IsActive: true}
	if sheet != nil {
		current = sheet
		title = "Edit Sheet"
		form.SheetID = sheet.ID
		form.Action = s.deps.Links.EditSheet(sheet.ID)
		form.ManageURL = s.deps.Links.ManageSignups(sheet.ID)
		form.TrashURL = s.deps.Links.EditSheet(sheet.ID) + "/trash"
		for k, v := range sheet.Meta {
			values[k] = v
		}
	}
	values[metabox.KeyDate] = model.FormatDate(current.Date)
	form.Layout = s.adminLayout(r, title, notices...)

	active := ""
	if current.IsActive {
		active = "true"
	}
	form.Inputs = []views.Input{
		{Name: fieldTitle, Label: "Title", Type: "text", Value: current.Title, Required: true},
		{Name: fieldSlug, Label: "Slug", Type: "text", Value: current.Slug},
		{Name: fieldContent, Label: "Details", Type: "textarea", Value: current.Content},
		{Name: fieldStatus, Label: "Status", Type: "select", Value: string(current.Status), Options: []model.Choice{
			{Value: string(model.StatusPublish), Label: "Published"},
			{Value: string(model.StatusDraft), Label: "Draft"},
		}},
		{Name: fieldActive, Label: "Accepting sign-ups", Type: "checkbox", Value: active},
	}
	form.Groups = views.BoxGroups(metabox.SheetMetaBoxes(pro), values, "tasks")

	counts, err := s.deps.Store.CountSignups(ctx, taskIDs(tasks))
	if err != nil {
		return err
	}
	for i, t := range tasks {
		form.Tasks = append(form.Tasks, views.TaskInput{
			Index:   i,
			ID:      t.ID,
			Title:   t.Title,
			Qty:     t.Qty,
			Date:    model.FormatDate(t.Date),
			RowType: string(t.RowType),
			Signups: counts[t.ID],
		})
	}
	form.Tasks = append(form.Tasks, views.TaskInput{Index: len(tasks), Qty: 1, RowType: string(model.RowTypeTask)})
	return s.render(w, r, status, views.ViewEditSheet, form)
}

func (s *Server) saveSheet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx := r.Context()
	existing, err := s.editableSheet(r, ps)
	if err != nil {
		return err
	}
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	if err := s.verifyNonce(r, values, fieldNonce, nonce.ActionEditSheet); err != nil {
		return err
	}

	sheet := &model.Sheet{}
	if existing != nil {
		copied := *existing
		copied.Meta = maps.Clone(existing.Meta)
		sheet = &copied
	}
	if err := s.bindSheet(sheet, values); err != nil {
		var tasks []model.Task
		if existing != nil {
			tasks, _ = s.deps.Store.TasksBySheet(ctx, existing.ID)
		}
		return s.renderSheetForm(w, r, http.StatusBadRequest, existingOr(existing, sheet), tasks,
			render.Notice{Level: render.LevelError, Message: err.Error()})
	}

	if sheet.ID == 0 {
		if err := s.deps.Store.CreateSheet(ctx, sheet); err != nil {
			return err
		}
	} else if err := s.deps.Store.UpdateSheet(ctx, sheet); err != nil {
		return err
	}

	rows := metabox.Rows(values, metabox.KeyTasks)
	copied := false
	if raw := values.Get(fieldCopyRow); raw != "" {
		if idx, err := strconv.Atoi(raw); err == nil {
			rows, copied = copyTaskRow(values, rows, idx)
		}
	}
	kept, err := s.saveTasks(r, sheet, rows)
	if err != nil {
		return err
	}
	s.logger.Info("sheet saved", zap.Int64("sheet", sheet.ID), zap.Int("tasks", len(rows)), zap.Int64("user", userID(r)))
	s.purgePages(ctx, cache.Target{Kind: cache.KindSheet, ID: sheet.ID})

	notices := []string{"saved"}
	if copied {
		notices = append(notices, "copied")
	}
	if kept {
		notices = append(notices, "kept")
	}
	http.Redirect(w, r, withNotice(s.deps.Links.EditSheet(sheet.ID), notices...), http.StatusSeeOther)
	return nil
}

func existingOr(existing, fallback *model.Sheet) *model.Sheet {
	if existing != nil {
		return existing
	}
	if fallback.Status == "" {
		fallback.Status = model.StatusPublish
	}
	return fallback
}

// bindSheet applies the posted sheet fields and meta boxes to sheet.
func (s *Server) bindSheet(sheet *model.Sheet, values url.Values) error {
	sheet.Title = sanitize.Text(values.Get(fieldTitle))
	sheet.Content = sanitize.HTML(values.Get(fieldContent))
	sheet.IsActive = values.Get(fieldActive) != ""
	sheet.Status = model.StatusPublish
	if model.Status(values.Get(fieldStatus)) == model.StatusDraft {
		sheet.Status = model.StatusDraft
	}
	slug := values.Get(fieldSlug)
	if strings.TrimSpace(slug) == "" {
		slug = sheet.Title
	}
	sheet.Slug = strings.ReplaceAll(metabox.Slugify(slug), "_", "-")

	if sheet.Meta == nil {
		sheet.Meta = map[string]string{}
	}
	for _, box := range metabox.SheetMetaBoxes(s.deps.Settings.IsPro()) {
		if box.Name == "tasks" {
			continue
		}
		bound, err := metabox.Bind(box.Fields, values)
		if err != nil {
			return err
		}
		for k, v := range bound {
			if k == metabox.KeyDate {
				date, err := model.ParseDate(v)
				if err != nil {
					return errors.New("Date must use the YYYY-MM-DD format.")
				}
				sheet.Date = date
				continue
			}
			if v == "" {
				delete(sheet.Meta, k)
				continue
			}
			sheet.Meta[k] = v
		}
	}
	if sheet.Title == "" {
		return errors.New("Title is required.")
	}
	return nil
}

// copyTaskRow inserts a copy of the posted row idx right after it. The copy
// never carries the original task ID.
func copyTaskRow(values url.Values, rows []map[string]string, idx int) ([]map[string]string, bool) {
	target, before := url.Values{}, url.Values{}
	prefix := metabox.KeyTasks + "["
	for name, vs := range values {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			continue
		}
		n, err := strconv.Atoi(rest[:end])
		switch {
		case err != nil:
		case n == idx:
			target[name] = vs
		case n < idx:
			before[name] = vs
		}
	}
	row := metabox.Rows(target, metabox.KeyTasks)
	if len(row) != 1 {
		return rows, false
	}
	dup := maps.Clone(row[0])
	delete(dup, "id")
	pos := min(len(metabox.Rows(before, metabox.KeyTasks))+1, len(rows))
	return slices.Insert(rows, pos, dup), true
}

// saveTasks stores rows as the tasks of sheet in order. Existing tasks left
// out of rows are deleted unless they hold sign-ups; kept reports whether
// any had to stay.
func (s *Server) saveTasks(r *http.Request, sheet *model.Sheet, rows []map[string]string) (bool, error) {
	ctx := r.Context()
	existing, err := s.deps.Store.TasksBySheet(ctx, sheet.ID)
	if err != nil {
		return false, err
	}
	byID := make(map[int64]model.Task, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}
	pro := s.deps.Settings.IsPro()

	seen := map[int64]bool{}
	position := 0
	for _, row := range rows {
		title := sanitize.Text(row["title"])
		if title == "" {
			continue
		}
		task := model.Task{SheetID: sheet.ID, IsActive: true}
		if id, err := strconv.ParseInt(row["id"], 10, 64); err == nil {
			if prev, ok := byID[id]; ok && !seen[id] {
				task = prev
			}
		}
		task.Title = title
		task.Position = position
		task.RowType = model.RowTypeTask
		if row["task_row_type"] == string(model.RowTypeHeader) {
			task.RowType = model.RowTypeHeader
		}
		if task.IsHeader() {
			task.Qty = 0
		} else {
			qty, err := strconv.Atoi(strings.TrimSpace(row["qty"]))
			if err != nil || qty < 1 {
				qty = 1
			}
			task.Qty = qty
		}
		if pro {
			if date, err := model.ParseDate(row["date"]); err == nil {
				task.Date = date
			}
		}
		if err := s.deps.Store.SaveTask(ctx, &task); err != nil {
			return false, err
		}
		seen[task.ID] = true
		position++
	}

	var orphans []int64
	for _, t := range existing {
		if !seen[t.ID] {
			orphans = append(orphans, t.ID)
		}
	}
	if len(orphans) == 0 {
		return false, nil
	}
	counts, err := s.deps.Store.CountSignups(ctx, orphans)
	if err != nil {
		return false, err
	}
	kept := false
	for _, id := range orphans {
		if counts[id] > 0 {
			kept = true
			continue
		}
		if err := s.deps.Store.DeleteTask(ctx, id); err != nil {
			return kept, err
		}
	}
	return kept, nil
}

func (s *Server) trashSheet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	sheet, err := s.editableSheet(r, ps)
	if err != nil {
		return err
	}
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	if err := s.verifyNonce(r, values, fieldNonce, nonce.ActionEditSheet); err != nil {
		return err
	}
	if err := s.deps.Store.TrashSheet(r.Context(), sheet.ID); err != nil {
		return err
	}
	s.logger.Info("sheet trashed", zap.Int64("sheet", sheet.ID), zap.Int64("user", userID(r)))
	s.purgePages(r.Context(), cache.Target{Kind: cache.KindSheet, ID: sheet.ID})
	http.Redirect(w, r, withNotice(s.adminURL("/"), "trashed"), http.StatusSeeOther)
	return nil
}

// readableSheet loads the sheet of the manage screen.
func (s *Server) readableSheet(r *http.Request, ps httprouter.Params) (*model.Sheet, error) {
	id, err := parseID(ps.ByName("id"))
	if err != nil {
		return nil, err
	}
	sheet, err := s.deps.Store.GetSheet(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sheet.Status == model.StatusTrash {
		return nil, statusErr(http.StatusNotFound, "Not found.")
	}
	ok, err := s.deps.Authz.CanSheet(r.Context(), auth.UserFrom(r.Context()), capabilities.ReadPost, sheet)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, capabilities.ErrForbidden
	}
	return sheet, nil
}

func (s *Server) manageSignups(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx := r.Context()
	sheet, err := s.readableSheet(r, ps)
	if err != nil {
		return err
	}
	user := auth.UserFrom(ctx)
	tasks, err := s.deps.Store.TasksBySheet(ctx, sheet.ID)
	if err != nil {
		return err
	}
	signups, err := s.deps.Store.SignupsByTasks(ctx, taskIDs(tasks))
	if err != nil {
		return err
	}
	custom, err := s.deps.Settings.CustomFieldsFor(sheet.ID)
	if err != nil {
		return err
	}
	canAdd, err := s.deps.Authz.Can(ctx, user, capabilities.Signups.Get(capabilities.CreatePosts))
	if err != nil {
		return err
	}
	canClear, err := s.deps.Authz.Can(ctx, user, capabilities.Signups.Get(capabilities.DeletePosts))
	if err != nil {
		return err
	}
	canEditSheet, err := s.deps.Authz.CanSheet(ctx, user, capabilities.EditPost, sheet)
	if err != nil {
		return err
	}

	uid := userID(r)
	page := views.ManageSignups{
		Layout:      s.adminLayout(r, "Manage Sign-ups", queryNotices(r)...),
		SheetTitle:  sheet.Title,
		Date:        dateRange(sheet, tasks),
		Details:     sheet.Content,
		ClearAction: r.URL.Path,
		Hidden:      []render.HiddenField{render.NonceField(s.deps.Nonces.Create(nonce.ActionClearMultiple, uid))},
	}
	if canEditSheet {
		page.EditURL = s.deps.Links.EditSheet(sheet.ID)
	}
	for _, task := range tasks {
		mt := views.ManageTask{ID: task.ID, Title: task.Title, Header: task.IsHeader()}
		if mt.Header {
			page.Tasks = append(page.Tasks, mt)
			continue
		}
		mt.Date = displayDate(task.EffectiveDate(sheet))
		list := signups[task.ID]
		if canAdd && task.OpenSpots(len(list)) > 0 {
			mt.AddURL = links.WithQuery(s.adminURL("/signup"), url.Values{"task_id": {itoa(task.ID)}})
		}
		for i := 0; i < task.Qty || i < len(list); i++ {
			spot := views.ManageSpot{Number: i + 1}
			if i < len(list) {
				su := list[i]
				spot.SignupID = su.ID
				spot.Name = su.FullName()
				spot.Email = su.Email
				spot.Phone = su.Phone
				spot.Address = strings.Join(nonEmpty(su.Address, su.City, su.State, su.Zip), ", ")
				for _, f := range custom {
					if v := su.Fields[f.Slug]; v != "" {
						spot.Fields = append(spot.Fields, views.FieldValue{Label: f.Name, Value: v})
					}
				}
				if ok, err := s.deps.Authz.CanEditSignup(ctx, user, &su); err != nil {
					return err
				} else if ok {
					spot.EditURL = links.WithQuery(s.adminURL("/signup"), url.Values{"signup_id": {itoa(su.ID)}})
				}
				if canClear {
					spot.ClearURL = links.WithQuery(s.adminURL("/sheets/"+itoa(sheet.ID)+"/clear"), url.Values{
						"signup_id": {itoa(su.ID)},
						fieldNonce:  {s.deps.Nonces.Create(nonce.ClearSignupAction(su.ID), uid)},
					})
				}
			}
			mt.Spots = append(mt.Spots, spot)
		}
		page.Tasks = append(page.Tasks, mt)
	}
	return s.render(w, r, http.StatusOK, views.ViewManageSignups, page)
}

func (s *Server) clearSignups(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	sheet, err := s.readableSheet(r, ps)
	if err != nil {
		return err
	}
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	if err := s.verifyNonce(r, values, fieldNonce, nonce.ActionClearMultiple); err != nil {
		return err
	}
	var ids []int64
	for _, raw := range values["clear_signup_ids[]"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return s.clear(w, r, sheet, ids)
}

func (s *Server) clearSignup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	sheet, err := s.readableSheet(r, ps)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	id, err := parseID(q.Get("signup_id"))
	if err != nil {
		return err
	}
	if err := s.verifyNonce(r, q, fieldNonce, nonce.ClearSignupAction(id)); err != nil {
		return err
	}
	return s.clear(w, r, sheet, []int64{id})
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request, sheet *model.Sheet, ids []int64) error {
	dest := s.deps.Links.ManageSignups(sheet.ID)
	if len(ids) == 0 {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return nil
	}
	n, err := s.deps.Signups.ClearSpots(r.Context(), auth.UserFrom(r.Context()), sheet.ID, ids)
	if err != nil {
		return err
	}
	s.logger.Info("spots cleared", zap.Int64("sheet", sheet.ID), zap.Int("count", n), zap.Int64("user", userID(r)))
	http.Redirect(w, r, withNotice(dest, "cleared"), http.StatusSeeOther)
	return nil
}

// signupTarget resolves the task_id (new sign-up) or signup_id (edit)
// query argument of the admin sign-up form.
type signupTarget struct {
	signup *model.Signup
	task   *model.Task
	sheet  *model.Sheet
}

func (s *Server) loadSignupTarget(r *http.Request) (signupTarget, error) {
	ctx := r.Context()
	q := r.URL.Query()
	user := auth.UserFrom(ctx)
	var t signupTarget

	if raw := q.Get("signup_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return t, err
		}
		if t.signup, err = s.deps.Store.GetSignup(ctx, id); err != nil {
			return t, err
		}
		ok, err := s.deps.Authz.CanEditSignup(ctx, user, t.signup)
		if err != nil {
			return t, err
		}
		if !ok {
			return t, capabilities.ErrForbidden
		}
		q.Set("task_id", itoa(t.signup.TaskID))
	} else if err := s.deps.Authz.Require(ctx, user, capabilities.Signups.Get(capabilities.CreatePosts)); err != nil {
		return t, err
	}

	id, err := parseID(q.Get("task_id"))
	if err != nil {
		return t, err
	}
	if t.task, err = s.deps.Store.GetTask(ctx, id); err != nil {
		return t, err
	}
	if t.task.IsHeader() {
		return t, statusErr(http.StatusNotFound, "Not found.")
	}
	if t.sheet, err = s.deps.Store.GetSheet(ctx, t.task.SheetID); err != nil {
		return t, err
	}
	return t, nil
}

func (s *Server) editSignup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	t, err := s.loadSignupTarget(r)
	if err != nil {
		return err
	}
	return s.renderSignupEditor(w, r, http.StatusOK, t, nil)
}

func (s *Server) renderSignupEditor(w http.ResponseWriter, r *http.Request, status int, t signupTarget, posted url.Values, notices ...render.Notice) error {
	ctx := r.Context()
	st := s.deps.Settings
	custom, err := st.CustomFieldsFor(t.sheet.ID)
	if err != nil {
		return err
	}
	values := signup.InitialValues(nil, t.signup, posted, false)
	if posted != nil {
		if _, ok := posted[signup.FieldUserID]; ok {
			values["user_id"] = posted.Get(signup.FieldUserID)
		}
	}

	title := "Add Sign-up"
	hidden := []render.HiddenField{render.NonceField(s.deps.Nonces.Create(nonce.ActionEditSignup, userID(r)))}
	if t.signup != nil {
		title = "Edit Sign-up"
		hidden = append(hidden, render.Hidden("signup_id", t.signup.ID))
	} else {
		hidden = append(hidden, render.Hidden("task_id", t.task.ID))
	}

	inputs := signupInputs(st.FieldPolicy(t.sheet), custom, values)
	canLink, err := s.deps.Authz.Can(ctx, auth.UserFrom(ctx), capabilities.Signups.Get(capabilities.EditOthersPosts))
	if err != nil {
		return err
	}
	if canLink {
		users, err := s.deps.Store.ListUsers(ctx)
		if err != nil {
			return err
		}
		linked := views.Input{
			Name:    signup.FieldUserID,
			Label:   "Linked User",
			Type:    "select",
			Value:   values["user_id"],
			Options: userChoices(users),
		}
		if s.deps.UserSearch != nil {
			linked.Source = s.deps.Links.Path(s.deps.UserSearch.MountPath(links.AdminBasePath))
		}
		inputs = append(inputs, linked)
	}

	taskName := t.task.Title
	if d := t.task.EffectiveDate(t.sheet); !d.IsZero() {
		taskName += " (" + displayDate(d) + ")"
	}
	return s.render(w, r, status, views.ViewEditSignup, views.EditSignup{
		Layout:    s.adminLayout(r, title, notices...),
		Action:    s.adminURL("/signup"),
		Hidden:    hidden,
		SheetName: t.sheet.Title,
		TaskName:  taskName,
		Inputs:    inputs,
		BackURL:   s.deps.Links.ManageSignups(t.sheet.ID),
	})
}

func (s *Server) saveSignup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx := r.Context()
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	if err := s.verifyNonce(r, values, fieldNonce, nonce.ActionEditSignup); err != nil {
		return err
	}
	// the form posts its target in the body; reuse the query lookup
	q := r.URL.Query()
	for _, key := range []string{"signup_id", "task_id"} {
		if v := values.Get(key); v != "" {
			q.Set(key, v)
		}
	}
	r.URL.RawQuery = q.Encode()
	t, err := s.loadSignupTarget(r)
	if err != nil {
		return err
	}

	user := auth.UserFrom(ctx)
	notice := "added"
	if t.signup != nil {
		_, err = s.deps.Signups.Update(ctx, user, t.signup.ID, values)
		notice = "edited"
	} else {
		_, err = s.deps.Signups.Add(ctx, user, t.task.ID, values)
	}
	if v, ok := signup.AsValidation(err); ok {
		return s.renderSignupEditor(w, r, http.StatusOK, t, values, v.Notice())
	}
	if err != nil {
		return err
	}
	http.Redirect(w, r, withNotice(s.deps.Links.ManageSignups(t.sheet.ID), notice), http.StatusSeeOther)
	return nil
}

func (s *Server) sectionInput(r *http.Request) (metabox.SectionInput, error) {
	ctx := r.Context()
	roles, err := s.deps.Store.Roles(ctx)
	if err != nil {
		return metabox.SectionInput{}, err
	}
	sheets, err := s.deps.Store.ListSheets(ctx, storage.SheetFilter{Order: storage.OrderByTitle})
	if err != nil {
		return metabox.SectionInput{}, err
	}
	in := metabox.SectionInput{Pro: s.deps.Settings.IsPro(), Roles: roles}
	for _, sh := range sheets {
		in.Sheets = append(in.Sheets, model.Choice{Value: itoa(sh.ID), Label: sh.Title})
	}
	if s.deps.Scheduler != nil {
		if next, ok := s.deps.Scheduler.Next(mail.ReminderJobName); ok {
			in.NextReminder = next.Format("2006-01-02 15:04") + " (" + humanize.RelTime(next, s.now(), "ago", "from now") + ")"
		}
	}
	uid := userID(r)
	if s.deps.Updater != nil {
		in.RerunMigrateURL = links.WithQuery(s.adminURL("/settings/rerun-migrate"),
			url.Values{fieldNonce: {s.deps.Nonces.Create(nonce.ActionRerunMigrate, uid)}})
	}
	in.ResetURL = links.WithQuery(s.adminURL("/settings/reset"),
		url.Values{fieldNonce: {s.deps.Nonces.Create(nonce.ActionReset, uid)}})
	return in, nil
}

func (s *Server) settingsPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	in, err := s.sectionInput(r)
	if err != nil {
		return err
	}
	return s.render(w, r, http.StatusOK, views.ViewSettings, views.Settings{
		Layout:   s.adminLayout(r, "Sign-up Sheets Settings", queryNotices(r)...),
		Action:   s.adminURL("/settings"),
		Hidden:   []render.HiddenField{render.NonceField(s.deps.Nonces.Create(nonce.ActionSettings, userID(r)))},
		Sections: views.SectionGroups(metabox.SettingsSections(in), s.deps.Settings.All()),
	})
}

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx := r.Context()
	values, err := parseForm(w, r)
	if err != nil {
		return err
	}
	if err := s.verifyNonce(r, values, fieldNonce, nonce.ActionSettings); err != nil {
		return err
	}
	in, err := s.sectionInput(r)
	if err != nil {
		return err
	}
	var changed []string
	for _, sec := range metabox.SettingsSections(in) {
		bound, err := metabox.Bind(sec.Options, values)
		if err != nil {
			return err
		}
		for _, key := range metabox.Keys(sec.Options) {
			v, ok := bound[key]
			if !ok {
				continue
			}
			updated, err := s.deps.Settings.Set(ctx, key, v)
			if err != nil {
				return err
			}
			if updated {
				changed = append(changed, key)
			}
			if s.deps.Roles != nil {
				if err := s.deps.Roles.AfterSettingsSave(ctx, key, updated); err != nil {
					return err
				}
			}
		}
	}
	s.logger.Info("settings saved", zap.Strings("changed", changed), zap.Int64("user", userID(r)))
	if len(changed) > 0 {
		s.purgeAllPages(ctx)
	}
	http.Redirect(w, r, withNotice(s.adminURL("/settings"), "settings"), http.StatusSeeOther)
	return nil
}

func (s *Server) resetSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	ctx := r.Context()
	if err := s.verifyNonce(r, r.URL.Query(), fieldNonce, nonce.ActionReset); err != nil {
		return err
	}
	reset, err := s.deps.Settings.Reset(ctx)
	if err != nil {
		return err
	}
	if s.deps.Roles != nil {
		if err := s.deps.Roles.Reset(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("settings reset", zap.Int("options", len(reset)), zap.Int64("user", userID(r)))
	s.purgeAllPages(ctx)
	http.Redirect(w, r, withNotice(s.adminURL("/settings"), "reset"), http.StatusSeeOther)
	return nil
}

func (s *Server) rerunMigrate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	if s.deps.Updater == nil {
		return statusErr(http.StatusNotFound, "Not found.")
	}
	if err := s.verifyNonce(r, r.URL.Query(), fieldNonce, nonce.ActionRerunMigrate); err != nil {
		return err
	}
	if err := s.deps.Updater.Rerun(r.Context()); err != nil {
		return err
	}
	http.Redirect(w, r, withNotice(s.adminURL("/settings"), "migrate"), http.StatusSeeOther)
	return nil
}

func (s *Server) siteHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	in := sitehealth.Input{Version: s.deps.Version, Settings: s.deps.Settings, Now: s.now()}
	if s.deps.Scheduler != nil {
		in.Jobs = s.deps.Scheduler.Jobs()
	}
	report := sitehealth.Build(in)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	if !s.deps.Views.Has(format) {
		return statusErr(http.StatusBadRequest, "Unknown format.")
	}
	var (
		body        []byte
		contentType string
		err         error
	)
	if format == "html" {
		body, contentType, err = s.renderBytes(r.Context(), sitehealth.View, siteHealthPage{
			Layout: s.adminLayout(r, report.Title),
			Fields: report.Fields,
			Jobs:   report.Jobs,
		})
	} else {
		body, contentType, err = sitehealth.Render(r.Context(), s.deps.Views, format, report)
	}
	if err != nil {
		return err
	}
	writeBody(w, http.StatusOK, contentType, body)
	return nil
}

type siteHealthPage struct {
	views.Layout
	Fields []sitehealth.Field `json:"fields"`
	Jobs   []sitehealth.Job   `json:"jobs"`
}
