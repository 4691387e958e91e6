package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/captcha"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/nonce"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

type apiSheet struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content,omitempty"`
	Date        string    `json:"date,omitempty"`
	Expired     bool      `json:"expired"`
	SignupNonce string    `json:"signupNonce"`
	Tasks       []apiTask `json:"tasks"`
}

type apiTask struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Qty       int      `json:"qty"`
	Date      string   `json:"date,omitempty"`
	Header    bool     `json:"header,omitempty"`
	Expired   bool     `json:"expired"`
	OpenSpots int      `json:"openSpots"`
	Filled    []string `json:"filled"`
}

type signupRequest struct {
	TaskIDs           []int64           `json:"taskIds"`
	Nonce             string            `json:"nonce"`
	FirstName         string            `json:"firstname"`
	LastName          string            `json:"lastname"`
	Email             string            `json:"email"`
	Phone             string            `json:"phone"`
	Address           string            `json:"address"`
	City              string            `json:"city"`
	State             string            `json:"state"`
	Zip               string            `json:"zip"`
	Website           string            `json:"website"`
	SpamCheck         string            `json:"spamCheck"`
	RecaptchaResponse string            `json:"recaptchaResponse"`
	Fields            map[string]string `json:"fields"`
}

// values maps the request onto the fields of the sign-up form post.
func (req signupRequest) values() url.Values {
	v := url.Values{}
	for _, id := range req.TaskIDs {
		v.Add(signup.FieldTaskIDs, strconv.FormatInt(id, 10))
	}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	v.Set(signup.FieldAction, signup.ActionSignup)
	set(signup.FieldFirstName, req.FirstName)
	set(signup.FieldLastName, req.LastName)
	set(signup.FieldEmail, req.Email)
	set(signup.FieldPhone, req.Phone)
	set(signup.FieldAddress, req.Address)
	set(signup.FieldCity, req.City)
	set(signup.FieldState, req.State)
	set(signup.FieldZip, req.Zip)
	set(signup.FieldHoneypot, req.Website)
	set(captcha.SimpleField, req.SpamCheck)
	set(captcha.ResponseField, req.RecaptchaResponse)
	for slug, value := range req.Fields {
		set(signup.FieldPrefix+slug, value)
	}
	return v
}

type apiSignupResult struct {
	Sheet   int64   `json:"sheet,omitempty"`
	Tasks   []int64 `json:"tasks"`
	Signups []int64 `json:"signups"`
}

type apiRemoval struct {
	Signup int64  `json:"signup"`
	Task   string `json:"task"`
	Sheet  string `json:"sheet,omitempty"`
}

func (s *Server) apiListSheets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	rows, err := s.openSheets(r.Context())
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []views.SheetRow{}
	}
	writeJSON(w, http.StatusOK, rows)
	return nil
}

func (s *Server) apiGetSheet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	ctx := r.Context()
	id, err := parseID(ps.ByName("sheetId"))
	if err != nil {
		return err
	}
	sheet, err := s.deps.Store.GetSheet(ctx, id)
	if err != nil {
		return err
	}
	if sheet, err = s.checkVisible(r, sheet); err != nil {
		return err
	}
	tasks, err := s.deps.Store.TasksBySheet(ctx, sheet.ID)
	if err != nil {
		return err
	}
	signups, err := s.deps.Store.SignupsByTasks(ctx, taskIDs(tasks))
	if err != nil {
		return err
	}

	now := s.now()
	mode := s.deps.Settings.DisplayNameMode()
	out := apiSheet{
		ID:          sheet.ID,
		Title:       sheet.Title,
		Content:     sheet.Content,
		Date:        model.FormatDate(sheet.Date),
		Expired:     sheetExpired(sheet, tasks, now),
		SignupNonce: s.deps.Nonces.Create(nonce.ActionSignup, userID(r)),
		Tasks:       make([]apiTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		task := apiTask{
			ID:     t.ID,
			Title:  t.Title,
			Qty:    t.Qty,
			Date:   model.FormatDate(t.Date),
			Header: t.IsHeader(),
			Filled: []string{},
		}
		if !task.Header {
			list := signups[t.ID]
			task.Expired = t.IsExpired(now, sheet)
			task.OpenSpots = t.OpenSpots(len(list))
			for _, su := range list {
				task.Filled = append(task.Filled, su.DisplayName(mode))
			}
		}
		out.Tasks = append(out.Tasks, task)
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) apiCreateSignups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var req signupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil {
		return statusErr(http.StatusBadRequest, "Request body is not valid JSON.")
	}
	if !s.deps.Nonces.Verify(req.Nonce, nonce.ActionSignup, userID(r)) {
		return signup.ErrNonceInvalid()
	}
	result, err := s.deps.Signups.Submit(r.Context(), signup.Submission{
		Values:   req.values(),
		RemoteIP: remoteIP(r),
		Host:     r.Host,
		User:     auth.UserFrom(r.Context()),
	})
	if err != nil {
		return err
	}
	out := apiSignupResult{Tasks: result.TaskIDs, Signups: result.SignupIDs}
	if result.Sheet != nil {
		out.Sheet = result.Sheet.ID
	}
	writeJSON(w, http.StatusCreated, out)
	return nil
}

func (s *Server) apiRemoveSignup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
	removed, err := s.deps.Signups.Remove(r.Context(), ps.ByName("token"))
	if err != nil {
		return err
	}
	out := apiRemoval{Signup: removed.Signup.ID, Task: removed.Task.Title}
	if removed.Sheet != nil {
		out.Sheet = removed.Sheet.Title
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) apiUserSignups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	user := auth.UserFrom(r.Context())
	if user == nil {
		return auth.ErrNoSession
	}
	list, err := s.signupsOf(r, user)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}
