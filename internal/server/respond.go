package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

// maxFormBytes bounds posted form bodies.
const maxFormBytes = 1 << 20

func (s *Server) renderBytes(ctx context.Context, view string, data any) ([]byte, string, error) {
	html, err := s.deps.Views.Get("html")
	if err != nil {
		return nil, "", err
	}
	out, err := html.Render(ctx, view, data)
	if err != nil {
		return nil, "", err
	}
	return out, html.ContentType(), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view string, data any) error {
	body, contentType, err := s.renderBytes(r.Context(), view, data)
	if err != nil {
		return err
	}
	writeBody(w, status, contentType, body)
	return nil
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// layout fills the base template data for r.
func (s *Server) layout(r *http.Request, title string, notices ...render.Notice) views.Layout {
	var list render.Notices
	for _, n := range notices {
		list = list.Add(n.Level, n.Message)
	}
	return views.Layout{Title: title, User: auth.UserFrom(r.Context()), Notices: list}
}

func (s *Server) adminLayout(r *http.Request, title string, notices ...render.Notice) views.Layout {
	l := s.layout(r, title, notices...)
	l.Admin = true
	return l
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusUnauthorized && r.Method == http.MethodGet {
		target := LoginPath + "?" + url.Values{"redirect_to": {r.URL.RequestURI()}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	msg := publicMessage(err, code)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		if s.deps.Settings.IsDetailedErrors() {
			msg = err.Error()
		}
	}
	data := views.Message{
		Layout:  s.layout(r, http.StatusText(code)),
		Message: msg,
		BackURL: s.deps.Links.Path(links.SheetsPath),
	}
	if rerr := s.render(w, r, code, views.ViewMessage, data); rerr != nil {
		s.logger.Error("render error page", zap.Error(rerr))
		http.Error(w, msg, code)
	}
}

type apiErrorBody struct {
	Error   string   `json:"error"`
	Key     string   `json:"key,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := apiErrorBody{Error: publicMessage(err, code)}
	if v, ok := signup.AsValidation(err); ok {
		body.Key = v.Key
		body.Missing = v.Missing
		switch v.Key {
		case signup.KeySignupInvalid, signup.KeyTaskInvalid, signup.KeySheetInvalid:
			code = http.StatusNotFound
		case signup.KeyTaskFull:
			code = http.StatusConflict
		case signup.KeyNonceInvalid:
			code = http.StatusForbidden
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("api request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, body)
}

// cacheable reports whether r may be answered from the page cache.
func (s *Server) cacheable(r *http.Request) bool {
	return s.deps.Pages != nil &&
		r.Method == http.MethodGet &&
		r.URL.RawQuery == "" &&
		auth.UserFrom(r.Context()) == nil
}

// servePage renders build's view, going through the page cache for
// anonymous visitors.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, target cache.Target, build func() (string, any, error)) error {
	useCache := s.cacheable(r)
	if useCache {
		body, ok, err := s.deps.Pages.Get(r.Context(), target)
		if err != nil {
			s.logger.Warn("page cache read failed", zap.Stringer("target", target), zap.Error(err))
		} else if ok {
			w.Header().Set("X-Cache", "HIT")
			writeBody(w, http.StatusOK, "text/html; charset=utf-8", body)
			return nil
		}
	}

	view, data, err := build()
	if err != nil {
		return err
	}
	body, contentType, err := s.renderBytes(r.Context(), view, data)
	if err != nil {
		return err
	}
	if useCache {
		if err := s.deps.Pages.Put(r.Context(), target, body); err != nil {
			s.logger.Warn("page cache write failed", zap.Stringer("target", target), zap.Error(err))
		}
		w.Header().Set("X-Cache", "MISS")
	}
	writeBody(w, http.StatusOK, contentType, body)
	return nil
}

// purgePages clears cached pages after an admin change.
func (s *Server) purgePages(ctx context.Context, targets ...cache.Target) {
	if s.deps.Pages == nil {
		return
	}
	for _, t := range append(targets, SheetListTarget) {
		if err := s.deps.Pages.PurgeID(ctx, t); err != nil {
			s.logger.Warn("page purge failed", zap.Stringer("target", t), zap.Error(err))
		}
	}
}

// purgeAllPages drops every cached page after a change affecting all of them.
func (s *Server) purgeAllPages(ctx context.Context) {
	if s.deps.Pages == nil {
		return
	}
	if err := s.deps.Pages.PurgeAll(ctx); err != nil {
		s.logger.Warn("page purge failed", zap.Error(err))
	}
}

func parseForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("invalid form: %w", err)}
	}
	return r.PostForm, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, statusErr(http.StatusNotFound, "Not found.")
	}
	return id, nil
}

func userID(r *http.Request) int64 {
	if u := auth.UserFrom(r.Context()); u != nil {
		return u.ID
	}
	return 0
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// verifyNonce checks the nonce posted or passed under field.
func (s *Server) verifyNonce(r *http.Request, values url.Values, field, action string) error {
	token := values.Get(field)
	if token == "" {
		token = r.URL.Query().Get(field)
	}
	if !s.deps.Nonces.Verify(token, action, userID(r)) {
		return statusErr(http.StatusForbidden, "The link you followed has expired.")
	}
	return nil
}
