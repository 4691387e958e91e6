package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/internal/apidoc"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
)

// handlerFunc is a route handler whose error is turned into a response by
// the wrapper it is registered with.
type handlerFunc func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// withSession attaches the logged-in user, if any, to the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.deps.Sessions.User(r, s.deps.Store)
		switch {
		case err == nil:
			r = r.WithContext(auth.WithUser(r.Context(), user))
		case !errors.Is(err, auth.ErrNoSession):
			s.logger.Warn("session lookup failed", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// page wraps an HTML handler.
func (s *Server) page(h handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := h(w, r, ps); err != nil {
			s.pageError(w, r, err)
		}
	}
}

// admin wraps an HTML handler that needs a logged-in user holding
// capability.
func (s *Server) admin(capability string, h handlerFunc) httprouter.Handle {
	return s.page(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) error {
		user := auth.UserFrom(r.Context())
		if user == nil {
			return auth.ErrNoSession
		}
		if err := s.deps.Authz.Require(r.Context(), user, capability); err != nil {
			return err
		}
		return h(w, r, ps)
	})
}

// api wraps a JSON handler, validating the request against the API
// document first.
func (s *Server) api(h handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := s.deps.API.ValidateRequest(r); err != nil {
			if errors.Is(err, apidoc.ErrNoRoute) {
				err = StatusError{Code: http.StatusNotFound, Err: err}
			}
			s.apiError(w, r, err)
			return
		}
		if err := h(w, r, ps); err != nil {
			s.apiError(w, r, err)
		}
	}
}

// CapabilityGuard checks that the session user holds capability. It suits
// plain handlers mounted through Deps, which run after the session
// middleware but outside the admin wrapper.
func CapabilityGuard(authz *capabilities.Authorizer, capability string) func(*http.Request) error {
	return func(r *http.Request) error {
		user := auth.UserFrom(r.Context())
		if user == nil {
			return StatusError{Code: http.StatusUnauthorized, Err: auth.ErrNoSession}
		}
		if err := authz.Require(r.Context(), user, capability); err != nil {
			return StatusError{Code: statusFor(err), Err: err}
		}
		return nil
	}
}
