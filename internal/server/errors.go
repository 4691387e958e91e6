package server

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-signupsheets/internal/apidoc"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/signup"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

func statusErr(code int, msg string) StatusError {
	return StatusError{Code: code, Err: errors.New(msg)}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	if _, ok := signup.AsValidation(err); ok {
		return http.StatusBadRequest
	}
	var apiErr *apidoc.ValidationError
	switch {
	case errors.As(err, &apiErr):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, capabilities.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrTaskFull), errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// publicMessage is the message shown to the client. Internal errors are
// never echoed.
func publicMessage(err error, code int) string {
	if v, ok := signup.AsValidation(err); ok {
		return v.Message
	}
	if code >= http.StatusInternalServerError {
		return http.StatusText(code)
	}
	var apiErr *apidoc.ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case code == http.StatusForbidden:
		return "Sorry, you are not allowed to access this page."
	case code == http.StatusUnauthorized:
		return "Please log in."
	case code == http.StatusNotFound:
		return "Not found."
	}
	return http.StatusText(code)
}
