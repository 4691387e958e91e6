package signup

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-signupsheets/pkg/render"
)

// Notice keys reported with validation errors.
const (
	KeyNonceInvalid        = "fdsus-signup-nonce-invalid"
	KeyTaskInvalid         = "fdsus-task-invalid"
	KeySheetInvalid        = "fdsus-sheet-invalid"
	KeyTaskExpired         = "fdsus-task-expired"
	KeySheetExpired        = "fdsus-sheet-expired"
	KeySheetInactive       = "fdsus-signup-sheet-inactive"
	KeyTaskInactive        = "fdsus-signup-task-inactive"
	KeyMultipleSheets      = "fdsus-multiple-sheet-signups-not-support"
	KeyNoValidTask         = "fdsus-all-tasks-invalid"
	KeyMissingFields       = "fdsus-missing-fields"
	KeyInvalidEmail        = "fdsus-invalid-email"
	KeyEmailDomain         = "fdsus-email-checkdnsrr"
	KeyHoneypot            = "fdsus-signup-form-honeypot"
	KeyCaptchaKeyMissing   = "fdsus-captcha-private-key-missing"
	KeyCaptcha             = "fdsus-captcha-error"
	KeyTaskFull            = "fdsus-task-full"
	KeySignupInvalid       = "fdsus-signup-invalid"
	KeySignupFormError     = "fdsus-signup-form-err"
	KeyRemovalNotPermitted = "fdsus-removal-not-permitted"
)

// Messages shown to visitors.
const (
	MsgNonceInvalid      = "Sign-up nonce not valid."
	MsgTaskInvalid       = "Hmm... we could not find the task for this sign-up."
	MsgSheetInvalid      = "Hmm... we could not find the sheet for this sign-up."
	MsgTaskExpired       = "Sign-ups on this sheet can no longer be edited."
	MsgSheetExpired      = "Sign-ups on this task can no longer be edited."
	MsgSheetInactive     = "Sign-ups are no longer being accepted for this sheet."
	MsgTaskInactive      = "Sign-ups are no longer being accepted for this task."
	MsgMultipleSheets    = "Signing up for more than one sheet is not currently supported."
	MsgNoValidTask       = "No valid task was found for this sign-up."
	MsgMissingFields     = "Please complete the following required fields: %s"
	MsgInvalidEmail      = "Please check that your email address is properly formatted"
	MsgEmailDomain       = "Whoops, it looks like your email domain may not be valid."
	MsgHoneypot          = "Sorry, your submission has been blocked."
	MsgCaptchaKeyMissing = "Please check that reCAPTCHA is configured correctly."
	MsgRecaptchaInvalid  = "Please check that the reCAPTCHA field is valid."
	MsgSimpleCaptcha     = "Oh dear, 7 + 1 does not equal %s. Please try again."
	MsgTaskFull          = "This task is full"
	MsgSignupNotFound    = "Sign-up not found."
	MsgSignupAdded       = "Sign-up added."
	MsgSignupUpdated     = "Sign-up updated."
	MsgSignupRemoved     = "Your sign-up has been removed."
	MsgSpotsCleared      = "Spot(s) cleared."
	MsgSignupSuccess     = "Thank you for signing up!"
)

// ValidationError is a user facing rejection of a submission.
type ValidationError struct {
	Key     string
	Level   render.Level
	Message string
	// Missing lists the labels of missing required fields, if any.
	Missing []string
}

func (e *ValidationError) Error() string { return e.Message }

// Notice converts the error into a page notice.
func (e *ValidationError) Notice() render.Notice {
	return render.Notice{Level: e.Level, Message: e.Message}
}

// ErrNonceInvalid is returned for a sign-up posted with a stale or forged
// nonce.
func ErrNonceInvalid() *ValidationError {
	return invalid(KeyNonceInvalid, MsgNonceInvalid)
}

func invalid(key, msg string, args ...any) *ValidationError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &ValidationError{Key: key, Level: render.LevelError, Message: msg}
}

func warn(key, msg string, args ...any) *ValidationError {
	v := invalid(key, msg, args...)
	v.Level = render.LevelWarn
	return v
}

// AsValidation unwraps a *ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}
