// Package nonce issues short-lived tokens that tie a form or link to an
// action and a user. A token stays valid for two ticks of the lifetime
// window, so a token created late in one window survives into the next.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultLifetime is the full validity window of a token.
const DefaultLifetime = 24 * time.Hour

// Action names shared by handlers and templates.
const (
	ActionSignup        = "fdsus_signup_submit"
	ActionRemove        = "fdsus_remove_signup"
	ActionEditSheet     = "fdsus_edit_sheet"
	ActionEditSignup    = "fdsus_signup_edit"
	ActionClearMultiple = "clear-multiple-signups"
	ActionSettings      = "fdsus_settings"
	ActionReset         = "fdsus_reset"
	ActionRerunMigrate  = "fdsus_rerun_migrate"
)

// ClearSignupAction returns the action for clearing one sign-up.
func ClearSignupAction(signupID int64) string {
	return "clear-signup_" + strconv.FormatInt(signupID, 10)
}

// Manager creates and verifies tokens with a secret key.
type Manager struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns a Manager signing with key.
func New(key []byte, opts ...Option) *Manager {
	m := &Manager{key: append([]byte(nil), key...), lifetime: DefaultLifetime, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Manager) tick() int64 {
	half := int64(m.lifetime / 2)
	if half <= 0 {
		half = 1
	}
	return m.now().UnixNano() / half
}

func (m *Manager) sign(tick int64, action string, userID int64) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(userID, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:12]
}

// Create returns a token for action and user. Anonymous visitors use 0.
func (m *Manager) Create(action string, userID int64) string {
	return m.sign(m.tick(), action, userID)
}

// Verify reports whether token was created for action and user within the
// last two ticks.
func (m *Manager) Verify(token, action string, userID int64) bool {
	if token == "" {
		return false
	}
	tick := m.tick()
	for _, t := range []int64{tick, tick - 1} {
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.sign(t, action, userID))) == 1 {
			return true
		}
	}
	return false
}
