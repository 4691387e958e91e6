package nonce

import (
	"testing"
	"time"
)

func TestCreateVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := New([]byte("secret"), WithClock(func() time.Time { return now }))

	token := m.Create(ClearSignupAction(12), 3)
	if len(token) != 12 {
		t.Fatalf("token length = %d", len(token))
	}
	if !m.Verify(token, "clear-signup_12", 3) {
		t.Fatalf("token should verify")
	}
	if m.Verify(token, "clear-signup_13", 3) {
		t.Fatalf("token should be bound to the action")
	}
	if m.Verify(token, "clear-signup_12", 4) {
		t.Fatalf("token should be bound to the user")
	}

	now = now.Add(13 * time.Hour)
	if !m.Verify(token, "clear-signup_12", 3) {
		t.Fatalf("token should survive into the next tick")
	}
	now = now.Add(24 * time.Hour)
	if m.Verify(token, "clear-signup_12", 3) {
		t.Fatalf("token should expire after two ticks")
	}
}

func TestDifferentKeys(t *testing.T) {
	a := New([]byte("a"))
	b := New([]byte("b"))
	if b.Verify(a.Create(ActionSignup, 0), ActionSignup, 0) {
		t.Fatalf("token from another key must not verify")
	}
	if a.Verify("", ActionSignup, 0) {
		t.Fatalf("empty token must not verify")
	}
}
