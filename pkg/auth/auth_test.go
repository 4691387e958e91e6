package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/testsupport"
)

func TestAuthenticate(t *testing.T) {
	store := testsupport.OpenStore(t)
	ctx := testsupport.Context()

	user := testsupport.SeedUser(t, store, "ada")
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	user.PasswordHash = hash
	if err := store.UpdateUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	got, err := auth.Authenticate(ctx, store, "ada", "s3cret")
	if err != nil || got.ID != user.ID {
		t.Fatalf("authenticate = %v, %v", got, err)
	}
	for _, tc := range []struct{ login, password string }{{"ada", "wrong"}, {"nobody", "s3cret"}} {
		if _, err := auth.Authenticate(ctx, store, tc.login, tc.password); !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Errorf("%s/%s: expected ErrInvalidCredentials, got %v", tc.login, tc.password, err)
		}
	}
	if _, err := auth.HashPassword(""); err == nil {
		t.Fatalf("empty passwords should be rejected")
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	store := testsupport.OpenStore(t)
	user := testsupport.SeedUser(t, store, "grace", "administrator")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sessions := auth.NewSessions([]byte("test-key"), auth.WithTTL(time.Hour), auth.WithClock(func() time.Time { return now }))

	rec := httptest.NewRecorder()
	if err := sessions.Issue(rec, user); err != nil {
		t.Fatalf("issue: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.DefaultCookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got, err := sessions.User(req, store)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if got.Login != "grace" || !got.HasRole("administrator") {
		t.Fatalf("unexpected user %+v", got)
	}

	claims, err := sessions.Parse(cookies[0].Value)
	if err != nil || claims.Login != "grace" || claims.UserID() != user.ID {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	// expired
	now = now.Add(2 * time.Hour)
	if _, err := sessions.User(req, store); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected expired session, got %v", err)
	}

	// signed with another key
	other := auth.NewSessions([]byte("other-key"))
	token, _ := other.Token(user)
	if _, err := sessions.Parse(token); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("foreign tokens must be rejected, got %v", err)
	}

	anonymous := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := sessions.User(anonymous, store); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	auth.NewSessions([]byte("k")).Clear(rec)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookies)
	}
}
