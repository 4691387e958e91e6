// Package auth handles password hashing and the signed session cookie that
// identifies logged-in users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

var (
	// ErrInvalidCredentials is returned for an unknown login or a wrong
	// password, without telling which.
	ErrInvalidCredentials = errors.New("auth: invalid login or password")
	// ErrNoSession is returned when the request carries no valid session.
	ErrNoSession = errors.New("auth: no session")
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "fdsus_session"

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Users looks up accounts.
type Users interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UserByLogin(ctx context.Context, login string) (*model.User, error)
}

// Authenticate checks login and password against users.
func Authenticate(ctx context.Context, users Users, login, password string) (*model.User, error) {
	user, err := users.UserByLogin(ctx, login)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Claims are carried by the session token.
type Claims struct {
	jwt.RegisteredClaims

	Login string `json:"fdsus/login"`
}

// UserID returns the subject as a user ID.
func (c *Claims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// Sessions issues and reads HS256 signed session cookies.
type Sessions struct {
	key    []byte
	name   string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

func WithTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithCookieName(name string) SessionOption {
	return func(s *Sessions) {
		if name != "" {
			s.name = name
		}
	}
}

// WithSecureCookie marks the cookie Secure, for sites served over TLS.
func WithSecureCookie(secure bool) SessionOption {
	return func(s *Sessions) {
		s.secure = secure
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions builds Sessions signing with key.
func NewSessions(key []byte, opts ...SessionOption) *Sessions {
	s := &Sessions{key: key, name: DefaultCookieName, ttl: 14 * 24 * time.Hour, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Token signs a session token for user.
func (s *Sessions) Token(user *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Login: user.Login,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a session token.
func (s *Sessions) Parse(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Join(ErrNoSession, err)
	}
	return claims, nil
}

// Issue sets the session cookie for user.
func (s *Sessions) Issue(w http.ResponseWriter, user *model.User) error {
	token, err := s.Token(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// User resolves the request's session to a user.
func (s *Sessions) User(r *http.Request, users Users) (*model.User, error) {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	claims, err := s.Parse(cookie.Value)
	if err != nil {
		return nil, err
	}
	user, err := users.GetUser(r.Context(), claims.UserID())
	if err != nil {
		return nil, errors.Join(ErrNoSession, err)
	}
	return user, nil
}

type userKey struct{}

// WithUser stores user on ctx.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the user stored on ctx, or nil for visitors.
func UserFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey{}).(*model.User)
	return user
}
