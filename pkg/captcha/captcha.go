// Package captcha verifies the anti-spam answers posted with a sign-up: the
// built-in arithmetic question and Google reCAPTCHA.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Simple captcha question and the expected answer.
const (
	SimpleQuestion = "7 + 1"
	SimpleAnswer   = "8"
	// SimpleField is the form field carrying the simple captcha answer.
	SimpleField = "spam_check"
	// ResponseField is the form field carrying the reCAPTCHA token.
	ResponseField = "g-recaptcha-response"
)

// DefaultVerifyURL is the reCAPTCHA verification endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Errors reported by Verify.
var (
	ErrMissingKey   = errors.New("captcha: reCAPTCHA private key is not configured")
	ErrMissingToken = errors.New("captcha: reCAPTCHA response is missing")
	ErrRejected     = errors.New("captcha: reCAPTCHA rejected the response")
)

// CheckSimple reports whether answer solves the simple question.
func CheckSimple(answer string) bool {
	return strings.TrimSpace(answer) == SimpleAnswer
}

// Verifier checks reCAPTCHA tokens with the verification endpoint.
type Verifier struct {
	client    *http.Client
	verifyURL string
	minScore  float64
	attempts  uint
	delay     time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		if client != nil {
			v.client = client
		}
	}
}

// WithVerifyURL overrides DefaultVerifyURL.
func WithVerifyURL(u string) Option {
	return func(v *Verifier) {
		if u != "" {
			v.verifyURL = u
		}
	}
}

// WithMinScore sets the lowest accepted v3 score (default 0.5).
func WithMinScore(score float64) Option {
	return func(v *Verifier) {
		v.minScore = score
	}
}

// WithRetry sets how often a failed request is retried.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(v *Verifier) {
		if attempts > 0 {
			v.attempts = attempts
		}
		v.delay = delay
	}
}

// NewVerifier returns a Verifier.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		client:    http.DefaultClient,
		verifyURL: DefaultVerifyURL,
		minScore:  0.5,
		attempts:  3,
		delay:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Request is one reCAPTCHA verification.
type Request struct {
	Secret   string
	Token    string
	RemoteIP string
	// Host, when set, must match the hostname reported by the endpoint.
	Host string
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Verify validates the request token with its secret.
func (v *Verifier) Verify(ctx context.Context, r Request) error {
	if strings.TrimSpace(r.Secret) == "" {
		return ErrMissingKey
	}
	if strings.TrimSpace(r.Token) == "" {
		return ErrMissingToken
	}

	form := url.Values{"secret": {r.Secret}, "response": {r.Token}}
	if r.RemoteIP != "" {
		form.Set("remoteip", r.RemoteIP)
	}

	var result verifyResponse
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := v.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("captcha: verify status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Unrecoverable(fmt.Errorf("captcha: verify status %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	},
		retry.Context(ctx),
		retry.Attempts(v.attempts),
		retry.Delay(v.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("captcha: verify: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(result.ErrorCodes, ", "))
	}
	if r.Host != "" && result.Hostname != "" && !strings.EqualFold(hostOnly(r.Host), result.Hostname) {
		return fmt.Errorf("%w: hostname %q", ErrRejected, result.Hostname)
	}
	if result.Score != nil && *result.Score < v.minScore {
		return fmt.Errorf("%w: score %.2f below %.2f", ErrRejected, *result.Score, v.minScore)
	}
	return nil
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
