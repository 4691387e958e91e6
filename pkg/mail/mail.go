// Package mail composes and delivers sign-up confirmation, removal,
// reminder and status emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jordan-wright/email"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("mail: no recipient")

// Message is a plain text email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Bcc     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// Addr returns host:port, defaulting the port to 25.
func (c SMTPConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 25
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// SMTP sends messages through an SMTP relay.
type SMTP struct {
	cfg      SMTPConfig
	attempts uint
	delay    time.Duration
	send     func(addr string, auth smtp.Auth, e *email.Email) error
}

// SMTPOption configures SMTP.
type SMTPOption func(*SMTP)

// WithSendRetry sets the retry policy for failed deliveries.
func WithSendRetry(attempts uint, delay time.Duration) SMTPOption {
	return func(s *SMTP) {
		if attempts > 0 {
			s.attempts = attempts
		}
		s.delay = delay
	}
}

// NewSMTP returns an SMTP mailer.
func NewSMTP(cfg SMTPConfig, opts ...SMTPOption) *SMTP {
	s := &SMTP{
		cfg:      cfg,
		attempts: 3,
		delay:    time.Second,
		send: func(addr string, auth smtp.Auth, e *email.Email) error {
			return e.Send(addr, auth)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Send delivers msg, retrying transient failures.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	e := email.NewEmail()
	e.From = msg.From
	e.To = msg.To
	e.Bcc = msg.Bcc
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	err := retry.Do(func() error {
		return s.send(s.cfg.Addr(), auth, e)
	},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("mail: send %q: %w", msg.Subject, err)
	}
	return nil
}

// Recorder keeps messages in memory. It is used when no SMTP host is
// configured and in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

// Fail makes subsequent sends return err.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipient
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Reset clears the recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
