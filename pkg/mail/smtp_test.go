package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
)

func TestSMTPSendRetries(t *testing.T) {
	var attempts int
	var got *email.Email
	m := NewSMTP(SMTPConfig{Host: "mail.example.org", Port: 587, Username: "u", Password: "p"}, WithSendRetry(3, 0))
	m.send = func(addr string, auth smtp.Auth, e *email.Email) error {
		attempts++
		if addr != "mail.example.org:587" || auth == nil {
			t.Errorf("unexpected relay %s auth=%v", addr, auth)
		}
		if attempts == 1 {
			return errors.New("421 try again")
		}
		got = e
		return nil
	}

	err := m.Send(context.Background(), Message{
		From: "fair@example.org", To: []string{"ada@example.org"}, Bcc: []string{"chair@example.org"},
		Subject: "Hi", Body: "Body",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if got.Subject != "Hi" || string(got.Text) != "Body" || got.Bcc[0] != "chair@example.org" {
		t.Fatalf("unexpected email: %+v", got)
	}

	if err := m.Send(context.Background(), Message{Subject: "none"}); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if (SMTPConfig{Host: "h"}).Addr() != "h:25" {
		t.Fatalf("default port should be 25")
	}
}
