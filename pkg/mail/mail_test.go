package mail_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/mail"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/testsupport"
)

var site = mail.Site{Name: "Neighbourhood Fair", URL: "https://example.org", FromEmail: "fair@example.org"}

func newComposer(values map[string]string) *mail.Composer {
	s := settings.New(nil, settings.WithPro(true), settings.WithValues(values))
	return mail.NewComposer(s, site, links.New(site.URL, "sheet"))
}

func TestComposeSignup(t *testing.T) {
	c := newComposer(map[string]string{
		"dls_sus_email_bcc":     "office@example.org",
		"dls_sus_email_subject": "Thanks {signup_firstname}",
	})
	date, _ := model.ParseDate("2024-06-01")
	d := mail.Details{
		Sheet:  &model.Sheet{ID: 1, Title: "Bake Sale", Slug: "bake-sale", Date: date, Meta: map[string]string{mail.MetaSheetBCC: "chair@example.org, "}},
		Task:   &model.Task{ID: 2, Title: "Cookies"},
		Signup: &model.Signup{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org", RemovalToken: "tok"},
	}

	msg, err := c.Compose(settings.MailSignup, d)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if msg.Subject != "Thanks Ada" || msg.From != "fair@example.org" {
		t.Fatalf("unexpected header: %+v", msg)
	}
	if diff := cmp.Diff([]string{"office@example.org", "chair@example.org"}, msg.Bcc); diff != "" {
		t.Fatalf("bcc mismatch (-want +got):\n%s", diff)
	}
	wantDetails := "Date: June 1, 2024\nEvent: Bake Sale\nWhat: Cookies\nName: Ada Lovelace"
	if !strings.Contains(msg.Body, wantDetails) {
		t.Fatalf("body missing details:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "contact us at fair@example.org") || !strings.HasSuffix(msg.Body, "Neighbourhood Fair\nhttps://example.org") {
		t.Fatalf("placeholders not expanded:\n%s", msg.Body)
	}

	d.Sheet.Meta[mail.MetaConfirmationMessage] = "Remove: {removal_link} / {sheet_url}"
	msg, err = c.Compose(settings.MailSignup, d)
	if err != nil {
		t.Fatalf("compose override: %v", err)
	}
	if msg.Body != "Remove: https://example.org/signup/remove?token=tok / https://example.org/sheet/bake-sale/" {
		t.Fatalf("sheet override not applied: %q", msg.Body)
	}

	msg, _ = c.Compose(settings.MailReminder, d)
	if len(msg.Bcc) != 0 {
		t.Fatalf("reminders do not copy the sheet bcc: %v", msg.Bcc)
	}

	d.Signup.Email = ""
	if _, err := c.Compose(settings.MailSignup, d); err != mail.ErrNoRecipient {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestReminderRun(t *testing.T) {
	store := testsupport.OpenStore(t)
	ctx := testsupport.Context()

	soon, soonTasks := testsupport.SeedSheet(t, store, "Soon", "2024-05-03",
		testsupport.TaskSpec{Title: "Setup", Qty: 2},
		testsupport.TaskSpec{Title: "Heading", Header: true},
	)
	_, laterTasks := testsupport.SeedSheet(t, store, "Later", "2024-05-20",
		testsupport.TaskSpec{Title: "Teardown", Qty: 1},
	)
	for _, s := range []*model.Signup{
		{TaskID: soonTasks[0].ID, FirstName: "Ada", Email: "ada@example.org"},
		{TaskID: soonTasks[0].ID, FirstName: "Bob"},
		{TaskID: laterTasks[0].ID, FirstName: "Cy", Email: "cy@example.org"},
	} {
		if err := store.CreateSignup(ctx, s); err != nil {
			t.Fatalf("create sign-up: %v", err)
		}
	}

	values := map[string]string{
		settings.OptReminderEmail:      "true",
		settings.OptReminderDaysBefore: "2",
	}
	s := settings.New(nil, settings.WithPro(true), settings.WithValues(values))
	rec := &mail.Recorder{}
	reminder := mail.NewReminder(store, s, mail.NewComposer(s, site, links.New(site.URL, "sheet")), rec, nil)

	stats, err := reminder.Run(ctx, testsupport.Now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Sent != 1 || len(rec.Sent()) != 1 {
		t.Fatalf("expected one reminder, got %+v (%d sent)", stats, len(rec.Sent()))
	}
	if got := rec.Sent()[0]; got.To[0] != "ada@example.org" || got.Subject != "Sign-up Reminder" {
		t.Fatalf("unexpected reminder: %+v", got)
	}
	if !strings.Contains(rec.Sent()[0].Body, "Event: "+soon.Title) {
		t.Fatalf("reminder body missing sheet: %s", rec.Sent()[0].Body)
	}

	rec.Reset()
	if stats, err := reminder.Run(ctx, testsupport.Now); err != nil || stats.Sent != 0 {
		t.Fatalf("second run should not resend, got %+v %v", stats, err)
	}

	disabled := settings.New(nil, settings.WithPro(false), settings.WithValues(values))
	r2 := mail.NewReminder(store, disabled, mail.NewComposer(disabled, site, links.Builder{}), rec, nil)
	if stats, _ := r2.Run(ctx, testsupport.Now); stats.Sheets != 0 {
		t.Fatalf("reminders are a pro feature, got %+v", stats)
	}
}

func TestReminderRunSendsOnLeadDayOnly(t *testing.T) {
	store := testsupport.OpenStore(t)
	ctx := testsupport.Context()

	_, tomorrow := testsupport.SeedSheet(t, store, "Tomorrow", "2024-05-02",
		testsupport.TaskSpec{Title: "Setup", Qty: 1},
	)
	_, onTime := testsupport.SeedSheet(t, store, "On Time", "2024-05-04",
		testsupport.TaskSpec{Title: "Setup", Qty: 1},
	)
	for _, s := range []*model.Signup{
		{TaskID: tomorrow[0].ID, FirstName: "Ada", Email: "ada@example.org"},
		{TaskID: onTime[0].ID, FirstName: "Cy", Email: "cy@example.org"},
	} {
		if err := store.CreateSignup(ctx, s); err != nil {
			t.Fatalf("create sign-up: %v", err)
		}
	}

	s := settings.New(nil, settings.WithPro(true), settings.WithValues(map[string]string{
		settings.OptReminderEmail:      "true",
		settings.OptReminderDaysBefore: "3",
	}))
	rec := &mail.Recorder{}
	reminder := mail.NewReminder(store, s, mail.NewComposer(s, site, links.New(site.URL, "sheet")), rec, nil)

	stats, err := reminder.Run(ctx, testsupport.Now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Sent != 1 || len(rec.Sent()) != 1 {
		t.Fatalf("expected one reminder, got %+v", stats)
	}
	if got := rec.Sent()[0].To[0]; got != "cy@example.org" {
		t.Fatalf("reminded %q, want the sheet three days out", got)
	}
}
