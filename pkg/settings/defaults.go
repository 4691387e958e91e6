package settings

import (
	"context"
	"strings"
)

// DefaultSheetSlug is used when no sheet slug is configured.
const DefaultSheetSlug = "sheet"

// Mail kinds.
const (
	MailSignup   = "signup"
	MailRemove   = "remove"
	MailReminder = "reminder"
	MailStatus   = "status"
)

// DefaultMailSubjects holds the fallback subject per mail kind.
var DefaultMailSubjects = map[string]string{
	MailSignup:   "Thank you for signing up!",
	MailRemove:   "Sign-up has been removed",
	MailReminder: "Sign-up Reminder",
	MailStatus:   "Sign-up Status Report",
}

// DefaultMailMessages holds the fallback body per mail kind.
var DefaultMailMessages = map[string]string{
	MailSignup: "This message was sent to confirm that you signed up for...\n\n" +
		"{signup_details}\n\n" +
		"To cancel your sign-up contact us at {from_email}\n\n" +
		"Thanks,\n{site_name}\n{site_url}",
	MailRemove: "This message was sent to confirm that you removed your sign-up for...\n\n" +
		"{signup_details}\n\n" +
		"Thanks,\n{site_name}\n{site_url}",
	MailReminder: "This is a reminder that you signed up for...\n\n" +
		"{signup_details}\n\n" +
		"To cancel your sign-up contact us at {from_email}\n\n" +
		"Thanks,\n{site_name}\n{site_url}",
	MailStatus: "Current sign-ups for {sheet_title}\n\n{signup_details}",
}

var mailOptions = map[string][4]string{
	// subject, message, from, bcc
	MailSignup:   {"dls_sus_email_subject", "dls_sus_email_message", "dls_sus_email_from", "dls_sus_email_bcc"},
	MailRemove:   {"dls_sus_removed_email_subject", "dls_sus_removed_email_message", "dls_sus_email_from", "dls_sus_email_bcc"},
	MailReminder: {"dls_sus_reminder_email_subject", "dls_sus_reminder_email_message", "dls_sus_reminder_email_from", "dls_sus_reminder_email_bcc"},
	MailStatus:   {"dls_sus_status_email_subject", "", "dls_sus_status_email_from", ""},
}

// MailSubject returns the configured subject for kind or its default.
func (s *Settings) MailSubject(kind string) string {
	if v := s.Value(mailOptions[kind][0]); v != "" {
		return v
	}
	return DefaultMailSubjects[kind]
}

// MailMessage returns the configured message for kind or its default.
func (s *Settings) MailMessage(kind string) string {
	if name := mailOptions[kind][1]; name != "" {
		if v := s.Value(name); v != "" {
			return v
		}
	}
	return DefaultMailMessages[kind]
}

// MailFrom returns the configured sender for kind, or "".
func (s *Settings) MailFrom(kind string) string {
	if name := mailOptions[kind][2]; name != "" {
		return strings.TrimSpace(s.Value(name))
	}
	return ""
}

// MailBCC returns the configured BCC list for kind.
func (s *Settings) MailBCC(kind string) []string {
	if name := mailOptions[kind][3]; name != "" {
		return s.List(name)
	}
	return nil
}

// Text is an overridable front-end label.
type Text struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Default string `json:"default"`
	Value   string `json:"value"`
}

// TextOptionPrefix prefixes the option names of text overrides.
const TextOptionPrefix = "dls_sus_text_"

var texts = []Text{
	{Key: "task_title_label", Label: "Task Title Label", Default: "What"},
}

// DefaultTexts returns every overridable label with its default value.
func DefaultTexts() []Text {
	out := make([]Text, len(texts))
	for i, t := range texts {
		t.Value = t.Default
		out[i] = t
	}
	return out
}

// Texts returns every overridable label with its effective value.
func (s *Settings) Texts() []Text {
	out := make([]Text, len(texts))
	for i, t := range texts {
		t.Value = s.Text(t.Key)
		out[i] = t
	}
	return out
}

// Text returns the override for key or its default.
func (s *Settings) Text(key string) string {
	if v := s.Value(TextOptionPrefix + key); v != "" {
		return v
	}
	for _, t := range texts {
		if t.Key == key {
			return t.Default
		}
	}
	return ""
}

var defaultOptions = map[string]string{
	OptSheetSlug:   DefaultSheetSlug,
	OptHideAddress: "true",
}

// ApplyDefaults stores default options that were never set.
func (s *Settings) ApplyDefaults(ctx context.Context) error {
	for name, value := range defaultOptions {
		if _, ok := s.Lookup(name); ok {
			continue
		}
		if _, err := s.Set(ctx, name, value); err != nil {
			return err
		}
	}
	return nil
}

// preservedOnReset survive Reset so the update runner does not rerun.
var preservedOnReset = map[string]bool{
	OptDBVersion:     true,
	OptDBVersionType: true,
	OptMigrate:       true,
}

// IsManagedOption reports whether name belongs to this application.
func IsManagedOption(name string) bool {
	for _, prefix := range OptionPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// OptionPrefixes are the prefixes of every option this application owns.
var OptionPrefixes = []string{"dls_sus_", "dlssus_", "fdsus_"}

// Reset deletes every managed option except the version markers, then
// re-applies the defaults. It returns the names that were removed.
func (s *Settings) Reset(ctx context.Context) ([]string, error) {
	var removed []string
	for _, name := range s.Names() {
		if !IsManagedOption(name) || preservedOnReset[name] {
			continue
		}
		if err := s.Delete(ctx, name); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, s.ApplyDefaults(ctx)
}
