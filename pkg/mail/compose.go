package mail

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// Sheet meta keys overriding mail content.
const (
	MetaSheetBCC            = "dlssus_sheet_bcc"
	MetaConfirmationMessage = "dlssus_sheet_email_conf_message"
	MetaReminderMessage     = "dlssus_sheet_email_message"
)

// Site describes the sending site.
type Site struct {
	Name      string `mapstructure:"name" yaml:"name"`
	URL       string `mapstructure:"url" yaml:"url"`
	FromEmail string `mapstructure:"from_email" yaml:"from_email"`
}

// Details is the sign-up a message is about.
type Details struct {
	Sheet  *model.Sheet
	Task   *model.Task
	Signup *model.Signup
}

// Composer fills mail templates from settings.
type Composer struct {
	settings *settings.Settings
	site     Site
	links    links.Builder
}

// NewComposer returns a Composer.
func NewComposer(s *settings.Settings, site Site, l links.Builder) *Composer {
	return &Composer{settings: s, site: site, links: l}
}

// Compose builds the message of kind about d, addressed to the sign-up email.
func (c *Composer) Compose(kind string, d Details) (Message, error) {
	if d.Signup == nil || d.Sheet == nil || d.Task == nil {
		return Message{}, fmt.Errorf("mail: compose %s: sheet, task and sign-up are required", kind)
	}
	if strings.TrimSpace(d.Signup.Email) == "" {
		return Message{}, ErrNoRecipient
	}

	from := c.settings.MailFrom(kind)
	if from == "" {
		from = c.site.FromEmail
	}

	body := c.settings.MailMessage(kind)
	switch kind {
	case settings.MailSignup:
		if v := d.Sheet.MetaValue(MetaConfirmationMessage); v != "" {
			body = v
		}
	case settings.MailReminder:
		if v := d.Sheet.MetaValue(MetaReminderMessage); v != "" {
			body = v
		}
	}

	bcc := c.settings.MailBCC(kind)
	if kind == settings.MailSignup || kind == settings.MailRemove {
		bcc = append(bcc, splitAddresses(d.Sheet.MetaValue(MetaSheetBCC))...)
	}

	return Message{
		From:    from,
		To:      []string{d.Signup.Email},
		Bcc:     bcc,
		Subject: c.expand(c.settings.MailSubject(kind), d, from),
		Body:    c.expand(body, d, from),
	}, nil
}

// SignupDetails renders the multi-line summary used by {signup_details}.
func (c *Composer) SignupDetails(d Details) string {
	var b strings.Builder
	if date := d.Task.EffectiveDate(d.Sheet); !date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", date.Format("January 2, 2006"))
	}
	fmt.Fprintf(&b, "Event: %s\n", d.Sheet.Title)
	fmt.Fprintf(&b, "%s: %s\n", c.settings.Text("task_title_label"), d.Task.Title)
	fmt.Fprintf(&b, "Name: %s", d.Signup.FullName())
	return b.String()
}

func (c *Composer) expand(tpl string, d Details, from string) string {
	sheetDate := ""
	if date := d.Task.EffectiveDate(d.Sheet); !date.IsZero() {
		sheetDate = date.Format("January 2, 2006")
	}
	removal := ""
	if d.Signup.RemovalToken != "" {
		removal = c.links.Removal(d.Signup.RemovalToken)
	}
	r := strings.NewReplacer(
		"{signup_details}", c.SignupDetails(d),
		"{signup_firstname}", d.Signup.FirstName,
		"{signup_lastname}", d.Signup.LastName,
		"{signup_email}", d.Signup.Email,
		"{from_email}", from,
		"{site_name}", c.site.Name,
		"{site_url}", c.site.URL,
		"{sheet_url}", c.links.Sheet(d.Sheet),
		"{sheet_title}", d.Sheet.Title,
		"{task_title}", d.Task.Title,
		"{sheet_date}", sheetDate,
		"{removal_link}", removal,
	)
	return r.Replace(tpl)
}
