package metabox

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// SectionInput carries the dynamic choices rendered on the settings page.
type SectionInput struct {
	Pro bool
	// Roles lists every assignable role.
	Roles []model.Choice
	// Sheets lists sheets selectable for custom fields.
	Sheets []model.Choice
	// NextReminder is the formatted time of the next reminder run.
	NextReminder string
	// RerunMigrateURL and ResetURL back the advanced section buttons.
	RerunMigrateURL string
	ResetURL        string
}

// SheetOrderChoices are the front-end sheet list orderings.
var SheetOrderChoices = []model.Choice{
	{Value: "date", Label: "Sheet Date"},
	{Value: "title", Label: "Sheet Title"},
	{Value: "newest", Label: "Newest First"},
}

var customFieldTypes = []model.Choice{
	{Value: "text", Label: "text"},
	{Value: "textarea", Label: "textarea"},
	{Value: "checkboxes", Label: "checkboxes"},
	{Value: "radio", Label: "radio"},
	{Value: "dropdown", Label: "dropdown"},
}

// SettingsSections returns the settings page sections sorted by order, with
// each section's options sorted and pro-only options masked.
func SettingsSections(in SectionInput) []Section {
	sheetChoices := append([]model.Choice{{Value: "", Label: "All"}}, in.Sheets...)
	signupTypes := append(append([]model.Choice(nil), customFieldTypes...), model.Choice{Value: "date", Label: "date"})

	var customRoles []model.Choice
	for _, r := range capabilities.CustomRoles() {
		customRoles = append(customRoles, model.Choice{Value: r.Key, Label: r.Label})
	}

	sections := []Section{
		{
			ID: "sheet", Title: "Sign-up Sheet", Order: 10,
			Options: []Field{
				{Label: "Sheet order on Front-end", Key: settings.OptSheetOrder, Type: FieldSelect, Options: SheetOrderChoices, Order: 10},
				{Label: "Show All Sign-up Data Fields on Front-end", Key: settings.OptDisplayAll, Type: FieldCheckbox, Order: 20,
					Note: "WARNING: Sign-up sheet table will appear much like the admin table and show all the fields."},
				{Label: "Front-end Display Names", Key: settings.OptDisplayName, Type: FieldSelect, Order: 30, Pro: true,
					Options: []model.Choice{
						{Value: string(model.DisplayNameDefault), Label: `"John S." - first name plus first letter of last name`},
						{Value: string(model.DisplayNameFull), Label: `"John Smith" - full name`},
						{Value: string(model.DisplayNameAnonymous), Label: `"Filled" - anonymous`},
					}},
				{Label: "Compact Sign-up Mode", Key: "dls_sus_compact_signups", Type: FieldSelect, Order: 40, Pro: true,
					Options: []model.Choice{{Value: "false", Label: "Disabled"}, {Value: "true", Label: "Enabled"}, {Value: "semi", Label: "Semi-Compact"}}},
				{Label: "Enable task sign-up limit", Key: "dls_sus_task_signup_limit", Type: FieldCheckbox, Order: 50, Pro: true},
				{Label: "Enable contiguous task sign-up limit", Key: "dls_sus_contiguous_task_signup_limit", Type: FieldCheckbox, Order: 60, Pro: true},
				{Label: "Enable Task Checkboxes", Key: "dls_sus_enable_task_checkbox", Type: FieldCheckbox, Order: 70, Pro: true},
				{Label: "Enable Spot Lock", Key: settings.OptSpotLock, Type: FieldCheckbox, Order: 80, Pro: true},
				{Label: "Hide self-removal from Sign-up Sheet", Key: settings.OptHideRemoval, Type: FieldCheckbox, Order: 85, Pro: true},
				{Label: "Number of days before sheet/task date to allow users to edit their own sign-ups", Key: settings.OptUserEditableSignupDays, Type: FieldNumber, Order: 88, Pro: true},
				{Label: "Show Filled Spots in Admin Edit Sheet", Key: "dls_sus_show_filled_spots_admin_edit", Type: FieldCheckbox, Order: 90, Pro: true},
				{Label: "Allow Auto-Clearing Sign-ups Per Sheet", Key: settings.OptAutoclearAllowed, Type: FieldCheckbox, Order: 100, Pro: true},
				{Label: "Custom Task Fields", Key: settings.OptCustomTaskFields, Type: FieldRepeater, Order: 110, Pro: true,
					Note: "Custom Task Fields are for display only on the frontend.",
					Fields: []Field{
						{Label: "Name", Key: "name", Type: FieldText},
						{Label: "Slug", Key: "slug", Type: FieldText},
						{Label: "Type", Key: "type", Type: FieldSelect, Options: customFieldTypes},
						{Label: "Options", Key: "options", Type: FieldTextarea},
						{Label: "Sheets", Key: "sheet_ids", Type: FieldMultiSelect, Options: sheetChoices},
					}},
			},
		},
		{
			ID: "form", Title: "Sign-up Form", Order: 20,
			Options: []Field{
				{Label: `Show "Remember Me" checkbox`, Key: settings.OptRememberMe, Type: FieldCheckbox, Order: 5, Pro: true},
				{Label: "Set Phone as Optional", Key: settings.OptOptionalPhone, Type: FieldCheckbox, Order: 10},
				{Label: "Set Address as Optional", Key: settings.OptOptionalAddress, Type: FieldCheckbox, Order: 20},
				{Label: "Set Email as Optional", Key: settings.OptOptionalEmail, Type: FieldCheckbox, Order: 22},
				{Label: "Hide Phone Field", Key: settings.OptHidePhone, Type: FieldCheckbox, Order: 30},
				{Label: "Hide Address Fields", Key: settings.OptHideAddress, Type: FieldCheckbox, Order: 40},
				{Label: "Hide Email Field", Key: settings.OptHideEmail, Type: FieldCheckbox, Order: 42},
				{Label: "Disable User Auto-populate", Key: settings.OptDisableAutopopulate, Type: FieldCheckbox, Order: 45},
				{Label: "Disable Mail Check Validation", Key: settings.OptDeactivateEmailCheck, Type: FieldCheckbox, Order: 50},
				{Label: "Sign-up link auto-scroll to sheet (hash in sign-up link)", Key: settings.OptSignupLinkHash, Type: FieldRadio, Order: 55,
					Options: []model.Choice{{Value: "off", Label: "Off (Default)"}, {Value: "on", Label: "On"}}},
				{Label: "Sign-up Success Message Receipt", Key: settings.OptSignupReceipt, Type: FieldCheckbox, Order: 60, Pro: true},
				{Label: "Custom Sign-up Fields", Key: settings.OptCustomFields, Type: FieldRepeater, Order: 70, Pro: true,
					Note: "Options are for checkbox, radio and dropdown fields. Put multiple values on new lines.",
					Fields: []Field{
						{Label: "Name", Key: "name", Type: FieldText},
						{Label: "Slug", Key: "slug", Type: FieldText},
						{Label: "Type", Key: "type", Type: FieldSelect, Options: signupTypes},
						{Label: "Options", Key: "options", Type: FieldTextarea},
						{Label: "Sheets", Key: "sheet_ids", Type: FieldMultiSelect, Options: sheetChoices},
						{Label: "Required", Key: "required", Type: FieldCheckbox},
						{Label: "Results on Frontend", Key: "frontend_results", Type: FieldCheckbox},
					}},
			},
		},
		{
			ID: "spam", Title: "Captcha and Spam Prevention", Order: 30,
			Options: []Field{
				{Label: "Disable honeypot", Key: settings.OptDisableHoneypot, Type: FieldCheckbox,
					Note: "A honeypot is a less-invasive technique to reduce SPAM submission using a hidden field on the sign-up form."},
				{Label: "Disable all Captcha", Key: settings.OptDisableCaptcha, Type: FieldCheckbox,
					Note: "Will disable all captcha even if you have reCAPTCHA enabled below"},
				{Label: "Use reCAPTCHA", Key: settings.OptRecaptcha, Type: FieldCheckbox, Note: "Will replace the default simple captcha validation"},
				{Label: "reCAPTCHA Public Key", Key: settings.OptRecaptchaPublicKey, Type: FieldText},
				{Label: "reCAPTCHA Private Key", Key: settings.OptRecaptchaPrivateKey, Type: FieldText},
				{Label: "reCAPTCHA Version", Key: settings.OptRecaptchaVersion, Type: FieldSelect,
					Options: []model.Choice{{Value: "v3", Label: "v3"}, {Value: "v2-checkbox", Label: "v2 Checkbox"}, {Value: "v2-invisible", Label: "v2 Invisible"}}},
			},
		},
		{
			ID: "confirmation_email", Title: "Confirmation E-mail", Order: 40,
			Options: []Field{
				{Label: "Enable", Key: settings.OptConfirmationEmail, Type: FieldCheckbox, Order: 10, Pro: true},
				{Label: "Subject", Key: "dls_sus_email_subject", Type: FieldText, Order: 20, Note: "Default: " + settings.DefaultMailSubjects[settings.MailSignup]},
				{Label: "From E-mail Address", Key: "dls_sus_email_from", Type: FieldText, Order: 30},
				{Label: "BCC", Key: "dls_sus_email_bcc", Type: FieldText, Order: 40, Pro: true, Note: "Comma separated list of emails to copy on all confirmations"},
				{Label: "Message", Key: "dls_sus_email_message", Type: FieldTextarea, Order: 50, Pro: true, Note: mailVariablesNote},
			},
		},
		{
			ID: "removal_confirmation_email", Title: "Removal Confirmation E-mail", Order: 50, ProBadge: !in.Pro,
			Options: []Field{
				{Label: "Enable", Key: settings.OptRemovalEmail, Type: FieldCheckbox, Order: 10, Pro: true},
				{Label: "Message", Key: "dls_sus_removed_email_message", Type: FieldTextarea, Order: 20, Pro: true, Note: mailVariablesNote},
			},
		},
		{
			ID: "reminder_email", Title: "Reminder E-mail", Order: 60, ProBadge: !in.Pro,
			Options: []Field{
				{Label: "Enable Reminders", Key: settings.OptReminderEmail, Type: FieldCheckbox, Pro: true,
					Note: fmt.Sprintf("Next scheduled check: %s", nextOrNotScheduled(in.NextReminder))},
				{Label: "Enable Reminders on all Auto-Clearing Sheets", Key: "fdsus_reminder_email_on_auto_clear", Type: FieldCheckbox, Pro: true},
				{Label: "Reminder Schedule", Key: settings.OptReminderDaysBefore, Type: FieldText, Pro: true,
					Note: "Number of days before the date on the sign-up sheet that the email should be sent."},
				{Label: "Subject", Key: "dls_sus_reminder_email_subject", Type: FieldText, Pro: true, Note: "Default: " + settings.DefaultMailSubjects[settings.MailReminder]},
				{Label: "From E-mail Address", Key: "dls_sus_reminder_email_from", Type: FieldText, Pro: true},
				{Label: "BCC", Key: "dls_sus_reminder_email_bcc", Type: FieldText, Pro: true},
				{Label: "Message", Key: "dls_sus_reminder_email_message", Type: FieldTextarea, Pro: true, Note: mailVariablesNote},
			},
		},
		{
			ID: "status_email", Title: "Status E-mail", Order: 70, ProBadge: !in.Pro,
			Options: []Field{
				{Label: "Enable Status E-mail", Key: settings.OptStatusEmail, Type: FieldCheckbox, Pro: true},
				{Label: "Subject", Key: "dls_sus_status_email_subject", Type: FieldText, Pro: true, Note: "Default: " + settings.DefaultMailSubjects[settings.MailStatus]},
				{Label: "From E-mail Address", Key: "dls_sus_status_email_from", Type: FieldText, Pro: true},
				{Label: "Send to main admin emails", Key: settings.OptStatusToAdmin, Type: FieldCheckbox, Pro: true},
				{Label: `Send to "Sheet BCC" recipients`, Key: settings.OptStatusToSheetBCC, Type: FieldCheckbox, Pro: true},
			},
		},
		{
			ID: "advanced", Title: "Advanced", Order: 80,
			Options: []Field{
				{Label: "Sheet URL Slug", Key: settings.OptSheetSlug, Type: FieldText,
					Note: "Will be used in permalinks for single sheet pages. Default is sheet"},
				{Label: "User roles that can manage sheets", Key: settings.OptRoles, Type: FieldCheckboxes, Options: in.Roles,
					Note: "(Sign-up Sheet Manager and Administrators always can manage sheets)"},
				{Label: "Disable Sign-up Sheets Roles", Key: settings.OptDisabledRoles, Type: FieldCheckboxes, Options: customRoles},
				{Label: "Clear Cache for these Post IDs when a sign-up is added or removed", Key: settings.OptCacheClearOnSignup, Type: FieldText,
					Note: "Comma-separated list such as 123,5000"},
				{Label: "Re-run Data Migration", Key: settings.OptRerunMigrate, Type: FieldButton, Href: in.RerunMigrateURL},
				{Label: "Display Detailed Errors", Key: settings.OptDetailedErrors, Type: FieldCheckbox, Note: "(Not recommended for production sites)"},
				{Label: "Reset All Settings", Key: settings.OptReset, Type: FieldButton, Href: in.ResetURL,
					Note: "This will erase any custom configurations you have made on this page and reset them back to the defaults. This action cannot be undone."},
			},
		},
	}

	var overrides []Field
	for _, text := range settings.DefaultTexts() {
		overrides = append(overrides, Field{
			Label: text.Label,
			Key:   settings.TextOptionPrefix + text.Key,
			Type:  FieldText,
			Note:  "Default: " + text.Default,
		})
	}
	sections = append(sections, Section{ID: "text_overrides", Title: "Text Overrides", Order: 90, Options: overrides})

	for si := range sections {
		for oi := range sections[si].Options {
			opt := &sections[si].Options[oi]
			maskPro(opt, in.Pro, fmt.Sprintf("pro_feature_%d_%d", si, oi))
			for ri := range opt.Fields {
				if opt.Pro {
					opt.Fields[ri].Pro = true
				}
				maskPro(&opt.Fields[ri], in.Pro, fmt.Sprintf("pro_feature_%d_%d_%d", si, oi, ri))
			}
		}
		sections[si].Options = Sorted(sections[si].Options)
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	return sections
}

// SectionKeys lists every bindable option key across sections.
func SectionKeys(sections []Section) []string {
	var out []string
	for _, s := range sections {
		out = append(out, Keys(s.Options)...)
	}
	return out
}

const mailVariablesNote = "Variables that can be used in template: {signup_details}, {signup_firstname}, {signup_lastname}, {signup_email}, {site_name}, {site_url}, {sheet_url}, {sheet_title}"

func nextOrNotScheduled(next string) string {
	if next == "" {
		return "Not Scheduled"
	}
	return next
}
