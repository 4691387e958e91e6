package settings

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// Option names read by the accessors.
const (
	OptSignupReceipt          = "dls_sus_signup_receipt"
	OptDisplayAll             = "dls_sus_display_all"
	OptDisplayName            = "dls_sus_display_name"
	OptDetailedErrors         = "dls_sus_detailed_errors"
	OptDisableAutopopulate    = "dls_sus_disable_user_autopopulate"
	OptDisableHoneypot        = "dls_sus_disable_honeypot"
	OptDeactivateEmailCheck   = "dls_sus_deactivate_email_validation"
	OptSignupLinkHash         = "fdsus_signup_link_hash"
	OptDisableSignupLinkHash  = "fdsus_disable_signup_link_hash"
	OptDisableCaptcha         = "dls_sus_disable_captcha"
	OptRecaptcha              = "dls_sus_recaptcha"
	OptRecaptchaVersion       = "dls_sus_recaptcha_version"
	OptRecaptchaPublicKey     = "dls_sus_recaptcha_public_key"
	OptRecaptchaPrivateKey    = "dls_sus_recaptcha_private_key"
	OptConfirmationEmail      = "fdsus_enable_confirmation_email"
	OptRemovalEmail           = "fdsus_enable_removal_confirmation_email"
	OptCacheClearOnSignup     = "fdsus_cache_clear_on_signup"
	OptReminderEmail          = "dls_sus_reminder_email"
	OptReminderDaysBefore     = "dls_sus_reminder_email_days_before"
	OptRememberMe             = "dls_sus_remember"
	OptAutoclearAllowed       = "fdsus_allow_autoclear_signups"
	OptSpotLock               = "dls_sus_spot_lock"
	OptHideRemoval            = "dls_sus_hide_removal"
	OptSheetSlug              = "dls_sus_sheet_slug"
	OptSheetOrder             = "dls_sus_sheet_order"
	OptRoles                  = "dls_sus_roles"
	OptDisabledRoles          = "fdsus_disabled_roles"
	OptCustomFields           = "dls_sus_custom_fields"
	OptCustomTaskFields       = "dls_sus_custom_task_fields"
	OptOptionalPhone          = "dls_sus_optional_phone"
	OptOptionalAddress        = "dls_sus_optional_address"
	OptOptionalEmail          = "fdsus_optional_email"
	OptHidePhone              = "dls_sus_hide_phone"
	OptHideAddress            = "dls_sus_hide_address"
	OptHideEmail              = "dls_sus_hide_email"
	OptDBVersion              = "dls_sus_db_version"
	OptDBVersionType          = "dls_sus_db_version_type"
	OptRerunMigrate           = "dls_sus_rerun_migrate"
	OptReset                  = "fdsus_reset"
	OptMigrate                = "dls_sus_migrate"
	OptAlertRecipient         = "dls_sus_alert_recipient"
	OptStatusEmail            = "dls_sus_status_email"
	OptStatusToAdmin          = "dls_sus_status_to_admin"
	OptStatusToSheetBCC       = "dls_sus_status_to_sheet_bcc"
	OptUserEditableSignupDays = "fdsus_user_editable_signups"
)

// IsReceiptEnabled reports whether the success message lists the sign-up.
func (s *Settings) IsReceiptEnabled() bool { return s.IsTrue(OptSignupReceipt) }

// IsDisplayAllSignupData reports whether every sign-up field is public.
func (s *Settings) IsDisplayAllSignupData() bool { return s.IsTrue(OptDisplayAll) }

// IsDetailedErrors reports whether internal error details are shown.
func (s *Settings) IsDetailedErrors() bool { return s.IsTrue(OptDetailedErrors) }

func (s *Settings) IsUserAutopopulateDisabled() bool { return s.IsTrue(OptDisableAutopopulate) }

func (s *Settings) IsHoneypotDisabled() bool { return s.IsTrue(OptDisableHoneypot) }

// IsEmailValidationEnabled defaults to true.
func (s *Settings) IsEmailValidationEnabled() bool { return !s.IsTrue(OptDeactivateEmailCheck) }

// IsSignUpLinkHashEnabled is off unless explicitly switched on. The
// deprecated disable checkbox is folded into this option by dbupdate.
func (s *Settings) IsSignUpLinkHashEnabled() bool {
	return s.Value(OptSignupLinkHash) == "on"
}

// SignUpLinkHash returns the anchor appended to sign-up links, or "".
func (s *Settings) SignUpLinkHash(sheetID int64) string {
	if !s.IsSignUpLinkHashEnabled() {
		return ""
	}
	return fmt.Sprintf("#dls-sus-sheet-%d", sheetID)
}

func (s *Settings) IsAllCaptchaDisabled() bool { return s.IsTrue(OptDisableCaptcha) }

// IsRecaptchaEnabled requires reCAPTCHA on and captcha not globally off.
func (s *Settings) IsRecaptchaEnabled() bool {
	return s.IsTrue(OptRecaptcha) && !s.IsAllCaptchaDisabled()
}

// RecaptchaVersion defaults to v2-checkbox.
func (s *Settings) RecaptchaVersion() string {
	if v := s.Value(OptRecaptchaVersion); v != "" {
		return v
	}
	return "v2-checkbox"
}

// IsConfirmationEmailEnabled defaults to true when never saved.
func (s *Settings) IsConfirmationEmailEnabled() bool {
	v, ok := s.Lookup(OptConfirmationEmail)
	return !ok || v == "true"
}

// IsRemovalConfirmationEmailEnabled defaults to true when never saved.
func (s *Settings) IsRemovalConfirmationEmailEnabled() bool {
	v, ok := s.Lookup(OptRemovalEmail)
	return !ok || v == "true"
}

// CacheClearOnSignupIDs returns the extra IDs purged after any sign-up
// change. Non-numeric entries are dropped.
func (s *Settings) CacheClearOnSignupIDs() []int64 {
	var out []int64
	for _, raw := range s.List(OptCacheClearOnSignup) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

// IsReminderEnabled is a pro feature.
func (s *Settings) IsReminderEnabled() bool { return s.pro && s.IsTrue(OptReminderEmail) }

// ReminderDaysBefore returns the global reminder lead time, 0 when unset.
func (s *Settings) ReminderDaysBefore() int {
	n, err := strconv.Atoi(s.Value(OptReminderDaysBefore))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Settings) IsRememberMeEnabled() bool { return s.pro && s.IsTrue(OptRememberMe) }

func (s *Settings) IsAutoclearSignupsAllowed() bool { return s.pro && s.IsTrue(OptAutoclearAllowed) }

func (s *Settings) IsSpotLockEnabled() bool { return s.pro && s.IsTrue(OptSpotLock) }

func (s *Settings) IsRemovalHidden() bool { return s.IsTrue(OptHideRemoval) }

// SheetSlug is the URL segment for sheet pages.
func (s *Settings) SheetSlug() string {
	if v := s.Value(OptSheetSlug); v != "" {
		return v
	}
	return DefaultSheetSlug
}

// ManagedRoles lists roles granted full sheet access.
func (s *Settings) ManagedRoles() []string { return s.List(OptRoles) }

// DisabledRoles lists custom roles that must not be created.
func (s *Settings) DisabledRoles() []string { return s.List(OptDisabledRoles) }

// DisplayNameMode controls public sign-up names.
func (s *Settings) DisplayNameMode() model.DisplayNameMode {
	switch v := model.DisplayNameMode(s.Value(OptDisplayName)); v {
	case model.DisplayNameFull, model.DisplayNameAnonymous:
		return v
	}
	return model.DisplayNameDefault
}

// FieldPolicy resolves which contact fields are hidden or optional on a sheet,
// combining global options with the tri-state sheet overrides.
type FieldPolicy struct {
	HidePhone       bool
	HideAddress     bool
	HideEmail       bool
	OptionalPhone   bool
	OptionalAddress bool
	OptionalEmail   bool
}

// FieldPolicy resolves the contact field policy for sheet.
func (s *Settings) FieldPolicy(sheet *model.Sheet) FieldPolicy {
	return FieldPolicy{
		HidePhone:       s.sheetBool(sheet, "dlssus_hide_phone", OptHidePhone),
		HideAddress:     s.sheetBool(sheet, "dlssus_hide_address", OptHideAddress),
		HideEmail:       s.sheetBool(sheet, "dlssus_hide_email", OptHideEmail),
		OptionalPhone:   s.sheetBool(sheet, "dlssus_optional_phone", OptOptionalPhone),
		OptionalAddress: s.sheetBool(sheet, "dlssus_optional_address", OptOptionalAddress),
		OptionalEmail:   s.sheetBool(sheet, "fdsus_optional_email", OptOptionalEmail),
	}
}

func (s *Settings) sheetBool(sheet *model.Sheet, key, global string) bool {
	switch sheet.MetaValue(key) {
	case "true":
		return true
	case "false":
		return false
	}
	return s.IsTrue(global)
}

// CustomField describes an extra sign-up form field.
type CustomField struct {
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Type            string  `json:"type"`
	Options         string  `json:"options,omitempty"`
	SheetIDs        []int64 `json:"sheet_ids,omitempty"`
	Required        bool    `json:"required,omitempty"`
	FrontendResults bool    `json:"frontend_results,omitempty"`
}

// AppliesTo reports whether the field is shown on sheetID. Fields without
// sheet IDs apply everywhere.
func (f CustomField) AppliesTo(sheetID int64) bool {
	return len(f.SheetIDs) == 0 || slices.Contains(f.SheetIDs, sheetID)
}

// Choices parses the options text of dropdown, radio and checkbox fields.
func (f CustomField) Choices() []model.Choice {
	return model.ParseChoices(f.Options)
}

// CustomFields decodes the custom sign-up fields.
func (s *Settings) CustomFields() ([]CustomField, error) {
	return decodeFields(s.Value(OptCustomFields))
}

// CustomTaskFields decodes the display-only custom task fields.
func (s *Settings) CustomTaskFields() ([]CustomField, error) {
	return decodeFields(s.Value(OptCustomTaskFields))
}

// CustomFieldsFor returns custom sign-up fields applying to sheetID.
func (s *Settings) CustomFieldsFor(sheetID int64) ([]CustomField, error) {
	all, err := s.CustomFields()
	if err != nil {
		return nil, err
	}
	var out []CustomField
	for _, f := range all {
		if f.Slug != "" && f.AppliesTo(sheetID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func decodeFields(raw string) ([]CustomField, error) {
	if raw == "" {
		return nil, nil
	}
	var out []CustomField
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("settings: decode custom fields: %w", err)
	}
	return out, nil
}

// EncodeFields serialises custom fields for storage.
func EncodeFields(fields []CustomField) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("settings: encode custom fields: %w", err)
	}
	return string(b), nil
}
