package signup

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/captcha"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/sanitize"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// Posted form field names.
const (
	FieldTaskIDs   = "signup_task_ids[]"
	FieldAction    = "action"
	FieldNonce     = "signup_nonce"
	FieldFirstName = "signup_firstname"
	FieldLastName  = "signup_lastname"
	FieldEmail     = "signup_email"
	FieldPhone     = "signup_phone"
	FieldAddress   = "signup_address"
	FieldCity      = "signup_city"
	FieldState     = "signup_state"
	FieldZip       = "signup_zip"
	FieldUserID    = "signup_user_id"
	FieldHoneypot  = "website"
	// FieldPrefix prefixes custom field slugs in the posted form.
	FieldPrefix = "signup_"
)

// Accepted values of the action field.
const (
	ActionSignup          = "signup"
	ActionSignupConfirmed = "signup-confirmed"
)

// SimpleCaptchaLabel is listed when the math answer is missing.
const SimpleCaptchaLabel = "Math Question"

type requirement struct {
	field string
	label string
	skip  func(settings.FieldPolicy) bool
}

var requirements = []requirement{
	{field: FieldFirstName, label: "First Name"},
	{field: FieldLastName, label: "Last Name"},
	{field: FieldEmail, label: "E-mail", skip: func(p settings.FieldPolicy) bool { return p.HideEmail || p.OptionalEmail }},
	{field: FieldPhone, label: "Phone", skip: func(p settings.FieldPolicy) bool { return p.HidePhone || p.OptionalPhone }},
	{field: FieldAddress, label: "Address", skip: addressSkipped},
	{field: FieldCity, label: "City", skip: addressSkipped},
	{field: FieldState, label: "State", skip: addressSkipped},
	{field: FieldZip, label: "Zip", skip: addressSkipped},
}

func addressSkipped(p settings.FieldPolicy) bool { return p.HideAddress || p.OptionalAddress }

// RequiredOptions tunes MissingFields.
type RequiredOptions struct {
	Policy       settings.FieldPolicy
	CustomFields []settings.CustomField
	// SimpleCaptcha adds the math question to the required fields.
	SimpleCaptcha bool
}

// MissingFields returns the labels of required fields left empty, in form
// order. It returns nil when nothing is missing.
func MissingFields(values url.Values, opts RequiredOptions) []string {
	var missing []string
	for _, req := range requirements {
		if req.skip != nil && req.skip(opts.Policy) {
			continue
		}
		if strings.TrimSpace(values.Get(req.field)) == "" {
			missing = append(missing, req.label)
		}
	}
	for _, f := range opts.CustomFields {
		if !f.Required {
			continue
		}
		if !hasValue(values[FieldPrefix+f.Slug]) && !hasValue(values[FieldPrefix+f.Slug+"[]"]) {
			missing = append(missing, f.Name)
		}
	}
	if opts.SimpleCaptcha && strings.TrimSpace(values.Get(captcha.SimpleField)) == "" {
		missing = append(missing, SimpleCaptchaLabel)
	}
	return missing
}

func hasValue(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// TaskIDs parses the posted task IDs, skipping values below 1.
func TaskIDs(values url.Values) []int64 {
	raw := values[FieldTaskIDs]
	if len(raw) == 0 {
		raw = values["signup_task_ids"]
	}
	var out []int64
	for _, v := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id < 1 {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Apply copies the sanitised posted values onto signup. Hidden contact
// fields are left untouched. Custom fields are stored comma joined.
func Apply(signup *model.Signup, values url.Values, policy settings.FieldPolicy, custom []settings.CustomField) {
	signup.FirstName = sanitize.Text(values.Get(FieldFirstName))
	signup.LastName = sanitize.Text(values.Get(FieldLastName))
	if !policy.HideEmail {
		signup.Email = sanitize.Email(values.Get(FieldEmail))
	}
	if !policy.HidePhone {
		signup.Phone = sanitize.Text(values.Get(FieldPhone))
	}
	if !policy.HideAddress {
		signup.Address = sanitize.Text(values.Get(FieldAddress))
		signup.City = sanitize.Text(values.Get(FieldCity))
		signup.State = sanitize.Text(values.Get(FieldState))
		signup.Zip = sanitize.Text(values.Get(FieldZip))
	}
	for _, f := range custom {
		vals := values[FieldPrefix+f.Slug]
		if len(vals) == 0 {
			vals = values[FieldPrefix+f.Slug+"[]"]
		}
		var clean []string
		for _, v := range vals {
			if f.Type == "textarea" {
				v = sanitize.Textarea(v)
			} else {
				v = sanitize.Text(v)
			}
			if v != "" {
				clean = append(clean, v)
			}
		}
		if signup.Fields == nil {
			signup.Fields = map[string]string{}
		}
		if len(clean) == 0 {
			delete(signup.Fields, f.Slug)
			continue
		}
		signup.Fields[f.Slug] = strings.Join(clean, ", ")
	}
}

// InitialValues returns the values prefilled in the sign-up form. Posted
// values win over the stored sign-up, which wins over the logged-in user's
// profile. The profile is ignored when autopopulate is disabled.
func InitialValues(user *model.User, signup *model.Signup, posted url.Values, autopopulate bool) map[string]string {
	out := map[string]string{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out[key] = value
		}
	}

	if user != nil && autopopulate && signup == nil {
		set("firstname", user.FirstName)
		set("lastname", user.LastName)
		set("email", user.Email)
	}
	if signup != nil {
		set("firstname", signup.FirstName)
		set("lastname", signup.LastName)
		set("email", signup.Email)
		set("phone", signup.Phone)
		set("address", signup.Address)
		set("city", signup.City)
		set("state", signup.State)
		set("zip", signup.Zip)
		for k, v := range signup.Fields {
			set(k, v)
		}
		if signup.UserID != 0 {
			out["user_id"] = strconv.FormatInt(signup.UserID, 10)
		}
	}
	for key, vals := range posted {
		if !strings.HasPrefix(key, FieldPrefix) || key == FieldTaskIDs || key == "signup_task_ids" || key == FieldNonce {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, FieldPrefix), "[]")
		set(name, sanitize.Text(strings.Join(vals, ", ")))
	}
	return out
}
