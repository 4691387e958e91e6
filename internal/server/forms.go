package server

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-signupsheets/components/usersearch"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

type contactField struct {
	name, key, label string
	required         func(settings.FieldPolicy) bool
	hidden           func(settings.FieldPolicy) bool
}

func always(settings.FieldPolicy) bool { return true }
func never(settings.FieldPolicy) bool  { return false }

func addressHidden(p settings.FieldPolicy) bool   { return p.HideAddress }
func addressRequired(p settings.FieldPolicy) bool { return !p.HideAddress && !p.OptionalAddress }

var contactFields = []contactField{
	{signup.FieldFirstName, "firstname", "First Name", always, never},
	{signup.FieldLastName, "lastname", "Last Name", always, never},
	{signup.FieldEmail, "email", "E-mail",
		func(p settings.FieldPolicy) bool { return !p.OptionalEmail },
		func(p settings.FieldPolicy) bool { return p.HideEmail }},
	{signup.FieldPhone, "phone", "Phone",
		func(p settings.FieldPolicy) bool { return !p.OptionalPhone },
		func(p settings.FieldPolicy) bool { return p.HidePhone }},
	{signup.FieldAddress, "address", "Address", addressRequired, addressHidden},
	{signup.FieldCity, "city", "City", addressRequired, addressHidden},
	{signup.FieldState, "state", "State", addressRequired, addressHidden},
	{signup.FieldZip, "zip", "Zip", addressRequired, addressHidden},
}

// signupInputs builds the contact and custom field controls of the sign-up
// form. values are keyed without the "signup_" prefix.
func signupInputs(policy settings.FieldPolicy, custom []settings.CustomField, values map[string]string) []views.Input {
	var out []views.Input
	for _, f := range contactFields {
		if f.hidden(policy) {
			continue
		}
		in := views.Input{
			Name:     f.name,
			Label:    f.label,
			Type:     "text",
			Value:    values[f.key],
			Required: f.required(policy),
		}
		switch f.key {
		case "email":
			in.Type = "email"
		case "phone":
			in.Type = "tel"
		case "state":
			in.Type = "select"
			in.Options = views.States()
		}
		out = append(out, in)
	}
	for _, f := range custom {
		out = append(out, customInput(f, values[f.Slug]))
	}
	return out
}

func customInput(f settings.CustomField, value string) views.Input {
	in := views.Input{
		Name:     signup.FieldPrefix + f.Slug,
		Label:    f.Name,
		Type:     f.Type,
		Value:    value,
		Required: f.Required,
	}
	switch f.Type {
	case "dropdown":
		in.Type = "select"
		in.Options = append([]model.Choice{{}}, f.Choices()...)
	case "radio":
		in.Options = f.Choices()
	case "checkboxes":
		in.Options = f.Choices()
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				in.Values = append(in.Values, v)
			}
		}
	case "textarea", "date":
	default:
		in.Type = "text"
	}
	return in
}

// userChoices lists users for the linked-user select, led by "none".
func userChoices(users []model.User) []model.Choice {
	out := []model.Choice{{Value: "", Label: "(none)"}}
	for _, u := range users {
		out = append(out, model.Choice{Value: itoa(u.ID), Label: usersearch.Label(u)})
	}
	return out
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
