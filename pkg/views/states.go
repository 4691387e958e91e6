package views

import "github.com/goliatone/go-signupsheets/pkg/model"

var usStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "DC", "FL", "GA", "HI", "ID", "IL", "IN",
	"IA", "KS", "KY", "LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH",
	"NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT",
	"VT", "VA", "WA", "WV", "WI", "WY",
}

// States returns the state dropdown choices, led by an empty entry.
func States() []model.Choice {
	out := make([]model.Choice, 0, len(usStates)+1)
	out = append(out, model.Choice{Value: "", Label: ""})
	for _, s := range usStates {
		out = append(out, model.Choice{Value: s, Label: s})
	}
	return out
}
