package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a hidden form input rendered with a form.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// NonceField carries a nonce token under the conventional "_wpnonce" name
// unless name is given.
func NonceField(token string, name ...string) HiddenField {
	field := "_wpnonce"
	if len(name) > 0 && strings.TrimSpace(name[0]) != "" {
		field = name[0]
	}
	return Hidden(field, token)
}

// SortedHiddenFields merges fields, later ones winning on name collisions,
// and returns them sorted by name. Empty names are dropped.
func SortedHiddenFields(fields ...HiddenField) []HiddenField {
	merged := make(map[string]string, len(fields))
	for _, f := range fields {
		if name := strings.TrimSpace(f.Name); name != "" {
			merged[name] = f.Value
		}
	}
	if len(merged) == 0 {
		return nil
	}
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HiddenField, 0, len(names))
	for _, name := range names {
		out = append(out, HiddenField{Name: name, Value: merged[name]})
	}
	return out
}
