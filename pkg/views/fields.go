package views

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/metabox"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// BoxGroups turns sheet meta boxes into input groups filled from values.
// Boxes named in skip are left out.
func BoxGroups(boxes []metabox.Box, values map[string]string, skip ...string) []InputGroup {
	out := make([]InputGroup, 0, len(boxes))
outer:
	for _, box := range boxes {
		for _, name := range skip {
			if box.Name == name {
				continue outer
			}
		}
		out = append(out, InputGroup{ID: box.ID, Title: box.Title, Inputs: FieldInputs(box.Fields, values)})
	}
	return out
}

// SectionGroups turns settings sections into input groups.
func SectionGroups(sections []metabox.Section, values map[string]string) []InputGroup {
	out := make([]InputGroup, 0, len(sections))
	for _, sec := range sections {
		out = append(out, InputGroup{ID: sec.ID, Title: sec.Title, Pro: sec.ProBadge, Inputs: FieldInputs(sec.Options, values)})
	}
	return out
}

// FieldInputs converts fields in display order.
func FieldInputs(fields []metabox.Field, values map[string]string) []Input {
	sorted := metabox.Sorted(fields)
	out := make([]Input, 0, len(sorted))
	for _, f := range sorted {
		out = append(out, fieldInput(f, f.Key, values[f.Key]))
	}
	return out
}

func fieldInput(f metabox.Field, name, value string) Input {
	in := Input{
		Name:     name,
		Label:    f.Label,
		Type:     inputType(f.Type),
		Value:    value,
		Disabled: f.Disabled,
		Pro:      f.Pro || f.ProBadge,
		Note:     f.Note,
		Href:     f.Href,
		Options:  f.Options,
	}
	switch f.Type {
	case metabox.FieldCheckboxes, metabox.FieldMultiSelect:
		in.Values = settings.SplitList(value)
	case metabox.FieldRepeater:
		in.Value = ""
		in.Columns, in.Rows = repeaterRows(f, value)
	}
	return in
}

func inputType(t metabox.FieldType) string {
	switch t {
	case metabox.FieldDatepicker:
		return "date"
	case metabox.FieldMultiSelect:
		return "multiselect"
	case "":
		return "text"
	}
	return string(t)
}

// repeaterRows decodes a stored repeater value (a JSON array of objects) and
// appends a blank row for new entries.
func repeaterRows(f metabox.Field, raw string) ([]string, [][]Input) {
	sub := metabox.Sorted(f.Fields)
	columns := make([]string, 0, len(sub))
	for _, c := range sub {
		if c.Type != metabox.FieldHidden {
			columns = append(columns, c.Label)
		}
	}

	var stored []map[string]any
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &stored)
	}
	stored = append(stored, map[string]any{})

	rows := make([][]Input, 0, len(stored))
	for i, row := range stored {
		inputs := make([]Input, 0, len(sub))
		for _, c := range sub {
			name := fmt.Sprintf("%s[%d][%s]", f.Key, i, c.Key)
			inputs = append(inputs, fieldInput(c, name, cellValue(row[c.Key])))
		}
		rows = append(rows, inputs)
	}
	return columns, rows
}

func cellValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return ""
	case float64:
		return fmt.Sprint(int64(val))
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, cellValue(item))
		}
		return settings.JoinList(parts)
	}
	return fmt.Sprint(v)
}
