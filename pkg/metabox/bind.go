package metabox

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// Bind converts submitted form values into stored values for fields.
// Disabled fields and buttons are skipped, checkboxes store "true" or "",
// multi-value fields store a comma separated list and repeaters store the
// JSON encoding of their rows.
func Bind(fields []Field, form url.Values) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Disabled || f.Type == FieldButton || f.Key == "" {
			continue
		}
		switch f.Type {
		case FieldCheckbox:
			if isChecked(form.Get(f.Key)) {
				out[f.Key] = "true"
			} else {
				out[f.Key] = ""
			}
		case FieldCheckboxes, FieldMultiSelect:
			out[f.Key] = settings.JoinList(formList(form, f.Key))
		case FieldRepeater:
			encoded, err := settings.EncodeFields(CustomFieldsFromRows(Rows(form, f.Key)))
			if err != nil {
				return nil, err
			}
			out[f.Key] = encoded
		default:
			out[f.Key] = strings.TrimSpace(form.Get(f.Key))
		}
	}
	return out, nil
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func formList(form url.Values, key string) []string {
	values := append([]string(nil), form[key]...)
	values = append(values, form[key+"[]"]...)
	return values
}

var rowPattern = regexp.MustCompile(`^([^\[]+)\[(\d+)\]\[([^\]]+)\](\[\])?$`)

// Rows collects repeater rows posted as key[index][field]. Rows are returned
// in index order; multi-value cells are joined with commas. Rows whose cells
// are all empty are dropped.
func Rows(form url.Values, key string) []map[string]string {
	byIndex := map[int]map[string]string{}
	for name, values := range form {
		m := rowPattern.FindStringSubmatch(name)
		if m == nil || m[1] != key {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		row := byIndex[idx]
		if row == nil {
			row = map[string]string{}
			byIndex[idx] = row
		}
		if m[4] != "" {
			row[m[3]] = settings.JoinList(values)
			continue
		}
		if len(values) > 0 {
			row[m[3]] = strings.TrimSpace(values[len(values)-1])
		}
	}

	indexes := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]map[string]string, 0, len(indexes))
	for _, idx := range indexes {
		row := byIndex[idx]
		if isEmptyRow(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func isEmptyRow(row map[string]string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// CustomFieldsFromRows converts repeater rows into custom field definitions.
// Rows without a name are ignored; a missing slug is derived from the name.
func CustomFieldsFromRows(rows []map[string]string) []settings.CustomField {
	var out []settings.CustomField
	for _, row := range rows {
		name := row["name"]
		if name == "" {
			continue
		}
		slug := row["slug"]
		if slug == "" {
			slug = Slugify(name)
		}
		field := settings.CustomField{
			Name:            name,
			Slug:            slug,
			Type:            row["type"],
			Options:         row["options"],
			Required:        isChecked(row["required"]),
			FrontendResults: isChecked(row["frontend_results"]),
		}
		for _, raw := range settings.SplitList(row["sheet_ids"]) {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				field.SheetIDs = append(field.SheetIDs, id)
			}
		}
		if field.Type == "" {
			field.Type = "text"
		}
		out = append(out, field)
	}
	return out
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and replaces runs of other characters with "_".
func Slugify(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
