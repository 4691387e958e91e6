package metabox

import (
	"sort"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// FieldType is the input kind rendered for a field.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldHidden      FieldType = "hidden"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
	FieldCheckboxes  FieldType = "checkboxes"
	FieldRadio       FieldType = "radio"
	FieldDatepicker  FieldType = "datepicker"
	FieldRepeater    FieldType = "repeater"
	FieldButton      FieldType = "button"
)

// Field describes one input bound to a meta or option key.
type Field struct {
	Key         string         `json:"key"`
	Label       string         `json:"label,omitempty"`
	Type        FieldType      `json:"type"`
	Order       int            `json:"order,omitempty"`
	Note        string         `json:"note,omitempty"`
	Options     []model.Choice `json:"options,omitempty"`
	Fields      []Field        `json:"fields,omitempty"`
	WrapClass   string         `json:"wrapClass,omitempty"`
	Href        string         `json:"href,omitempty"`
	Pro         bool           `json:"pro,omitempty"`
	ProBadge    bool           `json:"proBadge,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
	OriginalKey string         `json:"originalKey,omitempty"`
}

// Box is a titled group of fields on the sheet edit screen.
type Box struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Title    string  `json:"title"`
	Context  string  `json:"context"`
	Priority string  `json:"priority"`
	Fields   []Field `json:"fields"`
}

// Section is a titled group of options on the settings page.
type Section struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Order    int     `json:"order"`
	ProBadge bool    `json:"proBadge,omitempty"`
	Options  []Field `json:"options"`
}

// Sorted returns fields ordered by Order, keeping definition order for ties.
func Sorted(fields []Field) []Field {
	out := append([]Field(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Keys lists the bound keys of fields, recursing into nothing: repeater rows
// are bound under the repeater key.
func Keys(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Type == FieldButton || f.Disabled {
			continue
		}
		out = append(out, f.Key)
	}
	return out
}

var globalTrueFalse = []model.Choice{
	{Value: "", Label: "Global"},
	{Value: "true", Label: "True"},
	{Value: "false", Label: "False"},
}
