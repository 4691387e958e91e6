package metabox

import (
	"fmt"

	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/model"
)

// Sheet meta keys.
const (
	KeyDate  = "dlssus_date"
	KeyTasks = "dlssus_tasks"
)

// SheetMetaBoxes returns the boxes on the sheet edit screen. Without the pro
// edition, pro-only fields are disabled and re-keyed so they never bind.
func SheetMetaBoxes(pro bool) []Box {
	boxes := []Box{
		{
			ID:       capabilities.SheetType + "-general-meta",
			Name:     "general",
			Title:    "General",
			Context:  "normal",
			Priority: "high",
			Fields: []Field{
				{Label: "Date", Key: KeyDate, Type: FieldDatepicker, Order: 10},
			},
		},
		{
			ID:       capabilities.SheetType + "-tasks-meta",
			Name:     "tasks",
			Title:    "Tasks",
			Context:  "normal",
			Priority: "high",
			Fields: []Field{
				{
					Key:  KeyTasks,
					Type: FieldRepeater,
					Fields: []Field{
						{Label: "What", Key: "title", Type: FieldText, Order: 10},
						{Label: "# of Spots", Key: "qty", Type: FieldText, Order: 20},
						{Label: "Date", Key: "date", Type: FieldDatepicker, Order: 30, Pro: true},
						{Key: "id", Type: FieldHidden, Order: 9999},
						{Key: "task_row_type", Type: FieldHidden, Order: 9999},
					},
				},
			},
		},
		{
			ID:       capabilities.SheetType + "-settings-meta",
			Name:     "settings",
			Title:    "Additional Settings",
			Context:  "normal",
			Priority: "low",
			Fields: []Field{
				{Label: "Set Phone as Optional", Key: "dlssus_optional_phone", Type: FieldSelect, Options: globalTrueFalse, Order: 10},
				{Label: "Set Address as Optional", Key: "dlssus_optional_address", Type: FieldSelect, Options: globalTrueFalse, Order: 20},
				{Label: "Set Email as Optional", Key: "fdsus_optional_email", Type: FieldSelect, Options: globalTrueFalse, Order: 22},
				{Label: "Hide Phone Field", Key: "dlssus_hide_phone", Type: FieldSelect, Options: globalTrueFalse, Order: 30},
				{Label: "Hide Address Fields", Key: "dlssus_hide_address", Type: FieldSelect, Options: globalTrueFalse, Order: 40},
				{Label: "Hide Email Field", Key: "dlssus_hide_email", Type: FieldSelect, Options: globalTrueFalse, Order: 45},
				{
					Label: "Sheet Specific BCC", Key: "dlssus_sheet_bcc", Type: FieldText, Order: 50,
					Note:      "Comma-separated list of emails to be copied on confirmations/removals",
					WrapClass: "dlsmb-field-col-12", Pro: true,
				},
				{
					Label: "Reminder Schedule", Key: "dlssus_sheet_reminder_days", Type: FieldText, Order: 60,
					Note:      "Number of days before the date on the sign-up sheet that the email should be sent. If this is blank the global setting is used.",
					WrapClass: "dlsmb-field-col-12", Pro: true,
				},
				{
					Label: "Compact Sign-up Mode", Key: "dlssus_compact_signups", Type: FieldSelect, Order: 70,
					Options: []model.Choice{
						{Value: "", Label: "Global"},
						{Value: "false", Label: "Disabled"},
						{Value: "true", Label: "Enabled"},
						{Value: "semi", Label: "Semi-Compact"},
					},
					WrapClass: "dlsmb-field-col-12", Pro: true,
				},
				{Label: "Enable Task Checkboxes", Key: "dlssus_use_task_checkboxes", Type: FieldSelect, Options: globalTrueFalse, Order: 80, Pro: true},
				{Label: "Enable task sign-up limit", Key: "dlssus_task_signup_limit", Type: FieldSelect, Options: globalTrueFalse, Order: 90, Pro: true},
				{Label: "Enable contiguous task sign-up limit", Key: "dlssus_contiguous_task_signup_limit", Type: FieldSelect, Options: globalTrueFalse, Order: 100, Pro: true},
				{
					Label: "Auto-clear Schedule", Key: "fdsus_autoclear", Type: FieldCheckboxes, Order: 110,
					Options: model.DaysOfWeek(), WrapClass: "dlsmb-field-col-12", Pro: true,
				},
				{
					Label: "Confirmation Email Message", Key: "dlssus_sheet_email_conf_message", Type: FieldTextarea, Order: 130,
					Note: "Global setting in Settings", WrapClass: "dlsmb-field-col-6", Pro: true,
				},
				{
					Label: "Reminder Email Message", Key: "dlssus_sheet_email_message", Type: FieldTextarea, Order: 140,
					Note: "Global setting in Settings", WrapClass: "dlsmb-field-col-6", Pro: true,
				},
			},
		},
	}

	for bi := range boxes {
		for fi := range boxes[bi].Fields {
			maskPro(&boxes[bi].Fields[fi], pro, fmt.Sprintf("pro_feature_%d_%d", bi, fi))
			for si := range boxes[bi].Fields[fi].Fields {
				maskPro(&boxes[bi].Fields[fi].Fields[si], pro, fmt.Sprintf("pro_feature_%d_%d_%d", bi, fi, si))
			}
		}
		boxes[bi].Fields = Sorted(boxes[bi].Fields)
	}
	return boxes
}

// SheetMetaKeys lists the meta keys a sheet form may bind for the edition.
func SheetMetaKeys(pro bool) []string {
	var out []string
	for _, box := range SheetMetaBoxes(pro) {
		if box.Name != "settings" {
			continue
		}
		out = append(out, Keys(box.Fields)...)
	}
	return out
}

func maskPro(f *Field, pro bool, maskedKey string) {
	if !f.Pro {
		return
	}
	f.Disabled = !pro
	if pro {
		return
	}
	f.ProBadge = true
	f.OriginalKey = f.Key
	f.Key = maskedKey
	if f.WrapClass != "" {
		f.WrapClass += " "
	}
	f.WrapClass += "fdsus-pro-setting"
}
