package metabox_test

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/metabox"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

func findField(fields []metabox.Field, label string) (metabox.Field, bool) {
	for _, f := range fields {
		if f.Label == label {
			return f, true
		}
	}
	return metabox.Field{}, false
}

func TestSheetMetaBoxesMasksProFields(t *testing.T) {
	boxes := metabox.SheetMetaBoxes(false)
	if len(boxes) != 3 {
		t.Fatalf("expected 3 boxes, got %d", len(boxes))
	}
	settingsBox := boxes[2]
	if settingsBox.Name != "settings" {
		t.Fatalf("unexpected box order: %s", settingsBox.Name)
	}

	bcc, ok := findField(settingsBox.Fields, "Sheet Specific BCC")
	if !ok {
		t.Fatalf("bcc field missing")
	}
	if !bcc.Disabled || !bcc.ProBadge {
		t.Fatalf("pro field should be disabled and badged: %+v", bcc)
	}
	if bcc.Key != "pro_feature_2_6" || bcc.OriginalKey != "dlssus_sheet_bcc" {
		t.Fatalf("unexpected masked key %q (original %q)", bcc.Key, bcc.OriginalKey)
	}
	if bcc.WrapClass != "dlsmb-field-col-12 fdsus-pro-setting" {
		t.Fatalf("wrap class = %q", bcc.WrapClass)
	}

	phone, _ := findField(settingsBox.Fields, "Set Phone as Optional")
	if phone.Disabled || phone.Key != "dlssus_optional_phone" {
		t.Fatalf("free field should stay untouched: %+v", phone)
	}
}

func TestSheetMetaBoxesPro(t *testing.T) {
	keys := metabox.SheetMetaKeys(true)
	want := []string{
		"dlssus_optional_phone",
		"dlssus_optional_address",
		"fdsus_optional_email",
		"dlssus_hide_phone",
		"dlssus_hide_address",
		"dlssus_hide_email",
		"dlssus_sheet_bcc",
		"dlssus_sheet_reminder_days",
		"dlssus_compact_signups",
		"dlssus_use_task_checkboxes",
		"dlssus_task_signup_limit",
		"dlssus_contiguous_task_signup_limit",
		"fdsus_autoclear",
		"dlssus_sheet_email_conf_message",
		"dlssus_sheet_email_message",
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("pro keys mismatch (-want +got):\n%s", diff)
	}
	if got := len(metabox.SheetMetaKeys(false)); got != 6 {
		t.Fatalf("free edition should bind 6 keys, got %d", got)
	}
}

func TestSettingsSectionsOrder(t *testing.T) {
	sections := metabox.SettingsSections(metabox.SectionInput{})
	var ids []string
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	want := []string{
		"sheet", "form", "spam", "confirmation_email", "removal_confirmation_email",
		"reminder_email", "status_email", "advanced", "text_overrides",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}

	reminder := sections[5]
	if !reminder.ProBadge {
		t.Fatalf("reminder section should carry a pro badge on the free edition")
	}
	if reminder.Options[0].Note != "Next scheduled check: Not Scheduled" {
		t.Fatalf("note = %q", reminder.Options[0].Note)
	}

	overrides := sections[8].Options
	if len(overrides) != 1 || overrides[0].Key != "dls_sus_text_task_title_label" {
		t.Fatalf("unexpected overrides: %+v", overrides)
	}
}

func TestBind(t *testing.T) {
	fields := []metabox.Field{
		{Key: "a", Type: metabox.FieldCheckbox},
		{Key: "b", Type: metabox.FieldCheckbox},
		{Key: "c", Type: metabox.FieldCheckboxes},
		{Key: "d", Type: metabox.FieldText},
		{Key: "e", Type: metabox.FieldText, Disabled: true},
		{Key: "f", Type: metabox.FieldRepeater},
		{Key: "g", Type: metabox.FieldButton},
	}
	form := url.Values{
		"a":               {"true"},
		"c[]":             {"editor", "author"},
		"d":               {"  hello "},
		"e":               {"ignored"},
		"f[1][name]":      {"T-Shirt Size"},
		"f[1][sheet_ids]": {"3,x,4"},
		"f[0][name]":      {"Team"},
		"f[0][required]":  {"on"},
		"f[2][name]":      {""},
	}

	got, err := metabox.Bind(fields, form)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	encoded, _ := settings.EncodeFields([]settings.CustomField{
		{Name: "Team", Slug: "team", Type: "text", Required: true},
		{Name: "T-Shirt Size", Slug: "t_shirt_size", Type: "text", SheetIDs: []int64{3, 4}},
	})
	want := map[string]string{
		"a": "true",
		"b": "",
		"c": "editor,author",
		"d": "hello",
		"f": encoded,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bind mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsOrdering(t *testing.T) {
	form := url.Values{
		"dlssus_tasks[10][title]": {"Last"},
		"dlssus_tasks[2][title]":  {"First"},
		"dlssus_tasks[2][qty]":    {"3"},
		"dlssus_tasks[5][title]":  {""},
		"other[0][title]":         {"x"},
	}
	rows := metabox.Rows(form, metabox.KeyTasks)
	want := []map[string]string{
		{"title": "First", "qty": "3"},
		{"title": "Last"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}
