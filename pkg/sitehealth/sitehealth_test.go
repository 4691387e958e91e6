package sitehealth

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/scheduler"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

var stored = map[string]string{
	"blogname":                        "Volunteers",
	settings.OptDBVersion:             "2.4.0",
	settings.OptDBVersionType:         "free",
	settings.OptRecaptchaPrivateKey:   "secret",
	settings.OptRoles:                 "signup_sheet_manager,editor",
	settings.OptSpotLock:              "true",
	settings.OptSignupLinkHash:        "off",
	settings.OptSheetSlug:             "sheet",
	settings.OptReset:                 "",
	settings.OptCustomFields:          `[{"name":"Shirt","slug":"shirt"}]`,
	settings.OptDisableSignupLinkHash: "",
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"recaptcha_version": "Recaptcha Version",
		"migrate_2.0_to_2.1": "Migrate 2.0 To 2.1",
		"sheet_slug":         "Sheet Slug",
		"":                   "",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildFreeEdition(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report := Build(Input{
		Version:  "2.4.0",
		Settings: settings.New(nil, settings.WithValues(stored)),
		Now:      now,
		Jobs: []scheduler.Status{
			{Name: "migrate", Schedule: "once"},
			{Name: "reminders", Schedule: "0 * * * *", Next: now.Add(3 * time.Hour)},
		},
	})

	want := []Field{
		{Key: "version", Label: "Version", Value: "2.4.0"},
		{Key: "db_version_type", Label: "Version Type", Value: "free"},
		{Key: "primary_db_version", Label: "DB Version", Value: "2.4.0"},
		{Key: "disable_signup_link_hash", Label: "Disable Signup Link Hash", Value: ""},
		{Key: "sheet_slug", Label: "Sheet Slug", Value: "sheet"},
		{Key: "signup_link_hash", Label: "Signup Link Hash", Value: "off"},
		{Key: "roles", Label: "Roles", Value: "signup_sheet_manager\neditor", Multiline: true},
	}
	if diff := cmp.Diff(want, report.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	wantJobs := []Job{
		{Name: "migrate", Schedule: "once", Next: "Not Scheduled"},
		{Name: "reminders", Schedule: "0 * * * *", Next: "2024-05-01T15:00:00Z", Relative: "3 hours from now"},
	}
	if diff := cmp.Diff(wantJobs, report.Jobs); diff != "" {
		t.Fatalf("jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildProEdition(t *testing.T) {
	report := Build(Input{
		Version:  "2.4.0",
		Settings: settings.New(nil, settings.WithPro(true), settings.WithValues(stored)),
	})
	values := map[string]string{}
	for _, f := range report.Fields {
		values[f.Key] = f.Value
	}
	if values["spot_lock"] != "true" {
		t.Fatalf("pro options should be listed on the pro edition")
	}
	if values["enable_confirmation_email"] != "true" || values["enable_removal_confirmation_email"] != "true" {
		t.Fatalf("confirmation email defaults missing: %v", values)
	}
	if !strings.Contains(values["custom_fields"], "\n  {") {
		t.Fatalf("custom fields should be indented JSON, got %q", values["custom_fields"])
	}
	for _, secret := range []string{"recaptcha_private_key", "reset"} {
		if _, ok := values[secret]; ok {
			t.Fatalf("%s must be skipped", secret)
		}
	}
}

func TestProOptionKeys(t *testing.T) {
	keys := ProOptionKeys()
	for _, want := range []string{settings.OptSpotLock, settings.OptCustomFields, settings.OptReminderEmail} {
		if !slices.Contains(keys, want) {
			t.Errorf("missing pro option %s", want)
		}
	}
	if slices.Contains(keys, settings.OptSheetSlug) {
		t.Errorf("sheet slug is not a pro option")
	}
}

func TestRenderJSON(t *testing.T) {
	report := Report{Title: "Sign-up Sheets", Fields: []Field{{Key: "version", Label: "Version", Value: "2.4.0"}}}
	out, contentType, err := Render(context.Background(), render.NewDefaultRegistry(nil), "json", report)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(contentType, "application/json") {
		t.Fatalf("content type = %q", contentType)
	}
	var decoded Report
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(report, decoded); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := Render(context.Background(), render.NewDefaultRegistry(nil), "xml", report); err == nil {
		t.Fatalf("unknown format should fail")
	}
}
