package views_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/metabox"
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/sitehealth"
	"github.com/goliatone/go-signupsheets/pkg/testsupport"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

var testConfig = views.Config{
	Site: views.Site{Name: "Volunteers", URL: "http://example.test", AssetsPath: "/assets"},
}

func renderView(t *testing.T, cfg views.Config, view string, data any) string {
	t.Helper()
	registry, err := views.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	html, err := registry.Get("html")
	if err != nil {
		t.Fatalf("html renderer: %v", err)
	}
	out, err := html.Render(context.Background(), view, data)
	if err != nil {
		t.Fatalf("render %s: %v", view, err)
	}
	return string(out)
}

func assertContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(out, f) {
			t.Errorf("output missing %q\n%s", f, out)
		}
	}
}

func TestThemeContextGolden(t *testing.T) {
	cfg, err := views.ResolveTheme(testConfig)
	if err != nil {
		t.Fatalf("resolve theme: %v", err)
	}
	got := views.NewThemeContext(cfg)

	path := filepath.Join("testdata", "theme_context.golden.json")
	testsupport.WriteGolden(t, path, got)

	var want views.ThemeContext
	if err := json.Unmarshal(testsupport.MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden: %v", err)
	}
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("theme context mismatch (-want +got):\n%s", diff)
	}
}

func TestThemeVariantFallback(t *testing.T) {
	dark, err := views.ResolveTheme(views.Config{Theme: "unknown", Variant: "dark"})
	if err != nil {
		t.Fatal(err)
	}
	if dark.Theme != views.DefaultThemeName || dark.Variant != "dark" {
		t.Fatalf("unexpected selection %s/%s", dark.Theme, dark.Variant)
	}
	if dark.Tokens["text"] != "#f0f0f1" || dark.Tokens["brand"] != "#2271b1" {
		t.Fatalf("variant tokens should override the base: %v", dark.Tokens)
	}
	if got := dark.AssetURL("stylesheet"); got != views.StylesheetName {
		t.Fatalf("asset url without prefix = %q", got)
	}

	missing, err := views.ResolveTheme(views.Config{Variant: "sepia"})
	if err != nil {
		t.Fatal(err)
	}
	if missing.Variant != "" {
		t.Fatalf("unknown variants fall back to the base, got %q", missing.Variant)
	}
}

func TestRenderSheetList(t *testing.T) {
	empty := renderView(t, testConfig, views.ViewSheetList, views.SheetList{Layout: views.Layout{Title: "Sign-up Sheets"}})
	assertContains(t, empty,
		"<title>Sign-up Sheets | Volunteers</title>",
		`href="/assets/signup-sheets.css"`,
		"--fdsus-brand: #2271b1",
		"No sheets available at this time.",
	)

	out := renderView(t, testConfig, views.ViewSheetList, views.SheetList{
		Layout: views.Layout{Title: "Sign-up Sheets"},
		Sheets: []views.SheetRow{
			{ID: 1, Title: "Bake <Sale>", URL: "/sheet/1/", Date: "June 1, 2024", OpenSpots: 3},
			{ID: 2, Title: "Car Wash", URL: "/sheet/2/", Date: "N/A"},
		},
	})
	assertContains(t, out,
		"Bake &lt;Sale&gt;",
		"<td>3</td>",
		"View &amp; sign-up &raquo;",
		"&#10004; Filled",
	)
}

func TestRenderSheetPage(t *testing.T) {
	out := renderView(t, testConfig, views.ViewSheet, views.SheetPage{
		Layout:         views.Layout{Title: "Bake Sale", User: &model.User{Login: "ada"}},
		Anchor:         "dls-sus-sheet-7",
		BackURL:        "http://example.test/",
		Date:           "June 1, 2024",
		Content:        "<p>Bring <strong>cookies</strong></p>",
		TaskTitleLabel: "What",
		Tasks: []views.TaskRow{
			{Title: "Morning", Header: true},
			{ID: 3, Title: "Cookies", SignupURL: "/sheet/7/?task_id=3", Spots: []views.SpotRow{
				{Number: 1, Name: "Ada L.", RemovalURL: "/signup/remove?token=abc"},
				{Number: 2},
			}},
		},
	})
	assertContains(t, out,
		`id="dls-sus-sheet-7"`,
		"&laquo; View all",
		"<strong>cookies</strong>",
		`<th colspan="3">Morning</th>`,
		`<span class="dls-sus-name">Ada L.</span>`,
		`href="/signup/remove?token=abc"`,
		`<a href="/sheet/7/?task_id=3">Sign up &raquo;</a>`,
		`<span class="dls-sus-user">ada</span>`,
	)
}

func TestRenderSignupForm(t *testing.T) {
	notFound := renderView(t, testConfig, views.ViewSignupForm, views.SignupForm{Error: "Task not found."})
	assertContains(t, notFound, `<p class="dls-sus-error">Task not found.</p>`)
	if strings.Contains(notFound, "<form method=\"post\" action=\"\"") {
		t.Fatalf("form must not render on error")
	}

	out := renderView(t, testConfig, views.ViewSignupForm, views.SignupForm{
		TaskTitles: "Cookies on June 1, 2024 and Cakes",
		Action:     "/sheet/7/?task_id=3",
		GoBackURL:  "/sheet/7/#dls-sus-sheet-7",
		Hidden: []render.HiddenField{
			{Name: "signup_task_ids[]", Value: "3"},
			{Name: "signup_task_ids[]", Value: "4"},
			render.NonceField("n0nce", "signup_nonce"),
		},
		Inputs: []views.Input{
			{Name: "signup_firstname", Label: "First Name", Type: "text", Value: "Ada", Required: true},
			{Name: "signup_state", Label: "State", Type: "select", Value: "NY", Options: views.States()},
			{Name: "signup_shirt", Label: "Shirt", Type: "checkboxes", Values: []string{"L"},
				Options: []model.Choice{{Value: "M", Label: "M"}, {Value: "L", Label: "L"}}},
		},
		Honeypot:        true,
		SimpleCaptcha:   true,
		CaptchaQuestion: "7 + 1",
		SubmitLabel:     "Sign me up!",
	})
	assertContains(t, out,
		"Cookies on June 1, 2024 and Cakes",
		`<input type="hidden" name="signup_task_ids[]" value="3">`,
		`<input type="hidden" name="signup_task_ids[]" value="4">`,
		`<input type="hidden" name="signup_nonce" value="n0nce">`,
		`name="signup_firstname" value="Ada" required`,
		`<option value="NY" selected>NY</option>`,
		`name="signup_shirt[]" value="L" checked`,
		`name="website"`,
		"What is 7 + 1?",
		"Sign me up!",
		`href="/sheet/7/#dls-sus-sheet-7"`,
	)
	if strings.Contains(out, `value="M" checked`) {
		t.Fatalf("unselected checkbox rendered as checked")
	}
}

func TestRenderSiteHealthHTML(t *testing.T) {
	registry, err := views.NewRegistry(testConfig)
	if err != nil {
		t.Fatal(err)
	}
	report := sitehealth.Report{
		Title:  "Sign-up Sheets",
		Fields: []sitehealth.Field{{Key: "roles", Label: "Roles", Value: "editor\nauthor", Multiline: true}},
		Jobs:   []sitehealth.Job{{Name: "reminders", Schedule: "0 * * * *", Next: "Not Scheduled"}},
	}
	out, contentType, err := sitehealth.Render(context.Background(), registry, "html", report)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(contentType, "text/html") {
		t.Fatalf("content type = %q", contentType)
	}
	assertContains(t, string(out), "<th>Roles</th><td><pre>editor\nauthor</pre></td>", "<td>reminders</td>")
}

func TestTemplatesDirOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "message.html"), []byte("custom: {{ message }}"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig
	cfg.TemplatesDir = dir

	out := renderView(t, cfg, views.ViewMessage, views.Message{Message: "Removed"})
	if out != "custom: Removed" {
		t.Fatalf("override not used: %q", out)
	}
	// embedded templates still resolve
	assertContains(t, renderView(t, cfg, views.ViewLogin, views.Login{Action: "/login"}), `action="/login"`)
}

func TestRenderAdminViews(t *testing.T) {
	title := views.Input{Name: "title", Label: "Title", Type: "text", Value: "Bake Sale"}
	layout := views.Layout{Title: "Admin", Admin: true}
	tests := []struct {
		view string
		data any
		want []string
	}{
		{views.ViewAdminSheets, views.AdminSheets{Layout: layout, Sheets: []views.AdminSheetRow{{ID: 1, Title: "Bake Sale", Filled: 1, Total: 3}}}, []string{"1 of 3 filled"}},
		{views.ViewEditSheet, views.EditSheet{Layout: layout, Action: "/admin/sheets/1", Inputs: []views.Input{title}}, []string{`name="title"`, `value="Bake Sale"`}},
		{views.ViewEditSignup, views.EditSignup{Layout: layout, SheetName: "Bake Sale", Inputs: []views.Input{title}}, []string{`name="title"`}},
		{views.ViewManageSignups, views.ManageSignups{Layout: layout, SheetTitle: "Bake Sale", Tasks: []views.ManageTask{{ID: 2, Title: "Cookies"}}}, []string{"Cookies"}},
		{views.ViewSettings, views.Settings{Layout: layout, Sections: []views.InputGroup{{ID: "general", Title: "General", Inputs: []views.Input{title}}}}, []string{"General", `name="title"`}},
		{views.ViewSiteHealth, sitehealth.Report{Title: "Sign-up Sheets", Fields: []sitehealth.Field{{Key: "version", Label: "Version", Value: "3.0.0"}}}, []string{"<th>Version</th>"}},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			out := renderView(t, testConfig, tt.view, tt.data)
			assertContains(t, out, append([]string{"<!DOCTYPE html>"}, tt.want...)...)
		})
	}
}

func TestFieldInputsRepeater(t *testing.T) {
	fields := []metabox.Field{
		{Key: "b", Label: "Second", Type: metabox.FieldCheckboxes, Order: 20, Options: []model.Choice{{Value: "x", Label: "X"}}},
		{Key: "a", Label: "First", Type: metabox.FieldDatepicker, Order: 10},
		{Key: "rows", Label: "Rows", Type: metabox.FieldRepeater, Order: 30, Fields: []metabox.Field{
			{Key: "name", Label: "Name", Type: metabox.FieldText},
			{Key: "required", Label: "Required", Type: metabox.FieldCheckbox},
			{Key: "sheet_ids", Label: "Sheets", Type: metabox.FieldMultiSelect},
		}},
	}
	values := map[string]string{
		"a":    "2024-06-01",
		"b":    "x,y",
		"rows": `[{"name":"Shirt","required":true,"sheet_ids":[3,4]}]`,
	}

	inputs := views.FieldInputs(fields, values)
	if got := []string{inputs[0].Name, inputs[1].Name, inputs[2].Name}; !cmp.Equal(got, []string{"a", "b", "rows"}) {
		t.Fatalf("order = %v", got)
	}
	if inputs[0].Type != "date" {
		t.Fatalf("datepicker type = %q", inputs[0].Type)
	}
	if diff := cmp.Diff([]string{"x", "y"}, inputs[1].Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	rows := inputs[2].Rows
	if len(rows) != 2 {
		t.Fatalf("expected stored row plus blank row, got %d", len(rows))
	}
	want := []views.Input{
		{Name: "rows[0][name]", Label: "Name", Type: "text", Value: "Shirt"},
		{Name: "rows[0][required]", Label: "Required", Type: "checkbox", Value: "true"},
		{Name: "rows[0][sheet_ids]", Label: "Sheets", Type: "multiselect", Value: "3,4", Values: []string{"3", "4"}},
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
	if rows[1][0].Name != "rows[1][name]" || rows[1][0].Value != "" {
		t.Fatalf("blank row = %+v", rows[1][0])
	}
	if diff := cmp.Diff([]string{"Name", "Required", "Sheets"}, inputs[2].Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}
