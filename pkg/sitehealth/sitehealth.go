// Package sitehealth builds the diagnostics report shown to administrators:
// release, edition, stored options and upcoming background jobs.
package sitehealth

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/goliatone/go-signupsheets/pkg/metabox"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/scheduler"
	"github.com/goliatone/go-signupsheets/pkg/settings"
)

// View is the template used by the html renderer.
const View = "admin/site_health"

// Field is one labelled value of the report.
type Field struct {
	Key       string `json:"key" yaml:"key"`
	Label     string `json:"label" yaml:"label"`
	Value     string `json:"value" yaml:"value"`
	Multiline bool   `json:"multiline,omitempty" yaml:"multiline,omitempty"`
}

// Job is one scheduled background job.
type Job struct {
	Name     string `json:"name" yaml:"name"`
	Schedule string `json:"schedule" yaml:"schedule"`
	Next     string `json:"next" yaml:"next"`
	Relative string `json:"relative,omitempty" yaml:"relative,omitempty"`
	LastErr  string `json:"lastError,omitempty" yaml:"last_error,omitempty"`
}

// Report is the full site health section.
type Report struct {
	Title  string  `json:"title" yaml:"title"`
	Fields []Field `json:"fields" yaml:"fields"`
	Jobs   []Job   `json:"jobs" yaml:"jobs"`
}

// Input is what Build reads.
type Input struct {
	Version  string
	Settings *settings.Settings
	Jobs     []scheduler.Status
	Now      time.Time
}

// skipped options never appear in the report.
var skipped = []string{
	settings.OptRecaptchaPublicKey,
	settings.OptRecaptchaPrivateKey,
	settings.OptRerunMigrate,
	settings.OptReset,
	settings.OptDBVersion,
	settings.OptDBVersionType,
}

var multiline = map[string]bool{
	settings.OptCustomFields:     true,
	settings.OptCustomTaskFields: true,
	settings.OptRoles:            true,
}

// Build assembles the report. Pro-only options are left out on the free
// edition.
func Build(in Input) Report {
	opts := in.Settings
	all := opts.All()

	skip := make(map[string]bool, len(skipped))
	for _, name := range skipped {
		skip[name] = true
	}
	if !opts.IsPro() {
		for _, name := range ProOptionKeys() {
			skip[name] = true
		}
	} else {
		all[settings.OptConfirmationEmail] = fmt.Sprint(opts.IsConfirmationEmailEnabled())
		all[settings.OptRemovalEmail] = fmt.Sprint(opts.IsRemovalConfirmationEmailEnabled())
	}

	fields := []Field{
		{Key: "version", Label: "Version", Value: in.Version},
		{Key: "db_version_type", Label: "Version Type", Value: all[settings.OptDBVersionType]},
		{Key: "primary_db_version", Label: "DB Version", Value: all[settings.OptDBVersion]},
	}

	var oneline, multi []Field
	for name, value := range all {
		if skip[name] || !settings.IsManagedOption(name) {
			continue
		}
		key := StripPrefix(name, settings.OptionPrefixes)
		f := Field{Key: key, Label: Label(key), Value: value}
		if multiline[name] {
			f.Multiline = true
			f.Value = expand(value)
			multi = append(multi, f)
			continue
		}
		oneline = append(oneline, f)
	}
	byKey := func(list []Field) {
		sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	}
	byKey(oneline)
	byKey(multi)
	fields = append(append(fields, oneline...), multi...)

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	jobs := make([]Job, 0, len(in.Jobs))
	for _, st := range in.Jobs {
		j := Job{Name: st.Name, Schedule: st.Schedule, Next: "Not Scheduled", LastErr: st.LastErr}
		if !st.Next.IsZero() {
			j.Next = st.Next.UTC().Format(time.RFC3339)
			j.Relative = humanize.RelTime(st.Next, now, "ago", "from now")
		}
		jobs = append(jobs, j)
	}

	return Report{Title: "Sign-up Sheets", Fields: fields, Jobs: jobs}
}

// ProOptionKeys lists the option names only the pro edition uses, read from
// the settings page definition.
func ProOptionKeys() []string {
	var out []string
	var walk func(fields []metabox.Field)
	walk = func(fields []metabox.Field) {
		for _, f := range fields {
			if f.OriginalKey != "" {
				out = append(out, f.OriginalKey)
			}
			walk(f.Fields)
		}
	}
	for _, section := range metabox.SettingsSections(metabox.SectionInput{Pro: false}) {
		walk(section.Options)
	}
	return out
}

// expand makes stored lists readable: JSON is indented, comma lists become
// one item per line.
func expand(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			if pretty, err := json.MarshalIndent(decoded, "", "  "); err == nil {
				return string(pretty)
			}
		}
	}
	return strings.Join(settings.SplitList(value), "\n")
}

// Render formats the report with the named renderer (html, json or yaml).
func Render(ctx context.Context, registry *render.Registry, format string, report Report) ([]byte, string, error) {
	renderer, err := registry.Get(format)
	if err != nil {
		return nil, "", fmt.Errorf("sitehealth: %w", err)
	}
	out, err := renderer.Render(ctx, View, report)
	if err != nil {
		return nil, "", fmt.Errorf("sitehealth: %w", err)
	}
	return out, renderer.ContentType(), nil
}
