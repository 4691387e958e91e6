package gotemplate_test

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-signupsheets/pkg/render/template/gotemplate"
	"github.com/goliatone/go-signupsheets/pkg/testsupport"
)

//go:embed testdata/templates/*.html testdata/templates/nested/*.html
var embedded embed.FS

func newEngine(t *testing.T, opts ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	sub, err := fs.Sub(embedded, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(sub)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngineRenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want || written != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q (writer %q)", want, result, written)
	}
}

func TestEngineGlobalsAndFilters(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGlobalData(map[string]any{
		"site": map[string]any{"name": "Volunteers"},
	}))

	result, err := engine.RenderTemplate("sheet.html", struct {
		Date string `json:"date"`
		Qty  int    `json:"qty"`
	}{Date: "2024-06-01", Qty: 3})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "sheet.golden"))
	if result != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngineRenderString(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout_test", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout_test", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("duplicate filter should fail")
	}

	got, err := engine.Render("{{ who|shout_test }} {{ 1|spots }}", map[string]any{"who": "ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "ADA! 1 spot" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineRequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without a template source")
	}
}

func TestEngineResolvesNamesFromRoot(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.RenderTemplate("nested/page", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "[Ada]" {
		t.Fatalf("got %q", got)
	}
}

func TestEngineBaseDirOverridesSingleFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "who.html"), []byte("<{{ name }}>"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	engine := newEngine(t, gotemplate.WithBaseDir(dir))

	got, err := engine.RenderTemplate("nested/page", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render overridden partial: %v", err)
	}
	if got != "[<Ada>]" {
		t.Fatalf("got %q", got)
	}

	got, err = engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render embedded template: %v", err)
	}
	if !strings.HasPrefix(got, "Hello Ada!") {
		t.Fatalf("got %q", got)
	}
}

func TestEngineRejectsMissingBaseDir(t *testing.T) {
	_, err := gotemplate.New(gotemplate.WithBaseDir(filepath.Join(t.TempDir(), "missing")))
	if err == nil {
		t.Fatalf("expected error for a missing base dir")
	}
}
