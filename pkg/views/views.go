// Package views holds the embedded page templates, their view models and
// the theme wiring used to render them.
package views

import (
	"fmt"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/render/template/gotemplate"
)

// Site is exposed to every template as "site".
type Site struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	// AssetsPath is where AssetsFS is mounted.
	AssetsPath string `json:"assetsPath"`
}

// Config selects the theme and optional on-disk template overrides.
type Config struct {
	Site         Site
	Theme        string
	Variant      string
	TemplatesDir string
}

// NewEngine builds the pongo2 engine over the embedded templates. Files in
// cfg.TemplatesDir shadow embedded ones with the same name.
func NewEngine(cfg Config, extra ...gotemplate.Option) (*gotemplate.Engine, error) {
	themeCfg, err := ResolveTheme(cfg)
	if err != nil {
		return nil, err
	}
	opts := []gotemplate.Option{
		gotemplate.WithName("signupsheets"),
		gotemplate.WithFS(TemplatesFS()),
		gotemplate.WithGlobalData(map[string]any{
			"site":  cfg.Site,
			"theme": NewThemeContext(themeCfg),
		}),
	}
	if cfg.TemplatesDir != "" {
		opts = append(opts, gotemplate.WithBaseDir(cfg.TemplatesDir))
	}
	engine, err := gotemplate.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	return engine, nil
}

// NewRegistry returns the html, json and yaml renderers over NewEngine.
func NewRegistry(cfg Config, extra ...gotemplate.Option) (*render.Registry, error) {
	engine, err := NewEngine(cfg, extra...)
	if err != nil {
		return nil, err
	}
	return render.NewDefaultRegistry(engine), nil
}

// ResolveTheme selects cfg.Theme from the bundled manifests.
func ResolveTheme(cfg Config) (*theme.RendererConfig, error) {
	selector, err := NewSelector(cfg.Variant, DefaultManifest(cfg.Site.AssetsPath))
	if err != nil {
		return nil, err
	}
	sel, err := selector.Select(cfg.Theme, cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("views: select theme: %w", err)
	}
	return RendererConfig(sel), nil
}
