package views

import (
	"fmt"
	"path"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultThemeName is the bundled theme.
const DefaultThemeName = "fdsus"

// DefaultManifest describes the bundled look: brand tokens, a dark variant
// and the stylesheet served under AssetPrefix.
func DefaultManifest(assetPrefix string) *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand":      "#2271b1",
			"filled":     "#dff0d8",
			"text":       "#1d2327",
			"background": "#ffffff",
		},
		Assets: theme.Assets{
			Prefix: assetPrefix,
			Files: map[string]string{
				"stylesheet": StylesheetName,
				"script":     ScriptName,
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"text":       "#f0f0f1",
					"background": "#1d2327",
					"filled":     "#2c3338",
				},
			},
		},
	}
}

// Selector resolves theme selections from a fixed set of manifests and
// falls back to the defaults for unknown names.
type Selector struct {
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*Selector)(nil)

// NewSelector validates manifests through a theme registry. The first one
// is the default theme.
func NewSelector(defaultVariant string, manifests ...*theme.Manifest) (*Selector, error) {
	if len(manifests) == 0 {
		return nil, fmt.Errorf("views: at least one theme manifest is required")
	}
	s := &Selector{
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   manifests[0].Name,
		defaultVariant: defaultVariant,
	}
	registry := theme.NewRegistry()
	for _, m := range manifests {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("views: register theme %q: %w", m.Name, err)
		}
		s.manifests[m.Name] = m
	}
	return s, nil
}

// Select implements theme.ThemeSelector.
func (s *Selector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	m, ok := s.manifests[name]
	if !ok {
		name, m = s.defaultTheme, s.manifests[s.defaultTheme]
	}
	if variant == "" {
		variant = s.defaultVariant
	}
	if _, ok := m.Variants[variant]; !ok {
		variant = ""
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: m}, nil
}

// RendererConfig merges a selection's base and variant values.
func RendererConfig(sel *theme.Selection) *theme.RendererConfig {
	if sel == nil || sel.Manifest == nil {
		return nil
	}
	m := sel.Manifest
	v := m.Variants[sel.Variant]

	tokens := merge(m.Tokens, v.Tokens)
	files := merge(m.Assets.Files, v.Assets.Files)
	prefix := m.Assets.Prefix
	if v.Assets.Prefix != "" {
		prefix = v.Assets.Prefix
	}

	cssVars := make(map[string]string, len(tokens))
	for k, val := range tokens {
		cssVars["--fdsus-"+k] = val
	}

	return &theme.RendererConfig{
		Theme:    sel.Theme,
		Variant:  sel.Variant,
		Partials: merge(m.Templates, v.Templates),
		Tokens:   tokens,
		CSSVars:  cssVars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok {
				return ""
			}
			if prefix == "" {
				return file
			}
			return path.Join(prefix, file)
		},
	}
}

// ThemeContext is the theme data visible to templates as "theme".
type ThemeContext struct {
	Name       string `json:"name"`
	Variant    string `json:"variant,omitempty"`
	Style      string `json:"style,omitempty"`
	Stylesheet string `json:"stylesheet,omitempty"`
	Script     string `json:"script,omitempty"`
}

// NewThemeContext flattens cfg for templates.
func NewThemeContext(cfg *theme.RendererConfig) ThemeContext {
	if cfg == nil {
		return ThemeContext{}
	}
	ctx := ThemeContext{Name: cfg.Theme, Variant: cfg.Variant, Style: cssVarsStyle(cfg.CSSVars)}
	if cfg.AssetURL != nil {
		ctx.Stylesheet = cfg.AssetURL("stylesheet")
		ctx.Script = cfg.AssetURL("script")
	}
	return ctx
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key])
	}
	return strings.Join(parts, "; ")
}

func merge(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
