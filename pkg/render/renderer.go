package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-signupsheets/pkg/render/template"
)

// Renderer converts view data into one output format.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view string, data any) ([]byte, error)
}

// JSON renders data as indented JSON, ignoring the view name.
type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json; charset=utf-8" }

func (JSON) Render(_ context.Context, _ string, data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("render: json: %w", err)
	}
	return buf.Bytes(), nil
}

// YAML renders data as YAML, ignoring the view name.
type YAML struct{}

func (YAML) Name() string        { return "yaml" }
func (YAML) ContentType() string { return "application/yaml; charset=utf-8" }

func (YAML) Render(_ context.Context, _ string, data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("render: yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render: yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// HTML renders the named view through a template engine.
type HTML struct {
	Templates template.TemplateRenderer
}

func (HTML) Name() string        { return "html" }
func (HTML) ContentType() string { return "text/html; charset=utf-8" }

func (h HTML) Render(_ context.Context, view string, data any) ([]byte, error) {
	if h.Templates == nil {
		return nil, fmt.Errorf("render: html: template engine is required")
	}
	out, err := h.Templates.RenderTemplate(view, data)
	if err != nil {
		return nil, fmt.Errorf("render: html %q: %w", view, err)
	}
	return []byte(out), nil
}

// NewDefaultRegistry registers the html, json and yaml renderers.
func NewDefaultRegistry(templates template.TemplateRenderer) *Registry {
	r := NewRegistry()
	r.MustRegister(HTML{Templates: templates})
	r.MustRegister(JSON{})
	r.MustRegister(YAML{})
	return r
}
