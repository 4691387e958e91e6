// Package apidoc loads the embedded OpenAPI document describing the JSON API
// and validates incoming requests against it.
package apidoc

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var document []byte

// ErrNoRoute is returned for requests the document does not describe.
var ErrNoRoute = errors.New("apidoc: no matching operation")

// Operation is one documented endpoint.
type Operation struct {
	ID      string `json:"operationId"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// Document is a loaded and validated API description.
type Document struct {
	spec   *openapi3.T
	router routers.Router
}

// Raw returns the embedded YAML document.
func Raw() []byte {
	return document
}

// Load parses and validates the embedded document.
func Load(ctx context.Context) (*Document, error) {
	return LoadFromData(ctx, document)
}

// LoadFromData parses and validates data.
func LoadFromData(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("apidoc: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("apidoc: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("apidoc: validate: %w", err)
	}
	router, err := legacy.NewRouter(spec)
	if err != nil {
		return nil, fmt.Errorf("apidoc: router: %w", err)
	}
	return &Document{spec: spec, router: router}, nil
}

// Version is the info.version of the document.
func (d *Document) Version() string {
	if d.spec.Info == nil {
		return ""
	}
	return d.spec.Info.Version
}

// Operations lists the documented endpoints sorted by path then method.
// Operations without an operationId are keyed "method:path".
func (d *Document) Operations() []Operation {
	var out []Operation
	if d.spec.Paths == nil {
		return out
	}
	for path, item := range d.spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, Operation{ID: id, Method: method, Path: path, Summary: op.Summary})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ValidateRequest checks the parameters and body of r against the matching
// operation. The body is left readable for the handler.
func (d *Document) ValidateRequest(r *http.Request) error {
	route, params, err := d.router.FindRoute(r)
	if err != nil {
		if unmatched(err) {
			return ErrNoRoute
		}
		return fmt.Errorf("apidoc: find route: %w", err)
	}
	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		return &ValidationError{Operation: route.Operation.OperationID, Err: err}
	}
	return nil
}

// unmatched reports whether err says no operation covers the request. The
// router builds a new RouteError per call, so the reason is compared.
func unmatched(err error) bool {
	var routeErr *routers.RouteError
	if !errors.As(err, &routeErr) {
		return false
	}
	return routeErr.Reason == routers.ErrPathNotFound.Error() ||
		routeErr.Reason == routers.ErrMethodNotAllowed.Error()
}

// ValidationError reports a request that does not match its operation.
type ValidationError struct {
	Operation string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("apidoc: invalid %s request: %s", e.Operation, reason(e.Err))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// reason keeps the first line of kin-openapi's multi-line messages.
func reason(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Reason
		if reqErr.Parameter != nil {
			msg = fmt.Sprintf("parameter %q: %s", reqErr.Parameter.Name, firstLine(reqErr.Error()))
		} else if reqErr.Err != nil {
			msg = firstLine(reqErr.Err.Error())
		}
		if msg != "" {
			return msg
		}
	}
	return firstLine(err.Error())
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
