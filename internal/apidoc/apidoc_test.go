package apidoc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func load(t *testing.T) *Document {
	t.Helper()
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func TestOperations(t *testing.T) {
	doc := load(t)
	var ids []string
	for _, op := range doc.Operations() {
		ids = append(ids, op.Method+" "+op.ID)
	}
	want := []string{
		"GET listUserSignups",
		"GET listSheets",
		"GET getSheet",
		"POST createSignups",
		"DELETE removeSignup",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
	if doc.Version() == "" {
		t.Fatalf("document version missing")
	}
}

func TestValidateRequest(t *testing.T) {
	doc := load(t)

	valid := httptest.NewRequest(http.MethodPost, "/api/signups",
		strings.NewReader(`{"taskIds":[3],"nonce":"n","firstname":"Ada","lastname":"Lovelace"}`))
	valid.Header.Set("Content-Type", "application/json")
	if err := doc.ValidateRequest(valid); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := map[string]*http.Request{
		"missing last name": jsonRequest(http.MethodPost, "/api/signups", `{"taskIds":[3],"nonce":"n","firstname":"Ada"}`),
		"empty task list":   jsonRequest(http.MethodPost, "/api/signups", `{"taskIds":[],"nonce":"n","firstname":"A","lastname":"B"}`),
		"unknown property":  jsonRequest(http.MethodPost, "/api/signups", `{"taskIds":[1],"nonce":"n","firstname":"A","lastname":"B","admin":true}`),
		"bad sheet id":      httptest.NewRequest(http.MethodGet, "/api/sheets/abc", nil),
	}
	for name, req := range cases {
		err := doc.ValidateRequest(req)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/unknown", nil),
		httptest.NewRequest(http.MethodGet, "/login", nil),
		httptest.NewRequest(http.MethodPut, "/api/sheets", nil),
	} {
		if err := doc.ValidateRequest(req); !errors.Is(err, ErrNoRoute) {
			t.Fatalf("%s %s: expected ErrNoRoute, got %v", req.Method, req.URL.Path, err)
		}
	}
	if err := doc.ValidateRequest(httptest.NewRequest(http.MethodGet, "/api/sheets/12", nil)); err != nil {
		t.Fatalf("get sheet rejected: %v", err)
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
