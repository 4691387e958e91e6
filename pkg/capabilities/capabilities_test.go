package capabilities_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/model"
)

func TestSetGeneratesCapabilities(t *testing.T) {
	set := capabilities.New("dlssus_sheet", "")

	if got := set.Plural(); got != "dlssus_sheets" {
		t.Fatalf("plural = %q", got)
	}
	checks := map[string]string{
		capabilities.EditPost:        "edit_dlssus_sheet",
		capabilities.ReadPost:        "read_dlssus_sheet",
		capabilities.EditOthersPosts: "edit_others_dlssus_sheets",
		capabilities.CreatePosts:     "create_dlssus_sheets",
		capabilities.ManageTerms:     "manage_dlssus_sheets",
		"unknown":                    "",
	}
	for key, want := range checks {
		if got := set.Get(key); got != want {
			t.Fatalf("Get(%q) = %q, want %q", key, got, want)
		}
	}

	if got := len(set.All()); got != 14 {
		t.Fatalf("All() returned %d caps, want 14", got)
	}
	filtered := set.Primitive(capabilities.EditPosts, capabilities.DeletePosts, "nope")
	want := map[string]string{
		capabilities.EditPosts:   "edit_dlssus_sheets",
		capabilities.DeletePosts: "delete_dlssus_sheets",
	}
	if diff := cmp.Diff(want, filtered); diff != "" {
		t.Fatalf("filtered mismatch (-want +got):\n%s", diff)
	}
}

func TestRolesAndCaps(t *testing.T) {
	roles := capabilities.RolesAndCaps([]string{"editor"})

	if len(roles["editor"]) != 22 {
		t.Fatalf("editor should get every primitive cap, got %d", len(roles["editor"]))
	}
	if roles[capabilities.RoleManager][0] != capabilities.Read {
		t.Fatalf("manager should lead with read")
	}
	want := []string{
		"read",
		"edit_dlssus_sheets",
		"delete_dlssus_sheets",
		"edit_dlssus_signups",
		"create_dlssus_signups",
	}
	if diff := cmp.Diff(want, roles[capabilities.RoleViewer]); diff != "" {
		t.Fatalf("viewer caps mismatch (-want +got):\n%s", diff)
	}
}

type memoryRoles struct {
	roles map[string]map[string]bool
}

func newMemoryRoles(keys ...string) *memoryRoles {
	m := &memoryRoles{roles: map[string]map[string]bool{}}
	for _, k := range keys {
		m.roles[k] = map[string]bool{}
	}
	return m
}

func (m *memoryRoles) AddRole(_ context.Context, key, _ string) error {
	if _, ok := m.roles[key]; !ok {
		m.roles[key] = map[string]bool{}
	}
	return nil
}

func (m *memoryRoles) RemoveRole(_ context.Context, key string) error {
	delete(m.roles, key)
	return nil
}

func (m *memoryRoles) HasRole(_ context.Context, key string) (bool, error) {
	_, ok := m.roles[key]
	return ok, nil
}

func (m *memoryRoles) AddCaps(_ context.Context, role string, caps ...string) error {
	for _, c := range caps {
		m.roles[role][c] = true
	}
	return nil
}

func (m *memoryRoles) RemoveCaps(_ context.Context, role string, caps ...string) error {
	for _, c := range caps {
		delete(m.roles[role], c)
	}
	return nil
}

func (m *memoryRoles) RoleCaps(_ context.Context, role string) ([]string, error) {
	var out []string
	for c := range m.roles[role] {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

type roleOptions struct {
	managed, disabled []string
}

func (r roleOptions) ManagedRoles() []string  { return r.managed }
func (r roleOptions) DisabledRoles() []string { return r.disabled }

func TestManagerAddAllSkipsDisabledRoles(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRoles(capabilities.RoleAdministrator, "editor")
	mgr := capabilities.NewManager(store, roleOptions{
		managed:  []string{"editor", "ghost"},
		disabled: []string{capabilities.RoleViewer},
	})

	if err := mgr.AddAll(ctx); err != nil {
		t.Fatalf("add all: %v", err)
	}
	if _, ok := store.roles[capabilities.RoleViewer]; ok {
		t.Fatalf("disabled viewer role should not be created")
	}
	if _, ok := store.roles["ghost"]; ok {
		t.Fatalf("missing managed role should be skipped, not created")
	}
	if !store.roles["editor"]["edit_others_dlssus_signups"] {
		t.Fatalf("managed role should receive sign-up caps")
	}
	if !store.roles[capabilities.RoleManager]["read"] {
		t.Fatalf("manager role should receive read")
	}

	if err := mgr.RemoveAll(ctx); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if _, ok := store.roles[capabilities.RoleManager]; ok {
		t.Fatalf("manager role should be removed")
	}
	if len(store.roles["editor"]) != 0 {
		t.Fatalf("editor caps should be stripped, got %v", store.roles["editor"])
	}
}

func TestManagerAfterSettingsSave(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRoles(capabilities.RoleAdministrator)
	mgr := capabilities.NewManager(store, roleOptions{})

	if err := mgr.AfterSettingsSave(ctx, "dls_sus_email_subject", true); err != nil {
		t.Fatalf("unrelated option: %v", err)
	}
	if len(store.roles[capabilities.RoleAdministrator]) != 0 {
		t.Fatalf("unrelated option should not touch roles")
	}
	if err := mgr.AfterSettingsSave(ctx, "dls_sus_roles", true); err != nil {
		t.Fatalf("roles option: %v", err)
	}
	if !store.roles[capabilities.RoleAdministrator]["create_dlssus_sheets"] {
		t.Fatalf("roles option should reset capabilities")
	}
}

func TestAuthorizerSignupOwnership(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRoles()
	_ = store.AddRole(ctx, capabilities.RoleViewer, "")
	_ = store.AddCaps(ctx, capabilities.RoleViewer, capabilities.RolesAndCaps(nil)[capabilities.RoleViewer]...)
	auth := capabilities.NewAuthorizer(store)

	viewer := &model.User{ID: 7, Roles: []string{capabilities.RoleViewer}}
	own := &model.Signup{ID: 1, UserID: 7}
	other := &model.Signup{ID: 2, UserID: 9}

	if ok, err := auth.CanEditSignup(ctx, viewer, own); err != nil || !ok {
		t.Fatalf("viewer should edit own sign-up (ok=%v err=%v)", ok, err)
	}
	if ok, _ := auth.CanEditSignup(ctx, viewer, other); ok {
		t.Fatalf("viewer should not edit others' sign-ups")
	}
	err := auth.Require(ctx, viewer, capabilities.Sheets.Get(capabilities.CreatePosts))
	if !errors.Is(err, capabilities.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if ok, _ := auth.Can(ctx, nil, capabilities.Read); ok {
		t.Fatalf("nil user should hold nothing")
	}
}
