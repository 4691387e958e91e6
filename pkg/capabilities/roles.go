package capabilities

import "sort"

// Built-in and custom role keys.
const (
	RoleAdministrator = "administrator"
	RoleManager       = "signup_sheet_manager"
	RoleViewer        = "signup_sheet_viewer"
)

// Role is a role key with its display label.
type Role struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// CustomRoles returns the roles this application creates.
func CustomRoles() []Role {
	return []Role{
		{Key: RoleManager, Label: "Sign-up Sheet Manager"},
		{Key: RoleViewer, Label: "Sign-up Sheet Viewer"},
	}
}

// IsCustomRole reports whether key is one of CustomRoles.
func IsCustomRole(key string) bool {
	for _, r := range CustomRoles() {
		if r.Key == key {
			return true
		}
	}
	return false
}

// RolesAndCaps returns the capabilities each role should hold. managed lists
// the extra roles selected in settings that get full access.
func RolesAndCaps(managed []string) map[string][]string {
	all := append(Values(Sheets.Primitive()), Values(Signups.Primitive())...)

	out := make(map[string][]string, len(managed)+3)
	for _, role := range managed {
		if role == "" {
			continue
		}
		out[role] = append([]string(nil), all...)
	}
	out[RoleAdministrator] = append([]string(nil), all...)
	out[RoleManager] = append([]string{Read}, all...)
	out[RoleViewer] = []string{
		Read,
		Sheets.Get(EditPosts),
		Sheets.Get(DeletePosts),
		Signups.Get(EditPosts),
		Signups.Get(CreatePosts),
	}
	return out
}

// AllGeneratedCaps lists every meta and primitive capability of the sheet,
// task and sign-up types. Used when stripping capabilities from roles.
func AllGeneratedCaps() []string {
	var out []string
	for _, set := range []*Set{Sheets, Tasks, Signups} {
		out = append(out, Values(set.All())...)
	}
	sort.Strings(out)
	return out
}
