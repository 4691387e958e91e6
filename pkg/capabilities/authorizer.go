package capabilities

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// ErrForbidden is returned by Require when the user lacks a capability.
var ErrForbidden = errors.New("capabilities: forbidden")

// CapabilityLookup resolves the capabilities granted to a role.
type CapabilityLookup interface {
	RoleCaps(ctx context.Context, role string) ([]string, error)
}

// Authorizer checks user capabilities through their roles.
type Authorizer struct {
	lookup CapabilityLookup
}

// NewAuthorizer returns an Authorizer backed by lookup.
func NewAuthorizer(lookup CapabilityLookup) *Authorizer {
	return &Authorizer{lookup: lookup}
}

// Can reports whether user holds cap through any of its roles. A nil user
// holds nothing.
func (a *Authorizer) Can(ctx context.Context, user *model.User, capability string) (bool, error) {
	if user == nil || capability == "" {
		return false, nil
	}
	for _, role := range user.Roles {
		caps, err := a.lookup.RoleCaps(ctx, role)
		if err != nil {
			return false, fmt.Errorf("capabilities: role %q: %w", role, err)
		}
		for _, c := range caps {
			if c == capability {
				return true, nil
			}
		}
	}
	return false, nil
}

// Require wraps Can, returning ErrForbidden when the capability is missing.
func (a *Authorizer) Require(ctx context.Context, user *model.User, capability string) error {
	ok, err := a.Can(ctx, user, capability)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrForbidden, capability)
	}
	return nil
}

// MapMetaCap translates a meta capability on a single item into the
// primitive capabilities required. owner reports whether the user owns the
// item; published whether the item is publicly visible.
func MapMetaCap(set *Set, key string, owner, published bool) []string {
	switch key {
	case EditPost:
		if owner {
			return []string{set.Get(EditPosts)}
		}
		return []string{set.Get(EditOthersPosts)}
	case DeletePost:
		if owner {
			return []string{set.Get(DeletePosts)}
		}
		return []string{set.Get(DeleteOthersPosts)}
	case ReadPost:
		if published || owner {
			return []string{Read}
		}
		return []string{set.Get(ReadPrivatePosts)}
	}
	if c := set.Get(key); c != "" {
		return []string{c}
	}
	return []string{key}
}

// CanSheet checks a meta or primitive capability against a sheet.
func (a *Authorizer) CanSheet(ctx context.Context, user *model.User, key string, sheet *model.Sheet) (bool, error) {
	published := sheet != nil && sheet.Status == model.StatusPublish
	return a.canAll(ctx, user, MapMetaCap(Sheets, key, false, published))
}

// CanSignup checks a meta or primitive capability against a sign-up. The
// user owns a sign-up linked to its ID.
func (a *Authorizer) CanSignup(ctx context.Context, user *model.User, key string, signup *model.Signup) (bool, error) {
	owner := user != nil && signup != nil && user.ID != 0 && signup.UserID == user.ID
	return a.canAll(ctx, user, MapMetaCap(Signups, key, owner, true))
}

// CanEditSignup reports whether user may edit signup.
func (a *Authorizer) CanEditSignup(ctx context.Context, user *model.User, signup *model.Signup) (bool, error) {
	return a.CanSignup(ctx, user, EditPost, signup)
}

func (a *Authorizer) canAll(ctx context.Context, user *model.User, caps []string) (bool, error) {
	for _, c := range caps {
		ok, err := a.Can(ctx, user, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
