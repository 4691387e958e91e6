package capabilities

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// RoleStore persists roles and the capabilities granted to them.
type RoleStore interface {
	AddRole(ctx context.Context, key, label string) error
	RemoveRole(ctx context.Context, key string) error
	HasRole(ctx context.Context, key string) (bool, error)
	AddCaps(ctx context.Context, role string, caps ...string) error
	RemoveCaps(ctx context.Context, role string, caps ...string) error
}

// RoleOptions exposes the role related settings.
type RoleOptions interface {
	ManagedRoles() []string
	DisabledRoles() []string
}

// Manager installs and removes the custom roles and their capabilities.
type Manager struct {
	store   RoleStore
	options RoleOptions
	logger  *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for sync reporting.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager builds a Manager over store.
func NewManager(store RoleStore, options RoleOptions, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, options: options, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// AddAll creates the custom roles not listed as disabled and grants every
// role its capabilities.
func (m *Manager) AddAll(ctx context.Context) error {
	disabled := m.disabled()
	for _, role := range CustomRoles() {
		if slices.Contains(disabled, role.Key) {
			continue
		}
		if err := m.store.AddRole(ctx, role.Key, role.Label); err != nil {
			return fmt.Errorf("capabilities: add role %q: %w", role.Key, err)
		}
	}
	return m.SetCapabilities(ctx)
}

// SetCapabilities grants the capabilities of RolesAndCaps to roles that
// exist. Missing roles are skipped.
func (m *Manager) SetCapabilities(ctx context.Context) error {
	for role, caps := range RolesAndCaps(m.managed()) {
		ok, err := m.store.HasRole(ctx, role)
		if err != nil {
			return fmt.Errorf("capabilities: lookup role %q: %w", role, err)
		}
		if !ok {
			continue
		}
		if err := m.store.AddCaps(ctx, role, caps...); err != nil {
			return fmt.Errorf("capabilities: grant %q: %w", role, err)
		}
		m.logger.Debug("granted capabilities", zap.String("role", role), zap.Int("caps", len(caps)))
	}
	return nil
}

// RemoveAll deletes the custom roles and strips every generated capability
// from the remaining roles.
func (m *Manager) RemoveAll(ctx context.Context) error {
	for _, role := range CustomRoles() {
		ok, err := m.store.HasRole(ctx, role.Key)
		if err != nil {
			return fmt.Errorf("capabilities: lookup role %q: %w", role.Key, err)
		}
		if !ok {
			continue
		}
		if err := m.store.RemoveRole(ctx, role.Key); err != nil {
			return fmt.Errorf("capabilities: remove role %q: %w", role.Key, err)
		}
	}
	return m.RemoveCapabilities(ctx)
}

// RemoveCapabilities strips all sheet, task and sign-up capabilities from
// every role that RolesAndCaps knows about.
func (m *Manager) RemoveCapabilities(ctx context.Context) error {
	all := AllGeneratedCaps()
	for role := range RolesAndCaps(m.managed()) {
		ok, err := m.store.HasRole(ctx, role)
		if err != nil {
			return fmt.Errorf("capabilities: lookup role %q: %w", role, err)
		}
		if !ok {
			continue
		}
		if err := m.store.RemoveCaps(ctx, role, all...); err != nil {
			return fmt.Errorf("capabilities: revoke %q: %w", role, err)
		}
	}
	return nil
}

// Reset removes and re-adds all roles and capabilities.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.RemoveAll(ctx); err != nil {
		return err
	}
	return m.AddAll(ctx)
}

// AfterSettingsSave resets roles when one of the role options changed.
func (m *Manager) AfterSettingsSave(ctx context.Context, option string, updated bool) error {
	if !updated || !IsRoleOption(option) {
		return nil
	}
	m.logger.Info("role settings changed, resetting roles", zap.String("option", option))
	return m.Reset(ctx)
}

// IsRoleOption reports whether option affects role assignment.
func IsRoleOption(option string) bool {
	return option == "dls_sus_roles" || option == "fdsus_disabled_roles"
}

func (m *Manager) managed() []string {
	if m.options == nil {
		return nil
	}
	return m.options.ManagedRoles()
}

func (m *Manager) disabled() []string {
	if m.options == nil {
		return nil
	}
	return m.options.DisabledRoles()
}
