package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store persists options as name/value strings.
type Store interface {
	Options(ctx context.Context) (map[string]string, error)
	SetOption(ctx context.Context, name, value string) error
	DeleteOption(ctx context.Context, name string) error
}

// Settings is a read-through cache of the option table with typed accessors.
// Call Load before reading; writes go to the store and the cache together.
type Settings struct {
	mu     sync.RWMutex
	store  Store
	values map[string]string
	pro    bool
}

// Option configures Settings.
type Option func(*Settings)

// WithPro enables the pro-only accessors.
func WithPro(pro bool) Option {
	return func(s *Settings) {
		s.pro = pro
	}
}

// WithValues seeds the cache, mostly useful in tests without a store.
func WithValues(values map[string]string) Option {
	return func(s *Settings) {
		for k, v := range values {
			s.values[k] = v
		}
	}
}

// New builds Settings over store. A nil store keeps values in memory only.
func New(store Store, opts ...Option) *Settings {
	s := &Settings{store: store, values: map[string]string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load replaces the cache with the stored options.
func (s *Settings) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	values, err := s.store.Options(ctx)
	if err != nil {
		return fmt.Errorf("settings: load: %w", err)
	}
	s.mu.Lock()
	s.values = values
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.mu.Unlock()
	return nil
}

// IsPro reports whether the pro edition is active.
func (s *Settings) IsPro() bool { return s.pro }

// Lookup returns the raw option value and whether it is set.
func (s *Settings) Lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Value returns the raw option value, or "" when unset.
func (s *Settings) Value(name string) string {
	v, _ := s.Lookup(name)
	return v
}

// IsTrue reports whether the option holds "true".
func (s *Settings) IsTrue(name string) bool {
	return s.Value(name) == "true"
}

// List splits a comma separated option into trimmed, non-empty items.
func (s *Settings) List(name string) []string {
	return SplitList(s.Value(name))
}

// All returns a copy of every cached option.
func (s *Settings) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the cached option names sorted.
func (s *Settings) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set writes an option. updated reports whether the value changed.
func (s *Settings) Set(ctx context.Context, name, value string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("settings: option name is required")
	}
	current, ok := s.Lookup(name)
	if ok && current == value {
		return false, nil
	}
	if s.store != nil {
		if err := s.store.SetOption(ctx, name, value); err != nil {
			return false, fmt.Errorf("settings: set %q: %w", name, err)
		}
	}
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	return true, nil
}

// SetList stores items as a comma separated option.
func (s *Settings) SetList(ctx context.Context, name string, items []string) (bool, error) {
	return s.Set(ctx, name, JoinList(items))
}

// Delete removes an option.
func (s *Settings) Delete(ctx context.Context, name string) error {
	if s.store != nil {
		if err := s.store.DeleteOption(ctx, name); err != nil {
			return fmt.Errorf("settings: delete %q: %w", name, err)
		}
	}
	s.mu.Lock()
	delete(s.values, name)
	s.mu.Unlock()
	return nil
}

// SplitList splits a comma separated string into trimmed, non-empty items.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	clean := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			clean = append(clean, item)
		}
	}
	return strings.Join(clean, ",")
}
