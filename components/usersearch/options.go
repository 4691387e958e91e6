package usersearch

import (
	"context"
	"net/http"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// EmptySearchMode decides what a blank query returns.
type EmptySearchMode string

const (
	// EmptySearchNone returns nothing until the admin types.
	EmptySearchNone EmptySearchMode = "none"
	// EmptySearchTop returns the first users in label order.
	EmptySearchTop EmptySearchMode = "top"
)

// The select next to the search box shows a handful of matches.
const (
	DefaultRoutePath = "/api/users"
	defaultLimit     = 10
	maxLimit         = 50
)

// GuardFunc authorizes a search request.
type GuardFunc func(r *http.Request) error

// Directory lists the users that can be searched.
type Directory interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc
	Directory       Directory
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:       DefaultRoutePath,
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    defaultLimit,
		MaxLimit:        maxLimit,
		EmptySearchMode: EmptySearchNone,
	}
}

// NewOptions applies fns over the defaults. Values cleared by an option
// fall back to their default.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	def := DefaultOptions()
	fill(&opts.RoutePath, def.RoutePath)
	fill(&opts.SearchParam, def.SearchParam)
	fill(&opts.LimitParam, def.LimitParam)
	fill(&opts.EmptySearchMode, def.EmptySearchMode)
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	return opts
}

func fill[T ~string](v *T, def T) {
	if *v == "" {
		*v = def
	}
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) { o.SearchParam = name }
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) { o.LimitParam = name }
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) { o.DefaultLimit = limit }
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) { o.MaxLimit = limit }
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) { o.EmptySearchMode = mode }
}

// WithGuard rejects requests for which guard returns an error. An error
// carrying a StatusCode sets the response status; anything else is a 403.
func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

// WithDirectory sets where users are listed from. It is required.
func WithDirectory(dir Directory) OptionFn {
	return func(o *Options) { o.Directory = dir }
}

// clampLimit maps a requested limit into [0, MaxLimit]; 0 asks for the
// default.
func clampLimit(limit int, opts Options) int {
	switch {
	case limit < 0:
		return 0
	case limit == 0:
		limit = opts.DefaultLimit
	}
	return min(limit, opts.MaxLimit)
}
