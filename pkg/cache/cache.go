// Package cache purges page and object caches after sign-up changes.
//
// The Controller is a fixed-list dispatcher: purgers are registered once at
// start-up and every sign-up add, update or delete fans out to them. Purge
// failures are logged and never fail the sign-up itself.
package cache

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// Kind names the content type of a purge target.
type Kind string

const (
	KindSignup Kind = "signup"
	KindTask   Kind = "task"
	KindSheet  Kind = "sheet"
	KindPage   Kind = "page"
)

// Target identifies one cached item. IDs are only unique per kind.
type Target struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// IDPurger clears cached data for a single item.
type IDPurger interface {
	Name() string
	PurgeID(ctx context.Context, target Target) error
}

// AllPurger clears everything, for providers that cannot purge per item.
type AllPurger interface {
	Name() string
	PurgeAll(ctx context.Context) error
}

// URLPurger clears cached pages by URL.
type URLPurger interface {
	Name() string
	PurgeURLs(ctx context.Context, urls []string) error
}

// Hook runs after every purge with the sign-up, its task and its sheet, and
// the URLs that were cleared. Extra configured pages are not passed.
type Hook func(ctx context.Context, targets []Target, urls []string)

// Permalinker resolves the public URL of a target, "" when it has none.
type Permalinker func(ctx context.Context, target Target) (string, error)

// Lookup resolves the parents of a sign-up.
type Lookup interface {
	GetSignup(ctx context.Context, id int64) (*model.Signup, error)
	GetTask(ctx context.Context, id int64) (*model.Task, error)
}

// ExtraIDs lists additional page IDs purged on every sign-up change.
type ExtraIDs interface {
	CacheClearOnSignupIDs() []int64
}

// Result reports what a purge touched.
type Result struct {
	Targets []Target `json:"targets"`
	URLs    []string `json:"urls,omitempty"`
}

// Controller dispatches purges to the registered providers.
type Controller struct {
	lookup     Lookup
	extra      ExtraIDs
	links      Permalinker
	idPurgers  []IDPurger
	allPurgers []AllPurger
	urlPurgers []URLPurger
	hooks      []Hook
	logger     *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

func WithIDPurgers(purgers ...IDPurger) Option {
	return func(c *Controller) { c.idPurgers = append(c.idPurgers, purgers...) }
}

func WithAllPurgers(purgers ...AllPurger) Option {
	return func(c *Controller) { c.allPurgers = append(c.allPurgers, purgers...) }
}

func WithURLPurgers(purgers ...URLPurger) Option {
	return func(c *Controller) { c.urlPurgers = append(c.urlPurgers, purgers...) }
}

func WithHooks(hooks ...Hook) Option {
	return func(c *Controller) { c.hooks = append(c.hooks, hooks...) }
}

// WithPermalinks sets the URL resolver used for URL purgers.
func WithPermalinks(links Permalinker) Option {
	return func(c *Controller) { c.links = links }
}

// WithExtraIDs sets the source of the configured extra page IDs.
func WithExtraIDs(extra ExtraIDs) Option {
	return func(c *Controller) { c.extra = extra }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Controller resolving sign-up parents through lookup.
func New(lookup Lookup, opts ...Option) *Controller {
	c := &Controller{lookup: lookup, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ClearSignupCache purges the sign-up, its task and sheet, and the extra
// configured pages. taskID is looked up when 0. A zero signupID is a no-op.
func (c *Controller) ClearSignupCache(ctx context.Context, signupID, taskID int64) Result {
	if signupID == 0 {
		return Result{}
	}

	related := []Target{{Kind: KindSignup, ID: signupID}}
	if taskID == 0 && c.lookup != nil {
		if signup, err := c.lookup.GetSignup(ctx, signupID); err == nil {
			taskID = signup.TaskID
		} else {
			c.logger.Debug("cache: sign-up parent lookup failed", zap.Int64("signup", signupID), zap.Error(err))
		}
	}
	if taskID != 0 {
		related = append(related, Target{Kind: KindTask, ID: taskID})
		if c.lookup != nil {
			if task, err := c.lookup.GetTask(ctx, taskID); err == nil && task.SheetID != 0 {
				related = append(related, Target{Kind: KindSheet, ID: task.SheetID})
			} else if err != nil {
				c.logger.Debug("cache: task parent lookup failed", zap.Int64("task", taskID), zap.Error(err))
			}
		}
	}

	targets := slices.Clone(related)
	if c.extra != nil {
		for _, id := range c.extra.CacheClearOnSignupIDs() {
			targets = append(targets, Target{Kind: KindPage, ID: id})
		}
	}

	c.purgeIDs(ctx, targets)
	c.purgeAll(ctx)

	var urls []string
	if len(c.urlPurgers) > 0 {
		urls = c.urlsFor(ctx, related)
		c.purgeURLs(ctx, urls)
	}

	for _, hook := range c.hooks {
		hook(ctx, slices.Clone(related), urls)
	}
	return Result{Targets: targets, URLs: urls}
}

func (c *Controller) purgeIDs(ctx context.Context, targets []Target) {
	if len(c.idPurgers) == 0 {
		return
	}
	var g errgroup.Group
	for _, purger := range c.idPurgers {
		g.Go(func() error {
			for _, target := range targets {
				if err := purger.PurgeID(ctx, target); err != nil {
					c.logger.Warn("cache: purge failed",
						zap.String("provider", purger.Name()),
						zap.Stringer("target", target),
						zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Controller) purgeAll(ctx context.Context) {
	var g errgroup.Group
	for _, purger := range c.allPurgers {
		g.Go(func() error {
			if err := purger.PurgeAll(ctx); err != nil {
				c.logger.Warn("cache: purge all failed", zap.String("provider", purger.Name()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Controller) purgeURLs(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	var g errgroup.Group
	for _, purger := range c.urlPurgers {
		g.Go(func() error {
			if err := purger.PurgeURLs(ctx, urls); err != nil {
				c.logger.Warn("cache: url purge failed", zap.String("provider", purger.Name()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// urlsFor resolves permalinks, dropping empty and duplicate URLs.
func (c *Controller) urlsFor(ctx context.Context, targets []Target) []string {
	if c.links == nil {
		return nil
	}
	var urls []string
	seen := map[Target]bool{}
	for _, target := range targets {
		if target.ID == 0 || seen[target] {
			continue
		}
		seen[target] = true
		u, err := c.links(ctx, target)
		if err != nil {
			c.logger.Debug("cache: permalink failed", zap.Stringer("target", target), zap.Error(err))
			continue
		}
		if u != "" && !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	return urls
}
