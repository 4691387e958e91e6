package cache_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/model"
)

type fakeLookup struct{}

func (fakeLookup) GetSignup(_ context.Context, id int64) (*model.Signup, error) {
	if id == 7 {
		return &model.Signup{ID: 7, TaskID: 3}, nil
	}
	return nil, model.ErrNotFound
}

func (fakeLookup) GetTask(_ context.Context, id int64) (*model.Task, error) {
	if id == 3 {
		return &model.Task{ID: 3, SheetID: 1}, nil
	}
	return nil, model.ErrNotFound
}

type extraIDs []int64

func (e extraIDs) CacheClearOnSignupIDs() []int64 { return e }

type recordingPurger struct {
	mu      sync.Mutex
	targets []cache.Target
	all     int
	urls    []string
	fail    bool
}

func (r *recordingPurger) Name() string { return "recording" }

func (r *recordingPurger) PurgeID(_ context.Context, t cache.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, t)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingPurger) PurgeAll(context.Context) error {
	r.mu.Lock()
	r.all++
	r.mu.Unlock()
	return nil
}

func (r *recordingPurger) PurgeURLs(_ context.Context, urls []string) error {
	r.mu.Lock()
	r.urls = append(r.urls, urls...)
	r.mu.Unlock()
	return nil
}

func TestClearSignupCacheCollectsRelatedTargets(t *testing.T) {
	rec := &recordingPurger{fail: true}
	var hooked []cache.Target
	links := func(_ context.Context, target cache.Target) (string, error) {
		if target.Kind == cache.KindSheet {
			return fmt.Sprintf("https://example.org/sheet/%d/", target.ID), nil
		}
		return "", nil
	}
	c := cache.New(fakeLookup{},
		cache.WithIDPurgers(rec),
		cache.WithAllPurgers(rec),
		cache.WithURLPurgers(rec),
		cache.WithPermalinks(links),
		cache.WithExtraIDs(extraIDs{42}),
		cache.WithHooks(func(_ context.Context, targets []cache.Target, _ []string) { hooked = targets }),
	)

	res := c.ClearSignupCache(context.Background(), 7, 0)
	want := []cache.Target{
		{Kind: cache.KindSignup, ID: 7},
		{Kind: cache.KindTask, ID: 3},
		{Kind: cache.KindSheet, ID: 1},
		{Kind: cache.KindPage, ID: 42},
	}
	if diff := cmp.Diff(want, res.Targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, rec.targets); diff != "" {
		t.Fatalf("purged targets mismatch (-want +got):\n%s", diff)
	}
	if rec.all != 1 {
		t.Fatalf("expected one purge-all call, got %d", rec.all)
	}
	if diff := cmp.Diff([]string{"https://example.org/sheet/1/"}, rec.urls); diff != "" {
		t.Fatalf("urls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want[:3], hooked); diff != "" {
		t.Fatalf("hook targets should leave out extra pages (-want +got):\n%s", diff)
	}

	if res := c.ClearSignupCache(context.Background(), 0, 3); len(res.Targets) != 0 {
		t.Fatalf("zero sign-up should be a no-op, got %+v", res)
	}
}

func TestClearSignupCacheWithoutURLPurgers(t *testing.T) {
	called := false
	c := cache.New(fakeLookup{}, cache.WithPermalinks(func(context.Context, cache.Target) (string, error) {
		called = true
		return "https://example.org/", nil
	}))
	res := c.ClearSignupCache(context.Background(), 9, 3)
	if called || len(res.URLs) != 0 {
		t.Fatalf("permalinks should only resolve when a url purger is registered")
	}
	if len(res.Targets) != 3 {
		t.Fatalf("expected sign-up, task and sheet, got %+v", res.Targets)
	}
}

func TestObjectCache(t *testing.T) {
	ctx := context.Background()
	oc := cache.NewObjectCache()
	sheet := cache.Target{Kind: cache.KindSheet, ID: 1}
	if err := oc.Put(ctx, sheet, []byte("<html>")); err != nil {
		t.Fatal(err)
	}
	if body, ok, _ := oc.Get(ctx, sheet); !ok || string(body) != "<html>" {
		t.Fatalf("expected cached page, got %q %v", body, ok)
	}
	c := cache.New(fakeLookup{}, cache.WithIDPurgers(oc))
	c.ClearSignupCache(ctx, 7, 0)
	if oc.Len() != 0 {
		t.Fatalf("sheet page should be purged")
	}
}

func TestRedisPages(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()
	pages := cache.NewRedisPages(cache.NewRedisPool(srv.Addr()), 0)

	sheet := cache.Target{Kind: cache.KindSheet, ID: 1}
	other := cache.Target{Kind: cache.KindSheet, ID: 2}
	for _, target := range []cache.Target{sheet, other} {
		if err := pages.Put(ctx, target, []byte("page")); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if !srv.Exists("page:sheet:1") {
		t.Fatalf("expected redis key page:sheet:1")
	}

	if err := pages.PurgeID(ctx, sheet); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, err := pages.Get(ctx, sheet); ok || err != nil {
		t.Fatalf("expected miss after purge, got ok=%v err=%v", ok, err)
	}
	if body, ok, _ := pages.Get(ctx, other); !ok || string(body) != "page" {
		t.Fatalf("other page should survive")
	}

	if err := pages.PurgeAll(ctx); err != nil {
		t.Fatalf("purge all: %v", err)
	}
	if srv.Exists("page:sheet:2") {
		t.Fatalf("purge all should remove every page")
	}
}

func TestHTTPPurgerRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PURGE" {
			t.Errorf("unexpected method %s", r.Method)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := cache.NewHTTPPurger(cache.WithPurgeRetry(3, 0))
	if err := p.PurgeURLs(context.Background(), []string{srv.URL + "/sheet/1/"}); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}
