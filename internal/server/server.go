// Package server exposes the sign-up sheets over HTTP: the public pages,
// the admin screens and the JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/components/usersearch"
	"github.com/goliatone/go-signupsheets/internal/apidoc"
	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/dbupdate"
	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/nonce"
	"github.com/goliatone/go-signupsheets/pkg/render"
	"github.com/goliatone/go-signupsheets/pkg/scheduler"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

// Public paths not covered by links.
const (
	LoginPath   = "/login"
	LogoutPath  = "/logout"
	AssetsPath  = "/assets"
	HealthzPath = "/healthz"
)

// SheetListTarget is the page cache entry of the public sheet list.
var SheetListTarget = cache.Target{Kind: cache.KindPage, ID: 0}

// PageStore caches rendered pages for anonymous visitors.
type PageStore interface {
	cache.PageCache
	Name() string
	PurgeID(ctx context.Context, target cache.Target) error
	PurgeAll(ctx context.Context) error
}

// PurgeListHook returns a cache hook clearing the sheet list whenever a
// sign-up changes.
func PurgeListHook(pages PageStore) cache.Hook {
	return func(ctx context.Context, _ []cache.Target, _ []string) {
		_ = pages.PurgeID(ctx, SheetListTarget)
	}
}

// Deps are the collaborators the handlers use. Pages, Updater, Scheduler
// and UserSearch are optional. UserSearch is mounted under the admin path
// and should carry its own guard.
type Deps struct {
	Store      *storage.Store
	Settings   *settings.Settings
	Signups    *signup.Service
	Authz      *capabilities.Authorizer
	Roles      *capabilities.Manager
	Nonces     *nonce.Manager
	Sessions   *auth.Sessions
	Links      links.Builder
	Views      *render.Registry
	API        *apidoc.Document
	Pages      PageStore
	Updater    *dbupdate.Updater
	Scheduler  *scheduler.Scheduler
	UserSearch *usersearch.Component
	Assets     fs.FS
	Version    string
	Logger     *zap.Logger
	Now        func() time.Time
}

// Server routes requests to the handlers.
type Server struct {
	deps   Deps
	router *httprouter.Router
	logger *zap.Logger
	now    func() time.Time
}

// New validates deps and builds the router. The sheet slug is read once:
// changing it takes effect on the next start.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("server: store is required")
	case deps.Settings == nil:
		return nil, errors.New("server: settings are required")
	case deps.Signups == nil:
		return nil, errors.New("server: sign-up service is required")
	case deps.Authz == nil:
		return nil, errors.New("server: authorizer is required")
	case deps.Nonces == nil:
		return nil, errors.New("server: nonce manager is required")
	case deps.Sessions == nil:
		return nil, errors.New("server: sessions are required")
	case deps.Views == nil:
		return nil, errors.New("server: view registry is required")
	case deps.API == nil:
		return nil, errors.New("server: api document is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Assets == nil {
		deps.Assets = views.AssetsFS()
	}
	if deps.Links.SheetSlug == nil {
		deps.Links.SheetSlug = deps.Settings.SheetSlug
	}

	s := &Server{deps: deps, logger: deps.Logger, now: deps.Now}
	s.router = s.routes()
	return s, nil
}

// Handler returns the router wrapped in the session and logging
// middleware.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.withSession(s.router))
}

// Run serves on addr until ctx is done, then shuts down, waiting at most
// grace for in-flight requests.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if grace <= 0 {
		grace = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.logger.Info("shutting down", zap.Duration("grace", grace))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *httprouter.Router {
	r := httprouter.New()
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.pageError(w, req, StatusError{Code: http.StatusNotFound})
	})
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		s.logger.Error("panic serving request", zap.String("path", req.URL.Path), zap.Any("panic", v))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}

	sheetPath := "/" + s.deps.Settings.SheetSlug() + "/:sheet/"

	// front-end
	r.GET(links.SheetsPath, s.page(s.sheetList))
	r.GET(sheetPath, s.page(s.sheetPage))
	r.POST(sheetPath, s.page(s.submitSignup))
	r.GET(links.RemovePath, s.page(s.removeSignup))
	r.GET(links.UserSignupsPath, s.page(s.userSignups))
	r.GET(LoginPath, s.page(s.loginForm))
	r.POST(LoginPath, s.page(s.login))
	r.POST(LogoutPath, s.page(s.logout))
	r.ServeFiles(AssetsPath+"/*filepath", http.FS(s.deps.Assets))
	r.GET(HealthzPath, s.healthz)

	// admin
	admin := links.AdminBasePath
	r.GET(admin+"/", s.admin(capabilities.Sheets.Get(capabilities.EditPosts), s.adminSheets))
	r.GET(admin+"/new-sheet", s.admin(capabilities.Sheets.Get(capabilities.CreatePosts), s.editSheet))
	r.POST(admin+"/new-sheet", s.admin(capabilities.Sheets.Get(capabilities.CreatePosts), s.saveSheet))
	r.GET(admin+"/sheets/:id", s.admin(capabilities.Sheets.Get(capabilities.EditPosts), s.editSheet))
	r.POST(admin+"/sheets/:id", s.admin(capabilities.Sheets.Get(capabilities.EditPosts), s.saveSheet))
	r.POST(admin+"/sheets/:id/trash", s.admin(capabilities.Sheets.Get(capabilities.DeletePosts), s.trashSheet))
	r.GET(admin+"/sheets/:id/signups", s.admin(capabilities.Read, s.manageSignups))
	r.POST(admin+"/sheets/:id/signups", s.admin(capabilities.Read, s.clearSignups))
	r.GET(admin+"/sheets/:id/clear", s.admin(capabilities.Read, s.clearSignup))
	r.GET(admin+"/signup", s.admin(capabilities.Read, s.editSignup))
	r.POST(admin+"/signup", s.admin(capabilities.Read, s.saveSignup))
	r.GET(admin+"/settings", s.admin(capabilities.ManageOptions, s.settingsPage))
	r.POST(admin+"/settings", s.admin(capabilities.ManageOptions, s.saveSettings))
	r.GET(admin+"/settings/reset", s.admin(capabilities.ManageOptions, s.resetSettings))
	r.GET(admin+"/settings/rerun-migrate", s.admin(capabilities.ManageOptions, s.rerunMigrate))
	r.GET(admin+"/site-health", s.admin(capabilities.ManageOptions, s.siteHealth))
	if s.deps.UserSearch != nil {
		r.Handler(http.MethodGet, s.deps.UserSearch.MountPath(admin), s.deps.UserSearch.Handler())
	}

	// JSON API
	api := links.APIBasePath
	r.GET(api+"/sheets", s.api(s.apiListSheets))
	r.GET(api+"/sheets/:sheetId", s.api(s.apiGetSheet))
	r.POST(api+"/signups", s.api(s.apiCreateSignups))
	r.DELETE(api+"/signups/removal/:token", s.api(s.apiRemoveSignup))
	r.GET(api+"/me/signups", s.api(s.apiUserSignups))
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
