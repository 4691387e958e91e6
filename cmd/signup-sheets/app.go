package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-signupsheets/components/usersearch"
	"github.com/goliatone/go-signupsheets/internal/apidoc"
	"github.com/goliatone/go-signupsheets/internal/server"
	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/auth"
	"github.com/goliatone/go-signupsheets/pkg/cache"
	"github.com/goliatone/go-signupsheets/pkg/capabilities"
	"github.com/goliatone/go-signupsheets/pkg/captcha"
	"github.com/goliatone/go-signupsheets/pkg/config"
	"github.com/goliatone/go-signupsheets/pkg/dbupdate"
	"github.com/goliatone/go-signupsheets/pkg/links"
	"github.com/goliatone/go-signupsheets/pkg/mail"
	"github.com/goliatone/go-signupsheets/pkg/nonce"
	"github.com/goliatone/go-signupsheets/pkg/scheduler"
	"github.com/goliatone/go-signupsheets/pkg/settings"
	"github.com/goliatone/go-signupsheets/pkg/signup"
	"github.com/goliatone/go-signupsheets/pkg/views"
)

// app holds the collaborators shared by the commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	settings  *settings.Settings
	links     links.Builder
	authz     *capabilities.Authorizer
	roles     *capabilities.Manager
	composer  *mail.Composer
	mailer    mail.Mailer
	pages     server.PageStore
	purger    *cache.Controller
	signups   *signup.Service
	scheduler *scheduler.Scheduler
	updater   *dbupdate.Updater
	reminder  *mail.Reminder
}

// openApp connects to the database, loads the stored options and wires the
// services. The caller closes the app.
func openApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, storage.WithLogger(logger.Named("storage")))
	if err != nil {
		return nil, err
	}
	st := settings.New(store, settings.WithPro(cfg.Site.Pro))
	if err := st.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: store, settings: st}
	a.links = links.Builder{SiteURL: cfg.Site.URL, SheetSlug: st.SheetSlug}
	a.authz = capabilities.NewAuthorizer(store)
	a.roles = capabilities.NewManager(store, st, capabilities.WithLogger(logger.Named("roles")))
	a.composer = mail.NewComposer(st, cfg.Site.Mail(), a.links)
	a.mailer = mail.NewSMTP(cfg.SMTP)

	if cfg.Cache.RedisAddr != "" {
		a.pages = cache.NewRedisPages(cache.NewRedisPool(cfg.Cache.RedisAddr), cfg.Cache.TTL)
	} else {
		a.pages = cache.NewObjectCache()
	}
	purgeOpts := []cache.Option{
		cache.WithIDPurgers(a.pages),
		cache.WithExtraIDs(st),
		cache.WithHooks(server.PurgeListHook(a.pages)),
		cache.WithLogger(logger.Named("cache")),
	}
	if cfg.Cache.PurgeURLs {
		purgeOpts = append(purgeOpts,
			cache.WithURLPurgers(cache.NewHTTPPurger()),
			cache.WithPermalinks(a.permalink),
		)
	}
	a.purger = cache.New(store, purgeOpts...)

	a.signups = signup.NewService(store, st, a.authz,
		signup.WithMail(a.mailer, a.composer),
		signup.WithPurger(a.purger),
		signup.WithCaptcha(captcha.NewVerifier()),
		signup.WithLogger(logger.Named("signup")),
	)

	a.scheduler = scheduler.New(
		scheduler.WithLogger(logger.Named("scheduler")),
		scheduler.WithPollInterval(cfg.Scheduler.PollInterval),
	)
	a.updater = dbupdate.New(store, st, version,
		dbupdate.WithQueue(a.scheduler),
		dbupdate.WithHooks(a.roles.AddAll),
		dbupdate.WithLogger(logger.Named("dbupdate")),
	)
	a.reminder = mail.NewReminder(store, st, a.composer, a.mailer, logger.Named("reminder"))
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// permalink resolves the public URL of a purge target.
func (a *app) permalink(ctx context.Context, target cache.Target) (string, error) {
	switch target.Kind {
	case cache.KindSheet:
		sheet, err := a.store.GetSheet(ctx, target.ID)
		if err != nil {
			return "", err
		}
		return a.links.Sheet(sheet), nil
	case cache.KindPage:
		if target.ID == 0 {
			return a.links.Path(links.SheetsPath), nil
		}
		return a.links.Page(target.ID), nil
	}
	return "", nil
}

// remind runs one reminder pass.
func (a *app) remind(ctx context.Context) error {
	stats, err := a.reminder.Run(ctx, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("reminders sent", zap.Int("sheets", stats.Sheets), zap.Int("sent", stats.Sent), zap.Int("failed", stats.Failed))
	return nil
}

// server builds the HTTP server over the app.
func (a *app) server(ctx context.Context) (*server.Server, error) {
	sec := a.cfg.Security
	doc, err := apidoc.Load(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := views.NewRegistry(views.Config{
		Site: views.Site{
			Name:       a.cfg.Site.Name,
			URL:        a.cfg.Site.URL,
			AssetsPath: a.links.Path(server.AssetsPath),
		},
		Theme:        a.cfg.Site.Theme,
		Variant:      a.cfg.Site.Variant,
		TemplatesDir: a.cfg.Site.TemplatesDir,
	})
	if err != nil {
		return nil, err
	}
	sessions := auth.NewSessions([]byte(sec.SessionKey),
		auth.WithTTL(sec.SessionTTL),
		auth.WithSecureCookie(sec.SecureCookies),
	)
	search := usersearch.New(
		usersearch.WithDirectory(a.store),
		usersearch.WithGuard(server.CapabilityGuard(a.authz, capabilities.Signups.Get(capabilities.EditOthersPosts))),
	)

	srv, err := server.New(server.Deps{
		Store:      a.store,
		Settings:   a.settings,
		Signups:    a.signups,
		Authz:      a.authz,
		Roles:      a.roles,
		Nonces:     nonce.New([]byte(sec.NonceKey)),
		Sessions:   sessions,
		Links:      a.links,
		Views:      registry,
		API:        doc,
		Pages:      a.pages,
		Updater:    a.updater,
		Scheduler:  a.scheduler,
		UserSearch: search,
		Version:    version,
		Logger:     a.logger.Named("http"),
	})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return srv, nil
}
