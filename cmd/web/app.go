package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"cybat.ai/cybat-web/internal/config"
	"cybat.ai/cybat-web/internal/middleware"
	"cybat.ai/cybat-web/internal/pages"
	"cybat.ai/cybat-web/internal/partners"
	"cybat.ai/cybat-web/internal/relay"
	"cybat.ai/cybat-web/internal/site"
	"cybat.ai/cybat-web/internal/views"
)

// app holds the long-lived dependencies shared by the HTTP handlers.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	resolver *pages.Resolver
	watcher  *pages.Watcher
	store    *site.Store
	sessions *middleware.Sessions
	public   fs.FS
}

type appOption func(*appDeps)

type appDeps struct {
	notifier site.Notifier
}

func withNotifier(n site.Notifier) appOption {
	return func(d *appDeps) {
		d.notifier = n
	}
}

func newApp(cfg config.Config, logger *zap.Logger, opts ...appOption) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var deps appDeps
	for _, opt := range opts {
		opt(&deps)
	}

	layout, err := pages.ParseLayouts(views.Layouts(), nil)
	if err != nil {
		return nil, err
	}
	resolver, err := pages.NewResolver(viewSource(cfg.Views), layout)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		sessions: middleware.NewSessions(cfg.Session.SigningKey, cfg.Session.Secure, logger.Named("session")),
		public:   views.Public(),
	}

	if cfg.Server.Dev && cfg.Views.Dir != "" {
		w, err := pages.NewWatcher(cfg.Views.Dir, resolver, logger.Named("views"))
		if err != nil {
			return nil, fmt.Errorf("views watcher: %w", err)
		}
		a.watcher = w
	}

	loader := partners.NewLoader(a.public,
		partners.WithURL(cfg.Partners.URL),
		partners.WithCacheTTL(cfg.Partners.CacheTTL),
		partners.WithTimeout(cfg.Partners.Timeout),
	)
	sender := relay.NewClient(cfg.Form.Endpoint, relay.WithTimeout(cfg.Form.Timeout))
	ctrlOpts := []site.Option{site.WithValidation(cfg.Form.Validate)}
	if deps.notifier != nil {
		ctrlOpts = append(ctrlOpts, site.WithNotifier(deps.notifier))
	}
	a.store = site.NewStore(
		func() *site.Controller {
			return site.NewController(loader, sender, ctrlOpts...)
		},
		site.WithIdleTTL(cfg.Session.IdleTTL),
		site.WithSweepInterval(cfg.Session.SweepInterval),
		site.WithStoreLogger(logger.Named("sessions")),
	)
	return a, nil
}

func viewSource(cfg config.ViewsConfig) pages.Source {
	switch {
	case cfg.RemoteBaseURL != "":
		return pages.NewHTTPSource(cfg.RemoteBaseURL, cfg.FetchTimeout)
	case cfg.Dir != "":
		return pages.FSSource{FS: os.DirFS(cfg.Dir)}
	default:
		return pages.FSSource{FS: views.Pages()}
	}
}

// start launches background work: the session janitor and, in dev mode, the
// views watcher.
func (a *app) start(ctx context.Context) error {
	a.store.Start(ctx)
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			a.store.Stop()
			return fmt.Errorf("views watcher: %w", err)
		}
	}
	return nil
}

func (a *app) stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.store.Stop()
}
