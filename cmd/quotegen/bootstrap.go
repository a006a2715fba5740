package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/quote-generator/internal/adapters/clients"
	"github.com/jsamuelsen/quote-generator/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quote-generator/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quote-generator/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quote-generator/internal/app"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
	"github.com/jsamuelsen/quote-generator/internal/platform/logging"
	"github.com/jsamuelsen/quote-generator/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// components is the wired application shared by every command.
type components struct {
	cfg    *config.Config
	logger *slog.Logger

	telemetry *telemetry.Provider
	registry  *prometheus.Registry
	health    *ports.DefaultHealthRegistry

	store      *app.QuoteStore
	sessions   *memory.SessionStore
	categories *app.CategoryIndex
	notifier   *app.Notifier
	flashes    *app.Flashes
	service    *app.QuoteService
	agent      *app.SyncAgent

	closers []func(context.Context) error
}

// bootstrap loads configuration and wires storage, the remote client, and the
// application services. Log output goes to logOut so commands that print to
// stdout stay machine-readable.
func bootstrap(ctx context.Context, profile string, logOut io.Writer) (*components, error) {
	// 1. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 2. Initialize logging
	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
		SessionCookie: cfg.Session.CookieName,
	}, logOut)
	logging.SetDefault(logger)

	c := &components{cfg: cfg, logger: logger}

	// 3. Initialize telemetry (noop if disabled)
	c.telemetry, err = telemetry.New(ctx, telemetry.FromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	c.closers = append(c.closers, c.telemetry.Shutdown)

	// 4. Metrics and health
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.health = ports.NewHealthRegistry()

	// 5. Durable storage
	slots, err := c.openStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	// 6. Application state
	c.store = app.NewQuoteStore(slots, logger)
	c.store.Load(ctx)

	c.sessions = memory.NewSessionStore(cfg.Session.TTL)
	c.categories = app.NewCategoryIndex()
	c.notifier = app.NewNotifier(nil)
	c.flashes = app.NewFlashes(c.sessions, logger)
	executor := app.NewExecutor(logger)

	c.service = app.NewQuoteService(app.QuoteServiceConfig{
		Store:      c.store,
		Renderer:   app.NewRenderer(c.store, c.sessions, logger),
		Categories: c.categories,
		Executor:   executor,
		Logger:     logger,
	})

	// 7. Remote quote source (ACL pattern)
	remote, err := c.newRemoteSource()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.agent = app.NewSyncAgent(app.SyncAgentConfig{
		Source:          remote,
		Store:           c.store,
		Categories:      c.categories,
		Notifier:        c.notifier,
		Executor:        executor,
		Metrics:         app.NewSyncMetrics(c.registry, c.store),
		Interval:        cfg.Sync.Interval,
		NotificationTTL: cfg.Sync.NotificationTTL,
		Logger:          logger,
	})

	logger.DebugContext(ctx, "components ready",
		slog.String("profile", profile),
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("quotes", c.store.Len()),
	)

	return c, nil
}

func (c *components) openStorage(ctx context.Context) (ports.SlotStore, error) {
	if c.cfg.Storage.Driver == "memory" {
		c.logger.WarnContext(ctx, "using in-memory storage, quotes will not survive a restart")
		return memory.NewSlotStore(), nil
	}

	store, err := sqlite.Open(ctx, c.cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	c.closers = append(c.closers, func(context.Context) error { return store.Close() })

	if err := c.health.Register(store); err != nil {
		return nil, fmt.Errorf("registering storage health check: %w", err)
	}

	return store, nil
}

func (c *components) newRemoteSource() (*acl.RemoteQuotesClient, error) {
	svc := c.cfg.Services.RemoteQuotes

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     svc.BaseURL,
		ServiceName: svc.Name,
		Timeout:     c.cfg.Client.Timeout,
		Retry:       c.cfg.Client.Retry,
		Circuit:     c.cfg.Client.CircuitBreaker,
		Transport:   c.cfg.Client.Transport,
		Metrics:     clients.NewMetrics(c.registry),
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	remote := acl.NewRemoteQuotesClient(acl.RemoteQuotesConfig{
		Client: httpClient,
		Path:   svc.Path,
		Logger: c.logger,
	})

	if err := c.health.Register(remote); err != nil {
		return nil, fmt.Errorf("registering %s health check: %w", svc.Name, err)
	}

	return remote, nil
}

// Close releases storage and flushes telemetry in reverse creation order.
func (c *components) Close() {
	ctx := context.Background()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i](ctx))
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Error("shutdown error", slog.Any("error", err))
	}
}
