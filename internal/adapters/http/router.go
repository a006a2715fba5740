package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-generator/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-generator/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quote-generator/internal/platform/config"
	"github.com/jsamuelsen/quote-generator/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default deadline for API requests.
const DefaultRequestTimeout = 30 * time.Second

// importRoute gets no deadline; uploads may be slow.
const importRoute = "/api/v1/quotes/import"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// AuthConfig gates the mutating API routes.
	AuthConfig *config.AuthConfig

	// AppConfig names the service in traces.
	AppConfig *config.AppConfig

	// SessionConfig configures the session cookie.
	SessionConfig config.SessionConfig

	// HealthHandler serves /-/ endpoints.
	HealthHandler *handlers.HealthHandler

	// QuoteHandler serves /api/v1.
	QuoteHandler *handlers.QuoteHandler

	// PageHandler serves the HTML page and its form posts.
	PageHandler *handlers.PageHandler

	// Timeout is the API request deadline. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. OpenTelemetry - tracing and metrics
//  5. Logging - request logging (skips health endpoints)
//  6. Session - per-visitor cookie (page and API only)
//  7. Timeout - request deadline (API only)
//
// Route groups:
//   - /-/ (internal): health, build info and Prometheus metrics
//   - / and /ui/ (page): server-rendered page and its form posts
//   - /api/v1/ (JSON API): mutating routes require the editor role when auth is enabled
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	serviceName := "quotegen"
	if cfg.AppConfig != nil && cfg.AppConfig.Name != "" {
		serviceName = cfg.AppConfig.Name
	}

	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(serviceName)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	session := middleware.Session(cfg.SessionConfig)

	if cfg.PageHandler != nil {
		engine.SetHTMLTemplate(handlers.PageTemplate())
		cfg.PageHandler.RegisterRoutes(engine.Group("", session), cfg.AuthConfig)
	}

	if cfg.QuoteHandler != nil {
		apiV1 := engine.Group("/api/v1", session, middleware.Timeout(cfg.Timeout, importRoute))
		cfg.QuoteHandler.RegisterRoutes(apiV1, cfg.AuthConfig)
	}
}

// NewDefaultRouterConfig creates a RouterConfig from the loaded configuration.
func NewDefaultRouterConfig(
	logger *slog.Logger,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	quoteHandler *handlers.QuoteHandler,
	pageHandler *handlers.PageHandler,
) RouterConfig {
	return RouterConfig{
		Logger:        logger,
		AuthConfig:    &cfg.Auth,
		AppConfig:     &cfg.App,
		SessionConfig: cfg.Session,
		HealthHandler: healthHandler,
		QuoteHandler:  quoteHandler,
		PageHandler:   pageHandler,
		Timeout:       DefaultRequestTimeout,
	}
}
