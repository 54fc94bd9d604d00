package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotekeeper/internal/platform/telemetry"
)

const (
	// DefaultRequestTimeout is the default timeout for API requests.
	DefaultRequestTimeout = 30 * time.Second

	// APIPrefix is the mount point of the quote API.
	APIPrefix = "/api/v1"
)

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the base logger stored in every request context.
	Logger *slog.Logger

	// ServiceName names the server spans.
	ServiceName string

	Health *handlers.HealthHandler
	Quotes *handlers.QuoteHandler
	Sync   *handlers.SyncHandler

	// Timeout bounds API requests. Sync and import are exempt since they
	// wait on the remote.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Logger - base logger into the request context
//  2. Recovery - catch panics
//  3. Request ID and Correlation ID
//  4. OpenTelemetry - tracing and metrics (skips /-/)
//  5. Logging - one record per request (skips /-/)
//  6. Timeout - API group only
//
// Route groups:
//   - /-/ (internal): health, build info and metrics
//   - /api/v1/: quotes, categories, filter, import/export and sync
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Logger(cfg.Logger),
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(middleware.Logging())

	engine.NoRoute(func(c *gin.Context) {
		dto.RespondWithCode(c, dto.ErrorCodeNotFound, "route not found")
	})

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(engine)
	}

	api := engine.Group(APIPrefix)
	if cfg.Timeout > 0 {
		api.Use(middleware.Timeout(cfg.Timeout, APIPrefix+"/sync", APIPrefix+"/import"))
	}

	if cfg.Quotes != nil {
		cfg.Quotes.RegisterRoutes(api)
	}

	if cfg.Sync != nil {
		cfg.Sync.RegisterRoutes(api)
	}
}
