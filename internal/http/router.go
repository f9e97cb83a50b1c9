// Package httpapi wires Gin to the services: the middleware chain, the
// operational endpoints (/health, /metrics, /swagger) and the suggestion box
// API under the configured base path.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/config"
	"github.com/tbourn/suggestion-box/internal/http/handlers"
	"github.com/tbourn/suggestion-box/internal/http/middleware"
	"github.com/tbourn/suggestion-box/internal/identity"
	"github.com/tbourn/suggestion-box/internal/repo"
	"github.com/tbourn/suggestion-box/internal/services"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time" example:"2026-03-01T09:00:00Z"`
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), student identity,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. StudentIdentity: read or issue the studentId cookie
//  4. Access log (RedactingLogger, or Logger with LOG_PRETTY)
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Gzip (GZIP_ENABLED)
//  8. Metrics
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per student/IP, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) error {
	iss, err := identity.NewIssuer(identity.Policy(cfg.Identity.Policy), cfg.Identity.Secret)
	if err != nil {
		return err
	}

	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Anonymous student identity
	r.Use(middleware.StudentIdentity(iss, middleware.IdentityOptions{
		CookieName: cfg.Identity.CookieName,
		MaxAge:     cfg.Identity.MaxAge,
	}))

	// 4) Structured logging (redacting in production)
	if cfg.LogPretty {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{handlers.HeaderAdminKey},
		}))
	}

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Response compression
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	// 8) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 9) Idempotency validation (before rate limiting)
	apiBase := cfg.APIBasePath
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Scope: createScope(joinPath(apiBase, "/suggestions"))},
		idempotencyLookup(db, cfg.DB.AcquireTimeout),
	))

	// 10) Token-bucket rate limiter per student/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByStudentOrIP())
	r.Use(rl.Handler())

	// 11) CORS and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	})...)

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{OK: true, Time: time.Now().UTC().Format(time.RFC3339)})
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := newHandlers(db, cfg)

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Suggestions
		api.GET("/suggestions", h.ListSuggestions)
		api.POST("/suggestions", h.CreateSuggestion)
		api.GET("/categories", h.ListCategories)

		// Votes
		api.POST("/vote", h.AddVote)
		api.DELETE("/vote", h.RemoveVote)

		// Replies
		api.GET("/replies/:suggestionId", h.ListReplies)
		api.POST("/replies", h.CreateReply)

		// Admin
		api.POST("/admin/login", h.AdminLogin)
	}
	return nil
}

// newHandlers builds the services over db and the handler set over them.
func newHandlers(db *gorm.DB, cfg config.Config) *handlers.Handlers {
	gate := &services.AdminGate{
		ID:             cfg.Admin.ID,
		Passphrase:     cfg.Admin.Passphrase,
		PassphraseHash: cfg.Admin.PassphraseHash,
		Secret:         cfg.Admin.Key,
	}
	timeout := cfg.DB.AcquireTimeout
	return handlers.New(
		&services.SuggestionService{DB: db, AcquireTimeout: timeout, IdempotencyTTL: cfg.IdempotencyTTL},
		&services.VoteService{DB: db, AcquireTimeout: timeout},
		&services.ReplyService{DB: db, Gate: gate, AcquireTimeout: timeout},
		gate,
	)
}

// createScope scopes idempotency keys to suggestion creation; every other
// route only gets its key validated.
func createScope(createPath string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if c.Request.Method == http.MethodPost && c.FullPath() == createPath {
			return services.ScopeCreateSuggestion
		}
		return ""
	}
}

// idempotencyLookup checks the store for an unexpired record on a pooled
// connection.
func idempotencyLookup(db *gorm.DB, timeout time.Duration) middleware.IdempotencyLookup {
	return func(ctx context.Context, studentID, scope, key string, now time.Time) (bool, error) {
		found := false
		err := repo.WithConn(ctx, db, timeout, func(tx *gorm.DB) error {
			rec, err := repo.GetIdempotency(ctx, tx, studentID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return nil
			}
			found = rec != nil
			return err
		})
		return found, err
	}
}

// corsMiddleware allows any origin without credentials when origins is
// empty. With an allowlist, listed origins are echoed and may send the
// student cookie.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", handlers.HeaderAdminKey, middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{middleware.HeaderRequestID, "Content-Length", "ETag", "Retry-After", "Idempotency-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	return cors.New(cc)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath returns the full route of path mounted under prefix.
func joinPath(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	return prefix + path
}
