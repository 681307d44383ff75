// Package httpapi wires the admin HTTP API (Gin) to the approval workflow,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, redacted access logs, panic recovery, metrics,
// compression, CORS, security headers, API-key auth, idempotency, and rate
// limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/prosteam/invitegate/docs"
	"github.com/prosteam/invitegate/internal/config"
	"github.com/prosteam/invitegate/internal/http/handlers"
	"github.com/prosteam/invitegate/internal/http/middleware"
	"github.com/prosteam/invitegate/internal/repo"
)

const maxBodyBytes = 64 << 10

// Deps are the collaborators the routes need.
type Deps struct {
	// Workflow serves the submission endpoints.
	Workflow handlers.Workflow
	// Idempotency stores decision outcomes; nil disables replay.
	Idempotency *repo.IdempotencyStore
	// Ready reports whether dependencies (the database) are usable; nil
	// means always ready.
	Ready func(context.Context) error
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Global middleware order:
//  1. OpenTelemetry
//  2. RequestID, then the request-scoped logger
//  3. RedactingLogger
//  4. gzip (outside Recovery so a recovered panic still gets a valid body)
//  5. Recovery, then the body size limit
//  6. Metrics
//  7. CORS and security headers
//
// The API group adds APIKeyAuth, then the idempotency validator, then the
// rate limiter, so buckets and idempotency records are per principal and
// replays skip the limiter. The API and its Swagger UI (/swagger/index.html)
// are only mounted when cfg.APIEnabled.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID(), middleware.Logger())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", readyHandler(deps.Ready))

	if !cfg.APIEnabled || deps.Workflow == nil {
		return
	}

	var (
		store  handlers.IdempotencyStore
		lookup middleware.IdempotencyLookup
	)
	if deps.Idempotency != nil {
		store, lookup = deps.Idempotency, deps.Idempotency.Exists
	}
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := handlers.New(deps.Workflow, store)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPrincipalOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(
		middleware.APIKeyAuth(cfg.AdminAPIKey),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, lookup),
		rl.Handler(),
	)
	{
		api.GET("/submissions", h.ListPending)
		api.GET("/submissions/stats", h.Stats)
		api.GET("/submissions/:uid", h.GetSubmission)
		api.POST("/submissions", h.CreateSubmission)
		api.POST("/submissions/:uid/decision", h.Decide)
	}
}

// corsMiddleware allows any origin when none are configured (the API is
// key-authenticated, not cookie-authenticated) and otherwise only the
// allowlist.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderAPIKey, middleware.HeaderIdempotencyKey, "If-None-Match",
		},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Retry-After", middleware.HeaderReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// gin-contrib/cors skips requests without Origin; probes still see "*".
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}
	base.AllowOrigins = origins
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	// cors.New leaves same-host requests alone; listed origins are echoed anyway.
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

func readyHandler(ready func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				_ = c.Error(err)
				handlers.Fail(c, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail and
// JSON binding reports a bad request.
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
