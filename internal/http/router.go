// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers and edge rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic router setup; outbound clients injectable through Deps
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
	"gorm.io/gorm"

	_ "github.com/tbourn/go-job-backend/docs"
	"github.com/tbourn/go-job-backend/internal/auth"
	"github.com/tbourn/go-job-backend/internal/config"
	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/http/handlers"
	"github.com/tbourn/go-job-backend/internal/http/middleware"
	"github.com/tbourn/go-job-backend/internal/ingest"
	"github.com/tbourn/go-job-backend/internal/proxy"
	"github.com/tbourn/go-job-backend/internal/quota"
	"github.com/tbourn/go-job-backend/internal/repo"
	"github.com/tbourn/go-job-backend/internal/services"
)

// jobRepoShim adapts the repository free functions to services.JobRepo.
type jobRepoShim struct{}

func (jobRepoShim) ListJobs(ctx context.Context, db *gorm.DB, f repo.JobFilter, offset, limit int) ([]domain.Job, error) {
	return repo.ListJobs(ctx, db, f, offset, limit)
}

func (jobRepoShim) CountJobs(ctx context.Context, db *gorm.DB, f repo.JobFilter) (int64, error) {
	return repo.CountJobs(ctx, db, f)
}

func (jobRepoShim) GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error) {
	return repo.GetJob(ctx, db, id)
}

func (jobRepoShim) ListCompanies(ctx context.Context, db *gorm.DB, limit int) ([]repo.CompanyCount, error) {
	return repo.ListCompanies(ctx, db, limit)
}

func (jobRepoShim) SourceStats(ctx context.Context, db *gorm.DB) ([]repo.SourceStat, error) {
	return repo.SourceStats(ctx, db)
}

// Deps carries the outbound collaborators of the API. Any nil field is built
// from cfg: the Apify dataset client, the SQL quota store, the HTTP AI
// backend and the HTTP session verifier.
type Deps struct {
	Fetcher    ingest.DatasetFetcher
	Actors     map[string]string // actor id → source tag
	QuotaStore quota.Store
	AIBackend  proxy.Client
	Sessions   auth.SessionVerifier
}

func (d Deps) withDefaults(db *gorm.DB, cfg config.Config) Deps {
	if d.Fetcher == nil {
		d.Fetcher = ingest.NewDatasetClient(cfg.Webhook.APIFYBaseURL, cfg.Webhook.APIFYToken, cfg.Webhook.DatasetTimeout)
	}
	if d.QuotaStore == nil {
		d.QuotaStore = quota.SQLStore{DB: db}
	}
	if d.AIBackend == nil {
		d.AIBackend = proxy.NewBackend(cfg.AI.BaseURL, cfg.AI.Timeout)
	}
	if d.Sessions == nil {
		d.Sessions = auth.NewHTTPVerifier(cfg.Auth.URL, cfg.Auth.APIKey, cfg.Auth.Timeout)
	}
	return d
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs, webhook token and cookies masked
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip
//  8. Rate limiter (per IP; /health and /metrics exempt)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true
	deps = deps.withDefaults(db, cfg)

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"apikey", "X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	r.Use(middleware.Metrics("/metrics", "/health"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).
		Exempt("/health", "/metrics")
	r.Use(rl.Handler())

	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
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

	r.GET("/health", health(db))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/clients
	jobSvc := services.NewJobService(db, jobRepoShim{})
	normalizer := &ingest.Normalizer{
		DB:            db,
		Fetcher:       deps.Fetcher,
		Secret:        cfg.Webhook.Secret,
		Actors:        deps.Actors,
		DefaultSource: domain.Source(cfg.Webhook.DefaultSource),
	}
	limiter := &quota.Limiter{Store: deps.QuotaStore}
	fwd := &proxy.Forwarder{Limiter: limiter, Backend: deps.AIBackend, Limit: cfg.Quota.DailyLimit}
	h := handlers.New(jobSvc, normalizer, fwd, limiter, cfg.Quota.DailyLimit)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/webhooks/apify", h.ApifyWebhook)

		api.GET("/jobs", h.ListJobs)
		api.GET("/jobs/:id", h.GetJob)
		api.GET("/companies", h.ListCompanies)
		api.GET("/sources", h.ListSources)

		ai := api.Group("/ai")
		ai.Use(
			auth.RequireSession(deps.Sessions, cfg.Auth.SessionCookie),
			middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
		)
		ai.POST("/enrich-profile", h.EnrichProfile)
		ai.GET("/match-jobs", h.MatchJobs)
		ai.GET("/quota", h.Quota)
	}
}

// corsConfig allows any origin without credentials when no allowlist is
// configured. With an allowlist, credentials are allowed so the browser sends
// the session cookie on AI calls.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// health reports liveness and whether the database answers a ping.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			lg := middleware.LoggerFrom(c)
			lg.Error().Err(err).Msg("health: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Requests exceeding the cap make downstream body reads fail. A non-positive
// cap disables the limit.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
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
