package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-job-backend/internal/config"
	httpapi "github.com/tbourn/go-job-backend/internal/http"
	"github.com/tbourn/go-job-backend/internal/observability"
	"github.com/tbourn/go-job-backend/internal/quota"
)

const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  "Serve the webhook, job and AI routes; blocks until SIGINT/SIGTERM, then drains in-flight requests.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}

	db, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	deps, closeDeps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	// Redis keys expire on their own; only SQL counters need purging.
	if cfg.Quota.Backend == config.QuotaBackendSQL {
		janitor := quota.NewJanitor(db, cfg.Quota.JanitorSchedule, cfg.Quota.Retention)
		if err := janitor.Start(ctx); err != nil {
			return err
		}
		defer janitor.Stop()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
	log.Info().Msg("goodbye")
	return nil
}

// buildDeps resolves the actor → source mapping and the quota store. Other
// clients are built by the router from cfg.
func buildDeps(ctx context.Context, cfg config.Config) (httpapi.Deps, func(), error) {
	actors, err := config.LoadSources(cfg.Webhook.SourcesFile)
	if err != nil {
		return httpapi.Deps{}, nil, err
	}
	deps := httpapi.Deps{Actors: actors}
	closeFn := func() {}

	if cfg.Quota.Backend == config.QuotaBackendRedis {
		client, err := quota.NewRedisClient(ctx, cfg.Quota.RedisURL)
		if err != nil {
			return httpapi.Deps{}, nil, err
		}
		deps.QuotaStore = quota.RedisStore{Client: client, TTL: quota.DefaultRedisTTL}
		closeFn = func() { _ = client.Close() }
		log.Info().Msg("quota store: redis")
	}
	return deps, closeFn, nil
}
