package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-backend/internal/config"
	"github.com/tbourn/go-job-backend/internal/repo"
	"github.com/tbourn/go-job-backend/internal/sysutil"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "jobboard",
	Short:         "Job board backend",
	Long:          "Ingests crawler datasets into the job store, serves the job API and proxies quota-gated AI calls.",
	SilenceUsage:  true,
	SilenceErrors: false,
	// Running the binary with no subcommand starts the server.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
}

// loadConfig reads the dotenv file (if present) and the environment, then
// installs the global logger.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(os.Stderr, cfg.OTEL.ServiceName, cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

// openStore connects and migrates the schema. The returned close func
// releases the pool.
func openStore(ctx context.Context, cfg config.Config) (*gorm.DB, func(), error) {
	db, err := repo.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeFn()
		return nil, nil, err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("store ready")
	return db, closeFn, nil
}
