package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-job-backend/internal/quota"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		_, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		log.Info().Msg("migrations applied")
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge-usage",
	Short: "Delete usage counters older than QUOTA_RETENTION once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(envFile)
		if err != nil {
			return err
		}
		db, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		n, err := quota.NewJanitor(db, cfg.Quota.JanitorSchedule, cfg.Quota.Retention).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		log.Info().Int64("rows", n).Msg("usage counters purged")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, purgeCmd)
}
