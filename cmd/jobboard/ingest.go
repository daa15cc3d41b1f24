package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-job-backend/internal/config"
	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/ingest"
)

var (
	ingestDataset string
	ingestSource  string
)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Width(12)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replay a crawler dataset into the job store",
	Long:  "Fetch a dataset by id and upsert its items through the same mapping the webhook uses. No token check.",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDataset, "dataset", "", "dataset id (required)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source tag: linkedin, indeed or france_travail (default: DEFAULT_SOURCE)")
	_ = ingestCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	src := domain.Source(strings.ToLower(strings.TrimSpace(ingestSource)))
	if src == "" {
		src = domain.Source(cfg.Webhook.DefaultSource)
	}
	if !src.Valid() {
		return fmt.Errorf("%w: %q", ingest.ErrUnknownSource, src)
	}

	db, closeDB, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	n := &ingest.Normalizer{
		DB:            db,
		Fetcher:       ingest.NewDatasetClient(cfg.Webhook.APIFYBaseURL, cfg.Webhook.APIFYToken, cfg.Webhook.DatasetTimeout),
		Secret:        cfg.Webhook.Secret,
		DefaultSource: src,
	}

	start := time.Now()
	res, err := n.IngestDataset(cmd.Context(), ingestDataset, src)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res, cfg, time.Since(start)))
	return nil
}

// renderSummary formats an ingestion result as a bordered key/value box.
func renderSummary(res ingest.Result, cfg config.Config, elapsed time.Duration) string {
	rows := [][2]string{
		{"dataset", res.DatasetID},
		{"source", string(res.Source)},
		{"jobs", fmt.Sprintf("%d", res.Processed)},
		{"unkeyed", fmt.Sprintf("%d", res.Unkeyed)},
		{"store", cfg.DBDriver},
		{"took", elapsed.Round(time.Millisecond).String()},
	}
	lines := []string{summaryTitleStyle.Render("Dataset ingested")}
	for _, r := range rows {
		lines = append(lines, summaryLabelStyle.Render(r[0])+r[1])
	}
	return summaryBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
