package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/varunidealabs/cash-flow-analyzer/internal/config"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/history"
	infraBQ "github.com/varunidealabs/cash-flow-analyzer/internal/infra/bigquery"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/notionsync"
	"github.com/varunidealabs/cash-flow-analyzer/internal/render"
)

var (
	flagConfig    string
	flagQuiet     bool
	flagWarehouse bool
)

var rootCmd = &cobra.Command{
	Use:           "cashflow",
	Short:         "Bank statement cash-flow analyzer",
	Long:          "Extract transactions from a bank statement and report monthly cash flow, category spending and savings.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w (see '%s --help')", err, cmd.CommandPath())
	})
}

// loadConfig is the shared setup path used by all commands. Logs go to
// stderr so that --json output stays clean.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}

	level := cfg.LogLevel
	if flagQuiet {
		level = "error"
	}
	log := logger.NewWithLevel(level).Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	return cfg, log, nil
}

// runSource is where past runs and their ledgers are read from.
type runSource interface {
	ListRuns(ctx context.Context, limit int) ([]history.Run, error)
	GetRun(ctx context.Context, runID string) (*history.Run, error)
	LoadLedger(ctx context.Context, runID string) (domain.Ledger, error)
	Close() error
}

// openRuns opens the local history, or the BigQuery dataset with --warehouse.
func openRuns(ctx context.Context, cfg config.Config) (runSource, error) {
	if !flagWarehouse {
		hist, err := openHistory(cfg)
		if err != nil {
			return nil, err
		}
		return hist, nil
	}
	if !cfg.BigQueryEnabled() {
		return nil, fmt.Errorf("no BigQuery project configured (set BQ_PROJECT)")
	}
	repo, err := infraBQ.NewRepository(ctx, cfg.Storage.BQProject, cfg.Storage.BQDataset)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func openHistory(cfg config.Config) (*history.Store, error) {
	store, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return store, nil
}

func notionClient(cfg config.Config) (*notionsync.NotionClient, error) {
	if !cfg.NotionEnabled() {
		return nil, fmt.Errorf("notion is not configured (set NOTION_TOKEN and NOTION_DB_ID)")
	}
	return notionsync.NewNotionClient(cfg.Notion.Token), nil
}

func printSyncResult(res notionsync.SyncResult, dryRun bool) {
	title := "Notion sync"
	if dryRun {
		title += " (dry run)"
	}
	fmt.Println(render.RenderTable(render.Table{
		Title: title,
		Rows: [][]string{
			{"Created", fmt.Sprint(res.Created)},
			{"Updated", fmt.Sprint(res.Updated)},
			{"Archived", fmt.Sprint(res.Deleted)},
			{"Failed", fmt.Sprint(res.Failed)},
		},
		Right: map[int]bool{1: true},
	}))
}

func progress(format string, args ...interface{}) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
	}
}

// gcsBucket returns the configured bucket or an error naming the setting.
func gcsBucket(cfg config.Config) (string, error) {
	if cfg.Storage.GCSBucket == "" {
		return "", fmt.Errorf("no GCS bucket configured (set GCS_BUCKET)")
	}
	return cfg.Storage.GCSBucket, nil
}
