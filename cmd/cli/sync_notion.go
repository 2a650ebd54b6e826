package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varunidealabs/cash-flow-analyzer/internal/history"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/notionsync"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
)

var flagRunID string

var syncNotionCmd = &cobra.Command{
	Use:   "sync-notion",
	Short: "Push the ledger of a past run to Notion",
	Args:  cobra.NoArgs,
	RunE:  runSyncNotion,
}

func init() {
	syncNotionCmd.Flags().StringVar(&flagRunID, "run", "", "Run ID (see 'cashflow history')")
	syncNotionCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Report changes without writing")
	syncNotionCmd.Flags().BoolVar(&flagWarehouse, "warehouse", false, "Load the run from BigQuery instead of the local history")
	_ = syncNotionCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(syncNotionCmd)
}

func runSyncNotion(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	nc, err := notionClient(cfg)
	if err != nil {
		return err
	}

	ctx := logger.WithContext(cmd.Context(), log)
	hist, err := openRuns(ctx, cfg)
	if err != nil {
		return err
	}
	defer hist.Close()

	run, err := hist.GetRun(ctx, flagRunID)
	if errors.Is(err, history.ErrRunNotFound) {
		return fmt.Errorf("run %s not found", flagRunID)
	}
	if err != nil {
		return err
	}
	if run.Status != pipeline.RunStatusSuccess {
		return fmt.Errorf("run %s has status %s; only successful runs can be synced", run.ID, run.Status)
	}

	ledger, err := hist.LoadLedger(ctx, run.ID)
	if err != nil {
		return err
	}

	progress("Syncing %d transactions from %s...", len(ledger), run.DocumentName)
	res, err := notionsync.SyncLedger(ctx, nc, cfg.Notion.DatabaseID, run.DocumentName, ledger, flagDryRun)
	if err != nil {
		return fmt.Errorf("notion sync: %w", err)
	}

	printSyncResult(res, flagDryRun)
	if res.Failed > 0 {
		return fmt.Errorf("%d pages failed to sync", res.Failed)
	}
	return nil
}
