package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/render"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analysis runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 20, "Number of runs to show")
	historyCmd.Flags().BoolVar(&flagWarehouse, "warehouse", false, "Read runs from BigQuery instead of the local history")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := logger.WithContext(cmd.Context(), log)
	source, err := openRuns(ctx, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	runs, err := source.ListRuns(ctx, flagHistoryLimit)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(render.Runs(runs))
	return nil
}
