package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/export"
	"github.com/varunidealabs/cash-flow-analyzer/internal/gcsuploader"
	"github.com/varunidealabs/cash-flow-analyzer/internal/insights"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/notionsync"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"
	"github.com/varunidealabs/cash-flow-analyzer/internal/render"
	"github.com/varunidealabs/cash-flow-analyzer/internal/session"
)

var (
	flagJSON     bool
	flagXLSX     string
	flagCSV      string
	flagInsights bool
	flagGCS      bool
	flagNotion   bool
	flagDryRun   bool
	flagLimit    int
	flagTimeout  time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file | gs://bucket/object>",
	Short: "Analyze a bank statement (PDF or text)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the session and aggregates as JSON")
	analyzeCmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Write an Excel workbook to this path")
	analyzeCmd.Flags().StringVar(&flagCSV, "csv", "", "Write the ledger as CSV to this path")
	analyzeCmd.Flags().BoolVar(&flagInsights, "insights", false, "Generate spending insights and tips")
	analyzeCmd.Flags().BoolVar(&flagGCS, "gcs", false, "Archive the statement and exports in the GCS bucket")
	analyzeCmd.Flags().BoolVar(&flagNotion, "notion", false, "Sync the ledger to the Notion database")
	analyzeCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "With --notion, report changes without writing")
	analyzeCmd.Flags().IntVarP(&flagLimit, "limit", "l", 25, "Transactions to show (0 for all)")
	analyzeCmd.Flags().DurationVar(&flagTimeout, "timeout", 10*time.Minute, "Overall time limit")
	rootCmd.AddCommand(analyzeCmd)
}

// analysisOutput is the --json document.
type analysisOutput struct {
	*session.Session
	Insights *insights.Insights `json:"insights,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if flagGCS {
		if _, err := gcsBucket(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	source := args[0]
	var storage gcsuploader.StorageService
	if flagGCS || strings.HasPrefix(source, "gs://") {
		bucket := cfg.Storage.GCSBucket
		if bucket == "" {
			if bucket, _, err = gcsuploader.ParseGCSURI(source); err != nil {
				return err
			}
		}
		gcs, err := gcsuploader.NewGCSStorageService(ctx, bucket)
		if err != nil {
			return err
		}
		defer gcs.Close()
		storage = gcs
	}

	info, data, err := readDocument(ctx, storage, source)
	if err != nil {
		return err
	}

	if flagGCS && info.SourceURI == "" {
		obj := gcsuploader.ObjectName("statements", info.DocumentName, time.Now())
		if info.SourceURI, err = storage.UploadBytes(ctx, obj, data, info.ContentType); err != nil {
			return fmt.Errorf("archiving statement: %w", err)
		}
		progress("Archived statement to %s", info.SourceURI)
	}

	client, err := llm.New(ctx, cfg.Model)
	if err != nil {
		return err
	}

	hist, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer hist.Close()

	runner := pipeline.NewRunner(pipeline.NewDocumentExtractor(client), pipeline.NewExtractionClient(client), hist)

	progress("Analyzing %s (%s)...", info.DocumentName, info.ContentType)
	start := time.Now()
	s, err := runner.Run(ctx, info, data)
	if err != nil {
		return errors.New(domain.UserMessage(err))
	}
	progress("Extracted %d transactions in %s (run %s)", len(s.Ledger), time.Since(start).Round(time.Millisecond), s.RunID)

	var generated *insights.Insights
	if flagInsights {
		progress("Generating insights...")
		generated = insights.NewGenerator(client).Generate(ctx, s.Ledger, s.Bundle)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysisOutput{Session: s, Insights: generated}); err != nil {
			return err
		}
	} else {
		printAnalysis(s, generated)
	}

	if err := writeExports(ctx, storage, s); err != nil {
		return err
	}

	if flagNotion {
		nc, err := notionClient(cfg)
		if err != nil {
			return err
		}
		progress("Syncing %d transactions to Notion...", len(s.Ledger))
		res, err := notionsync.SyncLedger(ctx, nc, cfg.Notion.DatabaseID, s.DocumentName, s.Transactions(), flagDryRun)
		if err != nil {
			return fmt.Errorf("notion sync: %w", err)
		}
		if !flagJSON {
			printSyncResult(res, flagDryRun)
		}
	}

	return nil
}

// readDocument loads a local file or a gs:// object and sniffs its type.
func readDocument(ctx context.Context, storage gcsuploader.StorageService, source string) (pipeline.RunInfo, []byte, error) {
	var (
		info pipeline.RunInfo
		data []byte
		err  error
	)

	if strings.HasPrefix(source, "gs://") {
		if storage == nil {
			return info, nil, fmt.Errorf("no storage configured for %s", source)
		}
		if data, err = storage.FetchFromGCS(ctx, source); err != nil {
			return info, nil, &domain.DocumentReadError{Err: err}
		}
		info.DocumentName = gcsuploader.ExtractFilenameFromGCSURI(source)
		info.SourceURI = source
	} else {
		if data, err = os.ReadFile(source); err != nil {
			return info, nil, &domain.DocumentReadError{Err: err}
		}
		info.DocumentName = filepath.Base(source)
	}

	if len(data) == 0 {
		return info, nil, fmt.Errorf("%s is empty", source)
	}
	if info.ContentType, err = pipeline.DetectContentType(data); err != nil {
		return info, nil, fmt.Errorf("%s: %w", info.DocumentName, err)
	}
	info.SizeBytes = len(data)
	return info, data, nil
}

func printAnalysis(s *session.Session, generated *insights.Insights) {
	fmt.Println()
	fmt.Println(render.Title("CASH FLOW: " + strings.ToUpper(s.DocumentName)))
	fmt.Println()
	fmt.Print(render.Summary(s.Bundle.Summary))
	fmt.Println()
	fmt.Print(render.Monthly(s.Bundle))
	fmt.Println()
	fmt.Print(render.Categories(s.Bundle))
	fmt.Println()
	fmt.Print(render.Transactions(s.Ledger, flagLimit))
	if generated != nil {
		fmt.Println()
		fmt.Print(render.Insights(generated))
	}
}

// writeExports writes the requested export files and, with --gcs, archives
// them next to the statement.
func writeExports(ctx context.Context, storage gcsuploader.StorageService, s *session.Session) error {
	type target struct {
		path  string
		write func(f *os.File) error
	}
	targets := []target{
		{flagXLSX, func(f *os.File) error { return export.WriteExcel(f, s.Ledger, s.Bundle) }},
		{flagCSV, func(f *os.File) error { return export.WriteCSV(f, s.Ledger) }},
	}

	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := writeFile(t.path, t.write); err != nil {
			return fmt.Errorf("writing %s: %w", t.path, err)
		}
		progress("Wrote %s", t.path)

		if flagGCS {
			obj := gcsuploader.ObjectName("exports", filepath.Base(t.path), time.Now())
			uri, err := storage.UploadFile(ctx, obj, t.path)
			if err != nil {
				return fmt.Errorf("archiving %s: %w", t.path, err)
			}
			progress("Archived %s", uri)
		}
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
