package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/varunidealabs/cash-flow-analyzer/internal/gcsuploader"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
)

var flagObject string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a statement to the GCS bucket",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&flagObject, "object", "", "Object name (defaults to statements/<yyyy/mm/dd>/<uuid>_<file>)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	bucket, err := gcsBucket(cfg)
	if err != nil {
		return err
	}

	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return err
	}

	object := flagObject
	if object == "" {
		object = gcsuploader.ObjectName("statements", filepath.Base(path), time.Now())
	}

	ctx := logger.WithContext(cmd.Context(), log)
	storage, err := gcsuploader.NewGCSStorageService(ctx, bucket)
	if err != nil {
		return err
	}
	defer storage.Close()

	uri, err := storage.UploadFile(ctx, object, path)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded %s to %s\n", path, uri)
	return nil
}
