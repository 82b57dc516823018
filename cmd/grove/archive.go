package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bivory/grove/internal/archive"
	"github.com/bivory/grove/internal/config"
)

var (
	archiveBefore   string
	archiveBucket   string
	archiveRegion   string
	archiveEndpoint string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Ship journal lines older than --before to S3 and trim the local journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := time.Parse(time.RFC3339, archiveBefore)
		if err != nil {
			return fmt.Errorf("--before must be RFC3339: %w", err)
		}

		opts := archive.Options{
			JournalPath: config.ProjectStatsLogPath("."),
			Bucket:      archiveBucket,
			Region:      archiveRegion,
			Endpoint:    archiveEndpoint,
			Before:      before,
		}
		if cfg != nil && cfg.StatsLog != "" {
			opts.JournalPath = cfg.StatsLog
		}

		result, err := archive.Run(context.Background(), opts)
		if err != nil {
			// Archival is fail-closed: render the error and exit non-zero
			// rather than swallowing it the way hook dispatch does.
			b, _ := json.Marshal(map[string]any{"success": false, "error": err.Error()})
			fmt.Println(string(b))
			os.Exit(1)
		}

		b, _ := json.MarshalIndent(map[string]any{"success": true, "result": result}, "", "  ")
		fmt.Println(string(b))
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVar(&archiveBefore, "before", "", "archive journal lines timestamped before this RFC3339 instant")
	archiveCmd.Flags().StringVar(&archiveBucket, "bucket", "", "destination S3 bucket")
	archiveCmd.Flags().StringVar(&archiveRegion, "region", "us-east-1", "AWS region")
	archiveCmd.Flags().StringVar(&archiveEndpoint, "endpoint", "", "S3-compatible endpoint override (MinIO, etc.)")
	archiveCmd.MarkFlagRequired("before")
	archiveCmd.MarkFlagRequired("bucket")
}
