package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modelmeter/modelmeter/pkg/metrics"
	"github.com/modelmeter/modelmeter/pkg/report"
	"github.com/modelmeter/modelmeter/pkg/store"
)

func newReportCmd() *cobra.Command {
	var (
		dbPath    string
		runID     string
		listRuns  bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-aggregate and display stored benchmark results",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.New(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := context.Background()

			if listRuns {
				runs, err := db.Runs(ctx)
				if err != nil {
					return err
				}
				return report.WriteRunsTable(os.Stdout, runs)
			}

			if runID == "" {
				runID, err = db.LatestRunID(ctx)
				if err != nil {
					return err
				}
				if runID == "" {
					fmt.Println("No runs found.")
					return nil
				}
			}

			records, err := db.ListByRun(ctx, runID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no records found for run %s", runID)
			}

			summaries := metrics.Aggregate(records)
			fmt.Printf("Run %s (%d records):\n\n", runID, len(records))
			if err := report.WriteSummaryTable(os.Stdout, summaries); err != nil {
				return err
			}
			report.WriteRecommendations(os.Stdout, summaries)

			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				path := filepath.Join(outputDir, runID+"_summary.csv")
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer func() { _ = f.Close() }()
				if err := report.WriteSummaryCSV(f, summaries); err != nil {
					return err
				}
				fmt.Printf("\nWrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "modelmeter.db", "path to metrics database")
	cmd.Flags().StringVar(&runID, "run-id", "", "run to report on (default: most recent)")
	cmd.Flags().BoolVar(&listRuns, "runs", false, "list stored runs")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for summary CSV export")

	return cmd
}
