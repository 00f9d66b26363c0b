package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/modelmeter/modelmeter/pkg/bedrock"
	"github.com/modelmeter/modelmeter/pkg/budget"
	"github.com/modelmeter/modelmeter/pkg/catalog"
	"github.com/modelmeter/modelmeter/pkg/engine"
	"github.com/modelmeter/modelmeter/pkg/metrics"
	"github.com/modelmeter/modelmeter/pkg/prompts"
	"github.com/modelmeter/modelmeter/pkg/report"
	"github.com/modelmeter/modelmeter/pkg/runner"
	"github.com/modelmeter/modelmeter/pkg/store"
)

func newRunCmd() *cobra.Command {
	var (
		catalogPath  string
		modelNames   []string
		promptsPath  string
		promptColumn string
		maxPrompts   int
		runID        string
		maxCost      float64
		outputDir    string
		dbPath       string
		keepText     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark: every prompt against every selected model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}
			selected := cat.Resolve(modelNames)
			if len(selected) == 0 {
				return fmt.Errorf("no catalog models match %s", strings.Join(modelNames, ", "))
			}

			input, err := prompts.Load(promptsPath, prompts.Options{
				CSVColumn:  promptColumn,
				MaxPrompts: maxPrompts,
			})
			if err != nil {
				return err
			}

			cfg, err := bedrock.FromEnv()
			if err != nil {
				return err
			}
			region := cfg.Region
			if cat.RegionName != "" {
				region = cat.RegionName
				cfg.Region = region
			}

			db, err := store.New(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if runID == "" {
				runID = newRunID()
			}

			var enforcer *budget.Enforcer
			if maxCost > 0 {
				enforcer = budget.New(db, maxCost)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r := runner.New(engine.New(bedrock.New(cfg), region), db, enforcer)
			r.KeepText = keepText

			records, runErr := r.Run(ctx, selected, input, runID)
			switch {
			case runErr == nil:
			case errors.Is(runErr, context.Canceled):
				log.Printf("run %s interrupted, reporting partial results", runID)
			case errors.Is(runErr, budget.ErrBudgetExceeded):
				log.Printf("run %s stopped: %v", runID, runErr)
			default:
				return runErr
			}

			summaries := metrics.Aggregate(records)
			if err := report.WriteSummaryTable(os.Stdout, summaries); err != nil {
				return err
			}
			report.WriteRecommendations(os.Stdout, summaries)
			fmt.Printf("\nRun ID: %s\n", runID)

			if outputDir != "" {
				if err := exportRun(outputDir, runID, records, summaries); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "models.yaml", "path to model catalog file")
	cmd.Flags().StringSliceVarP(&modelNames, "models", "m", []string{"all"}, "model names to benchmark, or 'all'")
	cmd.Flags().StringVarP(&promptsPath, "prompts", "p", "", "path to prompts file (.csv, .json, .jsonl, .txt)")
	cmd.Flags().StringVar(&promptColumn, "prompt-column", "", "CSV column holding prompt text (default: prompt)")
	cmd.Flags().IntVar(&maxPrompts, "max-prompts", 0, "cap on prompts loaded (0 = no cap)")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: generated)")
	cmd.Flags().Float64Var(&maxCost, "max-cost", 0, "USD spend cap for this run (0 = no cap)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for CSV/JSONL exports")
	cmd.Flags().StringVar(&dbPath, "db", "modelmeter.db", "path to metrics database")
	cmd.Flags().BoolVar(&keepText, "keep-text", false, "store prompts and responses verbatim")
	_ = cmd.MarkFlagRequired("prompts")

	return cmd
}

// newRunID creates a run id like run_20260831_a3f9c2b1.
func newRunID() string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102"), short)
}

// exportRun writes the raw records and summaries under dir.
func exportRun(dir, runID string, records []metrics.Record, summaries []metrics.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	writers := []struct {
		name  string
		write func(f *os.File) error
	}{
		{runID + "_records.jsonl", func(f *os.File) error { return report.WriteRecordsJSONL(f, records) }},
		{runID + "_records.csv", func(f *os.File) error { return report.WriteRecordsCSV(f, records) }},
		{runID + "_summary.csv", func(f *os.File) error { return report.WriteSummaryCSV(f, summaries) }},
	}
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := w.write(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		log.Printf("wrote %s", path)
	}
	return nil
}
