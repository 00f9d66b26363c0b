// Package report renders benchmark results as terminal tables and export
// files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/modelmeter/modelmeter/pkg/metrics"
	"github.com/modelmeter/modelmeter/pkg/store"
)

// WriteSummaryTable renders per-model summaries as an aligned table.
func WriteSummaryTable(out io.Writer, summaries []metrics.Summary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tCALLS\tERRORS\tAVG IN\tAVG OUT\tP50 MS\tP95 MS\tP99 MS\tJSON %\tAVG COST\tTOTAL COST")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.2f\t$%.6f\t$%.6f\n",
			s.ModelName, s.Count, s.ErrorCount, s.AvgInputTokens, s.AvgOutputTokens,
			s.P50LatencyMs, s.P95LatencyMs, s.P99LatencyMs, s.JSONValidPct, s.AvgCostUSD, s.TotalCostUSD)
	}
	return w.Flush()
}

// WriteRecommendations prints the standout models: best JSON reliability,
// lowest average cost, and best p95 latency. Models that never succeeded
// are not considered.
func WriteRecommendations(out io.Writer, summaries []metrics.Summary) {
	var usable []metrics.Summary
	for _, s := range summaries {
		if s.SuccessCount > 0 {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return
	}

	bestJSON, bestCost, bestLatency := usable[0], usable[0], usable[0]
	for _, s := range usable[1:] {
		if s.JSONValidPct > bestJSON.JSONValidPct {
			bestJSON = s
		}
		if s.AvgCostUSD < bestCost.AvgCostUSD {
			bestCost = s
		}
		if s.P95LatencyMs < bestLatency.P95LatencyMs {
			bestLatency = s
		}
	}

	fmt.Fprintln(out, "\nRecommendations:")
	fmt.Fprintf(out, "  Most reliable (JSON): %s (%.1f%% valid)\n", bestJSON.ModelName, bestJSON.JSONValidPct)
	fmt.Fprintf(out, "  Most cost-effective:  %s ($%.6f avg per prompt)\n", bestCost.ModelName, bestCost.AvgCostUSD)
	fmt.Fprintf(out, "  Best p95 latency:     %s (%.1fms)\n", bestLatency.ModelName, bestLatency.P95LatencyMs)
}

// WriteRunsTable renders per-run rollups, most recent first.
func WriteRunsTable(out io.Writer, runs []store.RunInfo) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tRECORDS\tERRORS\tTOTAL COST")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t$%.6f\n",
			r.RunID, humanize.Time(r.StartedAt), humanize.Comma(int64(r.Records)), r.Errors, r.TotalCostUSD)
	}
	return w.Flush()
}

// summaryHeader is the column order of the summary CSV export.
var summaryHeader = []string{
	"model_name", "count", "success_count", "error_count",
	"avg_input_tokens", "avg_output_tokens",
	"p50_latency_ms", "p95_latency_ms", "p99_latency_ms",
	"min_latency_ms", "max_latency_ms",
	"json_valid_pct", "avg_cost_usd_per_request", "total_cost_usd",
}

// WriteSummaryCSV writes per-model summaries as CSV.
func WriteSummaryCSV(out io.Writer, summaries []metrics.Summary) error {
	w := csv.NewWriter(out)
	if err := w.Write(summaryHeader); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, s := range summaries {
		row := []string{
			s.ModelName,
			strconv.Itoa(s.Count),
			strconv.Itoa(s.SuccessCount),
			strconv.Itoa(s.ErrorCount),
			formatFloat(s.AvgInputTokens),
			formatFloat(s.AvgOutputTokens),
			formatFloat(s.P50LatencyMs),
			formatFloat(s.P95LatencyMs),
			formatFloat(s.P99LatencyMs),
			formatFloat(s.MinLatencyMs),
			formatFloat(s.MaxLatencyMs),
			formatFloat(s.JSONValidPct),
			formatFloat(s.AvgCostUSD),
			formatFloat(s.TotalCostUSD),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// recordHeader is the column order of the raw record CSV export.
var recordHeader = []string{
	"timestamp", "run_id", "model_name", "model_id", "prompt_id",
	"input_tokens", "output_tokens", "latency_ms", "json_valid",
	"status", "error", "cost_usd_input", "cost_usd_output", "cost_usd_total",
}

// WriteRecordsCSV writes raw evaluation records as CSV.
func WriteRecordsCSV(out io.Writer, records []metrics.Record) error {
	w := csv.NewWriter(out)
	if err := w.Write(recordHeader); err != nil {
		return fmt.Errorf("write record header: %w", err)
	}
	for _, rec := range records {
		promptID := ""
		if rec.PromptID != nil {
			promptID = strconv.Itoa(*rec.PromptID)
		}
		jsonValid := ""
		if rec.JSONValid != nil {
			jsonValid = strconv.FormatBool(*rec.JSONValid)
		}
		row := []string{
			rec.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			rec.RunID,
			rec.ModelName,
			rec.ModelID,
			promptID,
			strconv.Itoa(rec.InputTokens),
			strconv.Itoa(rec.OutputTokens),
			formatFloat(rec.LatencyMs),
			jsonValid,
			rec.Status,
			rec.Error,
			formatFloat(rec.CostUSDInput),
			formatFloat(rec.CostUSDOutput),
			formatFloat(rec.CostUSDTotal),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write record row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteRecordsJSONL writes raw evaluation records as newline-delimited JSON.
func WriteRecordsJSONL(out io.Writer, records []metrics.Record) error {
	enc := json.NewEncoder(out)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
