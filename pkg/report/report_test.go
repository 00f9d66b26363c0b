package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/modelmeter/modelmeter/pkg/metrics"
)

func sampleSummaries() []metrics.Summary {
	return []metrics.Summary{
		{
			ModelName: "claude-3-7-sonnet", Count: 10, SuccessCount: 10,
			AvgInputTokens: 120.5, AvgOutputTokens: 48.2,
			P50LatencyMs: 800, P95LatencyMs: 1400, P99LatencyMs: 1900,
			MinLatencyMs: 620, MaxLatencyMs: 2000,
			JSONValidPct: 100, AvgCostUSD: 0.001084, TotalCostUSD: 0.01084,
		},
		{
			ModelName: "llama-3-2-11b", Count: 10, SuccessCount: 8, ErrorCount: 2,
			AvgInputTokens: 130.1, AvgOutputTokens: 55.9,
			P50LatencyMs: 450, P95LatencyMs: 900, P99LatencyMs: 1100,
			MinLatencyMs: 300, MaxLatencyMs: 1200,
			JSONValidPct: 75, AvgCostUSD: 0.000096, TotalCostUSD: 0.000768,
		},
	}
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryTable(&buf, sampleSummaries()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "MODEL") || !strings.Contains(out, "P95 MS") {
		t.Errorf("missing header, got:\n%s", out)
	}
	if !strings.Contains(out, "claude-3-7-sonnet") || !strings.Contains(out, "llama-3-2-11b") {
		t.Errorf("missing model rows, got:\n%s", out)
	}
	if !strings.Contains(out, "$0.001084") {
		t.Errorf("costs must render with 6 decimals, got:\n%s", out)
	}
}

func TestWriteSummaryTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryTable(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No records found.") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteRecommendations(t *testing.T) {
	var buf bytes.Buffer
	WriteRecommendations(&buf, sampleSummaries())

	out := buf.String()
	if !strings.Contains(out, "Most reliable (JSON): claude-3-7-sonnet") {
		t.Errorf("wrong reliability pick:\n%s", out)
	}
	if !strings.Contains(out, "Most cost-effective:  llama-3-2-11b") {
		t.Errorf("wrong cost pick:\n%s", out)
	}
	if !strings.Contains(out, "Best p95 latency:     llama-3-2-11b") {
		t.Errorf("wrong latency pick:\n%s", out)
	}
}

func TestWriteRecommendationsSkipsFailedModels(t *testing.T) {
	summaries := sampleSummaries()
	summaries = append(summaries, metrics.Summary{
		ModelName: "broken-model", Count: 5, ErrorCount: 5,
		// Zero stats would otherwise win every category.
	})

	var buf bytes.Buffer
	WriteRecommendations(&buf, summaries)
	if strings.Contains(buf.String(), "broken-model") {
		t.Errorf("all-error model must not be recommended:\n%s", buf.String())
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, sampleSummaries()); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "model_name" || rows[0][len(rows[0])-1] != "total_cost_usd" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "claude-3-7-sonnet" {
		t.Errorf("unexpected first row %v", rows[1])
	}
}

func TestWriteRecordsCSVTriState(t *testing.T) {
	valid := true
	promptID := 3
	records := []metrics.Record{
		{
			Timestamp: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
			RunID:     "run-1", ModelName: "m", ModelID: "id", PromptID: &promptID,
			InputTokens: 10, OutputTokens: 5, LatencyMs: 123.4,
			JSONValid: &valid, Status: metrics.StatusSuccess,
		},
		{
			Timestamp: time.Date(2026, 8, 31, 12, 0, 1, 0, time.UTC),
			RunID:     "run-1", ModelName: "m", ModelID: "id",
			Status: metrics.StatusError, Error: "all identifier variants failed",
		},
	}

	var buf bytes.Buffer
	if err := WriteRecordsCSV(&buf, records); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if rows[1][8] != "true" {
		t.Errorf("json_valid = %q, want true", rows[1][8])
	}
	if rows[2][8] != "" {
		t.Errorf("nil json_valid must export empty, got %q", rows[2][8])
	}
	if rows[2][4] != "" {
		t.Errorf("nil prompt_id must export empty, got %q", rows[2][4])
	}
}

func TestWriteRecordsJSONL(t *testing.T) {
	var buf bytes.Buffer
	records := []metrics.Record{
		{RunID: "run-1", ModelName: "a", Status: metrics.StatusSuccess},
		{RunID: "run-1", ModelName: "b", Status: metrics.StatusError, Error: "boom"},
	}
	if err := WriteRecordsJSONL(&buf, records); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"model_name":"a"`) {
		t.Errorf("unexpected first line %s", lines[0])
	}
	// json_valid is tri-state and must appear even when null.
	if !strings.Contains(lines[0], `"json_valid":null`) {
		t.Errorf("json_valid must serialize explicitly, got %s", lines[0])
	}
}
