package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelmeter/modelmeter/pkg/metrics"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(runID string, seq int) metrics.Record {
	promptID := seq
	valid := true
	return metrics.Record{
		Timestamp:     time.Now().UTC().Add(time.Duration(seq) * time.Second),
		RunID:         runID,
		ModelName:     "claude-3-7-sonnet",
		ModelID:       "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		PromptID:      &promptID,
		InputTokens:   100,
		OutputTokens:  40,
		LatencyMs:     812.5,
		JSONValid:     &valid,
		Status:        metrics.StatusSuccess,
		CostUSDInput:  0.0003,
		CostUSDOutput: 0.0006,
		CostUSDTotal:  0.0009,
		Prompt:        "What is the capital of France?",
		Response:      `{"city": "Paris"}`,
		ExtractedJSON: `{"city": "Paris"}`,
	}
}

func TestInsertAndListByRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Insert(ctx, sampleRecord("run-1", i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Insert(ctx, sampleRecord("run-2", 0)); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.PromptID == nil || *rec.PromptID != i {
			t.Errorf("record %d: prompt id = %v, want %d", i, rec.PromptID, i)
		}
	}
	got := records[0]
	if got.JSONValid == nil || !*got.JSONValid {
		t.Errorf("json_valid = %v, want true", got.JSONValid)
	}
	if got.ExtractedJSON != `{"city": "Paris"}` {
		t.Errorf("extracted_json = %q", got.ExtractedJSON)
	}
	if got.LatencyMs != 812.5 {
		t.Errorf("latency = %v, want 812.5", got.LatencyMs)
	}
}

func TestTriStateJSONValidRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("run-1", 0)
	rec.JSONValid = nil
	rec.PromptID = nil
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	records, err := s.ListByRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].JSONValid != nil {
		t.Errorf("json_valid = %v, want nil", records[0].JSONValid)
	}
	if records[0].PromptID != nil {
		t.Errorf("prompt_id = %v, want nil", records[0].PromptID)
	}
}

func TestRunCost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Insert(ctx, sampleRecord("run-1", i)); err != nil {
			t.Fatal(err)
		}
	}

	total, err := s.RunCost(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(total-0.0027) > 1e-9 {
		t.Errorf("run cost = %v, want 0.0027", total)
	}

	empty, err := s.RunCost(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if empty != 0 {
		t.Errorf("missing run cost = %v, want 0", empty)
	}
}

func TestRunsRollup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleRecord("run-1", 0)
	first.Timestamp = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	_ = s.Insert(ctx, first)

	failed := sampleRecord("run-2", 0)
	failed.Timestamp = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	failed.Status = metrics.StatusError
	failed.Error = "all identifier variants failed"
	failed.CostUSDTotal = 0
	_ = s.Insert(ctx, failed)

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-2" {
		t.Errorf("most recent run first, got %s", runs[0].RunID)
	}
	if runs[0].Errors != 1 {
		t.Errorf("run-2 errors = %d, want 1", runs[0].Errors)
	}
	if math.Abs(runs[1].TotalCostUSD-0.0009) > 1e-9 {
		t.Errorf("run-1 cost = %v, want 0.0009", runs[1].TotalCostUSD)
	}
}

func TestLatestRunID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.LatestRunID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if runID != "" {
		t.Errorf("empty store run id = %q, want empty", runID)
	}

	_ = s.Insert(ctx, sampleRecord("run-1", 0))
	_ = s.Insert(ctx, sampleRecord("run-2", 0))

	runID, err = s.LatestRunID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if runID != "run-2" {
		t.Errorf("latest run = %q, want run-2", runID)
	}
}
