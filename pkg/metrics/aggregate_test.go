package metrics

import (
	"testing"
	"time"
)

func successRecord(model string, latency float64) Record {
	return Record{
		Timestamp:    time.Now().UTC(),
		RunID:        "run1",
		ModelName:    model,
		Status:       StatusSuccess,
		LatencyMs:    latency,
		InputTokens:  100,
		OutputTokens: 50,
		CostUSDTotal: 0.001,
	}
}

func TestCost(t *testing.T) {
	tests := []struct {
		tokens int
		per1K  float64
		want   float64
	}{
		{5, 0.006, 0.00003},
		{1000, 0.008, 0.008},
		{0, 0.024, 0},
		{1234, 0, 0},
		{333, 0.0006, 0.0002}, // 0.0001998 rounds to 6 places
	}
	for _, tt := range tests {
		if got := Cost(tt.tokens, tt.per1K); got != tt.want {
			t.Errorf("Cost(%d, %f) = %v, want %v", tt.tokens, tt.per1K, got, tt.want)
		}
	}
}

func TestCostTotal(t *testing.T) {
	// 0.1 + 0.2 carries binary dust past six decimals without rounding.
	if got := CostTotal(0.1, 0.2); got != 0.3 {
		t.Errorf("CostTotal(0.1, 0.2) = %v, want 0.3", got)
	}
	if got := CostTotal(0, 0); got != 0 {
		t.Errorf("CostTotal(0, 0) = %v, want 0", got)
	}
}

func TestPercentileSingleSample(t *testing.T) {
	sample := []float64{123.4}
	for _, p := range []float64{0.5, 0.95, 0.99} {
		if got := Percentile(sample, p); got != 123.4 {
			t.Errorf("Percentile(single, %v) = %v, want 123.4", p, got)
		}
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sample := []float64{100, 200, 300}
	tests := []struct {
		p    float64
		want float64
	}{
		{0.50, 200},
		{0.95, 290},
		{0.25, 150},
		{0, 100},
		{1, 300},
	}
	for _, tt := range tests {
		if got := Percentile(sample, tt.p); got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("empty sample should yield 0, got %v", got)
	}
}

func TestAggregate(t *testing.T) {
	records := []Record{
		successRecord("M", 100),
		successRecord("M", 200),
		successRecord("M", 300),
	}
	summaries := Aggregate(records)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.P50LatencyMs != 200 {
		t.Errorf("p50 = %v, want 200", s.P50LatencyMs)
	}
	if s.MinLatencyMs != 100 || s.MaxLatencyMs != 300 {
		t.Errorf("min/max = %v/%v, want 100/300", s.MinLatencyMs, s.MaxLatencyMs)
	}
	if s.Count != 3 || s.SuccessCount != 3 || s.ErrorCount != 0 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.TotalCostUSD != 0.003 {
		t.Errorf("total cost = %v, want 0.003", s.TotalCostUSD)
	}
}

func TestAggregateSeparatesErrors(t *testing.T) {
	errRec := Record{ModelName: "M", Status: StatusError, Error: "boom"}
	records := []Record{successRecord("M", 150), errRec, errRec}

	summaries := Aggregate(records)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Count != 3 || s.SuccessCount != 1 || s.ErrorCount != 2 {
		t.Errorf("counts = %d/%d/%d, want 3/1/2", s.Count, s.SuccessCount, s.ErrorCount)
	}
	// Error latencies must not pollute latency statistics.
	if s.P50LatencyMs != 150 {
		t.Errorf("p50 = %v, want 150", s.P50LatencyMs)
	}
}

func TestAggregateAllErrors(t *testing.T) {
	records := []Record{
		{ModelName: "M", Status: StatusError, Error: "boom"},
	}
	summaries := Aggregate(records)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	// Empty success group: all statistics zero, never an error.
	if s.P50LatencyMs != 0 || s.MaxLatencyMs != 0 || s.AvgCostUSD != 0 {
		t.Errorf("empty group should zero statistics: %+v", s)
	}
	if s.ErrorCount != 1 {
		t.Errorf("error count = %d, want 1", s.ErrorCount)
	}
}

func TestAggregateJSONValidity(t *testing.T) {
	yes, no := true, false
	records := []Record{
		successRecord("M", 100),
		successRecord("M", 100),
		successRecord("M", 100),
		successRecord("M", 100),
	}
	records[0].JSONValid = &yes
	records[1].JSONValid = &yes
	records[2].JSONValid = &no
	// records[3] stays nil (not applicable) and counts in the denominator.

	s := Aggregate(records)[0]
	if s.JSONValidPct != 50 {
		t.Errorf("json valid pct = %v, want 50", s.JSONValidPct)
	}
}

func TestAggregateSortedByModelName(t *testing.T) {
	records := []Record{
		successRecord("zeta", 10),
		successRecord("alpha", 10),
		successRecord("mid", 10),
	}
	summaries := Aggregate(records)
	names := []string{summaries[0].ModelName, summaries[1].ModelName, summaries[2].ModelName}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}
