package metrics

import (
	"math"
	"time"
)

// Call outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record holds the metrics of a single (prompt, model) evaluation.
// Records are immutable once created and appended to a growing collection.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	ModelName string    `json:"model_name"`
	ModelID   string    `json:"model_id"`
	PromptID  *int      `json:"prompt_id,omitempty"`

	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	LatencyMs    float64 `json:"latency_ms"`

	// JSONValid is tri-state: true (valid payload found), false (expected or
	// checked but not found), nil (empty response with none expected).
	JSONValid *bool `json:"json_valid"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	CostUSDInput  float64 `json:"cost_usd_input"`
	CostUSDOutput float64 `json:"cost_usd_output"`
	CostUSDTotal  float64 `json:"cost_usd_total"`

	// Optional verbatim columns for after-the-fact inspection.
	Prompt        string `json:"input_prompt,omitempty"`
	Response      string `json:"response,omitempty"`
	ExtractedJSON string `json:"extracted_json,omitempty"`
}

// Summary aggregates the records of one model. It is derived state,
// recomputed from the record collection on demand.
type Summary struct {
	ModelName       string  `json:"model_name"`
	Count           int     `json:"count"`
	SuccessCount    int     `json:"success_count"`
	ErrorCount      int     `json:"error_count"`
	AvgInputTokens  float64 `json:"avg_input_tokens"`
	AvgOutputTokens float64 `json:"avg_output_tokens"`
	P50LatencyMs    float64 `json:"p50_latency_ms"`
	P95LatencyMs    float64 `json:"p95_latency_ms"`
	P99LatencyMs    float64 `json:"p99_latency_ms"`
	MinLatencyMs    float64 `json:"min_latency_ms"`
	MaxLatencyMs    float64 `json:"max_latency_ms"`
	JSONValidPct    float64 `json:"json_valid_pct"`
	AvgCostUSD      float64 `json:"avg_cost_usd_per_request"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
}

// Cost converts a token count to USD at a per-1K-token price, rounded to
// six decimal places.
func Cost(tokens int, per1K float64) float64 {
	return round6(float64(tokens) / 1000 * per1K)
}

// CostTotal sums two cost components, rounded to six decimal places so the
// total never carries binary dust past the cent-fraction precision.
func CostTotal(input, output float64) float64 {
	return round6(input + output)
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
