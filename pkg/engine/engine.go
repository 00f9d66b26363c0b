// Package engine runs single (prompt, model) evaluations against Bedrock.
// It owns identifier-variant fallback, error classification, token
// accounting, and producing one metrics record per evaluation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/modelmeter/modelmeter/pkg/bedrock"
	"github.com/modelmeter/modelmeter/pkg/catalog"
	"github.com/modelmeter/modelmeter/pkg/jsonx"
	"github.com/modelmeter/modelmeter/pkg/metrics"
	"github.com/modelmeter/modelmeter/pkg/tokens"
)

// Invoker is the Bedrock surface the engine needs. *bedrock.Client
// satisfies it; tests substitute a scripted fake.
type Invoker interface {
	Converse(ctx context.Context, modelID string, req bedrock.ConverseRequest) (*bedrock.ConverseResponse, error)
	Invoke(ctx context.Context, modelID string, body []byte) ([]byte, error)
	CountTokens(ctx context.Context, modelID string, body []byte) int
}

// Task is one evaluation to run: a prompt against a model.
type Task struct {
	RunID      string
	Prompt     string
	PromptID   *int
	ExpectJSON bool
	// KeepText records the prompt and response verbatim for inspection.
	KeepText bool
}

// Engine evaluates prompts against catalog models.
type Engine struct {
	client Invoker
	region string
}

// New creates an Engine for the given region.
func New(client Invoker, region string) *Engine {
	return &Engine{client: client, region: region}
}

// attempt is the outcome of one successful model call.
type attempt struct {
	text      string
	latencyMs float64
	usage     *bedrock.TokenUsage
	outTokens int
}

// Evaluate runs one prompt against one model and returns the resulting
// record. Failures never propagate as errors; they are captured in the
// record so a run can continue past broken models.
func (e *Engine) Evaluate(ctx context.Context, d catalog.Descriptor, task Task) metrics.Record {
	rec := metrics.Record{
		Timestamp: time.Now().UTC(),
		RunID:     task.RunID,
		ModelName: d.Name,
		ModelID:   d.ModelID,
		PromptID:  task.PromptID,
	}
	if task.KeepText {
		rec.Prompt = task.Prompt
	}

	chat := usesConverse(d)
	params := catalog.ResolveGenerationParams(d, chat)

	// Heuristic estimate first; the CountTokens API or authoritative usage
	// replaces it when available.
	rec.InputTokens = tokens.Estimate(d.Tokenizer, task.Prompt)
	if n := e.countInputTokens(ctx, d, task.Prompt, chat); n > 0 {
		rec.InputTokens = n
	}

	queue := newVariantQueue(BuildVariants(d, e.region))
	walkStart := time.Now()
	var lastErr error

	for i := 0; i < len(queue.ids); i++ {
		variant := queue.ids[i]
		retried := false

		// Every attempt's error runs through the same classification, so a
		// fatal error on a retry still aborts immediately.
		for {
			result, err := e.attemptOnce(ctx, variant, d, task.Prompt, params, chat)
			if err == nil {
				return e.finish(rec, d, task, variant, result)
			}
			lastErr = err

			switch classify(err) {
			case failFatal:
				rec.Status = metrics.StatusError
				rec.Error = accessRemediation(d.Name, d.ModelID, e.region, err).Error()
				rec.LatencyMs = elapsedMs(walkStart)
				return rec
			case failNeedsProfile:
				if alias := qualify(variant, e.region); alias != "" && queue.push(alias) {
					log.Printf("model %s: %s requires an inference profile, queuing %s", d.Name, variant, alias)
				}
			case failNextVariant:
				if i+1 < len(queue.ids) {
					log.Printf("model %s: identifier %s rejected, trying %s", d.Name, variant, queue.ids[i+1])
				}
			case failRetryable:
				if !retried && ctx.Err() == nil {
					retried = true
					continue
				}
			}
			break
		}

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
	}

	rec.Status = metrics.StatusError
	rec.Error = exhaustedError(d.Name, queue.ids, lastErr).Error()
	rec.LatencyMs = elapsedMs(walkStart)
	return rec
}

// attemptOnce performs a single timed model call against one identifier.
func (e *Engine) attemptOnce(ctx context.Context, modelID string, d catalog.Descriptor, prompt string, params catalog.ResolvedParams, chat bool) (*attempt, error) {
	start := time.Now()

	if chat {
		resp, err := e.client.Converse(ctx, modelID, buildConverseRequest(prompt, params))
		if err != nil {
			return nil, err
		}
		return &attempt{
			text:      resp.Text(),
			latencyMs: elapsedMs(start),
			usage:     resp.Usage,
		}, nil
	}

	proto := directProtocolFor(d)
	reqBody, err := proto.buildBody(prompt, params)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	raw, err := e.client.Invoke(ctx, modelID, reqBody)
	if err != nil {
		return nil, err
	}
	latency := elapsedMs(start)

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("parse invoke response: %w", err)
	}
	return &attempt{
		text:      proto.extractText(body),
		latencyMs: latency,
		outTokens: proto.extractOutputTokens(body),
	}, nil
}

// finish fills the record from a successful attempt. The latency of the
// winning attempt is the only one recorded.
func (e *Engine) finish(rec metrics.Record, d catalog.Descriptor, task Task, variant string, result *attempt) metrics.Record {
	rec.Status = metrics.StatusSuccess
	rec.ModelID = variant
	rec.LatencyMs = result.latencyMs

	// Reported counts of zero mean "not measured"; estimates stand in.
	if result.usage != nil && result.usage.InputTokens > 0 {
		rec.InputTokens = result.usage.InputTokens
	}
	switch {
	case result.usage != nil && result.usage.OutputTokens > 0:
		rec.OutputTokens = result.usage.OutputTokens
	case result.outTokens > 0:
		rec.OutputTokens = result.outTokens
	default:
		rec.OutputTokens = tokens.Estimate(d.Tokenizer, result.text)
	}

	valid, extracted := jsonx.Validate(result.text, task.ExpectJSON)
	rec.JSONValid = valid
	if task.KeepText {
		rec.Response = result.text
		rec.ExtractedJSON = extracted
	}

	rec.CostUSDInput = metrics.Cost(rec.InputTokens, d.Pricing.InputPer1K)
	rec.CostUSDOutput = metrics.Cost(rec.OutputTokens, d.Pricing.OutputPer1K)
	rec.CostUSDTotal = metrics.CostTotal(rec.CostUSDInput, rec.CostUSDOutput)
	return rec
}

// elapsedMs returns the wall-clock milliseconds since start.
func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// countInputTokens asks the runtime for the exact input token count.
// Best-effort: 0 means the caller keeps its estimate.
func (e *Engine) countInputTokens(ctx context.Context, d catalog.Descriptor, prompt string, chat bool) int {
	var body []byte
	var err error
	if chat {
		body, err = converseCountTokensBody(prompt)
	} else {
		body, err = directProtocolFor(d).countTokensBody(prompt)
	}
	if err != nil {
		return 0
	}
	return e.client.CountTokens(ctx, d.ModelID, body)
}
