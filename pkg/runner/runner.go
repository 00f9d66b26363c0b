// Package runner drives a benchmark run: every prompt against every model,
// strictly sequentially, persisting each record as it is produced.
package runner

import (
	"context"
	"fmt"
	"log"

	"github.com/modelmeter/modelmeter/pkg/budget"
	"github.com/modelmeter/modelmeter/pkg/catalog"
	"github.com/modelmeter/modelmeter/pkg/engine"
	"github.com/modelmeter/modelmeter/pkg/metrics"
	"github.com/modelmeter/modelmeter/pkg/prompts"
)

// Evaluator runs one prompt against one model. *engine.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, d catalog.Descriptor, task engine.Task) metrics.Record
}

// Sink persists records as they are produced so partial runs survive
// interruption.
type Sink interface {
	Insert(ctx context.Context, rec metrics.Record) error
}

// Runner executes benchmark runs.
type Runner struct {
	eval     Evaluator
	sink     Sink
	enforcer *budget.Enforcer
	// KeepText records prompts and responses verbatim.
	KeepText bool
}

// New creates a Runner. enforcer may be nil when no spend cap applies.
func New(eval Evaluator, sink Sink, enforcer *budget.Enforcer) *Runner {
	return &Runner{eval: eval, sink: sink, enforcer: enforcer}
}

// Run evaluates every prompt against every model in order and returns the
// collected records. Cancellation and budget exhaustion take effect between
// calls, never mid-call; records produced so far are returned alongside the
// stop error.
func (r *Runner) Run(ctx context.Context, models []catalog.Descriptor, input []prompts.Prompt, runID string) ([]metrics.Record, error) {
	total := len(models) * len(input)
	log.Printf("run %s: %d models x %d prompts (%d calls)", runID, len(models), len(input), total)

	var records []metrics.Record
	done := 0
	for _, p := range input {
		for _, d := range models {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			if r.enforcer != nil {
				if err := r.enforcer.Check(ctx, runID); err != nil {
					return records, err
				}
			}

			promptID := p.ID
			rec := r.eval.Evaluate(ctx, d, engine.Task{
				RunID:      runID,
				Prompt:     p.Text,
				PromptID:   &promptID,
				ExpectJSON: p.ExpectJSON,
				KeepText:   r.KeepText,
			})
			records = append(records, rec)
			done++

			if err := r.sink.Insert(ctx, rec); err != nil {
				return records, fmt.Errorf("persist record: %w", err)
			}

			if rec.Status == metrics.StatusError {
				log.Printf("[%d/%d] %s prompt %d: %s", done, total, d.Name, p.ID, rec.Error)
			} else {
				log.Printf("[%d/%d] %s prompt %d: %.0fms, %d out tokens", done, total, d.Name, p.ID, rec.LatencyMs, rec.OutputTokens)
			}
		}
	}
	return records, nil
}
