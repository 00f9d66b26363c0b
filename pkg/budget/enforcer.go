// Package budget enforces a USD spend cap on benchmark runs.
package budget

import (
	"context"
	"errors"
	"fmt"
)

// ErrBudgetExceeded is returned when a run has reached its spend cap.
var ErrBudgetExceeded = errors.New("budget exceeded")

// CostSource reports how much a run has spent so far.
type CostSource interface {
	RunCost(ctx context.Context, runID string) (float64, error)
}

// Enforcer checks accumulated run cost against a spend cap.
type Enforcer struct {
	costs  CostSource
	maxUSD float64
}

// New creates an Enforcer. maxUSD <= 0 disables enforcement.
func New(costs CostSource, maxUSD float64) *Enforcer {
	return &Enforcer{costs: costs, maxUSD: maxUSD}
}

// Check returns ErrBudgetExceeded once the run's accumulated cost has
// reached the cap. It is meant to run between evaluations, so a run can
// overshoot by at most one call.
func (e *Enforcer) Check(ctx context.Context, runID string) error {
	if e.maxUSD <= 0 {
		return nil
	}
	spent, err := e.costs.RunCost(ctx, runID)
	if err != nil {
		return fmt.Errorf("budget check: %w", err)
	}
	if spent >= e.maxUSD {
		return fmt.Errorf("run %s spent $%.6f of $%.6f cap: %w", runID, spent, e.maxUSD, ErrBudgetExceeded)
	}
	return nil
}

// Remaining returns how much of the cap is left, or 0 when exhausted.
// A disabled enforcer reports no meaningful remainder.
func (e *Enforcer) Remaining(ctx context.Context, runID string) (float64, error) {
	if e.maxUSD <= 0 {
		return 0, nil
	}
	spent, err := e.costs.RunCost(ctx, runID)
	if err != nil {
		return 0, fmt.Errorf("budget remaining: %w", err)
	}
	remaining := e.maxUSD - spent
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
