package domain

import "time"

// Outcome is the state of a recipe run in the orchestrator state machine.
type Outcome string

const (
	// OutcomePending indicates the run has not been dispatched yet.
	OutcomePending Outcome = "Pending"
	// OutcomeTrustCheck indicates the trust digest is being verified.
	OutcomeTrustCheck Outcome = "TrustCheck"
	// OutcomeCacheCheck indicates cached metadata is being compared.
	OutcomeCacheCheck Outcome = "CacheCheck"
	// OutcomeRunning indicates the packaging tool is executing.
	OutcomeRunning Outcome = "Running"

	// OutcomeSkipped is terminal: every tracked item was unchanged and
	// placeholder artifacts were materialized instead of executing.
	OutcomeSkipped Outcome = "Skipped"
	// OutcomeSucceeded is terminal: the packaging tool exited zero.
	OutcomeSucceeded Outcome = "Succeeded"
	// OutcomeFailed is terminal: the packaging tool exited nonzero.
	OutcomeFailed Outcome = "Failed"
	// OutcomeHalted is terminal: the trust gate refused to dispatch.
	OutcomeHalted Outcome = "Halted"
	// OutcomeTimedOut is terminal: the per-recipe deadline elapsed and the
	// subprocess was cancelled.
	OutcomeTimedOut Outcome = "TimedOut"
)

// Terminal reports whether the outcome ends the run's state machine.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeSkipped, OutcomeSucceeded, OutcomeFailed, OutcomeHalted, OutcomeTimedOut:
		return true
	default:
		return false
	}
}

// Bad reports whether the outcome warrants a nonzero process exit.
func (o Outcome) Bad() bool {
	switch o {
	case OutcomeFailed, OutcomeHalted, OutcomeTimedOut:
		return true
	default:
		return false
	}
}

// RecipeRun is the ephemeral record of one recipe's journey through the
// state machine. It is owned by the worker that created it and folded into
// the run report once terminal.
type RecipeRun struct {
	Recipe   RecipeID                 `json:"recipe"`
	Outcome  Outcome                  `json:"outcome"`
	Reason   string                   `json:"reason,omitempty"`
	Started  time.Time                `json:"started"`
	Finished time.Time                `json:"finished"`
	Delta    map[string]MetadataEntry `json:"delta,omitempty"` // item name -> entry
}

// Duration returns the wall time of the run.
func (r RecipeRun) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// RunReport aggregates the terminal state of every recipe in a run, plus
// anomalies (corrupt cache entries, cold starts) that require operator
// attention but did not fail individual recipes.
type RunReport struct {
	ID        string      `json:"id"`
	Started   time.Time   `json:"started"`
	Finished  time.Time   `json:"finished"`
	Runs      []RecipeRun `json:"runs"`
	Anomalies []string    `json:"anomalies,omitempty"`
}

// Failed reports whether any recipe ended Failed, TimedOut or Halted.
func (r RunReport) Failed() bool {
	for _, run := range r.Runs {
		if run.Outcome.Bad() {
			return true
		}
	}
	return false
}

// Counts tallies terminal outcomes.
func (r RunReport) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, run := range r.Runs {
		counts[run.Outcome]++
	}
	return counts
}
