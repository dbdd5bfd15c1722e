// Package orchestrator drives a bounded pool of recipe runs, gating each
// behind trust verification and the metadata cache.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go.trai.ch/ladle/internal/cache"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/ladle/internal/engine/trust"
	"go.trai.ch/zerr"
)

// Options bound a single orchestrated run.
type Options struct {
	// Concurrency is the worker pool size.
	Concurrency int
	// Timeout limits each individual recipe run.
	Timeout time.Duration
}

// Orchestrator processes recipe runs through the trust and cache gates.
type Orchestrator struct {
	cache        *cache.Manager
	trust        *trust.Verifier
	runner       ports.Runner
	materializer ports.Materializer
	tracer       ports.Tracer
	log          ports.Logger

	mu       sync.Mutex
	inflight map[domain.RecipeID]*latch
}

// latch serializes runs of the same identifier: the first request runs,
// later ones wait for its terminal state and adopt the result.
type latch struct {
	done chan struct{}
	run  domain.RecipeRun
}

// New creates an Orchestrator.
func New(
	cacheManager *cache.Manager,
	verifier *trust.Verifier,
	runner ports.Runner,
	materializer ports.Materializer,
	tracer ports.Tracer,
	log ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		cache:        cacheManager,
		trust:        verifier,
		runner:       runner,
		materializer: materializer,
		tracer:       tracer,
		log:          log,
	}
}

// Run processes the recipe set and aggregates every outcome into a report.
// Individual failures never cancel sibling workers; the report carries them
// as terminal states instead.
func (o *Orchestrator) Run(ctx context.Context, ids []domain.RecipeID, opts Options) (domain.RunReport, error) {
	if opts.Concurrency < 1 {
		return domain.RunReport{}, zerr.With(zerr.Wrap(domain.ErrInvalidConcurrency, "worker pool needs a positive limit"), "concurrency", opts.Concurrency)
	}
	if len(ids) == 0 {
		return domain.RunReport{}, domain.ErrNoRecipes
	}

	o.mu.Lock()
	o.inflight = make(map[domain.RecipeID]*latch)
	o.mu.Unlock()

	report := domain.RunReport{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Runs:    make([]domain.RecipeRun, len(ids)),
	}

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	o.tracer.EmitPlan(ctx, names)
	o.log.Info("run started", "id", report.ID, "recipes", len(ids), "concurrency", opts.Concurrency)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			report.Runs[i] = o.process(ctx, id, opts.Timeout)
			return nil
		})
	}
	_ = g.Wait()

	report.Finished = time.Now()
	report.Anomalies = o.cache.Anomalies()

	counts := report.Counts()
	o.log.Info("run finished", "id", report.ID,
		"succeeded", counts[domain.OutcomeSucceeded],
		"skipped", counts[domain.OutcomeSkipped],
		"failed", counts[domain.OutcomeFailed],
		"halted", counts[domain.OutcomeHalted],
		"timed_out", counts[domain.OutcomeTimedOut])
	return report, nil
}

// process takes one recipe through the state machine. Exactly one worker
// runs a given identifier; concurrent requests adopt its outcome.
func (o *Orchestrator) process(ctx context.Context, id domain.RecipeID, timeout time.Duration) domain.RecipeRun {
	o.mu.Lock()
	if l, ok := o.inflight[id]; ok {
		o.mu.Unlock()
		select {
		case <-l.done:
			return l.run
		case <-ctx.Done():
			return domain.RecipeRun{
				Recipe:   id,
				Outcome:  domain.OutcomeFailed,
				Reason:   ctx.Err().Error(),
				Started:  time.Now(),
				Finished: time.Now(),
			}
		}
	}
	l := &latch{done: make(chan struct{})}
	o.inflight[id] = l
	o.mu.Unlock()

	l.run = o.runOne(ctx, id, timeout)
	close(l.done)
	return l.run
}

func (o *Orchestrator) runOne(ctx context.Context, id domain.RecipeID, timeout time.Duration) domain.RecipeRun {
	run := domain.RecipeRun{
		Recipe:  id,
		Outcome: domain.OutcomePending,
		Started: time.Now(),
	}
	ctx, span := o.tracer.Start(ctx, string(id))
	defer span.End()

	o.trustCheck(ctx, &run, span)
	if !run.Outcome.Terminal() {
		o.cacheCheck(&run, span)
	}
	if !run.Outcome.Terminal() {
		o.execute(ctx, &run, span, timeout)
	}

	run.Finished = time.Now()
	span.SetAttribute("outcome", string(run.Outcome))
	o.log.Info("recipe finished", "recipe", string(id),
		"outcome", string(run.Outcome), "duration", run.Duration().String())
	return run
}

// trustCheck gates execution on a Trusted record. A failed verification
// (unresolvable chain) halts the recipe the same way a stale digest does.
func (o *Orchestrator) trustCheck(ctx context.Context, run *domain.RecipeRun, span ports.Span) {
	run.Outcome = domain.OutcomeTrustCheck
	state, err := o.trust.Verify(ctx, run.Recipe)
	if err != nil {
		run.Outcome = domain.OutcomeHalted
		run.Reason = err.Error()
		span.RecordError(err)
		o.markSeenIfCached(run.Recipe)
		return
	}
	if state != domain.TrustTrusted {
		run.Outcome = domain.OutcomeHalted
		run.Reason = fmt.Sprintf("trust %s, explicit update required", state)
		span.RecordError(errors.New(run.Reason))
		o.markSeenIfCached(run.Recipe)
	}
}

// cacheCheck skips the run when every tracked item is usable, recreating
// placeholder artifacts so downstream freshness checks observe the exact
// recorded fields.
func (o *Orchestrator) cacheCheck(run *domain.RecipeRun, span ports.Span) {
	run.Outcome = domain.OutcomeCacheCheck
	entries := o.cache.EntriesFor(run.Recipe)
	if len(entries) == 0 || !allUsable(entries) {
		return
	}

	for item, entry := range entries {
		if err := o.materializer.Materialize(entry); err != nil {
			// A placeholder that cannot be recreated downgrades the hit
			// to a real run rather than failing the recipe.
			o.log.Warn("placeholder materialization failed, running instead",
				"recipe", string(run.Recipe), "item", item, "error", err.Error())
			return
		}
		o.cache.MarkSeen(domain.NewCacheKey(run.Recipe, item))
	}

	run.Outcome = domain.OutcomeSkipped
	run.Reason = "all tracked items unchanged"
	span.Cached()
}

// execute invokes the packaging tool under the per-recipe deadline and
// folds the reported delta into the cache.
func (o *Orchestrator) execute(ctx context.Context, run *domain.RecipeRun, span ports.Span, timeout time.Duration) {
	run.Outcome = domain.OutcomeRunning

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delta, err := o.runner.Run(runCtx, run.Recipe)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		run.Outcome = domain.OutcomeTimedOut
		run.Reason = fmt.Sprintf("exceeded %s", timeout)
		span.RecordError(err)
		o.markSeenIfCached(run.Recipe)
	case err != nil:
		run.Outcome = domain.OutcomeFailed
		run.Reason = err.Error()
		span.RecordError(err)
		o.markSeenIfCached(run.Recipe)
	default:
		for item, entry := range delta {
			o.cache.Record(domain.NewCacheKey(run.Recipe, item), entry)
		}
		run.Delta = delta
		run.Outcome = domain.OutcomeSucceeded
	}
}

// markSeenIfCached protects a failed or halted recipe's existing entries
// from pruning; a transient failure must not erase valid history.
func (o *Orchestrator) markSeenIfCached(id domain.RecipeID) {
	for item := range o.cache.EntriesFor(id) {
		o.cache.MarkSeen(domain.NewCacheKey(id, item))
	}
}

func allUsable(entries map[string]domain.MetadataEntry) bool {
	for _, entry := range entries {
		if path, ok := entry.StringField(domain.FieldFilePath); !ok || path == "" {
			return false
		}
		if _, ok := entry[domain.FieldFileSize]; !ok {
			return false
		}
	}
	return true
}
