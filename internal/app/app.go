// Package app implements the application layer for ladle.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"go.trai.ch/ladle/internal/adapters/autopkg"
	"go.trai.ch/ladle/internal/adapters/backend"
	"go.trai.ch/ladle/internal/adapters/recipes"
	"go.trai.ch/ladle/internal/cache"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/ladle/internal/engine/orchestrator"
	"go.trai.ch/ladle/internal/engine/trust"
	"go.trai.ch/zerr"
)

// BackendFactory builds the cache backend for a run.
type BackendFactory func(cfg domain.BackendSettings) (ports.Backend, error)

// App wires the engine together for one invocation.
type App struct {
	log        ports.Logger
	loader     ports.ConfigLoader
	tracer     ports.Tracer
	runner     ports.Runner
	out        io.Writer
	newBackend BackendFactory
}

// Option configures an App.
type Option func(*App)

// WithRunner overrides the packaging tool collaborator.
func WithRunner(runner ports.Runner) Option {
	return func(a *App) { a.runner = runner }
}

// WithBackendFactory overrides backend construction.
func WithBackendFactory(f BackendFactory) Option {
	return func(a *App) { a.newBackend = f }
}

// WithOutput redirects report rendering.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// New creates an App.
func New(log ports.Logger, loader ports.ConfigLoader, tracer ports.Tracer, opts ...Option) *App {
	a := &App{
		log:        log,
		loader:     loader,
		tracer:     tracer,
		out:        os.Stdout,
		newBackend: backend.New,
	}
	a.runner = autopkg.NewRunner(log)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Settings loads and returns the settings file; flag overrides are applied
// by the CLI layer on the returned value.
func (a *App) Settings(path string) (domain.Settings, error) {
	return a.loader.Load(path)
}

// Run executes the recipe set end to end: load cache, orchestrate, prune
// if enabled, commit, render the report. The report is returned even when
// recipes failed; only infrastructure errors are returned as error.
func (a *App) Run(ctx context.Context, settings domain.Settings, ids []domain.RecipeID) (domain.RunReport, error) {
	if err := settings.Validate(); err != nil {
		return domain.RunReport{}, err
	}
	if len(ids) == 0 {
		return domain.RunReport{}, domain.ErrNoRecipes
	}

	b, err := a.newBackend(settings.Backend)
	if err != nil {
		return domain.RunReport{}, err
	}
	if err := b.Open(ctx); err != nil {
		return domain.RunReport{}, zerr.Wrap(err, "failed to open cache backend")
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			a.log.Warn("failed to close cache backend", "error", closeErr.Error())
		}
	}()

	manager := cache.NewManager(b, a.log)
	if err := manager.Load(ctx, settings.ColdStart); err != nil {
		return domain.RunReport{}, err
	}

	verifier, err := a.verifier(settings)
	if err != nil {
		return domain.RunReport{}, err
	}

	orch := orchestrator.New(manager, verifier, a.runner,
		recipes.NewMaterializer(a.log), a.tracer, a.log)

	report, err := orch.Run(ctx, ids, orchestrator.Options{
		Concurrency: settings.Concurrency,
		Timeout:     settings.Timeout,
	})
	if err != nil {
		return domain.RunReport{}, err
	}

	if settings.Prune {
		manager.Prune()
	}

	// The summary still goes out when the commit fails; operators need
	// the per-recipe outcomes to judge what the lost journal contained.
	a.renderReport(report)

	if err := manager.Commit(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// TrustVerify reports each recipe's trust state, sorted by recipe.
func (a *App) TrustVerify(ctx context.Context, settings domain.Settings, ids []domain.RecipeID) (map[domain.RecipeID]domain.TrustState, error) {
	verifier, err := a.verifier(settings)
	if err != nil {
		return nil, err
	}

	states := make(map[domain.RecipeID]domain.TrustState, len(ids))
	for _, id := range ids {
		state, err := verifier.Verify(ctx, id)
		if err != nil {
			return nil, err
		}
		states[id] = state
		fmt.Fprintf(a.out, "%s\t%s\n", id, state)
	}
	return states, nil
}

// TrustUpdate recomputes and persists trust digests for the given recipes.
func (a *App) TrustUpdate(ctx context.Context, settings domain.Settings, ids []domain.RecipeID) error {
	verifier, err := a.verifier(settings)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := verifier.Update(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\ttrusted\n", id)
	}
	return nil
}

// CacheShow prints every cache entry matching prefix.
func (a *App) CacheShow(ctx context.Context, settings domain.Settings, prefix string) error {
	b, err := a.openBackend(ctx, settings)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // read-only access

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for key, err := range b.Keys(ctx, prefix) {
		if err != nil {
			return err
		}
		entry, err := b.Get(ctx, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", key.String(), entry.Fingerprint())
	}
	return w.Flush()
}

// CacheClear deletes every entry in the cache.
func (a *App) CacheClear(ctx context.Context, settings domain.Settings) error {
	b, err := a.openBackend(ctx, settings)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best effort close

	_, token, err := b.Load(ctx)
	if err != nil {
		return err
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	cleared := 0
	for key, err := range b.Keys(ctx, "") {
		if err != nil {
			tx.Rollback()
			return err
		}
		tx.Delete(key)
		cleared++
	}
	if err := tx.Commit(ctx, token); err != nil {
		return err
	}
	a.log.Info("cache cleared", "entries", cleared)
	return nil
}

func (a *App) openBackend(ctx context.Context, settings domain.Settings) (ports.Backend, error) {
	b, err := a.newBackend(settings.Backend)
	if err != nil {
		return nil, err
	}
	if err := b.Open(ctx); err != nil {
		return nil, zerr.Wrap(err, "failed to open cache backend")
	}
	return b, nil
}

func (a *App) verifier(settings domain.Settings) (*trust.Verifier, error) {
	store, err := trust.NewStore(settings.TrustPath)
	if err != nil {
		return nil, err
	}
	resolver := recipes.NewResolver(settings.OverrideDirs, settings.SearchDirs, a.log)
	return trust.NewVerifier(resolver, store, a.log), nil
}

// renderReport writes the end-of-run summary: one line per recipe grouped
// by outcome, then anomalies and totals.
func (a *App) renderReport(report domain.RunReport) {
	runs := make([]domain.RecipeRun, len(report.Runs))
	copy(runs, report.Runs)
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Outcome != runs[j].Outcome {
			return runs[i].Outcome < runs[j].Outcome
		}
		return runs[i].Recipe < runs[j].Recipe
	})

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECIPE\tOUTCOME\tDURATION\tREASON")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			run.Recipe, run.Outcome, run.Duration().Round(time.Millisecond), run.Reason)
	}
	_ = w.Flush()

	if len(report.Anomalies) > 0 {
		fmt.Fprintln(a.out, "\nAnomalies:")
		for _, anomaly := range report.Anomalies {
			fmt.Fprintf(a.out, "  - %s\n", anomaly)
		}
	}

	counts := report.Counts()
	fmt.Fprintf(a.out, "\n%d succeeded, %d skipped, %d failed, %d halted, %d timed out\n",
		counts[domain.OutcomeSucceeded], counts[domain.OutcomeSkipped],
		counts[domain.OutcomeFailed], counts[domain.OutcomeHalted],
		counts[domain.OutcomeTimedOut])
}
