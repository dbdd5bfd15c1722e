// Package autopkg invokes the packaging tool as a subprocess and parses
// its run report into cache metadata.
package autopkg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Runner = (*Runner)(nil)

// Runner implements ports.Runner using os/exec.
type Runner struct {
	logger  ports.Logger
	command string
	args    []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithCommand overrides the executable name, mainly for tests.
func WithCommand(command string, args ...string) Option {
	return func(r *Runner) {
		r.command = command
		r.args = args
	}
}

// NewRunner creates a Runner invoking the autopkg executable.
func NewRunner(logger ports.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:  logger,
		command: "autopkg",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one recipe and returns the tool-reported artifact metadata
// keyed by downloaded item name. The context deadline cancels the
// subprocess; a nonzero exit surfaces as an error carrying the exit code.
func (r *Runner) Run(ctx context.Context, id domain.RecipeID) (map[string]domain.MetadataEntry, error) {
	reportDir, err := os.MkdirTemp("", "ladle-report-*")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create report directory")
	}
	defer os.RemoveAll(reportDir)
	reportPath := filepath.Join(reportDir, "report.plist")

	args := append([]string{}, r.args...)
	args = append(args, "run", "--recipe", string(id), "--report-plist", reportPath)

	cmd := exec.CommandContext(ctx, r.command, args...) //nolint:gosec // recipe id is provided by user
	cmd.Stdout = &logWriter{logger: r.logger, recipe: id}
	cmd.Stderr = &logWriter{logger: r.logger, recipe: id, stderr: true}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, zerr.With(zerr.With(zerr.Wrap(err, "recipe run failed"), "recipe", string(id)), "exit_code", exitCode)
	}

	data, err := os.ReadFile(reportPath) //nolint:gosec // path is generated above
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The tool ran but downloaded nothing, so there is no report.
			return map[string]domain.MetadataEntry{}, nil
		}
		return nil, zerr.Wrap(err, "failed to read run report")
	}
	return ParseReport(data)
}

type logWriter struct {
	logger ports.Logger
	recipe domain.RecipeID
	stderr bool
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if w.stderr {
			w.logger.Warn(line, "recipe", string(w.recipe))
		} else {
			w.logger.Info(line, "recipe", string(w.recipe))
		}
	}
	return len(p), nil
}
