package ports

import (
	"context"

	"go.trai.ch/ladle/internal/core/domain"
)

// Runner invokes the external packaging tool for one recipe. The tool is an
// opaque collaborator: it is launched as a subprocess and, on success,
// reports the metadata of every tracked item it produced.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type Runner interface {
	// Run executes the recipe and returns one metadata entry per tracked
	// item. A nonzero exit surfaces as an error; context cancellation kills
	// the subprocess and surfaces as ctx.Err().
	Run(ctx context.Context, id domain.RecipeID) (map[string]domain.MetadataEntry, error)
}
