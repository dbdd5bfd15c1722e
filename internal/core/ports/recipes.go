package ports

import (
	"context"

	"go.trai.ch/ladle/internal/core/domain"
)

// ChainResolver resolves a recipe to the ordered file paths of its parent
// chain, the recipe itself first and the root ancestor last. Resolution is
// deterministic for a given directory layout.
//
//go:generate go run go.uber.org/mock/mockgen -source=recipes.go -destination=mocks/mock_recipes.go -package=mocks
type ChainResolver interface {
	ResolveChain(ctx context.Context, id domain.RecipeID) ([]string, error)
}

// Materializer creates placeholder artifacts for skipped recipes so that
// downstream packaging steps observe the artifact as already present. The
// placeholder must preserve every field the tool inspects to decide
// freshness (declared path and size).
type Materializer interface {
	Materialize(entry domain.MetadataEntry) error
}
