package recipes

import (
	"context"
	"io/fs"
	"path/filepath"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ChainResolver = (*Resolver)(nil)

// Resolver locates recipe files across override and search directories and
// follows ParentRecipe references up to the chain root.
type Resolver struct {
	overrideDirs []string
	searchDirs   []string
	log          ports.Logger
}

// NewResolver creates a Resolver. Override directories win over search
// directories, in the order given.
func NewResolver(overrideDirs, searchDirs []string, log ports.Logger) *Resolver {
	return &Resolver{
		overrideDirs: overrideDirs,
		searchDirs:   searchDirs,
		log:          log,
	}
}

// ResolveChain returns the file paths of the recipe and every ancestor,
// child first. A dangling ParentRecipe reference or an unknown recipe name
// is ErrRecipeNotFound.
func (r *Resolver) ResolveChain(ctx context.Context, id domain.RecipeID) ([]string, error) {
	var chain []string
	seen := make(map[string]bool)

	name := string(id)
	for name != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, zerr.With(zerr.New("recipe parent cycle"), "recipe", name)
		}
		seen[name] = true

		path, err := r.locate(name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, path)

		recipe, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		r.log.Debug("resolved recipe", "name", name, "path", path, "parent", recipe.ParentRecipe)
		name = recipe.ParentRecipe
	}
	return chain, nil
}

// locate finds the file for a recipe name or identifier. File name
// candidates are tried in every directory first; identifiers that do not
// match a file name fall back to scanning recipe bodies.
func (r *Resolver) locate(name string) (string, error) {
	for _, dir := range append(append([]string{}, r.overrideDirs...), r.searchDirs...) {
		if path, ok := findInDir(dir, name); ok {
			return path, nil
		}
	}
	if path, ok := r.scanForIdentifier(name); ok {
		return path, nil
	}
	return "", zerr.With(zerr.Wrap(domain.ErrRecipeNotFound, "no candidate file in search dirs"), "recipe", name)
}

func (r *Resolver) scanForIdentifier(identifier string) (string, bool) {
	for _, dir := range append(append([]string{}, r.overrideDirs...), r.searchDirs...) {
		var found string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isRecipeFile(d.Name()) {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			recipe, parseErr := ParseFile(path)
			if parseErr != nil {
				return nil
			}
			if recipe.Identifier == identifier {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if err == nil && found != "" {
			return found, true
		}
	}
	return "", false
}
