// Package recipes locates recipe files and resolves parent chains.
package recipes

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
	"howett.net/plist"
)

// Recipe is the subset of a recipe body the trust chain needs.
type Recipe struct {
	Identifier   string `plist:"Identifier" yaml:"Identifier"`
	ParentRecipe string `plist:"ParentRecipe" yaml:"ParentRecipe"`
}

// recipeExtensions, most specific first. A bare ".recipe" file is a plist.
var recipeExtensions = []string{".recipe.plist", ".recipe.yaml", ".recipe"}

// FileNameCandidates expands a recipe name into the file names it may be
// stored under. A name already carrying a recipe extension maps to itself.
func FileNameCandidates(name string) []string {
	for _, ext := range recipeExtensions {
		if strings.HasSuffix(name, ext) {
			return []string{name}
		}
	}
	return []string{name + ".recipe", name + ".recipe.plist", name + ".recipe.yaml"}
}

// ParseFile reads and decodes one recipe file, dispatching on extension.
func ParseFile(path string) (Recipe, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configured search dirs
	if err != nil {
		return Recipe{}, zerr.Wrap(err, "failed to read recipe file")
	}

	var recipe Recipe
	switch {
	case strings.HasSuffix(path, ".recipe.yaml"):
		if err := yaml.Unmarshal(data, &recipe); err != nil {
			return Recipe{}, zerr.With(zerr.Wrap(domain.ErrRecipeFormat, err.Error()), "path", path)
		}
	case strings.HasSuffix(path, ".recipe") || strings.HasSuffix(path, ".recipe.plist"):
		if _, err := plist.Unmarshal(data, &recipe); err != nil {
			return Recipe{}, zerr.With(zerr.Wrap(domain.ErrRecipeFormat, err.Error()), "path", path)
		}
	default:
		return Recipe{}, zerr.With(zerr.Wrap(domain.ErrRecipeFormat, "unknown recipe extension"), "path", path)
	}
	return recipe, nil
}

func isRecipeFile(name string) bool {
	for _, ext := range recipeExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func findInDir(dir, name string) (string, bool) {
	for _, candidate := range FileNameCandidates(name) {
		path := filepath.Join(dir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
