// Package domain holds the core value types for the recipe runner.
package domain

import "strings"

// RecipeID is the stable identifier of a recipe, typically its file name
// (e.g. "Firefox.pkg.recipe"). It is stable across runs.
type RecipeID string

// String returns the identifier as a plain string.
func (r RecipeID) String() string { return string(r) }

// CacheKey addresses a single tracked item produced by a recipe. One recipe
// may track several items (a download step and a repackage step, for
// example), so the key is the pair of recipe identifier and item name.
type CacheKey struct {
	Recipe RecipeID
	Item   string
}

// NewCacheKey builds a CacheKey from a recipe identifier and an item name.
func NewCacheKey(recipe RecipeID, item string) CacheKey {
	return CacheKey{Recipe: recipe, Item: item}
}

// String renders the key in its wire form "recipe/item".
func (k CacheKey) String() string {
	return string(k.Recipe) + "/" + k.Item
}

// ParseCacheKey inverts CacheKey.String. The recipe part is everything up to
// the first separator; recipe identifiers never contain "/".
func ParseCacheKey(s string) CacheKey {
	recipe, item, _ := strings.Cut(s, "/")
	return CacheKey{Recipe: RecipeID(recipe), Item: item}
}
