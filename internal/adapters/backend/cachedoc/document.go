// Package cachedoc implements the JSON cache document shared by the
// local-file and cloud object-store backends: a single document whose top
// level maps recipe identifiers to item names to metadata fields.
package cachedoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/zerr"
)

// Encode renders the snapshot as an indented JSON document. Map keys are
// marshaled sorted, so an unchanged snapshot round-trips byte-for-byte.
func Encode(snap domain.Snapshot) ([]byte, error) {
	doc := make(map[string]map[string]domain.MetadataEntry)
	for key, entry := range snap {
		recipe := string(key.Recipe)
		if doc[recipe] == nil {
			doc[recipe] = make(map[string]domain.MetadataEntry)
		}
		doc[recipe][key.Item] = entry
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal cache document")
	}
	return append(data, '\n'), nil
}

// Decode parses a JSON cache document into a snapshot. A document that is
// not valid JSON surfaces as domain.ErrCorrupt; per-entry shape violations
// are joined onto the returned error while the well-formed remainder is
// still returned.
func Decode(data []byte) (domain.Snapshot, error) {
	snap := make(domain.Snapshot)
	if len(bytes.TrimSpace(data)) == 0 {
		return snap, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(domain.ErrCorrupt, err.Error())
	}

	var corrupt error
	for recipe, raw := range doc {
		var items map[string]domain.MetadataEntry
		if err := json.Unmarshal(raw, &items); err != nil {
			corrupt = joinCorrupt(corrupt, recipe, err)
			continue
		}
		for item, entry := range items {
			snap[domain.NewCacheKey(domain.RecipeID(recipe), item)] = entry
		}
	}
	return snap, corrupt
}

func joinCorrupt(prev error, recipe string, err error) error {
	wrapped := zerr.With(zerr.Wrap(domain.ErrCorrupt, err.Error()), "recipe", recipe)
	if prev == nil {
		return wrapped
	}
	return fmt.Errorf("%w; %w", prev, wrapped)
}

// Token derives the version token for a document: a content hash of the raw
// bytes. Two documents with identical bytes carry identical tokens.
func Token(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// SortedKeys returns the snapshot's keys in wire-form order, for stable
// iteration.
func SortedKeys(snap domain.Snapshot) []domain.CacheKey {
	keys := make([]domain.CacheKey, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Staged accumulates the writes of one transaction over a document-based
// backend. Apply folds them into a snapshot copy.
type Staged struct {
	sets map[domain.CacheKey]domain.MetadataEntry
	dels map[domain.CacheKey]struct{}
}

// NewStaged returns an empty staging area.
func NewStaged() *Staged {
	return &Staged{
		sets: make(map[domain.CacheKey]domain.MetadataEntry),
		dels: make(map[domain.CacheKey]struct{}),
	}
}

// Set stages an upsert.
func (s *Staged) Set(key domain.CacheKey, entry domain.MetadataEntry) {
	delete(s.dels, key)
	s.sets[key] = entry.Clone()
}

// Delete stages a removal.
func (s *Staged) Delete(key domain.CacheKey) {
	delete(s.sets, key)
	s.dels[key] = struct{}{}
}

// Empty reports whether nothing was staged.
func (s *Staged) Empty() bool {
	return len(s.sets) == 0 && len(s.dels) == 0
}

// Apply folds the staged writes into a copy of base.
func (s *Staged) Apply(base domain.Snapshot) domain.Snapshot {
	next := base.Clone()
	for k := range s.dels {
		delete(next, k)
	}
	for k, v := range s.sets {
		next[k] = v
	}
	return next
}
