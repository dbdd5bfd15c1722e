// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"iter"

	"go.trai.ch/ladle/internal/core/domain"
)

// Backend is the uniform contract every cache backend variant implements: a
// durable key/value store for recipe metadata. Side effects are confined to
// the backing store; no variant may keep state only in memory across
// process restarts.
//
//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks
type Backend interface {
	// Open prepares the backing store (file handles, SDK clients).
	Open(ctx context.Context) error

	// Close releases resources held by the backend.
	Close() error

	// Load reads the full durable snapshot and returns it together with an
	// opaque version token to be presented at commit time. Backends without
	// conditional-write support return an empty token.
	Load(ctx context.Context) (domain.Snapshot, string, error)

	// Get retrieves a single entry. Returns domain.ErrEntryNotFound when the
	// key has no entry.
	Get(ctx context.Context, key domain.CacheKey) (domain.MetadataEntry, error)

	// Keys returns a lazy, finite, restartable sequence of keys whose wire
	// form starts with prefix. Iteration errors are yielded in-band.
	Keys(ctx context.Context, prefix string) iter.Seq2[domain.CacheKey, error]

	// Begin opens a write transaction. All keys staged in the transaction
	// become visible atomically at Commit, or not at all.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a scoped write transaction against a backend.
type Tx interface {
	// Set stages an upsert.
	Set(key domain.CacheKey, entry domain.MetadataEntry)

	// Delete stages a removal.
	Delete(key domain.CacheKey)

	// Commit atomically applies the staged writes. Backends with
	// conditional-write support compare expectToken against the current
	// durable state and return domain.ErrConflict on mismatch.
	Commit(ctx context.Context, expectToken string) error

	// Rollback discards the staged writes. Safe to call after Commit.
	Rollback()
}
