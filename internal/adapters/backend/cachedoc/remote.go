package cachedoc

import (
	"context"
	"iter"
	"strings"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

// TokenAbsent is the version token reported when the remote document does
// not exist yet. Committing against it demands that the document still be
// absent at write time.
const TokenAbsent = "absent"

// Remote is the minimal surface a cloud object store must provide: fetch
// the whole document with its version token, and conditionally replace it.
type Remote interface {
	// Open dials the provider SDK.
	Open(ctx context.Context) error

	// Fetch downloads the document. A missing object yields (nil,
	// TokenAbsent, nil). Transport failures surface as
	// domain.ErrBackendUnavailable.
	Fetch(ctx context.Context) (data []byte, token string, err error)

	// Put conditionally replaces the document. expectToken is the token
	// returned by the Fetch the write is based on; a mismatch detected by
	// the provider surfaces as domain.ErrConflict.
	Put(ctx context.Context, data []byte, expectToken string) error

	// Close releases SDK resources.
	Close() error
}

var _ ports.Backend = (*RemoteStore)(nil)

// RemoteStore adapts a Remote into the full backend contract, sharing the
// JSON document codec with the local-file variant.
type RemoteStore struct {
	remote Remote
}

// NewRemoteStore wraps remote.
func NewRemoteStore(remote Remote) *RemoteStore {
	return &RemoteStore{remote: remote}
}

// Open dials the provider.
func (s *RemoteStore) Open(ctx context.Context) error { return s.remote.Open(ctx) }

// Close releases provider resources.
func (s *RemoteStore) Close() error { return s.remote.Close() }

// Load fetches and decodes the document.
func (s *RemoteStore) Load(ctx context.Context) (domain.Snapshot, string, error) {
	data, token, err := s.remote.Fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	snap, corrupt := Decode(data)
	return snap, token, corrupt
}

// Get fetches the document and looks up one entry.
func (s *RemoteStore) Get(ctx context.Context, key domain.CacheKey) (domain.MetadataEntry, error) {
	snap, _, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := snap[key]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrEntryNotFound, "no such entry"), "key", key.String())
	}
	return entry, nil
}

// Keys yields the document's keys matching prefix in wire-form order. Each
// iteration fetches afresh, so the sequence is restartable.
func (s *RemoteStore) Keys(ctx context.Context, prefix string) iter.Seq2[domain.CacheKey, error] {
	return func(yield func(domain.CacheKey, error) bool) {
		snap, _, err := s.Load(ctx)
		if err != nil {
			yield(domain.CacheKey{}, err)
			return
		}
		for _, key := range SortedKeys(snap) {
			if !strings.HasPrefix(key.String(), prefix) {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
	}
}

// Begin opens a write transaction staged in memory.
func (s *RemoteStore) Begin(_ context.Context) (ports.Tx, error) {
	return &remoteTx{store: s, staged: NewStaged()}, nil
}

type remoteTx struct {
	store  *RemoteStore
	staged *Staged
	done   bool
}

func (t *remoteTx) Set(key domain.CacheKey, entry domain.MetadataEntry) { t.staged.Set(key, entry) }
func (t *remoteTx) Delete(key domain.CacheKey)                          { t.staged.Delete(key) }
func (t *remoteTx) Rollback()                                           { t.done = true }

// Commit fetches the current document, verifies the caller's token against
// it, folds in the staged writes and conditionally replaces the object. The
// provider re-checks the token server-side, so a racing committer between
// fetch and put still surfaces as a conflict.
func (t *remoteTx) Commit(ctx context.Context, expectToken string) error {
	if t.done {
		return nil
	}
	t.done = true

	data, current, err := t.store.remote.Fetch(ctx)
	if err != nil {
		return err
	}
	if expectToken != "" && expectToken != current {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrConflict, "stale token"), "expected", expectToken), "current", current)
	}

	base, corrupt := Decode(data)
	if corrupt != nil {
		return corrupt
	}

	out, err := Encode(t.staged.Apply(base))
	if err != nil {
		return err
	}
	return t.store.remote.Put(ctx, out, current)
}
