// Package jsonfile implements the local-file cache backend: a single JSON
// document on disk, committed via write-to-temp-then-rename so a crash mid
// write leaves the prior durable state intact.
package jsonfile

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/ladle/internal/adapters/backend/cachedoc"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Backend = (*Store)(nil)

// Store is the json backend.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a json backend rooted at path. The file is created lazily on
// first commit.
func New(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Open ensures the parent directory exists.
func (s *Store) Open(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error { return nil }

func (s *Store) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return data, nil
}

// Load reads the full document. A missing file yields an empty snapshot;
// the version token is a hash of the raw bytes.
func (s *Store) Load(_ context.Context) (domain.Snapshot, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, "", err
	}
	snap, corrupt := cachedoc.Decode(data)
	return snap, cachedoc.Token(data), corrupt
}

// Get looks up a single entry in the durable document.
func (s *Store) Get(ctx context.Context, key domain.CacheKey) (domain.MetadataEntry, error) {
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

// Keys yields the stored keys matching prefix in wire-form order. Each
// iteration re-reads the durable document, so the sequence is restartable.
func (s *Store) Keys(ctx context.Context, prefix string) iter.Seq2[domain.CacheKey, error] {
	return func(yield func(domain.CacheKey, error) bool) {
		snap, _, err := s.Load(ctx)
		if err != nil {
			yield(domain.CacheKey{}, err)
			return
		}
		for _, key := range cachedoc.SortedKeys(snap) {
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
func (s *Store) Begin(_ context.Context) (ports.Tx, error) {
	return &tx{store: s, staged: cachedoc.NewStaged()}, nil
}

type tx struct {
	store  *Store
	staged *cachedoc.Staged
	done   bool
}

func (t *tx) Set(key domain.CacheKey, entry domain.MetadataEntry) { t.staged.Set(key, entry) }
func (t *tx) Delete(key domain.CacheKey)                          { t.staged.Delete(key) }
func (t *tx) Rollback()                                           { t.done = true }

// Commit re-reads the durable document under the store lock, verifies the
// caller's token against it, folds in the staged writes and atomically
// replaces the file.
func (t *tx) Commit(_ context.Context, expectToken string) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	data, err := t.store.read()
	if err != nil {
		return err
	}
	if expectToken != "" && cachedoc.Token(data) != expectToken {
		return zerr.With(zerr.Wrap(domain.ErrConflict, "stale token"), "path", t.store.path)
	}

	// Refuse to rewrite a document with undecodable regions: committing
	// over it would drop them.
	base, corrupt := cachedoc.Decode(data)
	if corrupt != nil {
		return corrupt
	}

	out, err := cachedoc.Encode(t.staged.Apply(base))
	if err != nil {
		return err
	}
	return writeAtomic(t.store.path, out)
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over the destination.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}
