// Package trust computes and verifies digests over recipe parent chains.
package trust

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store persists trust records in a flat JSON file keyed by recipe.
type Store struct {
	path  string
	mu    sync.RWMutex
	cache map[string]domain.TrustRecord
}

// NewStore creates a trust record store backed by the file at path.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:  filepath.Clean(path),
		cache: make(map[string]domain.TrustRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to read trust store")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.cache); err != nil {
		return zerr.Wrap(err, "failed to unmarshal trust store")
	}
	return nil
}

func (s *Store) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.cache, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal trust store")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.Wrap(err, "failed to create directory for trust store")
	}

	// Write-to-temp then rename so a crash mid-write keeps the prior
	// records intact.
	tmp, err := os.CreateTemp(dir, ".trust-*.json")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp trust store")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to write trust store")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to sync trust store")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to close trust store")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to set trust store permissions")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return zerr.Wrap(err, "failed to replace trust store")
	}
	return nil
}

// Get retrieves the trust record for a recipe.
func (s *Store) Get(id domain.RecipeID) (domain.TrustRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.cache[string(id)]
	return record, ok
}

// Put stores a trust record and persists the store.
func (s *Store) Put(record domain.TrustRecord) error {
	s.mu.Lock()
	s.cache[string(record.Recipe)] = record
	s.mu.Unlock()
	return s.save()
}
