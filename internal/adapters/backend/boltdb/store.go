// Package boltdb implements the bolt cache backend: a single-file bbolt
// database with one bucket keyed by the cache key wire form, values JSON
// encoded per entry.
package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"time"

	"go.etcd.io/bbolt"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

var bucketEntries = []byte("entries")

var _ ports.Backend = (*Store)(nil)

// Store is the bolt backend.
type Store struct {
	path string
	db   *bbolt.DB
}

// New creates a bolt backend at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Open opens the database file and creates the entries bucket.
func (s *Store) Open(_ context.Context) error {
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	s.db = db
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func decodeEntry(key, value []byte) (domain.MetadataEntry, error) {
	var entry domain.MetadataEntry
	if err := json.Unmarshal(value, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorrupt, err.Error()), "key", string(key))
	}
	return entry, nil
}

// Load reads every entry into a snapshot. Corrupt values are surfaced on
// the returned error while well-formed entries are still loaded. The file
// lock makes concurrent committers impossible, so no version token is used.
func (s *Store) Load(_ context.Context) (domain.Snapshot, string, error) {
	snap := make(domain.Snapshot)
	var corrupt error
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(k, v)
			if err != nil {
				corrupt = joinErr(corrupt, err)
				return nil
			}
			snap[domain.ParseCacheKey(string(k))] = entry
			return nil
		})
	})
	if err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return snap, "", corrupt
}

func joinErr(prev, next error) error {
	if prev == nil {
		return next
	}
	return zerr.Wrap(prev, next.Error())
}

// Get retrieves one entry.
func (s *Store) Get(_ context.Context, key domain.CacheKey) (domain.MetadataEntry, error) {
	var entry domain.MetadataEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketEntries).Get([]byte(key.String()))
		if value == nil {
			return zerr.With(zerr.Wrap(domain.ErrEntryNotFound, "no such entry"), "key", key.String())
		}
		var derr error
		entry, derr = decodeEntry([]byte(key.String()), value)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Keys yields stored keys matching prefix in byte order. Each iteration
// opens a fresh read transaction, so the sequence is restartable.
func (s *Store) Keys(_ context.Context, prefix string) iter.Seq2[domain.CacheKey, error] {
	return func(yield func(domain.CacheKey, error) bool) {
		stopped := false
		err := s.db.View(func(tx *bbolt.Tx) error {
			c := tx.Bucket(bucketEntries).Cursor()
			p := []byte(prefix)
			for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
				if !yield(domain.ParseCacheKey(string(k)), nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(domain.CacheKey{}, zerr.Wrap(domain.ErrBackendUnavailable, err.Error()))
		}
	}
}

// Begin opens a write transaction. Writes are staged in memory and applied
// inside a single bbolt update at commit.
func (s *Store) Begin(_ context.Context) (ports.Tx, error) {
	return &tx{store: s, sets: make(map[string]domain.MetadataEntry), dels: make(map[string]struct{})}, nil
}

type tx struct {
	store *Store
	sets  map[string]domain.MetadataEntry
	dels  map[string]struct{}
	done  bool
}

func (t *tx) Set(key domain.CacheKey, entry domain.MetadataEntry) {
	k := key.String()
	delete(t.dels, k)
	t.sets[k] = entry.Clone()
}

func (t *tx) Delete(key domain.CacheKey) {
	k := key.String()
	delete(t.sets, k)
	t.dels[k] = struct{}{}
}

func (t *tx) Rollback() { t.done = true }

func (t *tx) Commit(_ context.Context, _ string) error {
	if t.done {
		return nil
	}
	t.done = true

	err := t.store.db.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(bucketEntries)
		for k := range t.dels {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for k, entry := range t.sets {
			value, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(k), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}
