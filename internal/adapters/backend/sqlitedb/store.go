// Package sqlitedb implements the sqlite cache backend over database/sql
// with the cgo-free modernc driver. One row per cache key; batches map onto
// real SQL transactions.
package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"iter"
	"strconv"
	"strings"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"

	_ "modernc.org/sqlite" // database/sql driver
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	recipe TEXT NOT NULL,
	item   TEXT NOT NULL,
	fields TEXT NOT NULL,
	PRIMARY KEY (recipe, item)
);
CREATE TABLE IF NOT EXISTS meta (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
);
INSERT OR IGNORE INTO meta (id, version) VALUES (1, 0);`

var _ ports.Backend = (*Store)(nil)

// Store is the sqlite backend.
type Store struct {
	path string
	db   *sql.DB
}

// New creates a sqlite backend at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Open opens the database and applies the schema.
func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	// A single writer at a time; serialize access in the driver rather
	// than surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
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

// Load reads every row into a snapshot. The token is the database's change
// counter, bumped on every commit. Rows whose fields column fails to decode
// are surfaced on the returned error, never dropped silently.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, string, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM meta WHERE id = 1").Scan(&version); err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}

	rows, err := s.db.QueryContext(ctx, "SELECT recipe, item, fields FROM entries")
	if err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	defer rows.Close()

	snap := make(domain.Snapshot)
	var corrupt error
	for rows.Next() {
		var recipe, item, fields string
		if err := rows.Scan(&recipe, &item, &fields); err != nil {
			return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
		}
		key := domain.NewCacheKey(domain.RecipeID(recipe), item)
		var entry domain.MetadataEntry
		if err := json.Unmarshal([]byte(fields), &entry); err != nil {
			werr := zerr.With(zerr.Wrap(domain.ErrCorrupt, err.Error()), "key", key.String())
			if corrupt == nil {
				corrupt = werr
			} else {
				corrupt = zerr.Wrap(corrupt, werr.Error())
			}
			continue
		}
		snap[key] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, "", zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return snap, strconv.FormatInt(version, 10), corrupt
}

// Get retrieves one entry.
func (s *Store) Get(ctx context.Context, key domain.CacheKey) (domain.MetadataEntry, error) {
	var fields string
	err := s.db.QueryRowContext(ctx,
		"SELECT fields FROM entries WHERE recipe = ? AND item = ?",
		string(key.Recipe), key.Item,
	).Scan(&fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, zerr.With(zerr.Wrap(domain.ErrEntryNotFound, "no such entry"), "key", key.String())
	}
	if err != nil {
		return nil, zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}

	var entry domain.MetadataEntry
	if err := json.Unmarshal([]byte(fields), &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCorrupt, err.Error()), "key", key.String())
	}
	return entry, nil
}

// Keys yields stored keys matching prefix in wire-form order. Each
// iteration runs a fresh query, so the sequence is restartable.
func (s *Store) Keys(ctx context.Context, prefix string) iter.Seq2[domain.CacheKey, error] {
	return func(yield func(domain.CacheKey, error) bool) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT recipe, item FROM entries ORDER BY recipe, item")
		if err != nil {
			yield(domain.CacheKey{}, zerr.Wrap(domain.ErrBackendUnavailable, err.Error()))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var recipe, item string
			if err := rows.Scan(&recipe, &item); err != nil {
				yield(domain.CacheKey{}, zerr.Wrap(domain.ErrBackendUnavailable, err.Error()))
				return
			}
			key := domain.NewCacheKey(domain.RecipeID(recipe), item)
			if !strings.HasPrefix(key.String(), prefix) {
				continue
			}
			if !yield(key, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.CacheKey{}, zerr.Wrap(domain.ErrBackendUnavailable, err.Error()))
		}
	}
}

// Begin opens a SQL transaction.
func (s *Store) Begin(ctx context.Context) (ports.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return &tx{sqlTx: sqlTx}, nil
}

type tx struct {
	sqlTx *sql.Tx
	err   error
	done  bool
}

func (t *tx) Set(key domain.CacheKey, entry domain.MetadataEntry) {
	if t.err != nil {
		return
	}
	fields, err := json.Marshal(entry)
	if err != nil {
		t.err = err
		return
	}
	_, t.err = t.sqlTx.Exec(
		`INSERT INTO entries (recipe, item, fields) VALUES (?, ?, ?)
		 ON CONFLICT (recipe, item) DO UPDATE SET fields = excluded.fields`,
		string(key.Recipe), key.Item, string(fields),
	)
}

func (t *tx) Delete(key domain.CacheKey) {
	if t.err != nil {
		return
	}
	_, t.err = t.sqlTx.Exec(
		"DELETE FROM entries WHERE recipe = ? AND item = ?",
		string(key.Recipe), key.Item,
	)
}

func (t *tx) Rollback() {
	if t.done {
		return
	}
	t.done = true
	_ = t.sqlTx.Rollback()
}

// Commit verifies the caller's change counter inside the transaction, bumps
// it and applies the batch. An empty token skips the check.
func (t *tx) Commit(_ context.Context, expectToken string) error {
	if t.done {
		return nil
	}
	t.done = true

	if t.err != nil {
		_ = t.sqlTx.Rollback()
		return zerr.Wrap(domain.ErrBackendUnavailable, t.err.Error())
	}

	var version int64
	if err := t.sqlTx.QueryRow("SELECT version FROM meta WHERE id = 1").Scan(&version); err != nil {
		_ = t.sqlTx.Rollback()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	if expectToken != "" && expectToken != strconv.FormatInt(version, 10) {
		_ = t.sqlTx.Rollback()
		return zerr.With(zerr.Wrap(domain.ErrConflict, "stale change counter"), "expected", expectToken)
	}
	if _, err := t.sqlTx.Exec("UPDATE meta SET version = version + 1 WHERE id = 1"); err != nil {
		_ = t.sqlTx.Rollback()
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}

	if err := t.sqlTx.Commit(); err != nil {
		return zerr.Wrap(domain.ErrBackendUnavailable, err.Error())
	}
	return nil
}
