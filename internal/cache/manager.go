// Package cache owns the in-memory working copy of the metadata cache for
// the duration of a run.
package cache

import (
	"context"
	"errors"
	"sync"

	"go.trai.ch/ladle/internal/adapters/backend/retry"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

// commitAttempts bounds the reload-and-retry loop on commit conflicts.
const commitAttempts = 3

// Manager mediates between workers and the backend. Workers only ever
// touch the working set; the backend is read once at load time and written
// once at commit time.
type Manager struct {
	backend ports.Backend
	log     ports.Logger

	mu        sync.Mutex
	working   domain.Snapshot
	token     string
	deltas    map[domain.CacheKey]domain.MetadataEntry
	deleted   map[domain.CacheKey]bool
	seen      map[domain.CacheKey]bool
	anomalies []string
	loaded    bool
}

// NewManager creates a Manager over the given backend.
func NewManager(backend ports.Backend, log ports.Logger) *Manager {
	return &Manager{
		backend: backend,
		log:     log,
		working: domain.Snapshot{},
		deltas:  map[domain.CacheKey]domain.MetadataEntry{},
		deleted: map[domain.CacheKey]bool{},
		seen:    map[domain.CacheKey]bool{},
	}
}

// Load reads the full snapshot into the working set. An unreachable
// backend aborts the run unless coldStart permits proceeding empty, and
// that fallback is always logged and reported as an anomaly. Undecodable
// entries are kept out of the working set but recorded as anomalies.
func (m *Manager) Load(ctx context.Context, coldStart bool) error {
	var snap domain.Snapshot
	var token string
	err := retry.Do(ctx, func() error {
		var loadErr error
		snap, token, loadErr = m.backend.Load(ctx)
		return loadErr
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCorrupt):
		// Partial snapshot: good entries survive, the rest is surfaced.
		m.anomalies = append(m.anomalies, "corrupt cache regions skipped at load: "+err.Error())
		m.log.Warn("cache contains corrupt regions", "error", err.Error())
	case errors.Is(err, domain.ErrBackendUnavailable) && coldStart:
		m.anomalies = append(m.anomalies, "backend unavailable at load, started cold: "+err.Error())
		m.log.Warn("backend unavailable, starting with empty cache", "error", err.Error())
		snap, token = domain.Snapshot{}, ""
	default:
		return zerr.Wrap(err, "failed to load cache")
	}

	if snap == nil {
		snap = domain.Snapshot{}
	}
	m.working = snap
	m.token = token
	m.loaded = true
	m.log.Debug("cache loaded", "entries", len(snap))
	return nil
}

// Lookup reads one entry from the working set.
func (m *Manager) Lookup(key domain.CacheKey) (domain.MetadataEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.working[key]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// EntriesFor returns every working-set entry belonging to one recipe,
// keyed by item name.
func (m *Manager) EntriesFor(recipe domain.RecipeID) map[string]domain.MetadataEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.MetadataEntry)
	for key, entry := range m.working {
		if key.Recipe == recipe {
			out[key.Item] = entry.Clone()
		}
	}
	return out
}

// Record upserts an entry into the working set and journals the write so a
// conflict retry can replay it over a fresh snapshot.
func (m *Manager) Record(key domain.CacheKey, entry domain.MetadataEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := entry.Clone()
	m.working[key] = clone
	m.deltas[key] = clone
	delete(m.deleted, key)
	m.seen[key] = true
}

// MarkSeen protects a key from pruning without writing to it.
func (m *Manager) MarkSeen(key domain.CacheKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = true
}

// Prune removes every working-set key not seen during this run. The
// deletions join the journal so they survive a conflict retry.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for key := range m.working {
		if m.seen[key] {
			continue
		}
		delete(m.working, key)
		delete(m.deltas, key)
		m.deleted[key] = true
		pruned++
	}
	if pruned > 0 {
		m.log.Info("pruned unseen cache entries", "count", pruned)
	}
	return pruned
}

// Anomalies lists the run's cache anomalies for the report.
func (m *Manager) Anomalies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.anomalies))
	copy(out, m.anomalies)
	return out
}

// Commit flushes the journal through the backend's transaction contract.
// Nothing changed means nothing written, so a load-then-commit run leaves
// the durable content untouched. A conflict means another runner committed
// since load: reload, replay the journal over the fresh snapshot and try
// again, bounded.
func (m *Manager) Commit(ctx context.Context) error {
	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return zerr.New("commit before load")
	}
	if len(m.deltas) == 0 && len(m.deleted) == 0 {
		m.mu.Unlock()
		m.log.Debug("no cache changes to commit")
		return nil
	}
	m.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		err := m.commitOnce(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrConflict) {
			return zerr.Wrap(err, "failed to commit cache")
		}

		m.log.Warn("commit conflict, reloading and replaying", "attempt", attempt)
		if reloadErr := m.reload(ctx); reloadErr != nil {
			return zerr.Wrap(reloadErr, "failed to reload after conflict")
		}
	}
	return zerr.With(zerr.Wrap(lastErr, "commit conflicts exhausted"), "attempts", commitAttempts)
}

func (m *Manager) commitOnce(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	sets := make(map[domain.CacheKey]domain.MetadataEntry, len(m.deltas))
	for key, entry := range m.deltas {
		sets[key] = entry.Clone()
	}
	dels := make([]domain.CacheKey, 0, len(m.deleted))
	for key := range m.deleted {
		dels = append(dels, key)
	}
	m.mu.Unlock()

	// A transaction is never reused across attempts; each retry stages
	// the journal afresh.
	err := retry.Do(ctx, func() error {
		tx, err := m.backend.Begin(ctx)
		if err != nil {
			return err
		}
		for key, entry := range sets {
			tx.Set(key, entry)
		}
		for _, key := range dels {
			tx.Delete(key)
		}
		if err := tx.Commit(ctx, token); err != nil {
			tx.Rollback()
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Info("cache committed", "writes", len(sets), "deletes", len(dels))
	return nil
}

// reload refreshes the snapshot and token after a conflict, replaying the
// journal so this run's writes land on top of the other runner's.
func (m *Manager) reload(ctx context.Context) error {
	snap, token, err := m.backend.Load(ctx)
	if err != nil && !errors.Is(err, domain.ErrCorrupt) {
		return err
	}
	if snap == nil {
		snap = domain.Snapshot{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.deltas {
		snap[key] = entry.Clone()
	}
	for key := range m.deleted {
		delete(snap, key)
	}
	m.working = snap
	m.token = token
	return nil
}
