package cache_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ladle/internal/adapters/backend/jsonfile"
	"go.trai.ch/ladle/internal/cache"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func key(recipe, item string) domain.CacheKey {
	return domain.NewCacheKey(domain.RecipeID(recipe), item)
}

func TestManager_LoadAndLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)

	k := key("Firefox.pkg.recipe", "Firefox.dmg")
	snap := domain.Snapshot{k: {domain.FieldETag: "v1"}}
	backend.EXPECT().Load(gomock.Any()).Return(snap, "tok-1", nil)

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))

	entry, ok := m.Lookup(k)
	require.True(t, ok)
	assert.Equal(t, "v1", entry[domain.FieldETag])

	_, ok = m.Lookup(key("Other.recipe", "x"))
	assert.False(t, ok)
}

func TestManager_LoadUnavailableAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Load(gomock.Any()).Return(nil, "", domain.ErrBackendUnavailable).Times(3)

	m := cache.NewManager(backend, newLogger(t))
	err := m.Load(context.Background(), false)
	require.True(t, errors.Is(err, domain.ErrBackendUnavailable))
}

func TestManager_LoadUnavailableColdStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Load(gomock.Any()).Return(nil, "", domain.ErrBackendUnavailable).Times(3)

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), true))

	require.Len(t, m.Anomalies(), 1)
	assert.Contains(t, m.Anomalies()[0], "started cold")
}

func TestManager_LoadCorruptKeepsGoodEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)

	k := key("Firefox.pkg.recipe", "Firefox.dmg")
	partial := domain.Snapshot{k: {domain.FieldETag: "v1"}}
	backend.EXPECT().Load(gomock.Any()).
		Return(partial, "tok-1", zerr.Wrap(domain.ErrCorrupt, "entry Broken.recipe unreadable"))

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))

	_, ok := m.Lookup(k)
	assert.True(t, ok)
	require.Len(t, m.Anomalies(), 1)
	assert.Contains(t, m.Anomalies()[0], "corrupt")
}

func TestManager_CommitNothingChangedSkipsWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Load(gomock.Any()).Return(domain.Snapshot{}, "tok-1", nil)
	// No Begin expectation: a clean run must not write.

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))
	require.NoError(t, m.Commit(context.Background()))
}

func TestManager_CommitWritesJournal(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	tx := mocks.NewMockTx(ctrl)

	k := key("Firefox.pkg.recipe", "Firefox.dmg")
	backend.EXPECT().Load(gomock.Any()).Return(domain.Snapshot{}, "tok-1", nil)
	backend.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Set(k, gomock.Any())
	tx.EXPECT().Commit(gomock.Any(), "tok-1").Return(nil)

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))
	m.Record(k, domain.MetadataEntry{domain.FieldETag: "v2"})
	require.NoError(t, m.Commit(context.Background()))
}

func TestManager_CommitConflictReplaysAndRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)

	mine := key("Firefox.pkg.recipe", "Firefox.dmg")
	theirs := key("Chrome.pkg.recipe", "Chrome.dmg")

	backend.EXPECT().Load(gomock.Any()).Return(domain.Snapshot{}, "tok-1", nil)

	first := mocks.NewMockTx(ctrl)
	backend.EXPECT().Begin(gomock.Any()).Return(first, nil)
	first.EXPECT().Set(mine, gomock.Any())
	first.EXPECT().Commit(gomock.Any(), "tok-1").Return(domain.ErrConflict)
	first.EXPECT().Rollback()

	// The other runner's entry is now durable; the reload must keep it.
	backend.EXPECT().Load(gomock.Any()).
		Return(domain.Snapshot{theirs: {domain.FieldETag: "other"}}, "tok-2", nil)

	second := mocks.NewMockTx(ctrl)
	backend.EXPECT().Begin(gomock.Any()).Return(second, nil)
	second.EXPECT().Set(mine, gomock.Any())
	second.EXPECT().Commit(gomock.Any(), "tok-2").Return(nil)

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))
	m.Record(mine, domain.MetadataEntry{domain.FieldETag: "v2"})
	require.NoError(t, m.Commit(context.Background()))

	entry, ok := m.Lookup(theirs)
	require.True(t, ok)
	assert.Equal(t, "other", entry[domain.FieldETag])
}

func TestManager_CommitAbsorbsBackendConflict(t *testing.T) {
	// A durable store, not a mock: the conflict the backend raises must
	// still satisfy errors.Is(err, domain.ErrConflict) once it reaches
	// the manager, or the replay path never fires.
	path := filepath.Join(t.TempDir(), "cache.json")
	ctx := context.Background()

	store := jsonfile.New(path)
	require.NoError(t, store.Open(ctx))
	m := cache.NewManager(store, newLogger(t))
	require.NoError(t, m.Load(ctx, false))

	mine := key("Firefox.pkg.recipe", "Firefox.dmg")
	m.Record(mine, domain.MetadataEntry{domain.FieldETag: "v2"})

	// Another runner commits between our load and commit.
	theirs := key("Chrome.pkg.recipe", "Chrome.dmg")
	other := jsonfile.New(path)
	require.NoError(t, other.Open(ctx))
	_, otherToken, err := other.Load(ctx)
	require.NoError(t, err)
	tx, err := other.Begin(ctx)
	require.NoError(t, err)
	tx.Set(theirs, domain.MetadataEntry{domain.FieldETag: "other"})
	require.NoError(t, tx.Commit(ctx, otherToken))

	require.NoError(t, m.Commit(ctx))

	// Both writers' entries survive in the durable document.
	final := jsonfile.New(path)
	require.NoError(t, final.Open(ctx))
	snap, _, err := final.Load(ctx)
	require.NoError(t, err)

	require.Contains(t, snap, mine)
	require.Contains(t, snap, theirs)
	assert.Equal(t, "other", snap[theirs][domain.FieldETag])
}

func TestManager_CommitConflictExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)

	k := key("Firefox.pkg.recipe", "Firefox.dmg")
	backend.EXPECT().Load(gomock.Any()).Return(domain.Snapshot{}, "tok-1", nil)

	for i := 0; i < 3; i++ {
		tx := mocks.NewMockTx(ctrl)
		backend.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().Set(k, gomock.Any())
		tx.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(domain.ErrConflict)
		tx.EXPECT().Rollback()
	}
	backend.EXPECT().Load(gomock.Any()).Return(domain.Snapshot{}, "tok-x", nil).Times(3)

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))
	m.Record(k, domain.MetadataEntry{domain.FieldETag: "v2"})

	err := m.Commit(context.Background())
	require.True(t, errors.Is(err, domain.ErrConflict))
}

func TestManager_PruneRemovesUnseenOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)

	kept := key("Firefox.pkg.recipe", "Firefox.dmg")
	written := key("Chrome.pkg.recipe", "Chrome.dmg")
	stale := key("Retired.pkg.recipe", "Retired.dmg")
	snap := domain.Snapshot{
		kept:  {domain.FieldETag: "a"},
		stale: {domain.FieldETag: "b"},
	}
	backend.EXPECT().Load(gomock.Any()).Return(snap, "tok-1", nil)

	tx := mocks.NewMockTx(ctrl)
	backend.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Set(written, gomock.Any())
	tx.EXPECT().Delete(stale)
	tx.EXPECT().Commit(gomock.Any(), "tok-1").Return(nil)

	m := cache.NewManager(backend, newLogger(t))
	require.NoError(t, m.Load(context.Background(), false))

	m.MarkSeen(kept)
	m.Record(written, domain.MetadataEntry{domain.FieldETag: "c"})
	assert.Equal(t, 1, m.Prune())

	_, ok := m.Lookup(stale)
	assert.False(t, ok)
	_, ok = m.Lookup(kept)
	assert.True(t, ok)

	require.NoError(t, m.Commit(context.Background()))
}
