package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ladle/internal/adapters/config"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	return config.NewLoader(log)
}

func TestLoad_Success(t *testing.T) {
	content := `
concurrency: 8
timeout: 45m
coldStart: true
backend:
  name: sqlite
  path: /var/lib/ladle/cache.db
recipes:
  overrideDirs: ["overrides"]
  searchDirs: ["repos/recipes", "repos/extra"]
trustPath: /var/lib/ladle/trust.json
`
	path := filepath.Join(t.TempDir(), "ladle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	settings, err := newLoader(t).Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, settings.Concurrency)
	assert.Equal(t, 45*time.Minute, settings.Timeout)
	assert.True(t, settings.ColdStart)
	assert.False(t, settings.Prune)
	assert.Equal(t, "sqlite", settings.Backend.Name)
	assert.Equal(t, "/var/lib/ladle/cache.db", settings.Backend.Path)
	assert.Equal(t, []string{"overrides"}, settings.OverrideDirs)
	assert.Equal(t, []string{"repos/recipes", "repos/extra"}, settings.SearchDirs)
	assert.Equal(t, "/var/lib/ladle/trust.json", settings.TrustPath)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	settings, err := newLoader(t).Load(filepath.Join(t.TempDir(), "ladle.yaml"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), settings)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  name: bolt\n"), 0o600))

	settings, err := newLoader(t).Load(path)
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, "bolt", settings.Backend.Name)
	assert.Equal(t, defaults.Concurrency, settings.Concurrency)
	assert.Equal(t, defaults.Timeout, settings.Timeout)
	assert.Equal(t, defaults.TrustPath, settings.TrustPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: [nope"), 0o600))

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: soon\n"), 0o600))

	_, err := newLoader(t).Load(path)
	require.Error(t, err)
}

func TestLoad_NegativeConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: -2\n"), 0o600))

	_, err := newLoader(t).Load(path)
	require.True(t, errors.Is(err, domain.ErrInvalidConcurrency))
}
