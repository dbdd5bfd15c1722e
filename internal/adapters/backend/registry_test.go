package backend_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/ladle/internal/adapters/backend"
	"go.trai.ch/ladle/internal/core/domain"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"azure", "bolt", "gcs", "json", "s3", "sqlite"}, backend.Names())
}

func TestNew_KnownBackends(t *testing.T) {
	for _, name := range backend.Names() {
		store, err := backend.New(domain.BackendSettings{
			Name:   name,
			Path:   "cache.db",
			Bucket: "bucket",
			Object: "cache.json",
		})
		require.NoError(t, err, name)
		assert.NotNil(t, store, name)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := backend.New(domain.BackendSettings{Name: "redis"})
	require.True(t, errors.Is(err, domain.ErrUnknownBackend))
}
