package retry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/ladle/internal/adapters/backend/retry"
	"go.trai.ch/ladle/internal/core/domain"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return domain.ErrBackendUnavailable
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), func() error {
		calls++
		return domain.ErrBackendUnavailable
	})
	require.True(t, errors.Is(err, domain.ErrBackendUnavailable))
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorsStopImmediately(t *testing.T) {
	for _, sentinel := range []error{
		domain.ErrConflict,
		domain.ErrCorrupt,
		domain.ErrEntryNotFound,
	} {
		calls := 0
		err := retry.Do(context.Background(), func() error {
			calls++
			return sentinel
		})
		require.True(t, errors.Is(err, sentinel))
		assert.Equal(t, 1, calls, sentinel.Error())
	}
}
