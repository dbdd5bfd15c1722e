package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/ladle/internal/core/domain"
)

func TestOutcome_Classification(t *testing.T) {
	terminal := []domain.Outcome{
		domain.OutcomeSkipped, domain.OutcomeSucceeded,
		domain.OutcomeFailed, domain.OutcomeHalted, domain.OutcomeTimedOut,
	}
	for _, o := range terminal {
		assert.True(t, o.Terminal(), string(o))
	}
	for _, o := range []domain.Outcome{
		domain.OutcomePending, domain.OutcomeTrustCheck,
		domain.OutcomeCacheCheck, domain.OutcomeRunning,
	} {
		assert.False(t, o.Terminal(), string(o))
		assert.False(t, o.Bad(), string(o))
	}

	assert.True(t, domain.OutcomeFailed.Bad())
	assert.True(t, domain.OutcomeHalted.Bad())
	assert.True(t, domain.OutcomeTimedOut.Bad())
	assert.False(t, domain.OutcomeSucceeded.Bad())
	assert.False(t, domain.OutcomeSkipped.Bad())
}

func TestRunReport_FailedAndCounts(t *testing.T) {
	report := domain.RunReport{Runs: []domain.RecipeRun{
		{Outcome: domain.OutcomeSucceeded},
		{Outcome: domain.OutcomeSkipped},
		{Outcome: domain.OutcomeSkipped},
	}}
	assert.False(t, report.Failed())

	counts := report.Counts()
	assert.Equal(t, 1, counts[domain.OutcomeSucceeded])
	assert.Equal(t, 2, counts[domain.OutcomeSkipped])

	report.Runs = append(report.Runs, domain.RecipeRun{Outcome: domain.OutcomeTimedOut})
	assert.True(t, report.Failed())
}

func TestRecipeRun_Duration(t *testing.T) {
	started := time.Now()
	run := domain.RecipeRun{Started: started, Finished: started.Add(3 * time.Second)}
	assert.Equal(t, 3*time.Second, run.Duration())
}

func TestSettings_Validate(t *testing.T) {
	require.NoError(t, domain.DefaultSettings().Validate())

	s := domain.DefaultSettings()
	s.Concurrency = 0
	require.ErrorIs(t, s.Validate(), domain.ErrInvalidConcurrency)

	s = domain.DefaultSettings()
	s.Timeout = 0
	require.Error(t, s.Validate())
}
