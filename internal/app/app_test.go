package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ladle/internal/adapters/config"
	"go.trai.ch/ladle/internal/adapters/telemetry"
	"go.trai.ch/ladle/internal/app"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func testSettings(t *testing.T) domain.Settings {
	t.Helper()
	dir := t.TempDir()

	recipeDir := filepath.Join(dir, "recipes")
	require.NoError(t, os.MkdirAll(recipeDir, 0o750))
	body := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Identifier</key>
	<string>com.example.pkg.Firefox</string>
</dict>
</plist>
`
	require.NoError(t, os.WriteFile(filepath.Join(recipeDir, "Firefox.pkg.recipe"), []byte(body), 0o600))

	settings := domain.DefaultSettings()
	settings.Backend.Path = filepath.Join(dir, "cache.json")
	settings.TrustPath = filepath.Join(dir, "trust.json")
	settings.SearchDirs = []string{recipeDir}
	settings.Timeout = 5 * time.Second
	return settings
}

func TestApp_RunTwice_SecondRunSkips(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := quietLogger(t)
	runner := mocks.NewMockRunner(ctrl)

	var out bytes.Buffer
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer(),
		app.WithRunner(runner), app.WithOutput(&out))

	settings := testSettings(t)
	id := domain.RecipeID("Firefox.pkg.recipe")
	ctx := context.Background()

	require.NoError(t, a.TrustUpdate(ctx, settings, []domain.RecipeID{id}))

	artifact := filepath.Join(t.TempDir(), "Firefox.dmg")
	delta := map[string]domain.MetadataEntry{
		"Firefox.dmg": {domain.FieldFilePath: artifact, domain.FieldFileSize: int64(16)},
	}
	// Exactly one invocation across both runs: the second is a cache hit.
	runner.EXPECT().Run(gomock.Any(), id).Return(delta, nil).Times(1)

	report, err := a.Run(ctx, settings, []domain.RecipeID{id})
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, domain.OutcomeSucceeded, report.Runs[0].Outcome)

	report, err = a.Run(ctx, settings, []domain.RecipeID{id})
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, domain.OutcomeSkipped, report.Runs[0].Outcome)

	// The placeholder must carry the recorded size.
	info, err := os.Stat(artifact)
	require.NoError(t, err)
	assert.Equal(t, int64(16), info.Size())

	assert.Contains(t, out.String(), "succeeded")
}

func TestApp_UntrustedRecipeFailsReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := quietLogger(t)
	runner := mocks.NewMockRunner(ctrl)

	var out bytes.Buffer
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer(),
		app.WithRunner(runner), app.WithOutput(&out))

	settings := testSettings(t)
	report, err := a.Run(context.Background(), settings,
		[]domain.RecipeID{"Firefox.pkg.recipe"})
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, domain.OutcomeHalted, report.Runs[0].Outcome)
}

func TestApp_CommitFailureStillRendersReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := quietLogger(t)
	runner := mocks.NewMockRunner(ctrl)

	var out bytes.Buffer
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer(),
		app.WithRunner(runner), app.WithOutput(&out))

	settings := testSettings(t)
	id := domain.RecipeID("Firefox.pkg.recipe")
	ctx := context.Background()

	require.NoError(t, a.TrustUpdate(ctx, settings, []domain.RecipeID{id}))

	// An undecodable region makes the backend refuse the commit while the
	// run itself still executes.
	doc := `{
  "Firefox.pkg.recipe": {"Firefox.dmg": {"file_path": "/cache/Firefox.dmg"}},
  "Broken.pkg.recipe": 42
}`
	require.NoError(t, os.WriteFile(settings.Backend.Path, []byte(doc), 0o600))

	runner.EXPECT().Run(gomock.Any(), id).Return(map[string]domain.MetadataEntry{
		"Firefox.dmg": {domain.FieldFilePath: "/tmp/Firefox.dmg", domain.FieldFileSize: int64(4)},
	}, nil)

	report, err := a.Run(ctx, settings, []domain.RecipeID{id})
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrCorrupt))

	// The summary reached the operator despite the failed commit.
	require.Len(t, report.Runs, 1)
	assert.Contains(t, out.String(), "succeeded")
}

func TestApp_TrustVerifyStates(t *testing.T) {
	log := quietLogger(t)
	var out bytes.Buffer
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer(), app.WithOutput(&out))

	settings := testSettings(t)
	id := domain.RecipeID("Firefox.pkg.recipe")
	ctx := context.Background()

	states, err := a.TrustVerify(ctx, settings, []domain.RecipeID{id})
	require.NoError(t, err)
	assert.Equal(t, domain.TrustMissing, states[id])

	require.NoError(t, a.TrustUpdate(ctx, settings, []domain.RecipeID{id}))

	states, err = a.TrustVerify(ctx, settings, []domain.RecipeID{id})
	require.NoError(t, err)
	assert.Equal(t, domain.TrustTrusted, states[id])
}

func TestApp_CacheShowAndClear(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := quietLogger(t)
	runner := mocks.NewMockRunner(ctrl)

	var out bytes.Buffer
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer(),
		app.WithRunner(runner), app.WithOutput(&out))

	settings := testSettings(t)
	id := domain.RecipeID("Firefox.pkg.recipe")
	ctx := context.Background()

	require.NoError(t, a.TrustUpdate(ctx, settings, []domain.RecipeID{id}))
	runner.EXPECT().Run(gomock.Any(), id).Return(map[string]domain.MetadataEntry{
		"Firefox.dmg": {domain.FieldFilePath: "/tmp/Firefox.dmg", domain.FieldFileSize: int64(4)},
	}, nil)
	_, err := a.Run(ctx, settings, []domain.RecipeID{id})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, a.CacheShow(ctx, settings, ""))
	assert.Contains(t, out.String(), "Firefox.pkg.recipe/Firefox.dmg")

	require.NoError(t, a.CacheClear(ctx, settings))

	out.Reset()
	require.NoError(t, a.CacheShow(ctx, settings, ""))
	assert.NotContains(t, out.String(), "Firefox.pkg.recipe")
}

func TestApp_UnknownBackend(t *testing.T) {
	log := quietLogger(t)
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer())

	settings := testSettings(t)
	settings.Backend.Name = "redis"

	_, err := a.Run(context.Background(), settings, []domain.RecipeID{"Firefox.pkg.recipe"})
	require.True(t, errors.Is(err, domain.ErrUnknownBackend))
}

func TestApp_NoRecipes(t *testing.T) {
	log := quietLogger(t)
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer())

	_, err := a.Run(context.Background(), testSettings(t), nil)
	require.True(t, errors.Is(err, domain.ErrNoRecipes))
}
