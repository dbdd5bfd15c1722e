package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/ladle/cmd/ladle/commands"
	"go.trai.ch/ladle/internal/adapters/config"
	"go.trai.ch/ladle/internal/adapters/telemetry"
	"go.trai.ch/ladle/internal/app"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports/mocks"
)

type fixture struct {
	cli        *commands.CLI
	runner     *mocks.MockRunner
	out        *bytes.Buffer
	configPath string
}

// newFixture builds a CLI over a real app wired to a temp directory: a JSON
// cache backend, a trust store, and one Firefox recipe on the search path.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

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

	configPath := filepath.Join(dir, "ladle.yaml")
	configBody := fmt.Sprintf(`backend:
  name: json
  path: %s
recipes:
  searchDirs:
    - %s
trustPath: %s
`, filepath.Join(dir, "cache.json"), recipeDir, filepath.Join(dir, "trust.json"))
	require.NoError(t, os.WriteFile(configPath, []byte(configBody), 0o600))

	runner := mocks.NewMockRunner(ctrl)
	var out bytes.Buffer
	a := app.New(log, config.NewLoader(log), telemetry.NewNoOpTracer(),
		app.WithRunner(runner), app.WithOutput(&out))

	return &fixture{
		cli:        commands.New(a),
		runner:     runner,
		out:        &out,
		configPath: configPath,
	}
}

func TestRun_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cli.SetArgs([]string{"trust", "update", "-c", f.configPath, "Firefox.pkg.recipe"})
	require.NoError(t, f.cli.Execute(ctx))

	f.runner.EXPECT().Run(gomock.Any(), domain.RecipeID("Firefox.pkg.recipe")).
		Return(map[string]domain.MetadataEntry{}, nil)

	f.cli.SetArgs([]string{"run", "-c", f.configPath, "Firefox.pkg.recipe"})
	require.NoError(t, f.cli.Execute(ctx))
	assert.Contains(t, f.out.String(), "1 succeeded")
}

func TestRun_FailedRecipeReturnsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cli.SetArgs([]string{"trust", "update", "-c", f.configPath, "Firefox.pkg.recipe"})
	require.NoError(t, f.cli.Execute(ctx))

	f.runner.EXPECT().Run(gomock.Any(), domain.RecipeID("Firefox.pkg.recipe")).
		Return(nil, errors.New("download failed"))

	f.cli.SetArgs([]string{"run", "-c", f.configPath, "Firefox.pkg.recipe"})
	err := f.cli.Execute(ctx)
	require.True(t, errors.Is(err, domain.ErrRunFailed))
}

func TestRun_NoRecipesShowsHelp(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"run", "-c", f.configPath})
	require.NoError(t, f.cli.Execute(context.Background()))
}

func TestRun_RecipeListMergesAndDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	listPath := filepath.Join(t.TempDir(), "recipes.json")
	require.NoError(t, os.WriteFile(listPath,
		[]byte(`["Firefox.pkg.recipe", "Firefox.pkg.recipe"]`), 0o600))

	f.cli.SetArgs([]string{"trust", "update", "-c", f.configPath, "Firefox.pkg.recipe"})
	require.NoError(t, f.cli.Execute(ctx))

	// One invocation despite the identifier appearing three times.
	f.runner.EXPECT().Run(gomock.Any(), domain.RecipeID("Firefox.pkg.recipe")).
		Return(map[string]domain.MetadataEntry{}, nil).Times(1)

	f.cli.SetArgs([]string{"run", "-c", f.configPath,
		"--recipe-list", listPath, "Firefox.pkg.recipe"})
	require.NoError(t, f.cli.Execute(ctx))
}

func TestTrustVerify_UntrustedFails(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"trust", "verify", "-c", f.configPath, "Firefox.pkg.recipe"})
	err := f.cli.Execute(context.Background())
	require.True(t, errors.Is(err, domain.ErrUntrusted))
}

func TestCacheShow_Empty(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"cache", "show", "-c", f.configPath})
	require.NoError(t, f.cli.Execute(context.Background()))
}

func TestRoot_Help(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"--help"})
	require.NoError(t, f.cli.Execute(context.Background()))
}

func TestVersion(t *testing.T) {
	f := newFixture(t)

	f.cli.SetArgs([]string{"version"})
	require.NoError(t, f.cli.Execute(context.Background()))
}
