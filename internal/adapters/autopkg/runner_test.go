package autopkg_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ladle/internal/adapters/autopkg"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func reportFixture(downloadPath string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>summary_results</key>
	<dict>
		<key>url_downloader_summary_result</key>
		<dict>
			<key>data_rows</key>
			<array>
				<dict>
					<key>download_path</key>
					<string>%s</string>
				</dict>
			</array>
		</dict>
	</dict>
</dict>
</plist>
`, downloadPath)
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

func TestRunner_Run_ParsesReport(t *testing.T) {
	tmpDir := t.TempDir()
	artifact := filepath.Join(tmpDir, "Firefox.dmg")
	require.NoError(t, os.WriteFile(artifact, []byte("binary payload"), 0o600))

	fixture := filepath.Join(tmpDir, "fixture.plist")
	require.NoError(t, os.WriteFile(fixture, []byte(reportFixture(artifact)), 0o600))

	// $4 is the --report-plist value appended by the runner.
	runner := autopkg.NewRunner(quietLogger(t),
		autopkg.WithCommand("sh", "-c", `cp `+fixture+` "$4"`))

	entries, err := runner.Run(context.Background(), domain.RecipeID("Firefox.pkg.recipe"))
	require.NoError(t, err)

	require.Contains(t, entries, "Firefox.dmg")
	entry := entries["Firefox.dmg"]
	assert.Equal(t, artifact, entry[domain.FieldFilePath])
	assert.Equal(t, int64(14), entry[domain.FieldFileSize])
}

func TestRunner_Run_NoReportMeansNoArtifacts(t *testing.T) {
	runner := autopkg.NewRunner(quietLogger(t),
		autopkg.WithCommand("sh", "-c", "true"))

	entries, err := runner.Run(context.Background(), domain.RecipeID("Firefox.pkg.recipe"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunner_Run_NonzeroExit(t *testing.T) {
	runner := autopkg.NewRunner(quietLogger(t),
		autopkg.WithCommand("sh", "-c", "echo boom >&2; exit 3"))

	_, err := runner.Run(context.Background(), domain.RecipeID("Broken.pkg.recipe"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipe run failed")
}

func TestRunner_Run_Timeout(t *testing.T) {
	runner := autopkg.NewRunner(quietLogger(t),
		autopkg.WithCommand("sh", "-c", "sleep 5"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runner.Run(ctx, domain.RecipeID("Slow.pkg.recipe"))
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseReport_IgnoresUnknownSummaries(t *testing.T) {
	data := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>summary_results</key>
	<dict>
		<key>pkg_creator_summary_result</key>
		<dict>
			<key>data_rows</key>
			<array>
				<dict>
					<key>pkg_path</key>
					<string>/tmp/out.pkg</string>
				</dict>
			</array>
		</dict>
	</dict>
</dict>
</plist>
`
	entries, err := autopkg.ParseReport([]byte(data))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseReport_Malformed(t *testing.T) {
	_, err := autopkg.ParseReport([]byte("not a plist"))
	require.Error(t, err)
}
