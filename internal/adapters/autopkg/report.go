package autopkg

import (
	"os"
	"path/filepath"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/zerr"
	"howett.net/plist"
)

// The tool's report is a plist of per-processor summaries. Only the
// downloader summary matters here; its rows name the artifacts a recipe
// produced and those drive the cache entries.
const downloaderSummary = "url_downloader_summary_result"

type runReport struct {
	SummaryResults map[string]summaryResult `plist:"summary_results"`
}

type summaryResult struct {
	DataRows []map[string]string `plist:"data_rows"`
}

// ParseReport extracts artifact metadata from a run report, keyed by item
// name (the artifact's base filename). File size, ETag and last-modified
// are captured from the artifact on disk when it is still present.
func ParseReport(data []byte) (map[string]domain.MetadataEntry, error) {
	var report runReport
	if _, err := plist.Unmarshal(data, &report); err != nil {
		return nil, zerr.Wrap(err, "failed to parse run report")
	}

	entries := make(map[string]domain.MetadataEntry)
	summary, ok := report.SummaryResults[downloaderSummary]
	if !ok {
		return entries, nil
	}

	for _, row := range summary.DataRows {
		path, ok := row["download_path"]
		if !ok || path == "" {
			continue
		}
		item := filepath.Base(path)
		entry := domain.MetadataEntry{
			domain.FieldFilePath: path,
		}
		if info, err := os.Stat(path); err == nil {
			entry[domain.FieldFileSize] = info.Size()
		}
		if etag, ok := artifactAttr(path, etagAttr); ok {
			entry[domain.FieldETag] = etag
		}
		if lastModified, ok := artifactAttr(path, lastModifiedAttr); ok {
			entry[domain.FieldLastModified] = lastModified
		}
		entries[item] = entry
	}
	return entries, nil
}
