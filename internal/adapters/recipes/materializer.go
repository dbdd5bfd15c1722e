package recipes

import (
	"os"
	"path/filepath"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Materializer = (*Materializer)(nil)

// Materializer recreates placeholder artifacts for cache-skipped recipes.
// The placeholder carries the recorded size so the tool's freshness checks
// observe the same file facts as after a real download.
type Materializer struct {
	log ports.Logger
}

// NewMaterializer creates a Materializer.
func NewMaterializer(log ports.Logger) *Materializer {
	return &Materializer{log: log}
}

// Materialize ensures the entry's artifact path exists with the recorded
// size. Entries without a file path are metadata-only and need nothing.
func (m *Materializer) Materialize(entry domain.MetadataEntry) error {
	path, ok := entry.StringField(domain.FieldFilePath)
	if !ok || path == "" {
		return nil
	}
	size, _ := entry.IntField(domain.FieldFileSize)

	if info, err := os.Stat(path); err == nil && info.Size() == size {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return zerr.Wrap(err, "failed to create artifact directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // path comes from the cache entry
	if err != nil {
		return zerr.Wrap(err, "failed to create placeholder")
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return zerr.Wrap(err, "failed to size placeholder")
	}
	if err := f.Close(); err != nil {
		return zerr.Wrap(err, "failed to close placeholder")
	}
	m.log.Debug("materialized placeholder", "path", path, "size", size)
	return nil
}
