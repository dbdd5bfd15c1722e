package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// BackendSettings selects and parameterizes the cache backend. Cloud
// credentials never appear here; each SDK reads its default chain.
type BackendSettings struct {
	// Name selects the variant: json, bolt, sqlite, s3, azure, gcs.
	Name string
	// Path is the local file for the json, bolt and sqlite variants.
	Path string
	// Bucket is the bucket (s3, gcs) or container (azure) name.
	Bucket string
	// Object is the object/blob key holding the cache document.
	Object string
	// Account is the Azure storage account name.
	Account string
}

// Settings is the resolved runtime configuration after merging the config
// file with command-line flags.
type Settings struct {
	// Concurrency bounds the worker pool.
	Concurrency int
	// Timeout limits each individual recipe run.
	Timeout time.Duration
	// ColdStart permits proceeding with an empty working set when the
	// backend cannot be reached at load time.
	ColdStart bool
	// Prune removes entries for keys not seen during the run.
	Prune bool
	// Backend selects the cache storage variant.
	Backend BackendSettings
	// OverrideDirs are searched for recipe files before SearchDirs.
	OverrideDirs []string
	// SearchDirs are the repository directories holding recipe files.
	SearchDirs []string
	// TrustPath is the local file holding trust records.
	TrustPath string
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		Concurrency: 4,
		Timeout:     30 * time.Minute,
		Backend: BackendSettings{
			Name: "json",
			Path: "metadata_cache.json",
		},
		TrustPath: "trust_info.json",
	}
}

// Validate rejects settings no run can proceed with.
func (s Settings) Validate() error {
	if s.Concurrency < 1 {
		return zerr.With(zerr.Wrap(ErrInvalidConcurrency, "concurrency must be positive"), "concurrency", s.Concurrency)
	}
	if s.Timeout <= 0 {
		return zerr.With(zerr.New("timeout must be positive"), "timeout", s.Timeout.String())
	}
	return nil
}
