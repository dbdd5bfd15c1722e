// Package backend selects and constructs cache backend variants.
package backend

import (
	"sort"

	"go.trai.ch/ladle/internal/adapters/backend/azure"
	"go.trai.ch/ladle/internal/adapters/backend/boltdb"
	"go.trai.ch/ladle/internal/adapters/backend/gcs"
	"go.trai.ch/ladle/internal/adapters/backend/jsonfile"
	"go.trai.ch/ladle/internal/adapters/backend/s3"
	"go.trai.ch/ladle/internal/adapters/backend/sqlitedb"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
)

type factory func(cfg domain.BackendSettings) ports.Backend

// The registry is fixed at compile time: names map to concrete
// implementations, resolved at startup rather than via reflection.
var registry = map[string]factory{
	"json": func(cfg domain.BackendSettings) ports.Backend {
		return jsonfile.New(cfg.Path)
	},
	"bolt": func(cfg domain.BackendSettings) ports.Backend {
		return boltdb.New(cfg.Path)
	},
	"sqlite": func(cfg domain.BackendSettings) ports.Backend {
		return sqlitedb.New(cfg.Path)
	},
	"s3": func(cfg domain.BackendSettings) ports.Backend {
		return s3.New(cfg.Bucket, cfg.Object)
	},
	"azure": func(cfg domain.BackendSettings) ports.Backend {
		return azure.New(cfg.Account, cfg.Bucket, cfg.Object)
	},
	"gcs": func(cfg domain.BackendSettings) ports.Backend {
		return gcs.New(cfg.Bucket, cfg.Object)
	},
}

// Names lists the registered backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the backend named by cfg.Name. An unknown name is a
// configuration error.
func New(cfg domain.BackendSettings) (ports.Backend, error) {
	f, ok := registry[cfg.Name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownBackend, "not a registered backend"), "name", cfg.Name)
	}
	return f(cfg), nil
}
