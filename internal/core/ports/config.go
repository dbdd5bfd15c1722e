package ports

import "go.trai.ch/ladle/internal/core/domain"

// ConfigLoader loads the runtime settings.
//
//go:generate go run go.uber.org/mock/mockgen -source=config.go -destination=mocks/mock_config.go -package=mocks
type ConfigLoader interface {
	// Load reads the settings file at path. A missing file yields the
	// defaults rather than an error.
	Load(path string) (domain.Settings, error)
}
