// Package config provides the configuration loader for ladle.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	log ports.Logger
}

// NewLoader creates a new Loader instance.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads the configuration file at path. A missing file is not an
// error; defaults apply so a bare checkout runs without any setup.
func (l *Loader) Load(path string) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Debug("no config file, using defaults", "path", path)
			return settings, nil
		}
		return domain.Settings{}, zerr.Wrap(err, "failed to read config file")
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.Settings{}, zerr.Wrap(err, "failed to parse config file")
	}

	if file.Concurrency != 0 {
		settings.Concurrency = file.Concurrency
	}
	if file.Timeout != "" {
		d, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return domain.Settings{}, zerr.With(zerr.Wrap(err, "invalid timeout"), "timeout", file.Timeout)
		}
		settings.Timeout = d
	}
	settings.ColdStart = file.ColdStart
	settings.Prune = file.Prune

	if file.Backend.Name != "" {
		settings.Backend.Name = file.Backend.Name
	}
	if file.Backend.Path != "" {
		settings.Backend.Path = file.Backend.Path
	}
	settings.Backend.Bucket = file.Backend.Bucket
	settings.Backend.Object = file.Backend.Object
	settings.Backend.Account = file.Backend.Account

	settings.OverrideDirs = file.Recipes.OverrideDirs
	settings.SearchDirs = file.Recipes.SearchDirs
	if file.TrustPath != "" {
		settings.TrustPath = file.TrustPath
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}
