package domain

import "go.trai.ch/zerr"

var (
	// ErrEntryNotFound is returned when a cache key has no entry.
	ErrEntryNotFound = zerr.New("cache entry not found")

	// ErrBackendUnavailable is returned when the cache backend cannot be
	// reached (network, auth, permission). It may be transient.
	ErrBackendUnavailable = zerr.New("cache backend unavailable")

	// ErrCorrupt is returned when a stored value fails to deserialize. It is
	// always surfaced, never silently dropped.
	ErrCorrupt = zerr.New("corrupt cache entry")

	// ErrConflict is returned when a conditional write detects that another
	// runner committed since the snapshot was loaded.
	ErrConflict = zerr.New("concurrent cache modification")

	// ErrUnknownBackend is returned when the configured backend name is not
	// in the registry.
	ErrUnknownBackend = zerr.New("unknown cache backend")

	// ErrInvalidConcurrency is returned for a non-positive concurrency limit.
	ErrInvalidConcurrency = zerr.New("concurrency limit must be positive")

	// ErrRecipeNotFound is returned when no recipe file matches an
	// identifier in the override or search directories.
	ErrRecipeNotFound = zerr.New("no recipe found")

	// ErrRecipeFormat is returned for a recipe file with an unsupported
	// extension or unparseable body.
	ErrRecipeFormat = zerr.New("invalid recipe format")

	// ErrNoRecipes is returned when a run is requested with an empty
	// recipe set.
	ErrNoRecipes = zerr.New("no recipes specified")

	// ErrRunFailed is returned when a run completes but at least one
	// recipe failed, timed out, or was halted.
	ErrRunFailed = zerr.New("run finished with failures")

	// ErrUntrusted is returned by trust verification when at least one
	// recipe chain is missing or outdated.
	ErrUntrusted = zerr.New("trust verification failed")
)
