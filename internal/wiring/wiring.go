// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/ladle/internal/adapters/autopkg"
	_ "go.trai.ch/ladle/internal/adapters/backend"
	_ "go.trai.ch/ladle/internal/adapters/config"
	_ "go.trai.ch/ladle/internal/adapters/logger"
	_ "go.trai.ch/ladle/internal/adapters/recipes"
	_ "go.trai.ch/ladle/internal/adapters/telemetry"
	_ "go.trai.ch/ladle/internal/adapters/telemetry/progrock"
	// Register app, cache, and engine nodes.
	_ "go.trai.ch/ladle/internal/app"
	_ "go.trai.ch/ladle/internal/cache"
	_ "go.trai.ch/ladle/internal/engine/orchestrator"
	_ "go.trai.ch/ladle/internal/engine/trust"
)
