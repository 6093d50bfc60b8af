// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/rebundle/internal/adapters/cas"
	_ "go.trai.ch/rebundle/internal/adapters/config"
	_ "go.trai.ch/rebundle/internal/adapters/fs"
	_ "go.trai.ch/rebundle/internal/adapters/logger"
	_ "go.trai.ch/rebundle/internal/adapters/shell"
	_ "go.trai.ch/rebundle/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/rebundle/internal/app"
	_ "go.trai.ch/rebundle/internal/engine/scheduler"
)
