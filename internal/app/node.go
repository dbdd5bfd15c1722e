package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/adapters/config"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/ladle/internal/adapters/telemetry"
	"go.trai.ch/ladle/internal/core/ports"
)

// NodeID is the unique identifier for the main App Graft node.
const NodeID graft.ID = "app.main"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			config.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			return New(log, loader, tracer), nil
		},
	})
}
