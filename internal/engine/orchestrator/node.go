package orchestrator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/adapters/autopkg"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/ladle/internal/adapters/recipes"
	"go.trai.ch/ladle/internal/adapters/telemetry"
	"go.trai.ch/ladle/internal/cache"
	"go.trai.ch/ladle/internal/core/ports"
	"go.trai.ch/ladle/internal/engine/trust"
)

const NodeID graft.ID = "engine.orchestrator"

func init() {
	graft.Register(graft.Node[*Orchestrator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			cache.NodeID,
			trust.NodeID,
			autopkg.NodeID,
			recipes.MaterializerNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Orchestrator, error) {
			manager, err := graft.Dep[*cache.Manager](ctx)
			if err != nil {
				return nil, err
			}
			verifier, err := graft.Dep[*trust.Verifier](ctx)
			if err != nil {
				return nil, err
			}
			runner, err := graft.Dep[ports.Runner](ctx)
			if err != nil {
				return nil, err
			}
			materializer, err := graft.Dep[ports.Materializer](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(manager, verifier, runner, materializer, tracer, log), nil
		},
	})
}
