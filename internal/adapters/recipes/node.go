package recipes

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
)

const (
	ResolverNodeID     graft.ID = "adapter.chain_resolver"
	MaterializerNodeID graft.ID = "adapter.materializer"
)

func init() {
	graft.Register(graft.Node[ports.ChainResolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ChainResolver, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			settings := domain.DefaultSettings()
			return NewResolver(settings.OverrideDirs, settings.SearchDirs, log), nil
		},
	})

	graft.Register(graft.Node[ports.Materializer]{
		ID:        MaterializerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.Materializer, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewMaterializer(log), nil
		},
	})
}
