package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/adapters/backend"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/ladle/internal/core/ports"
)

const NodeID graft.ID = "cache.manager"

func init() {
	graft.Register(graft.Node[*Manager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{backend.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Manager, error) {
			b, err := graft.Dep[ports.Backend](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewManager(b, log), nil
		},
	})
}
