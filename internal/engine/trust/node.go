package trust

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/adapters/logger"
	"go.trai.ch/ladle/internal/adapters/recipes"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
)

const NodeID graft.ID = "engine.trust_verifier"

func init() {
	graft.Register(graft.Node[*Verifier]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{recipes.ResolverNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Verifier, error) {
			resolver, err := graft.Dep[ports.ChainResolver](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			store, err := NewStore(domain.DefaultSettings().TrustPath)
			if err != nil {
				return nil, err
			}
			return NewVerifier(resolver, store, log), nil
		},
	})
}
