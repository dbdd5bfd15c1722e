package backend

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/core/domain"
	"go.trai.ch/ladle/internal/core/ports"
)

const NodeID graft.ID = "adapter.cache_backend"

func init() {
	graft.Register(graft.Node[ports.Backend]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Backend, error) {
			return New(domain.DefaultSettings().Backend)
		},
	})
}
