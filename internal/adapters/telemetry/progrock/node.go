package progrock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/ladle/internal/core/ports"
)

// NodeID is the unique identifier for the progrock telemetry node.
const NodeID graft.ID = "adapter.telemetry.progrock"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			return New(), nil
		},
	})
}
