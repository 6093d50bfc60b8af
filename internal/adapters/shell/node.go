package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/rebundle/internal/adapters/logger"
	"go.trai.ch/rebundle/internal/core/ports"
)

// NodeID is the graft identifier of the command runner.
const NodeID graft.ID = "adapter.shell_runner"

func init() {
	graft.Register(graft.Node[*Runner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Runner, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(log), nil
		},
	})
}
