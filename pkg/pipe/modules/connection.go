package modules

import (
	"slices"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// PipeOnly refuses storage connections; the segment only talks to peers.
type PipeOnly struct {
	pipe.BaseModule
}

// NewPipeOnly returns a pipe-only module.
func NewPipeOnly() *PipeOnly { return &PipeOnly{} }

func (p *PipeOnly) Key() string { return "pipe_only" }

func (p *PipeOnly) AllowsConnection(_ *pipe.Context, _ domain.Direction, _ pipe.Neighbor, candidate domain.ConnectionType) bool {
	return candidate != domain.ConnectionStorage
}

// BlockConnection restricts connections by neighbour identity. A neighbour in
// Deny never connects; when Allow is set only the neighbours it names do.
type BlockConnection struct {
	pipe.BaseModule
	Allow []string
	Deny  []string
}

// NewBlockConnection returns a module refusing the listed neighbour types.
func NewBlockConnection(deny ...string) *BlockConnection {
	return &BlockConnection{Deny: deny}
}

func (b *BlockConnection) Key() string { return "block_connection" }

func (b *BlockConnection) AllowsConnection(_ *pipe.Context, _ domain.Direction, neighbor pipe.Neighbor, _ domain.ConnectionType) bool {
	if slices.Contains(b.Deny, neighbor.Type) {
		return false
	}
	return len(b.Allow) == 0 || slices.Contains(b.Allow, neighbor.Type)
}
