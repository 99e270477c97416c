package modules

import (
	"strings"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// Marking tags a segment with a colour. Two marked segments of different colours
// never connect, which keeps parallel lines apart.
type Marking struct {
	pipe.BaseModule
	// Default is the colour of segments that were never dyed.
	Default string
}

// NewMarking returns a marking module with an initial colour.
func NewMarking(color string) *Marking { return &Marking{Default: color} }

func (m *Marking) Key() string { return "marking" }

// Color returns the colour of the segment in ctx.
func (m *Marking) Color(ctx *pipe.Context) string {
	return colorOf(ctx.Segment(), m)
}

func colorOf(seg *pipe.Segment, m *Marking) string {
	return seg.State(m.Key()).String("color", m.Default)
}

func (m *Marking) AllowsConnection(ctx *pipe.Context, _ domain.Direction, neighbor pipe.Neighbor, candidate domain.ConnectionType) bool {
	if candidate != domain.ConnectionPeer || neighbor.Segment == nil {
		return true
	}
	mine := m.Color(ctx)
	if mine == "" {
		return true
	}
	module, ok := neighbor.Segment.Pipe().Module(m.Key())
	if !ok {
		return true
	}
	other, ok := module.(*Marking)
	if !ok {
		return true
	}
	theirs := colorOf(neighbor.Segment, other)
	return theirs == "" || theirs == mine
}

// OnUse handles "dye:<colour>"; "dye:none" clears the mark.
func (m *Marking) OnUse(ctx *pipe.Context, tool string) pipe.Interaction {
	color, ok := strings.CutPrefix(tool, "dye:")
	if !ok {
		return pipe.InteractionPass
	}
	if color == "none" {
		color = ""
	}
	if color == m.Color(ctx) {
		return pipe.InteractionFail
	}
	ctx.State(m).Set("color", color)
	return pipe.InteractionSuccess
}
