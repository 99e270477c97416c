package pipe

import (
	"math/rand/v2"

	"github.com/polisai/conduit/pkg/domain"
)

// Context binds a segment to the world for the duration of one hook invocation.
type Context struct {
	world  World
	seg    *Segment
	report *TickReport
}

// NewContext creates a context for seg.
func NewContext(w World, seg *Segment) *Context {
	return &Context{world: w, seg: seg}
}

func newTickContext(w World, seg *Segment, report *TickReport) *Context {
	return &Context{world: w, seg: seg, report: report}
}

// World returns the host world.
func (c *Context) World() World { return c.world }

// Segment returns the segment the hook runs for.
func (c *Context) Segment() *Segment { return c.seg }

// Pipe returns the segment type.
func (c *Context) Pipe() *Pipe { return c.seg.pipe }

// Pos returns the segment position.
func (c *Context) Pos() domain.Pos { return c.seg.pos }

// Time returns the current tick.
func (c *Context) Time() uint64 { return c.world.Time() }

// Physics returns the pipe constants.
func (c *Context) Physics() Physics { return c.seg.pipe.physics }

// Rand returns the world random source.
func (c *Context) Rand() *rand.Rand { return c.world.Rand() }

// State returns m's persistent state block for this segment.
func (c *Context) State(m Module) State { return c.seg.State(m.Key()) }

// Energy returns the segment energy buffer.
func (c *Context) Energy() *EnergyBuffer { return c.seg.energy }

// Powered reports a redstone signal into the segment.
func (c *Context) Powered() bool { return c.world.Powered(c.seg.pos) }

// Items returns the items inside the segment.
func (c *Context) Items() []*TravelingItem { return c.seg.Items() }

// Connection returns the cached classification of dir.
func (c *Context) Connection(dir domain.Direction) domain.ConnectionType {
	return c.seg.Connection(c.world, dir)
}

// Connections lists the faces with a non-NONE classification in canonical order.
func (c *Context) Connections() []domain.Direction {
	var out []domain.Direction
	for _, d := range domain.Directions {
		if c.Connection(d) != domain.ConnectionNone {
			out = append(out, d)
		}
	}
	return out
}

// ConnectionsOf lists the faces classified as kind.
func (c *Context) ConnectionsOf(kind domain.ConnectionType) []domain.Direction {
	var out []domain.Direction
	for _, d := range domain.Directions {
		if c.Connection(d) == kind {
			out = append(out, d)
		}
	}
	return out
}

// NeighborSegment returns the segment across dir.
func (c *Context) NeighborSegment(dir domain.Direction) (*Segment, bool) {
	return c.world.Segment(c.seg.pos.Offset(dir))
}

// NeighborIsSegment reports whether a segment sits across dir.
func (c *Context) NeighborIsSegment(dir domain.Direction) bool {
	_, ok := c.NeighborSegment(dir)
	return ok
}

// Neighbor describes the occupant across dir.
func (c *Context) Neighbor(dir domain.Direction) Neighbor {
	return neighborAt(c.world, c.seg.pos.Offset(dir))
}

// Storage returns the storage endpoint across dir, probed from the facing side.
func (c *Context) Storage(dir domain.Direction) (Storage, bool) {
	return c.world.Storage(c.seg.pos.Offset(dir), dir.Opposite())
}

// CanHandOff reports whether item could leave through dir right now.
func (c *Context) CanHandOff(dir domain.Direction, item *TravelingItem) bool {
	switch c.Connection(dir) {
	case domain.ConnectionPeer:
		next, ok := c.NeighborSegment(dir)
		if !ok {
			return false
		}
		return next.HasRoom(item.Stack.Count) && next.pipe.AcceptsFrom(NewContext(c.world, next), item, dir.Opposite())
	case domain.ConnectionStorage:
		st, ok := c.Storage(dir)
		return ok && st.TryInsert(item.Stack, true) >= item.Stack.Count
	default:
		return false
	}
}

// AddItem puts a new item into the segment, bypassing acceptance hooks.
func (c *Context) AddItem(item *TravelingItem) {
	c.seg.AddItem(item)
	if c.report != nil {
		c.report.Injected++
	}
}

// InvalidateConnections forces reclassification of every face on next query.
func (c *Context) InvalidateConnections() {
	c.seg.InvalidateAll()
}

func neighborAt(w World, pos domain.Pos) Neighbor {
	if seg, ok := w.Segment(pos); ok {
		return Neighbor{Pos: pos, Type: seg.pipe.name, Segment: seg}
	}
	return Neighbor{Pos: pos, Type: w.BlockType(pos)}
}
