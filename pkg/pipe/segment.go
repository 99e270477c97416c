package pipe

import (
	"maps"
	"slices"

	"github.com/polisai/conduit/pkg/domain"
)

// Segment is the mutable state of one placed segment.
type Segment struct {
	pos   domain.Pos
	pipe  *Pipe
	items []*TravelingItem

	connections [6]domain.ConnectionType
	cached      [6]bool
	mask        uint8
	maskKnown   bool

	state  map[string]State
	energy *EnergyBuffer
}

// NewSegment places a segment of type p at pos.
func NewSegment(pos domain.Pos, p *Pipe) *Segment {
	return &Segment{
		pos:    pos,
		pipe:   p,
		state:  make(map[string]State),
		energy: NewEnergyBuffer(p.EnergyCapacity()),
	}
}

// Pos returns the segment position.
func (s *Segment) Pos() domain.Pos { return s.pos }

// Pipe returns the segment type.
func (s *Segment) Pipe() *Pipe { return s.pipe }

// Energy returns the local energy buffer.
func (s *Segment) Energy() *EnergyBuffer { return s.energy }

// Items returns the items currently inside the segment.
func (s *Segment) Items() []*TravelingItem { return slices.Clone(s.items) }

// ItemCount sums the stack counts of every item inside.
func (s *Segment) ItemCount() int {
	total := 0
	for _, it := range s.items {
		total += it.Stack.Count
	}
	return total
}

// HasRoom reports whether count more units fit.
func (s *Segment) HasRoom(count int) bool {
	return s.ItemCount()+count <= s.pipe.physics.Capacity
}

// State returns the state block for a module key, creating it on first use.
func (s *Segment) State(key string) State {
	st, ok := s.state[key]
	if !ok {
		st = make(State)
		s.state[key] = st
	}
	return st
}

// ModuleStates returns a copy of every non-empty state block.
func (s *Segment) ModuleStates() map[string]State {
	out := make(map[string]State, len(s.state))
	for key, st := range s.state {
		if len(st) > 0 {
			out[key] = st.Clone()
		}
	}
	return out
}

// SetModuleStates replaces every state block. Used when restoring snapshots.
func (s *Segment) SetModuleStates(states map[string]State) {
	s.state = make(map[string]State, len(states))
	for key, st := range states {
		s.state[key] = maps.Clone(st)
	}
}

// AddItem places an item in the segment without consulting acceptance hooks.
func (s *Segment) AddItem(it *TravelingItem) {
	s.items = append(s.items, it)
}

// SetItems replaces the item list. Used when restoring snapshots.
func (s *Segment) SetItems(items []*TravelingItem) {
	s.items = slices.Clone(items)
}

func (s *Segment) removeItem(it *TravelingItem) bool {
	for i, candidate := range s.items {
		if candidate == it {
			s.items = slices.Delete(s.items, i, i+1)
			return true
		}
	}
	return false
}

// Invalidate drops the cached classification of one face.
func (s *Segment) Invalidate(dir domain.Direction) {
	s.cached[dir] = false
}

// InvalidateAll drops every cached classification.
func (s *Segment) InvalidateAll() {
	s.cached = [6]bool{}
}

// CachedConnection returns the cached classification of dir, if any.
func (s *Segment) CachedConnection(dir domain.Direction) (domain.ConnectionType, bool) {
	return s.connections[dir], s.cached[dir]
}

// ConnectionsMask returns the mask of non-NONE faces seen by the last tick.
func (s *Segment) ConnectionsMask() (uint8, bool) {
	return s.mask, s.maskKnown
}

// RestoreConnections seeds the classification cache and the last seen mask.
// Faces not marked cached are classified again on the next query.
func (s *Segment) RestoreConnections(conns [6]domain.ConnectionType, cached [6]bool, mask uint8) {
	for d := range conns {
		if cached[d] {
			s.connections[d] = conns[d]
		} else {
			s.connections[d] = domain.ConnectionNone
		}
	}
	s.cached = cached
	s.mask = mask
	s.maskKnown = true
}
