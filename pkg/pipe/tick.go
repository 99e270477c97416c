package pipe

import (
	"slices"

	"github.com/polisai/conduit/pkg/domain"
)

// TickReport counts what happened to items during one or more segment ticks.
type TickReport struct {
	Moved     int
	Delivered int
	HandedOff int
	Voided    int
	Dropped   int
	Stalled   int
	Injected  int
	Split     int
}

// Add accumulates other into r.
func (r *TickReport) Add(other TickReport) {
	r.Moved += other.Moved
	r.Delivered += other.Delivered
	r.HandedOff += other.HandedOff
	r.Voided += other.Voided
	r.Dropped += other.Dropped
	r.Stalled += other.Stalled
	r.Injected += other.Injected
	r.Split += other.Split
}

// Tick advances the segment by one simulation step.
//
// Connections are refreshed first (firing OnConnectionsChanged when the set of
// connected faces moved), then module tick hooks run, then every item moves. An
// item crossing the center is routed; an item reaching the junction is handed to
// its target or held at 1.0 and routed again next tick.
func (s *Segment) Tick(w World) TickReport {
	var report TickReport
	ctx := newTickContext(w, s, &report)

	s.refreshConnections(ctx)
	s.pipe.OnTick(ctx)

	motion := s.pipe.Motion(ctx)
	dt := s.pipe.physics.DT
	center := s.pipe.physics.Center
	now := w.Time()

	for _, it := range slices.Clone(s.items) {
		if it.entered {
			if it.enteredAt == now {
				continue
			}
			it.entered = false
		}

		it.Step(motion, dt)
		report.Moved++

		if !it.Routed && it.Progress >= center {
			if s.route(ctx, it, &report) {
				continue
			}
		}
		if it.AtJunction() {
			s.junction(ctx, it, &report)
		}
	}
	return report
}

// Inject inserts a stack from outside the network at progress 0, heading in dir.
func (s *Segment) Inject(w World, stack domain.ItemStack, dir domain.Direction) *TravelingItem {
	ctx := NewContext(w, s)
	it := NewTravelingItem(stack, dir, s.pipe.TargetSpeed(ctx))
	s.AddItem(it)
	return it
}

// Wrench forwards a wrench interaction to the module chain.
func (s *Segment) Wrench(w World) Interaction {
	result := s.pipe.OnWrench(NewContext(w, s))
	if result == InteractionSuccess {
		s.InvalidateAll()
	}
	return result
}

// Use forwards a tool or item use to the module chain.
func (s *Segment) Use(w World, tool string) Interaction {
	result := s.pipe.OnUse(NewContext(w, s), tool)
	if result == InteractionSuccess {
		s.InvalidateAll()
	}
	return result
}

// RandomTick runs the modules' random tick hooks.
func (s *Segment) RandomTick(w World) {
	s.pipe.OnRandomTick(NewContext(w, s))
}

// ComparatorOutput returns the redstone comparator level of the segment.
func (s *Segment) ComparatorOutput(w World) int {
	return s.pipe.ComparatorOutput(NewContext(w, s))
}

func (s *Segment) refreshConnections(ctx *Context) {
	var mask uint8
	connected := make([]domain.Direction, 0, len(domain.Directions))
	for _, d := range domain.Directions {
		if ctx.Connection(d) != domain.ConnectionNone {
			mask |= d.Bit()
			connected = append(connected, d)
		}
	}
	if s.maskKnown && mask == s.mask {
		return
	}
	s.mask = mask
	s.maskKnown = true
	s.pipe.OnConnectionsChanged(ctx, connected)
}

// candidates lists the connected faces an item may leave through. The arrival
// face is excluded unless it is the only connection.
func (s *Segment) candidates(ctx *Context, it *TravelingItem) []domain.Direction {
	var out []domain.Direction
	connected := 0
	for _, d := range domain.Directions {
		if ctx.Connection(d) == domain.ConnectionNone {
			continue
		}
		connected++
		if d != it.From {
			out = append(out, d)
		}
	}
	if len(out) == 0 && connected == 1 {
		out = append(out, it.From)
	}
	return out
}

// route asks the pipe for a plan and applies it. It returns true when the item left the network.
func (s *Segment) route(ctx *Context, it *TravelingItem, report *TickReport) bool {
	candidates := s.candidates(ctx, it)
	plan := s.pipe.Route(ctx, it, candidates)

	switch plan.Kind {
	case RouteDiscard:
		s.removeItem(it)
		report.Voided++
		return true
	case RouteDrop:
		s.removeItem(it)
		ctx.world.Drop(s.pos, it.Stack)
		report.Dropped++
		return true
	case RouteSplit:
		s.split(ctx, it, plan.Directions, report)
		return false
	case RouteReroute:
		it.Direction = s.pick(ctx, it, plan.Directions)
		it.Routed = true
		return false
	}

	if len(candidates) > 0 {
		it.Direction = s.pick(ctx, it, candidates)
		it.Routed = true
		return false
	}
	if s.pipe.DiscardWhenNoRoute(ctx) {
		s.removeItem(it)
		report.Voided++
		return true
	}
	return false
}

// pick keeps the item going straight when possible, otherwise hashes among dirs.
func (s *Segment) pick(ctx *Context, it *TravelingItem, dirs []domain.Direction) domain.Direction {
	if len(dirs) == 1 {
		return dirs[0]
	}
	if slices.Contains(dirs, it.From.Opposite()) {
		return it.From.Opposite()
	}
	h := mixHash(s.pos, ctx.Time(), uint64(it.From))
	return dirs[h%uint64(len(dirs))]
}

// split divides the stack across dirs, remainder to the first direction.
func (s *Segment) split(ctx *Context, it *TravelingItem, dirs []domain.Direction, report *TickReport) {
	count := it.Stack.Count
	if count < len(dirs) {
		dirs = dirs[:max(count, 1)]
	}
	share := count / len(dirs)
	rest := count % len(dirs)

	it.Stack.Count = share + rest
	it.Direction = dirs[0]
	it.Routed = true
	for _, d := range dirs[1:] {
		part := it.Clone()
		part.Stack.Count = share
		part.Direction = d
		s.items = append(s.items, part)
		report.Split++
	}
}

func (s *Segment) junction(ctx *Context, it *TravelingItem, report *TickReport) {
	if !it.Routed {
		if s.route(ctx, it, report) {
			return
		}
	}
	if it.Routed && s.handOff(ctx, it, report) {
		return
	}
	it.Progress = 1
	it.Routed = false
	report.Stalled++
}

// handOff moves the item across its direction. Source removal and destination
// insertion happen together or not at all.
func (s *Segment) handOff(ctx *Context, it *TravelingItem, report *TickReport) bool {
	dir := it.Direction
	switch ctx.Connection(dir) {
	case domain.ConnectionPeer:
		next, ok := ctx.NeighborSegment(dir)
		if !ok || !next.HasRoom(it.Stack.Count) {
			return false
		}
		if !next.pipe.AcceptsFrom(NewContext(ctx.world, next), it, dir.Opposite()) {
			return false
		}
		s.removeItem(it)
		it.Progress = 0
		it.Routed = false
		it.From = dir.Opposite()
		it.entered = true
		it.enteredAt = ctx.Time()
		next.items = append(next.items, it)
		report.HandedOff++
		return true

	case domain.ConnectionStorage:
		st, ok := ctx.Storage(dir)
		if !ok || st.TryInsert(it.Stack, true) < it.Stack.Count {
			return false
		}
		s.removeItem(it)
		report.Delivered++
		// A storage that accepts less than it simulated breaks its contract.
		// The item never stays in the pipe partially, so the rest is spilled.
		if accepted := st.TryInsert(it.Stack, false); accepted < it.Stack.Count {
			ctx.world.Drop(s.pos, domain.ItemStack{ID: it.Stack.ID, Count: it.Stack.Count - accepted})
			report.Dropped++
		}
		return true
	}
	return false
}
