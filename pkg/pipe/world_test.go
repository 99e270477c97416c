package pipe

import (
	"math/rand/v2"
	"sort"

	"github.com/polisai/conduit/pkg/domain"
)

type testStorage struct {
	capacity int
	stored   map[string]int
	// shortfall is withheld from every real insert, breaking the simulate contract.
	shortfall int
}

func newTestStorage(capacity int) *testStorage {
	return &testStorage{capacity: capacity, stored: make(map[string]int)}
}

func (s *testStorage) total() int {
	sum := 0
	for _, n := range s.stored {
		sum += n
	}
	return sum
}

func (s *testStorage) TryInsert(stack domain.ItemStack, simulate bool) int {
	accepted := min(stack.Count, s.capacity-s.total())
	if accepted < 0 {
		accepted = 0
	}
	if !simulate {
		accepted = max(accepted-s.shortfall, 0)
		s.stored[stack.ID] += accepted
	}
	return accepted
}

func (s *testStorage) TryExtract(maxCount int, simulate bool) domain.ItemStack {
	keys := make([]string, 0, len(s.stored))
	for k, n := range s.stored {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 || maxCount <= 0 {
		return domain.ItemStack{}
	}
	sort.Strings(keys)
	taken := min(maxCount, s.stored[keys[0]])
	if !simulate {
		s.stored[keys[0]] -= taken
	}
	return domain.ItemStack{ID: keys[0], Count: taken}
}

type testWorld struct {
	time     uint64
	segments map[domain.Pos]*Segment
	storages map[domain.Pos]*testStorage
	powered  map[domain.Pos]bool
	dropped  []domain.ItemStack
	rng      *rand.Rand
}

func newTestWorld() *testWorld {
	return &testWorld{
		segments: make(map[domain.Pos]*Segment),
		storages: make(map[domain.Pos]*testStorage),
		powered:  make(map[domain.Pos]bool),
		rng:      rand.New(rand.NewPCG(1, 2)),
	}
}

func (w *testWorld) Time() uint64 { return w.time }

func (w *testWorld) Segment(pos domain.Pos) (*Segment, bool) {
	s, ok := w.segments[pos]
	return s, ok
}

func (w *testWorld) Storage(pos domain.Pos, _ domain.Direction) (Storage, bool) {
	s, ok := w.storages[pos]
	if !ok {
		return nil, false
	}
	return s, true
}

func (w *testWorld) BlockType(pos domain.Pos) string {
	if _, ok := w.storages[pos]; ok {
		return "chest"
	}
	return ""
}

func (w *testWorld) Powered(pos domain.Pos) bool { return w.powered[pos] }

func (w *testWorld) Drop(_ domain.Pos, stack domain.ItemStack) {
	w.dropped = append(w.dropped, stack)
}

func (w *testWorld) Rand() *rand.Rand { return w.rng }

func (w *testWorld) place(pos domain.Pos, p *Pipe) *Segment {
	seg := NewSegment(pos, p)
	w.segments[pos] = seg
	w.invalidateAround(pos)
	return seg
}

func (w *testWorld) invalidateAround(pos domain.Pos) {
	for _, d := range domain.Directions {
		if n, ok := w.segments[pos.Offset(d)]; ok {
			n.Invalidate(d.Opposite())
		}
	}
}

// step ticks every segment in position order.
func (w *testWorld) step() TickReport {
	w.time++
	positions := make([]domain.Pos, 0, len(w.segments))
	for pos := range w.segments {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })

	var report TickReport
	for _, pos := range positions {
		report.Add(w.segments[pos].Tick(w))
	}
	return report
}

// fixedModule answers numeric and acceptance hooks with fixed values.
type fixedModule struct {
	BaseModule
	key      string
	maxSpeed float64
	hasMax   bool
	drag     float64
	hasDrag  bool
	accept   Verdict
	plan     RoutePlan
	discard  bool
	refuse   domain.ConnectionType
}

func (m *fixedModule) Key() string { return m.key }

func (m *fixedModule) MaxSpeed(*Context) (float64, bool) { return m.maxSpeed, m.hasMax }

func (m *fixedModule) Drag(*Context) (float64, bool) { return m.drag, m.hasDrag }

func (m *fixedModule) AcceptFrom(*Context, *TravelingItem, domain.Direction) Verdict {
	return m.accept
}

func (m *fixedModule) Route(*Context, *TravelingItem, []domain.Direction) RoutePlan { return m.plan }

func (m *fixedModule) DiscardWhenNoRoute(*Context) bool { return m.discard }

func (m *fixedModule) AllowsConnection(_ *Context, _ domain.Direction, _ Neighbor, candidate domain.ConnectionType) bool {
	return m.refuse == domain.ConnectionNone || candidate != m.refuse
}

func frictionless(name string) *Pipe {
	return New(name, DefaultPhysics(), &fixedModule{key: "transport", drag: 0, hasDrag: true})
}
