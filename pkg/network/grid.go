package network

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// InventoryBlockType is the block identity reported for inventories.
const InventoryBlockType = "conduit:inventory"

// Spill records a stack dropped into the world.
type Spill struct {
	Pos   domain.Pos
	Stack domain.ItemStack
	Tick  uint64
}

// Grid is an in-memory world of segments, inventories and plain blocks.
type Grid struct {
	seed        uint64
	time        uint64
	segments    map[domain.Pos]*pipe.Segment
	inventories map[domain.Pos]*Inventory
	blocks      map[domain.Pos]string
	powered     map[domain.Pos]bool
	options     map[domain.Pos]Options
	chargers    map[domain.Pos]int64
	spills      []Spill
	pcg         *rand.PCG
	rng         *rand.Rand
}

// NewGrid creates an empty grid whose random source is seeded with seed.
func NewGrid(seed uint64) *Grid {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Grid{
		seed:        seed,
		segments:    make(map[domain.Pos]*pipe.Segment),
		inventories: make(map[domain.Pos]*Inventory),
		blocks:      make(map[domain.Pos]string),
		powered:     make(map[domain.Pos]bool),
		options:     make(map[domain.Pos]Options),
		chargers:    make(map[domain.Pos]int64),
		pcg:         pcg,
		rng:         rand.New(pcg),
	}
}

// Time returns the current tick.
func (g *Grid) Time() uint64 { return g.time }

// Seed returns the random seed.
func (g *Grid) Seed() uint64 { return g.seed }

// Segment returns the segment at pos.
func (g *Grid) Segment(pos domain.Pos) (*pipe.Segment, bool) {
	seg, ok := g.segments[pos]
	return seg, ok
}

// Storage returns the inventory at pos if it is exposed on face.
func (g *Grid) Storage(pos domain.Pos, face domain.Direction) (pipe.Storage, bool) {
	inv, ok := g.inventories[pos]
	if !ok || !inv.ExposedOn(face) {
		return nil, false
	}
	return inv, true
}

// BlockType identifies the occupant of pos.
func (g *Grid) BlockType(pos domain.Pos) string {
	if seg, ok := g.segments[pos]; ok {
		return seg.Pipe().Name()
	}
	if _, ok := g.inventories[pos]; ok {
		return InventoryBlockType
	}
	return g.blocks[pos]
}

// Powered reports a redstone signal into pos.
func (g *Grid) Powered(pos domain.Pos) bool { return g.powered[pos] }

// Drop records a spilled stack.
func (g *Grid) Drop(pos domain.Pos, stack domain.ItemStack) {
	g.spills = append(g.spills, Spill{Pos: pos, Stack: stack, Tick: g.time})
}

// Rand returns the grid random source.
func (g *Grid) Rand() *rand.Rand { return g.rng }

// Spills returns every stack dropped so far.
func (g *Grid) Spills() []Spill { return slices.Clone(g.spills) }

func (g *Grid) occupied(pos domain.Pos) bool {
	if _, ok := g.segments[pos]; ok {
		return true
	}
	if _, ok := g.inventories[pos]; ok {
		return true
	}
	_, ok := g.blocks[pos]
	return ok
}

// PlaceSegment puts a new segment of type p at pos.
func (g *Grid) PlaceSegment(pos domain.Pos, p *pipe.Pipe) (*pipe.Segment, error) {
	return g.placeSegment(pos, p, nil)
}

// Place resolves a pipe type through the catalog and puts a segment of it at pos.
// The options are kept so snapshots rebuild the same pipe.
func (g *Grid) Place(c *Catalog, pos domain.Pos, typeName string, opts Options) (*pipe.Segment, error) {
	p, err := c.Pipe(typeName, opts)
	if err != nil {
		return nil, err
	}
	return g.placeSegment(pos, p, opts)
}

func (g *Grid) placeSegment(pos domain.Pos, p *pipe.Pipe, opts Options) (*pipe.Segment, error) {
	if g.occupied(pos) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSegmentOccupied, pos)
	}
	seg := pipe.NewSegment(pos, p)
	g.segments[pos] = seg
	if len(opts) > 0 {
		g.options[pos] = opts
	}
	g.notifyNeighbors(pos)
	return seg, nil
}

// RemoveSegment deletes the segment at pos together with its items.
func (g *Grid) RemoveSegment(pos domain.Pos) error {
	if _, ok := g.segments[pos]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, pos)
	}
	delete(g.segments, pos)
	delete(g.options, pos)
	delete(g.chargers, pos)
	g.notifyNeighbors(pos)
	return nil
}

// PlaceInventory puts a storage endpoint at pos.
func (g *Grid) PlaceInventory(pos domain.Pos, inv *Inventory) error {
	if g.occupied(pos) {
		return fmt.Errorf("%w: %s", domain.ErrSegmentOccupied, pos)
	}
	g.inventories[pos] = inv
	g.notifyNeighbors(pos)
	return nil
}

// RemoveInventory deletes the inventory at pos.
func (g *Grid) RemoveInventory(pos domain.Pos) {
	if _, ok := g.inventories[pos]; ok {
		delete(g.inventories, pos)
		g.notifyNeighbors(pos)
	}
}

// Inventory returns the inventory at pos.
func (g *Grid) Inventory(pos domain.Pos) (*Inventory, bool) {
	inv, ok := g.inventories[pos]
	return inv, ok
}

// Inventories returns every inventory position in tick order.
func (g *Grid) Inventories() []domain.Pos {
	return sortedKeys(g.inventories)
}

// PlaceBlock puts an inert block of the given identity at pos.
func (g *Grid) PlaceBlock(pos domain.Pos, blockType string) error {
	if g.occupied(pos) {
		return fmt.Errorf("%w: %s", domain.ErrSegmentOccupied, pos)
	}
	g.blocks[pos] = blockType
	g.notifyNeighbors(pos)
	return nil
}

// RemoveBlock deletes the inert block at pos.
func (g *Grid) RemoveBlock(pos domain.Pos) {
	if _, ok := g.blocks[pos]; ok {
		delete(g.blocks, pos)
		g.notifyNeighbors(pos)
	}
}

// SetPowered toggles the redstone signal into pos.
func (g *Grid) SetPowered(pos domain.Pos, powered bool) {
	if g.powered[pos] == powered {
		return
	}
	if powered {
		g.powered[pos] = true
	} else {
		delete(g.powered, pos)
	}
	g.notifyNeighbors(pos)
}

// Insert injects a stack into the segment at pos heading in dir.
func (g *Grid) Insert(pos domain.Pos, stack domain.ItemStack, dir domain.Direction) (*pipe.TravelingItem, error) {
	seg, ok := g.segments[pos]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, pos)
	}
	if stack.Empty() {
		return nil, fmt.Errorf("empty stack inserted at %s", pos)
	}
	return seg.Inject(g, stack, dir), nil
}

// Wrench applies a wrench to the segment at pos.
func (g *Grid) Wrench(pos domain.Pos) (pipe.Interaction, error) {
	seg, ok := g.segments[pos]
	if !ok {
		return pipe.InteractionPass, fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, pos)
	}
	result := seg.Wrench(g)
	if result == pipe.InteractionSuccess {
		g.notifyNeighbors(pos)
	}
	return result, nil
}

// Use applies a tool or item to the segment at pos.
func (g *Grid) Use(pos domain.Pos, tool string) (pipe.Interaction, error) {
	seg, ok := g.segments[pos]
	if !ok {
		return pipe.InteractionPass, fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, pos)
	}
	result := seg.Use(g, tool)
	if result == pipe.InteractionSuccess {
		g.notifyNeighbors(pos)
	}
	return result, nil
}

// InsertEnergy charges the segment at pos through an energy transaction and
// returns the amount the buffer accepted.
func (g *Grid) InsertEnergy(pos domain.Pos, amount int64) (int64, error) {
	seg, ok := g.segments[pos]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, pos)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative energy %d inserted at %s", amount, pos)
	}
	txn := seg.Energy().Begin()
	accepted, err := txn.Insert(amount)
	if err != nil {
		txn.Abort()
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("insert energy at %s: %w", pos, err)
	}
	return accepted, nil
}

// SetCharger feeds rate energy into the segment at pos at the start of every
// step. A rate of zero removes the charger.
func (g *Grid) SetCharger(pos domain.Pos, rate int64) error {
	if _, ok := g.segments[pos]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, pos)
	}
	switch {
	case rate < 0:
		return fmt.Errorf("negative charge rate %d at %s", rate, pos)
	case rate == 0:
		delete(g.chargers, pos)
	default:
		g.chargers[pos] = rate
	}
	return nil
}

// Charger returns the charge rate feeding pos.
func (g *Grid) Charger(pos domain.Pos) int64 { return g.chargers[pos] }

// charge runs every charger once. A full buffer simply accepts nothing.
func (g *Grid) charge() {
	for _, pos := range sortedKeys(g.chargers) {
		_, _ = g.InsertEnergy(pos, g.chargers[pos])
	}
}

// Segments returns every segment in tick order.
func (g *Grid) Segments() []*pipe.Segment {
	positions := sortedKeys(g.segments)
	out := make([]*pipe.Segment, 0, len(positions))
	for _, pos := range positions {
		out = append(out, g.segments[pos])
	}
	return out
}

// InFlight counts the units currently travelling through segments.
func (g *Grid) InFlight() int {
	total := 0
	for _, seg := range g.segments {
		total += seg.ItemCount()
	}
	return total
}

// advance moves the clock one tick forward.
func (g *Grid) advance() uint64 {
	g.time++
	return g.time
}

// notifyNeighbors invalidates the classification the six neighbours cached toward pos.
func (g *Grid) notifyNeighbors(pos domain.Pos) {
	if seg, ok := g.segments[pos]; ok {
		seg.InvalidateAll()
	}
	for _, d := range domain.Directions {
		if seg, ok := g.segments[pos.Offset(d)]; ok {
			seg.Invalidate(d.Opposite())
		}
	}
}

func sortedKeys[V any](m map[domain.Pos]V) []domain.Pos {
	keys := make([]domain.Pos, 0, len(m))
	for pos := range m {
		keys = append(keys, pos)
	}
	slices.SortFunc(keys, func(a, b domain.Pos) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return keys
}
