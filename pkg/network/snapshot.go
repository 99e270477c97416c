package network

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// SnapshotVersion is bumped whenever the snapshot layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is the persistent state of a grid between two steps.
type Snapshot struct {
	Version     int                 `msgpack:"version"`
	Tick        uint64              `msgpack:"tick"`
	Seed        uint64              `msgpack:"seed"`
	RNG         []byte              `msgpack:"rng"`
	Segments    []SegmentSnapshot   `msgpack:"segments"`
	Inventories []InventorySnapshot `msgpack:"inventories"`
	Blocks      []BlockSnapshot     `msgpack:"blocks,omitempty"`
	Powered     []domain.Pos        `msgpack:"powered,omitempty"`
	Chargers    []ChargerSnapshot   `msgpack:"chargers,omitempty"`
}

// SegmentSnapshot holds one segment.
type SegmentSnapshot struct {
	Pos             domain.Pos                `msgpack:"pos"`
	Type            string                    `msgpack:"type"`
	Options         map[string]any            `msgpack:"options,omitempty"`
	Items           []ItemSnapshot            `msgpack:"items"`
	Connections     [6]domain.ConnectionType  `msgpack:"connections"`
	Cached          [6]bool                   `msgpack:"cached"`
	ConnectionsMask uint8                     `msgpack:"connections_mask"`
	MaskKnown       bool                      `msgpack:"mask_known"`
	ModuleState     map[string]map[string]any `msgpack:"module_state,omitempty"`
	Energy          int64                     `msgpack:"energy"`
}

// ItemSnapshot holds one travelling item.
type ItemSnapshot struct {
	ID        uuid.UUID        `msgpack:"id"`
	Item      string           `msgpack:"item"`
	Count     int              `msgpack:"count"`
	Direction domain.Direction `msgpack:"direction"`
	From      domain.Direction `msgpack:"from"`
	Progress  float64          `msgpack:"progress"`
	Speed     float64          `msgpack:"speed"`
	Routed    bool             `msgpack:"routed"`
}

// InventorySnapshot holds one storage endpoint.
type InventorySnapshot struct {
	Pos      domain.Pos         `msgpack:"pos"`
	Slots    []domain.ItemStack `msgpack:"slots"`
	Capacity int                `msgpack:"capacity"`
	Faces    []domain.Direction `msgpack:"faces,omitempty"`
}

// ChargerSnapshot holds one energy feed.
type ChargerSnapshot struct {
	Pos  domain.Pos `msgpack:"pos"`
	Rate int64      `msgpack:"rate"`
}

// BlockSnapshot holds one inert block.
type BlockSnapshot struct {
	Pos  domain.Pos `msgpack:"pos"`
	Type string     `msgpack:"type"`
}

// Snapshot captures the live state of the grid.
func (g *Grid) Snapshot() Snapshot {
	snap := Snapshot{
		Version: SnapshotVersion,
		Tick:    g.time,
		Seed:    g.seed,
		Powered: sortedKeys(g.powered),
	}
	if state, err := g.pcg.MarshalBinary(); err == nil {
		snap.RNG = state
	}

	for _, seg := range g.Segments() {
		s := SegmentSnapshot{
			Pos:    seg.Pos(),
			Type:   seg.Pipe().Name(),
			Energy: seg.Energy().Amount(),
		}
		if opts := g.options[seg.Pos()]; len(opts) > 0 {
			s.Options = maps.Clone(map[string]any(opts))
		}
		for _, d := range domain.Directions {
			if conn, ok := seg.CachedConnection(d); ok {
				s.Connections[d] = conn
				s.Cached[d] = true
			}
		}
		s.ConnectionsMask, s.MaskKnown = seg.ConnectionsMask()
		for _, it := range seg.Items() {
			s.Items = append(s.Items, ItemSnapshot{
				ID:        it.ID,
				Item:      it.Stack.ID,
				Count:     it.Stack.Count,
				Direction: it.Direction,
				From:      it.From,
				Progress:  it.Progress,
				Speed:     it.Speed,
				Routed:    it.Routed,
			})
		}
		if states := seg.ModuleStates(); len(states) > 0 {
			s.ModuleState = make(map[string]map[string]any, len(states))
			for key, st := range states {
				s.ModuleState[key] = map[string]any(st)
			}
		}
		snap.Segments = append(snap.Segments, s)
	}

	for _, pos := range sortedKeys(g.inventories) {
		inv := g.inventories[pos]
		snap.Inventories = append(snap.Inventories, InventorySnapshot{
			Pos:      pos,
			Slots:    inv.Stacks(),
			Capacity: inv.Capacity(),
			Faces:    inv.Faces(),
		})
	}
	for _, pos := range sortedKeys(g.blocks) {
		snap.Blocks = append(snap.Blocks, BlockSnapshot{Pos: pos, Type: g.blocks[pos]})
	}
	for _, pos := range sortedKeys(g.chargers) {
		snap.Chargers = append(snap.Chargers, ChargerSnapshot{Pos: pos, Rate: g.chargers[pos]})
	}
	return snap
}

// Restore rebuilds a grid from a snapshot, resolving segment types through catalog.
func Restore(snap Snapshot, catalog *Catalog) (*Grid, error) {
	if snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}

	g := NewGrid(snap.Seed)
	g.time = snap.Tick
	if len(snap.RNG) > 0 {
		if err := g.pcg.UnmarshalBinary(snap.RNG); err != nil {
			return nil, fmt.Errorf("restore random state: %w", err)
		}
	}

	for _, s := range snap.Segments {
		if _, exists := g.segments[s.Pos]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrSegmentOccupied, s.Pos)
		}
		p, err := catalog.Pipe(s.Type, Options(s.Options))
		if err != nil {
			return nil, fmt.Errorf("restore segment %s: %w", s.Pos, err)
		}
		seg := pipe.NewSegment(s.Pos, p)

		items := make([]*pipe.TravelingItem, 0, len(s.Items))
		for _, it := range s.Items {
			if !it.Direction.Valid() || !it.From.Valid() {
				return nil, fmt.Errorf("restore segment %s: %w", s.Pos, domain.ErrInvalidDirection)
			}
			id := it.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			items = append(items, &pipe.TravelingItem{
				ID:        id,
				Stack:     domain.ItemStack{ID: it.Item, Count: it.Count},
				Direction: it.Direction,
				From:      it.From,
				Progress:  it.Progress,
				Speed:     it.Speed,
				Routed:    it.Routed,
			})
		}
		seg.SetItems(items)

		if len(s.ModuleState) > 0 {
			states := make(map[string]pipe.State, len(s.ModuleState))
			for key, st := range s.ModuleState {
				states[key] = pipe.State(st)
			}
			seg.SetModuleStates(states)
		}
		if s.MaskKnown {
			seg.RestoreConnections(s.Connections, s.Cached, s.ConnectionsMask)
		}
		seg.Energy().Set(s.Energy)

		g.segments[s.Pos] = seg
		if len(s.Options) > 0 {
			g.options[s.Pos] = Options(maps.Clone(s.Options))
		}
	}

	for _, is := range snap.Inventories {
		if g.occupied(is.Pos) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSegmentOccupied, is.Pos)
		}
		inv := NewInventory(is.Capacity)
		if len(is.Faces) > 0 {
			inv.Expose(is.Faces...)
		}
		for _, slot := range is.Slots {
			inv.add(slot.ID, slot.Count)
		}
		g.inventories[is.Pos] = inv
	}
	for _, b := range snap.Blocks {
		if g.occupied(b.Pos) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSegmentOccupied, b.Pos)
		}
		g.blocks[b.Pos] = b.Type
	}
	for _, pos := range snap.Powered {
		g.powered[pos] = true
	}
	for _, c := range snap.Chargers {
		if err := g.SetCharger(c.Pos, c.Rate); err != nil {
			return nil, fmt.Errorf("restore charger: %w", err)
		}
	}
	return g, nil
}
