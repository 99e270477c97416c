package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

type itemView struct {
	Item      string
	Count     int
	Direction domain.Direction
	From      domain.Direction
	Progress  float64
	Speed     float64
	Routed    bool
}

type gridView struct {
	Tick        uint64
	Segments    map[domain.Pos][]itemView
	Inventories map[domain.Pos][]domain.ItemStack
}

func view(g *Grid) gridView {
	v := gridView{
		Tick:        g.Time(),
		Segments:    make(map[domain.Pos][]itemView),
		Inventories: make(map[domain.Pos][]domain.ItemStack),
	}
	for _, seg := range g.Segments() {
		items := []itemView{}
		for _, it := range seg.Items() {
			items = append(items, itemView{it.Stack.ID, it.Stack.Count, it.Direction, it.From, it.Progress, it.Speed, it.Routed})
		}
		v.Segments[seg.Pos()] = items
	}
	for _, pos := range g.Inventories() {
		inv, _ := g.Inventory(pos)
		v.Inventories[pos] = inv.Stacks()
	}
	return v
}

func TestCodecRoundTrip(t *testing.T) {
	g, _, _ := extractionLine(t, 3, 3)
	sim := NewSimulator(SimulatorConfig{Grid: g})
	_, err := sim.Run(context.Background(), 130)
	require.NoError(t, err)

	seg, ok := g.Segment(domain.Pos{X: 1})
	require.True(t, ok)
	seg.State("extraction").Set("face", "west")
	seg.Energy().Set(0)

	snap := g.Snapshot()
	data, err := Codec{}.Encode(snap)
	require.NoError(t, err)
	decoded, err := Codec{}.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, snap.Tick, decoded.Tick)
	assert.Equal(t, snap.RNG, decoded.RNG)
	require.Len(t, decoded.Segments, len(snap.Segments))
	for i := range snap.Segments {
		assert.Equal(t, snap.Segments[i].Pos, decoded.Segments[i].Pos)
		assert.Equal(t, snap.Segments[i].Type, decoded.Segments[i].Type)
		assert.Equal(t, snap.Segments[i].Items, decoded.Segments[i].Items)
		assert.Equal(t, snap.Segments[i].Connections, decoded.Segments[i].Connections)
	}
	assert.Equal(t, "west", decoded.Segments[0].ModuleState["extraction"]["face"])
	assert.Equal(t, snap.Inventories, decoded.Inventories)

	_, err = Codec{}.Decode([]byte{0xc1})
	require.Error(t, err)
}

func TestRestoreRejectsUnknownTypes(t *testing.T) {
	snap := Snapshot{Version: SnapshotVersion, Segments: []SegmentSnapshot{{Type: "acme:nothing"}}}
	_, err := Restore(snap, DefaultCatalog(pipe.DefaultPhysics()))
	require.ErrorIs(t, err, domain.ErrUnknownPipeType)

	_, err = Restore(Snapshot{Version: SnapshotVersion + 1}, DefaultCatalog(pipe.DefaultPhysics()))
	require.Error(t, err)
}

func TestRestoreKeepsPendingInvalidations(t *testing.T) {
	g := NewGrid(1)
	c := DefaultCatalog(pipe.DefaultPhysics())
	for x := 0; x <= 2; x++ {
		_, err := g.Place(c, domain.Pos{X: x}, "stone", nil)
		require.NoError(t, err)
	}
	_, err := g.Insert(domain.Pos{}, stone(4), domain.East)
	require.NoError(t, err)

	sim := NewSimulator(SimulatorConfig{Grid: g})
	_, err = sim.Run(context.Background(), 10)
	require.NoError(t, err)

	sim.With(func(g *Grid) {
		require.NoError(t, g.PlaceInventory(domain.Pos{X: 3}, NewInventory(64)))
	})

	snap := g.Snapshot()
	require.Len(t, snap.Segments, 3)
	assert.True(t, snap.Segments[2].Cached[domain.West])
	assert.False(t, snap.Segments[2].Cached[domain.East])

	data, err := Codec{}.Encode(snap)
	require.NoError(t, err)
	decoded, err := Codec{}.Decode(data)
	require.NoError(t, err)
	restored, err := Restore(decoded, c)
	require.NoError(t, err)

	_, err = NewSimulator(SimulatorConfig{Grid: restored}).Run(context.Background(), 400)
	require.NoError(t, err)

	sink, ok := restored.Inventory(domain.Pos{X: 3})
	require.True(t, ok)
	assert.Equal(t, 4, sink.Count("minecraft:stone"))
	assert.Zero(t, restored.InFlight())
}

// A restored grid continues exactly like the grid it was taken from.
func TestRestoreContinuesIdentically(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		length := rapid.IntRange(2, 8).Draw(t, "length")
		splitAt := rapid.IntRange(0, length-1).Draw(t, "split_at")
		before := rapid.IntRange(0, 400).Draw(t, "before")
		after := rapid.IntRange(1, 400).Draw(t, "after")

		c := DefaultCatalog(pipe.DefaultPhysics())
		g := NewGrid(seed)
		for x := 0; x < length; x++ {
			kind := rapid.SampledFrom([]string{"stone", "copper", "gold"}).Draw(t, "kind")
			if x == splitAt {
				kind = "splitter"
			}
			if _, err := g.Place(c, domain.Pos{X: x}, kind, nil); err != nil {
				t.Fatalf("place: %v", err)
			}
		}
		if err := g.PlaceInventory(domain.Pos{X: length}, NewInventory(1000)); err != nil {
			t.Fatalf("place sink: %v", err)
		}
		if err := g.PlaceInventory(domain.Pos{X: splitAt, Z: 1}, NewInventory(1000)); err != nil {
			t.Fatalf("place branch: %v", err)
		}
		if rapid.Bool().Draw(t, "powered") {
			g.SetPowered(domain.Pos{X: length - 1}, true)
		}

		inserts := rapid.IntRange(1, 6).Draw(t, "inserts")
		for i := 0; i < inserts; i++ {
			count := rapid.IntRange(1, 16).Draw(t, "count")
			if _, err := g.Insert(domain.Pos{}, domain.ItemStack{ID: "minecraft:stone", Count: count}, domain.East); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}

		sim := NewSimulator(SimulatorConfig{Grid: g, RandomTickChance: 0.5})
		if _, err := sim.Run(context.Background(), before); err != nil {
			t.Fatal(err)
		}

		data, err := Codec{}.Encode(g.Snapshot())
		if err != nil {
			t.Fatal(err)
		}
		decoded, err := Codec{}.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		restored, err := Restore(decoded, c)
		if err != nil {
			t.Fatal(err)
		}
		twin := NewSimulator(SimulatorConfig{Grid: restored, RandomTickChance: 0.5})

		if _, err := sim.Run(context.Background(), after); err != nil {
			t.Fatal(err)
		}
		if _, err := twin.Run(context.Background(), after); err != nil {
			t.Fatal(err)
		}

		assert.Equal(t, view(g), view(restored))
	})
}
