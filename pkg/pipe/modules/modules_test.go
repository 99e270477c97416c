package modules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/network"
	"github.com/polisai/conduit/pkg/pipe"
	"github.com/polisai/conduit/pkg/pipe/modules"
)

var (
	origin = domain.Pos{}
	north  = domain.Pos{Z: -1}
	south  = domain.Pos{Z: 1}
	east   = domain.Pos{X: 1}
	west   = domain.Pos{X: -1}
)

func stack(id string, count int) domain.ItemStack {
	return domain.ItemStack{ID: id, Count: count}
}

func newGrid() (*network.Grid, *network.Catalog) {
	return network.NewGrid(1), network.DefaultCatalog(pipe.DefaultPhysics())
}

func place(t *testing.T, g *network.Grid, c *network.Catalog, pos domain.Pos, kind string, opts network.Options) *pipe.Segment {
	t.Helper()
	seg, err := g.Place(c, pos, kind, opts)
	require.NoError(t, err)
	return seg
}

func chest(t *testing.T, g *network.Grid, pos domain.Pos, capacity int) *network.Inventory {
	t.Helper()
	inv := network.NewInventory(capacity)
	require.NoError(t, g.PlaceInventory(pos, inv))
	return inv
}

func insert(t *testing.T, g *network.Grid, pos domain.Pos, s domain.ItemStack, dir domain.Direction) *pipe.TravelingItem {
	t.Helper()
	it, err := g.Insert(pos, s, dir)
	require.NoError(t, err)
	return it
}

func run(t *testing.T, g *network.Grid, ticks int) pipe.TickReport {
	t.Helper()
	sim := network.NewSimulator(network.SimulatorConfig{Grid: g, RandomTickChance: -1})
	total, err := sim.Run(context.Background(), ticks)
	require.NoError(t, err)
	return total
}

func TestMergerSkipsBlockedOutputsFairly(t *testing.T) {
	g, c := newGrid()
	place(t, g, c, origin, "merger", nil)
	left := chest(t, g, north, 64)
	right := chest(t, g, south, 64)
	full := chest(t, g, east, 0)

	for range 30 {
		insert(t, g, origin, stack("minecraft:stone", 1), domain.East)
	}
	report := run(t, g, 100)

	assert.Equal(t, 15, left.Total())
	assert.Equal(t, 15, right.Total())
	assert.Zero(t, full.Total())
	assert.Equal(t, 30, report.Delivered)
}

func TestMergerWrenchLocksOutput(t *testing.T) {
	g, c := newGrid()
	seg := place(t, g, c, origin, "merger", nil)
	left := chest(t, g, north, 64)
	chest(t, g, south, 64)
	chest(t, g, east, 64)
	run(t, g, 1)

	mod, ok := seg.Pipe().Module("merger")
	require.True(t, ok)
	merger := mod.(*modules.Merger)

	result, err := g.Wrench(origin)
	require.NoError(t, err)
	require.Equal(t, pipe.InteractionSuccess, result)
	out, locked := merger.Output(pipe.NewContext(g, seg))
	require.True(t, locked)
	assert.Equal(t, domain.North, out)

	for range 4 {
		insert(t, g, origin, stack("minecraft:stone", 1), domain.East)
	}
	run(t, g, 100)
	assert.Equal(t, 4, left.Total())
	assert.Equal(t, pipe.Deny, merger.AcceptFrom(pipe.NewContext(g, seg), nil, domain.North))

	for range 3 {
		_, err := g.Wrench(origin)
		require.NoError(t, err)
	}
	_, locked = merger.Output(pipe.NewContext(g, seg))
	assert.False(t, locked, "cycling past the last face unlocks")
}

func TestVoidWinsOverEarlierRouters(t *testing.T) {
	g, c := newGrid()
	p := pipe.New("test:sorting_void", pipe.DefaultPhysics(), modules.NewSplitter(), modules.NewVoid())
	seg, err := g.PlaceSegment(origin, p)
	require.NoError(t, err)
	place(t, g, c, east, "stone", nil)
	place(t, g, c, north, "stone", nil)

	insert(t, g, origin, stack("minecraft:stone", 8), domain.East)
	report := run(t, g, 40)

	assert.Equal(t, 1, report.Voided)
	assert.Empty(t, seg.Items())
	assert.Zero(t, seg.State("splitter").Int("next", 0), "the splitter must not be consulted")
}

func TestVoidRefusesStorage(t *testing.T) {
	g, c := newGrid()
	seg := place(t, g, c, origin, "void", nil)
	chest(t, g, east, 8)
	place(t, g, c, west, "stone", nil)

	assert.Equal(t, domain.ConnectionNone, seg.Connection(g, domain.East))
	assert.Equal(t, domain.ConnectionPeer, seg.Connection(g, domain.West))

	insert(t, g, origin, stack("minecraft:dirt", 1), domain.Up)
	assert.Equal(t, 1, run(t, g, 40).Voided)
}

func TestFilterSortsByItem(t *testing.T) {
	g, c := newGrid()
	place(t, g, c, origin, "filter", network.Options{
		"filters": map[string]any{
			"north": []any{"minecraft:stone"},
			"east":  []any{"minecraft:dirt"},
		},
	})
	stones := chest(t, g, north, 64)
	rest := chest(t, g, south, 64)
	dirt := chest(t, g, east, 64)

	insert(t, g, origin, stack("minecraft:stone", 2), domain.East)
	insert(t, g, origin, stack("minecraft:dirt", 3), domain.East)
	insert(t, g, origin, stack("minecraft:gravel", 4), domain.East)
	run(t, g, 100)

	assert.Equal(t, 2, stones.Count("minecraft:stone"))
	assert.Equal(t, 3, dirt.Count("minecraft:dirt"))
	assert.Equal(t, 4, rest.Count("minecraft:gravel"))
}

func TestFilterPerSegmentLists(t *testing.T) {
	g, c := newGrid()
	seg := place(t, g, c, origin, "filter", nil)
	mod, ok := seg.Pipe().Module("item_filter")
	require.True(t, ok)
	filter := mod.(*modules.ItemFilter)
	ctx := pipe.NewContext(g, seg)

	require.NoError(t, filter.SetFilters(ctx, domain.South, []string{"minecraft:sand"}))
	assert.Equal(t, []string{"minecraft:sand"}, filter.Filters(ctx, domain.South))
	assert.Empty(t, filter.Filters(ctx, domain.North))

	nine := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	assert.Error(t, filter.SetFilters(ctx, domain.South, nine))
}

func TestInsertionReservesStorageSpace(t *testing.T) {
	g, c := newGrid()
	place(t, g, c, origin, "insertion", nil)
	box := chest(t, g, north, 2)
	next := place(t, g, c, east, "stone", nil)

	for range 3 {
		insert(t, g, origin, stack("minecraft:stone", 1), domain.East)
	}
	report := run(t, g, 61)

	assert.Equal(t, 2, box.Total())
	assert.Len(t, next.Items(), 1)
	assert.Equal(t, 1, report.HandedOff)
	assert.Zero(t, report.Stalled)
}

func TestSplitterDealsInTurn(t *testing.T) {
	g, c := newGrid()
	place(t, g, c, origin, "splitter", nil)
	a := chest(t, g, north, 64)
	b := chest(t, g, south, 64)
	d := chest(t, g, east, 64)

	for range 6 {
		insert(t, g, origin, stack("minecraft:stone", 1), domain.East)
	}
	run(t, g, 100)

	assert.Equal(t, 2, a.Total())
	assert.Equal(t, 2, b.Total())
	assert.Equal(t, 2, d.Total())
}

func TestBoostNeedsPowerOrEnergy(t *testing.T) {
	physics := pipe.DefaultPhysics()
	g, c := newGrid()
	powered := place(t, g, c, origin, "gold", nil)
	idle := place(t, g, c, domain.Pos{X: 10}, "gold", nil)
	charged := place(t, g, c, domain.Pos{X: 20}, "gold", network.Options{"energy_cost": 1, "energy_capacity": 10})
	g.SetPowered(origin, true)
	charged.Energy().Set(10)

	a := insert(t, g, origin, stack("minecraft:stone", 1), domain.East)
	b := insert(t, g, domain.Pos{X: 10}, stack("minecraft:stone", 1), domain.East)
	d := insert(t, g, domain.Pos{X: 20}, stack("minecraft:stone", 1), domain.East)
	run(t, g, 1)

	assert.InDelta(t, physics.MinSpeed+physics.Acceleration, a.Speed, 1e-12)
	assert.InDelta(t, physics.MinSpeed, b.Speed, 1e-12)
	assert.InDelta(t, physics.MinSpeed+physics.Acceleration, d.Speed, 1e-12)
	assert.EqualValues(t, 9, charged.Energy().Amount())

	assert.InDelta(t, physics.MaxSpeed*modules.DefaultBoostMultiplier, powered.Pipe().MaxSpeed(pipe.NewContext(g, powered)), 1e-12)
	assert.InDelta(t, physics.MaxSpeed*modules.DefaultBoostMultiplier, idle.Pipe().MaxSpeed(pipe.NewContext(g, idle)), 1e-12)
}

func TestWeatheringOxidisesUnlessWaxed(t *testing.T) {
	g, c := newGrid()
	bare := place(t, g, c, origin, "copper", nil)
	waxed := place(t, g, c, domain.Pos{X: 20}, "copper", nil)

	result, err := g.Use(domain.Pos{X: 20}, "honeycomb")
	require.NoError(t, err)
	require.Equal(t, pipe.InteractionSuccess, result)
	result, _ = g.Use(domain.Pos{X: 20}, "honeycomb")
	assert.Equal(t, pipe.InteractionFail, result)

	for range 20000 {
		bare.RandomTick(g)
		waxed.RandomTick(g)
	}

	stage := func(seg *pipe.Segment) int { return seg.State("weathering").Int("stage", 0) }
	assert.Equal(t, modules.StageOxidized, stage(bare))
	assert.Equal(t, modules.StageUnaffected, stage(waxed))

	result, _ = g.Use(origin, "axe")
	assert.Equal(t, pipe.InteractionSuccess, result)
	assert.Equal(t, modules.StageWeathered, stage(bare))

	result, _ = g.Use(domain.Pos{X: 20}, "axe")
	assert.Equal(t, pipe.InteractionSuccess, result)
	result, _ = g.Use(domain.Pos{X: 20}, "axe")
	assert.Equal(t, pipe.InteractionFail, result, "nothing left to scrape")

	result, _ = g.Use(origin, "stick")
	assert.Equal(t, pipe.InteractionPass, result)
}

func TestMarkingKeepsColoursApart(t *testing.T) {
	g, c := newGrid()
	red := place(t, g, c, origin, "stone", network.Options{"color": "red"})
	place(t, g, c, east, "stone", network.Options{"color": "blue"})
	place(t, g, c, west, "stone", nil)
	place(t, g, c, north, "stone", network.Options{"color": "red"})

	assert.Equal(t, domain.ConnectionNone, red.Connection(g, domain.East))
	assert.Equal(t, domain.ConnectionPeer, red.Connection(g, domain.West), "unmarked segments connect to anything")
	assert.Equal(t, domain.ConnectionPeer, red.Connection(g, domain.North))

	result, err := g.Use(origin, "dye:none")
	require.NoError(t, err)
	require.Equal(t, pipe.InteractionSuccess, result)
	assert.Equal(t, domain.ConnectionPeer, red.Connection(g, domain.East))
}

func TestComparatorReadsFillLevel(t *testing.T) {
	g, c := newGrid()
	seg := place(t, g, c, origin, "comparator", nil)
	assert.Zero(t, seg.ComparatorOutput(g))

	seg.AddItem(pipe.NewTravelingItem(stack("minecraft:stone", 1), domain.East, 0))
	assert.Equal(t, 1, seg.ComparatorOutput(g))

	seg.AddItem(pipe.NewTravelingItem(stack("minecraft:stone", 159), domain.East, 0))
	assert.Equal(t, 7, seg.ComparatorOutput(g))

	seg.AddItem(pipe.NewTravelingItem(stack("minecraft:stone", 400), domain.East, 0))
	assert.Equal(t, 15, seg.ComparatorOutput(g))
}

func TestExtractionWrenchCyclesStorageFaces(t *testing.T) {
	g, c := newGrid()
	seg := place(t, g, c, origin, "iron", nil)
	chest(t, g, north, 8)
	chest(t, g, west, 8)

	mod, ok := seg.Pipe().Module("extraction")
	require.True(t, ok)
	extraction := mod.(*modules.Extraction)
	face := func() (domain.Direction, bool) { return extraction.Face(pipe.NewContext(g, seg)) }

	_, ok = face()
	assert.False(t, ok, "two storages leave the face unset")

	for _, want := range []domain.Direction{domain.North, domain.West, domain.North} {
		result, err := g.Wrench(origin)
		require.NoError(t, err)
		require.Equal(t, pipe.InteractionSuccess, result)
		got, ok := face()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	g.RemoveInventory(north)
	run(t, g, 1)
	got, ok := face()
	require.True(t, ok)
	assert.Equal(t, domain.West, got, "a vanished face falls back to the remaining storage")
	assert.Empty(t, seg.State("extraction").String("face", ""))
}
