package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/network"
	"github.com/polisai/conduit/pkg/pipe"
)

const extractionLayout = `
name: line
seed: 7
segments:
  - { pos: [1,0,0], type: iron }
  - { pos: [2,0,0], type: stone }
  - { pos: [3,0,0], type: stone }
  - { pos: [4,0,0], type: stone }
inventories:
  - { pos: [0,0,0], capacity: 64, items: { "minecraft:stone": 5 } }
  - { pos: [5,0,0], capacity: 64 }
`

func catalog() *network.Catalog {
	return network.DefaultCatalog(pipe.DefaultPhysics())
}

func TestBuildRunsExtractionLine(t *testing.T) {
	doc, err := Parse([]byte(extractionLayout))
	require.NoError(t, err)

	g, err := doc.Build(catalog(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), g.Seed())
	assert.Len(t, g.Segments(), 4)

	sim := network.NewSimulator(network.SimulatorConfig{Name: doc.Name, Grid: g})
	_, err = sim.Run(context.Background(), 700)
	require.NoError(t, err)

	sink, ok := g.Inventory(domain.Pos{X: 5})
	require.True(t, ok)
	assert.Equal(t, 5, sink.Count("minecraft:stone"))
}

func TestBuildPaysExtractionEnergy(t *testing.T) {
	const line = `
segments:
  - { pos: [1,0,0], type: iron, options: { energy_cost: 5, energy_capacity: 10 }%s }
  - { pos: [2,0,0], type: stone }
inventories:
  - { pos: [0,0,0], capacity: 64, items: { "minecraft:stone": 5 } }
  - { pos: [3,0,0], capacity: 64 }
`
	tests := []struct {
		name  string
		extra string
		want  int
	}{
		{name: "unpowered", extra: "", want: 0},
		{name: "seeded", extra: ", energy: 10", want: 2},
		{name: "charged", extra: ", charge: 1", want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(fmt.Sprintf(line, tt.extra)))
			require.NoError(t, err)
			g, err := doc.Build(catalog(), 1)
			require.NoError(t, err)

			_, err = network.NewSimulator(network.SimulatorConfig{Grid: g}).Run(context.Background(), 700)
			require.NoError(t, err)

			sink, ok := g.Inventory(domain.Pos{X: 3})
			require.True(t, ok)
			assert.Equal(t, tt.want, sink.Count("minecraft:stone"))
		})
	}
}

func TestBuildAppliesInsertsPowerAndFaces(t *testing.T) {
	doc, err := Parse([]byte(`
segments:
  - { pos: [0,0,0], type: stone }
  - { pos: [1,0,0], type: gold }
  - { pos: [2,0,0], type: stone, options: { color: red } }
inventories:
  - { pos: [3,0,0], capacity: 8, faces: [west] }
blocks:
  - { pos: [0,1,0], type: "minecraft:dirt" }
powered: [[1,0,0]]
inserts:
  - { pos: [0,0,0], item: "minecraft:stone", count: 2, direction: east }
`))
	require.NoError(t, err)

	g, err := doc.Build(catalog(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, g.InFlight())
	assert.True(t, g.Powered(domain.Pos{X: 1}))
	assert.Equal(t, "minecraft:dirt", g.BlockType(domain.Pos{Y: 1}))

	inv, ok := g.Inventory(domain.Pos{X: 3})
	require.True(t, ok)
	assert.Equal(t, []domain.Direction{domain.West}, inv.Faces())

	sim := network.NewSimulator(network.SimulatorConfig{Grid: g})
	_, err = sim.Run(context.Background(), 400)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Count("minecraft:stone"))
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(catalog()))

	g, err := doc.Build(catalog(), 0)
	require.NoError(t, err)
	assert.Empty(t, g.Segments())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("segmnts: []\n"))
	require.ErrorIs(t, err, domain.ErrInvalidLayout)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate position": `
segments:
  - { pos: [0,0,0], type: stone }
inventories:
  - { pos: [0,0,0], capacity: 1 }
`,
		"short position":  "segments:\n  - { pos: [0,0], type: stone }\n",
		"unknown type":    "segments:\n  - { pos: [0,0,0], type: obsidian }\n",
		"bad options":     "segments:\n  - { pos: [0,0,0], type: iron, options: { interval: 0 } }\n",
		"zero capacity":   "inventories:\n  - { pos: [0,0,0], capacity: 0 }\n",
		"overfull":        "inventories:\n  - { pos: [0,0,0], capacity: 1, items: { a: 2 } }\n",
		"bad face":        "inventories:\n  - { pos: [0,0,0], capacity: 1, faces: [sideways] }\n",
		"untyped block":   "blocks:\n  - { pos: [0,0,0] }\n",
		"insert off pipe": "inserts:\n  - { pos: [0,0,0], item: a, count: 1, direction: east }\n",
		"bad physics":     "physics: { drag: 1.5 }\n",
		"negative charge": "segments:\n  - { pos: [0,0,0], type: gold, charge: -1 }\n",
		"unpayable cost":  "segments:\n  - { pos: [0,0,0], type: iron, options: { energy_cost: 3 } }\n",
		"bad direction": `
segments:
  - { pos: [0,0,0], type: stone }
inserts:
  - { pos: [0,0,0], item: a, count: 1, direction: sideways }
`,
		"empty insert": `
segments:
  - { pos: [0,0,0], type: stone }
inserts:
  - { pos: [0,0,0], item: a, count: 0, direction: east }
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := Parse([]byte(body))
			require.NoError(t, err)
			err = doc.Validate(catalog())
			require.ErrorIs(t, err, domain.ErrInvalidLayout)
		})
	}
}

func TestPhysicsFor(t *testing.T) {
	doc, err := Parse([]byte("physics: { max_speed: 0.5, drag: 0 }\n"))
	require.NoError(t, err)

	p := doc.PhysicsFor(pipe.DefaultPhysics())
	assert.Equal(t, 0.5, p.MaxSpeed)
	assert.Zero(t, p.Drag)
	assert.Equal(t, pipe.DefaultMinSpeed, p.MinSpeed)
}

func writeLayout(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoaderLoadExpandsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	writeLayout(t, path, "name: ${CONDUIT_TEST_LAYOUT_NAME}\n")
	t.Setenv("CONDUIT_TEST_LAYOUT_NAME", "expanded")

	loader, err := NewLoader(path, catalog(), nil)
	require.NoError(t, err)

	doc, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "expanded", doc.Name)
	assert.Same(t, doc, loader.Current())
}

func TestLoaderKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	writeLayout(t, path, extractionLayout)

	loader, err := NewLoader(path, catalog(), nil)
	require.NoError(t, err)
	first, err := loader.Load()
	require.NoError(t, err)

	writeLayout(t, path, "segments:\n  - { pos: [0,0,0], type: obsidian }\n")
	_, err = loader.Load()
	require.ErrorIs(t, err, domain.ErrInvalidLayout)
	assert.Same(t, first, loader.Current())
}

func TestLoaderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	writeLayout(t, path, extractionLayout)

	loader, err := NewLoader(path, catalog(), nil)
	require.NoError(t, err)
	_, err = loader.Load()
	require.NoError(t, err)

	updated := make(chan *Document, 4)
	require.NoError(t, loader.Watch(func(d *Document) { updated <- d }))
	defer loader.Close()

	time.Sleep(50 * time.Millisecond)
	writeLayout(t, path, "name: reloaded\nsegments:\n  - { pos: [0,0,0], type: stone }\n")

	select {
	case doc := <-updated:
		assert.Equal(t, "reloaded", doc.Name)
		assert.Len(t, doc.Segments, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for layout reload")
	}
	require.NoError(t, loader.Close())
	require.NoError(t, loader.Close())
}
