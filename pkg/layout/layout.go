// Package layout reads network layout documents and builds simulation grids from them.
//
// A layout names the pipe segments, the inventories they feed, inert blocks,
// powered cells and the stacks injected when the grid is built:
//
//	physics: { max_speed: 0.25 }
//	segments:
//	  - { pos: [0,0,0], type: iron, options: { interval: 20 } }
//	  - { pos: [2,0,0], type: gold, options: { energy_cost: 1, energy_capacity: 50 }, energy: 50, charge: 1 }
//	inventories:
//	  - { pos: [5,0,0], capacity: 64, items: { "minecraft:stone": 10 } }
//	powered: [[1,0,0]]
//	inserts:
//	  - { pos: [0,0,0], item: "minecraft:stone", count: 1, direction: east }
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/polisai/conduit/pkg/config"
	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/network"
	"github.com/polisai/conduit/pkg/pipe"
)

// Coord is a grid position written as [x, y, z].
type Coord []int

// Pos converts the coordinate. Call Validate first.
func (c Coord) Pos() domain.Pos {
	if len(c) != 3 {
		return domain.Pos{}
	}
	return domain.Pos{X: c[0], Y: c[1], Z: c[2]}
}

// Document is a parsed layout.
type Document struct {
	Name        string                 `yaml:"name"`
	Seed        *uint64                `yaml:"seed"`
	Physics     config.PhysicsOverride `yaml:"physics"`
	Segments    []SegmentSpec          `yaml:"segments"`
	Inventories []InventorySpec        `yaml:"inventories"`
	Blocks      []BlockSpec            `yaml:"blocks"`
	Powered     []Coord                `yaml:"powered"`
	Inserts     []InsertSpec           `yaml:"inserts"`
}

// SegmentSpec places one pipe segment. Energy seeds its buffer once and Charge
// feeds it every step.
type SegmentSpec struct {
	Pos     Coord           `yaml:"pos"`
	Type    string          `yaml:"type"`
	Options network.Options `yaml:"options"`
	Energy  int64           `yaml:"energy"`
	Charge  int64           `yaml:"charge"`
}

// InventorySpec places a storage endpoint, optionally pre-filled.
type InventorySpec struct {
	Pos      Coord          `yaml:"pos"`
	Capacity int            `yaml:"capacity"`
	Items    map[string]int `yaml:"items"`
	Faces    []string       `yaml:"faces"`
}

// BlockSpec places an inert block that pipes may react to.
type BlockSpec struct {
	Pos  Coord  `yaml:"pos"`
	Type string `yaml:"type"`
}

// InsertSpec injects a stack into a segment when the grid is built.
type InsertSpec struct {
	Pos       Coord  `yaml:"pos"`
	Item      string `yaml:"item"`
	Count     int    `yaml:"count"`
	Direction string `yaml:"direction"`
}

// Parse decodes a layout document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidLayout, err)
	}
	return &doc, nil
}

// PhysicsFor applies the document's physics overrides on top of base.
func (d *Document) PhysicsFor(base pipe.Physics) pipe.Physics {
	return d.Physics.Apply(base)
}

// Validate checks positions are unique and well formed, pipe types and their
// options resolve in catalog, directions parse, and inserts land on segments.
func (d *Document) Validate(catalog *network.Catalog) error {
	if err := d.Physics.Apply(pipe.DefaultPhysics()).Validate(); err != nil {
		return domain.NewLayoutError("physics: "+err.Error(), nil)
	}

	taken := make(map[domain.Pos]string)
	segments := make(map[domain.Pos]bool, len(d.Segments))
	claim := func(kind string, i int, c Coord) error {
		if len(c) != 3 {
			return domain.NewLayoutError(fmt.Sprintf("%s[%d]: pos must have three coordinates", kind, i),
				map[string]any{"pos": []int(c)})
		}
		pos := c.Pos()
		if prev, ok := taken[pos]; ok {
			return domain.NewLayoutError(fmt.Sprintf("%s[%d]: position %s already used by %s", kind, i, pos, prev),
				map[string]any{"pos": pos.String()})
		}
		taken[pos] = fmt.Sprintf("%s[%d]", kind, i)
		return nil
	}

	for i, s := range d.Segments {
		if err := claim("segments", i, s.Pos); err != nil {
			return err
		}
		segments[s.Pos.Pos()] = true
		if _, err := catalog.Pipe(s.Type, s.Options); err != nil {
			return domain.NewLayoutError(fmt.Sprintf("segments[%d]: %v", i, err),
				map[string]any{"type": s.Type})
		}
		if s.Energy < 0 || s.Charge < 0 {
			return domain.NewLayoutError(fmt.Sprintf("segments[%d]: energy and charge must not be negative", i),
				map[string]any{"energy": s.Energy, "charge": s.Charge})
		}
	}
	for i, inv := range d.Inventories {
		if err := claim("inventories", i, inv.Pos); err != nil {
			return err
		}
		if inv.Capacity <= 0 {
			return domain.NewLayoutError(fmt.Sprintf("inventories[%d]: capacity must be positive", i), nil)
		}
		total := 0
		for id, n := range inv.Items {
			if id == "" || n <= 0 {
				return domain.NewLayoutError(fmt.Sprintf("inventories[%d]: item %q needs a positive count", i, id), nil)
			}
			total += n
		}
		if total > inv.Capacity {
			return domain.NewLayoutError(fmt.Sprintf("inventories[%d]: %d items exceed capacity %d", i, total, inv.Capacity), nil)
		}
		if _, err := parseFaces(inv.Faces); err != nil {
			return domain.NewLayoutError(fmt.Sprintf("inventories[%d]: %v", i, err), nil)
		}
	}
	for i, b := range d.Blocks {
		if err := claim("blocks", i, b.Pos); err != nil {
			return err
		}
		if b.Type == "" {
			return domain.NewLayoutError(fmt.Sprintf("blocks[%d]: type is required", i), nil)
		}
	}
	for i, c := range d.Powered {
		if len(c) != 3 {
			return domain.NewLayoutError(fmt.Sprintf("powered[%d]: pos must have three coordinates", i), nil)
		}
	}
	for i, in := range d.Inserts {
		if len(in.Pos) != 3 {
			return domain.NewLayoutError(fmt.Sprintf("inserts[%d]: pos must have three coordinates", i), nil)
		}
		if !segments[in.Pos.Pos()] {
			return domain.NewLayoutError(fmt.Sprintf("inserts[%d]: no segment at %s", i, in.Pos.Pos()),
				map[string]any{"pos": in.Pos.Pos().String()})
		}
		if (domain.ItemStack{ID: in.Item, Count: in.Count}).Empty() {
			return domain.NewLayoutError(fmt.Sprintf("inserts[%d]: item and positive count are required", i), nil)
		}
		if _, err := domain.ParseDirection(in.Direction); err != nil {
			return domain.NewLayoutError(fmt.Sprintf("inserts[%d]: %v", i, err), nil)
		}
	}
	return nil
}

// Build validates the document and assembles a grid. A seed in the document
// overrides the one given.
func (d *Document) Build(catalog *network.Catalog, seed uint64) (*network.Grid, error) {
	if err := d.Validate(catalog); err != nil {
		return nil, err
	}
	if d.Seed != nil {
		seed = *d.Seed
	}

	g := network.NewGrid(seed)
	for _, b := range d.Blocks {
		if err := g.PlaceBlock(b.Pos.Pos(), b.Type); err != nil {
			return nil, err
		}
	}
	for _, spec := range d.Inventories {
		inv := network.NewInventory(spec.Capacity)
		faces, _ := parseFaces(spec.Faces)
		if faces != nil {
			inv.Expose(faces...)
		}
		ids := make([]string, 0, len(spec.Items))
		for id := range spec.Items {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			inv.TryInsert(domain.ItemStack{ID: id, Count: spec.Items[id]}, false)
		}
		if err := g.PlaceInventory(spec.Pos.Pos(), inv); err != nil {
			return nil, err
		}
	}
	for _, s := range d.Segments {
		pos := s.Pos.Pos()
		if _, err := g.Place(catalog, pos, s.Type, s.Options); err != nil {
			return nil, err
		}
		if s.Energy > 0 {
			if _, err := g.InsertEnergy(pos, s.Energy); err != nil {
				return nil, err
			}
		}
		if s.Charge > 0 {
			if err := g.SetCharger(pos, s.Charge); err != nil {
				return nil, err
			}
		}
	}
	for _, c := range d.Powered {
		g.SetPowered(c.Pos(), true)
	}
	for _, in := range d.Inserts {
		dir, _ := domain.ParseDirection(in.Direction)
		if _, err := g.Insert(in.Pos.Pos(), domain.ItemStack{ID: in.Item, Count: in.Count}, dir); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func parseFaces(raw []string) ([]domain.Direction, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]domain.Direction, 0, len(raw))
	for _, f := range raw {
		d, err := domain.ParseDirection(f)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
