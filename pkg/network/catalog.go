package network

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
	"github.com/polisai/conduit/pkg/pipe/modules"
)

// Namespace prefixes every built-in pipe type.
const Namespace = "conduit:"

// Built-in pipe type names.
const (
	TypeStone       = Namespace + "stone_transport_pipe"
	TypeCobblestone = Namespace + "cobblestone_transport_pipe"
	TypeCopper      = Namespace + "copper_transport_pipe"
	TypeGold        = Namespace + "gold_transport_pipe"
	TypeExtractor   = Namespace + "item_extractor_pipe"
	TypeMerger      = Namespace + "item_merger_pipe"
	TypeSplitter    = Namespace + "item_splitter_pipe"
	TypeFilter      = Namespace + "item_filter_pipe"
	TypeInsertion   = Namespace + "item_insertion_pipe"
	TypeVoid        = Namespace + "item_void_pipe"
	TypePassthrough = Namespace + "item_passthrough_pipe"
	TypeComparator  = Namespace + "comparator_pipe"
)

// Factory builds the module list of a pipe type.
type Factory func(physics pipe.Physics, opts Options) ([]pipe.Module, error)

// Catalog maps pipe type names and aliases to factories and caches one Pipe per
// type and option set, so segments of the same type share behaviour.
type Catalog struct {
	physics pipe.Physics

	mu        sync.Mutex
	factories map[string]Factory
	aliases   map[string]string
	pipes     map[string]*pipe.Pipe
}

// NewCatalog returns an empty catalog whose pipes use physics.
func NewCatalog(physics pipe.Physics) *Catalog {
	return &Catalog{
		physics:   physics.WithDefaults(),
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
		pipes:     make(map[string]*pipe.Pipe),
	}
}

// Physics returns the physics shared by every pipe of the catalog.
func (c *Catalog) Physics() pipe.Physics { return c.physics }

// Register adds or replaces a pipe type.
func (c *Catalog) Register(name string, factory Factory, aliases ...string) {
	name = strings.TrimSpace(name)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[name] = factory
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		c.aliases[alias] = name
	}
	if short, ok := strings.CutPrefix(name, Namespace); ok {
		if _, exists := c.aliases[short]; !exists {
			c.aliases[short] = name
		}
	}
	for key := range c.pipes {
		if key == name || strings.HasPrefix(key, name+"|") {
			delete(c.pipes, key)
		}
	}
}

// Resolve returns the canonical name of a type or alias.
func (c *Catalog) Resolve(name string) (string, bool) {
	name = strings.TrimSpace(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(name)
}

func (c *Catalog) resolveLocked(name string) (string, bool) {
	if _, ok := c.factories[name]; ok {
		return name, true
	}
	if canonical, ok := c.aliases[name]; ok {
		if _, ok := c.factories[canonical]; ok {
			return canonical, true
		}
	}
	return "", false
}

// Pipe returns the shared Pipe for a type name and option set.
func (c *Catalog) Pipe(name string, opts Options) (*pipe.Pipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	canonical, ok := c.resolveLocked(strings.TrimSpace(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPipeType, name)
	}
	key := canonical
	if suffix := opts.cacheKey(); suffix != "" {
		key += "|" + suffix
	}
	if p, ok := c.pipes[key]; ok {
		return p, nil
	}

	mods, err := c.factories[canonical](c.physics, opts)
	if err != nil {
		return nil, fmt.Errorf("pipe type %s: %w", canonical, err)
	}
	mods, err = withCommonOptions(mods, opts)
	if err != nil {
		return nil, fmt.Errorf("pipe type %s: %w", canonical, err)
	}
	p := pipe.New(canonical, c.physics, mods...)
	c.pipes[key] = p
	return p, nil
}

// Names lists the canonical type names.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Aliases lists the aliases of a canonical type.
func (c *Catalog) Aliases(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for alias, canonical := range c.aliases {
		if canonical == name {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

// withCommonOptions applies the options every type understands: "color" marks the pipe.
func withCommonOptions(mods []pipe.Module, opts Options) ([]pipe.Module, error) {
	color, err := opts.String("color", "")
	if err != nil {
		return nil, err
	}
	if color != "" {
		mods = append(mods, modules.NewMarking(color))
	}
	return mods, nil
}

// DefaultCatalog registers the built-in pipe types.
func DefaultCatalog(physics pipe.Physics) *Catalog {
	c := NewCatalog(physics)

	c.Register(TypeStone, transportOnly(modules.NewBlockConnection(TypeCobblestone)), "stone", "basic", "transport")
	c.Register(TypeCobblestone, transportOnly(modules.NewBlockConnection(TypeStone)), "cobblestone")
	c.Register(TypeCopper, transportOnly(modules.NewWeathering()), "copper")
	c.Register(TypeGold, goldFactory, "gold", "boost")
	c.Register(TypeExtractor, extractorFactory, "iron", "extraction", "extractor", "wooden")
	c.Register(TypeMerger, transportOnly(modules.NewMerger()), "merger")
	c.Register(TypeSplitter, transportOnly(modules.NewSplitter()), "splitter")
	c.Register(TypeFilter, filterFactory, "filter", "smart_splitter", "diamond")
	c.Register(TypeInsertion, transportOnly(modules.NewInsertion()), "insertion")
	c.Register(TypeVoid, func(pipe.Physics, Options) ([]pipe.Module, error) {
		return []pipe.Module{modules.NewVoid(), modules.NewPipeOnly()}, nil
	}, "void")
	c.Register(TypePassthrough, transportOnly(modules.NewPipeOnly()), "pipe_only", "passthrough")
	c.Register(TypeComparator, transportOnly(modules.NewComparator()), "comparator", "quartz")

	return c
}

// transport builds the Transport module honouring "drag" and "base_speed".
func transport(physics pipe.Physics, opts Options) (*modules.Transport, error) {
	drag, err := opts.Float("drag", physics.Drag)
	if err != nil {
		return nil, err
	}
	if drag < 0 || drag >= 1 {
		return nil, fmt.Errorf("%w: drag %v outside [0,1)", domain.ErrConfigInvalid, drag)
	}
	t := modules.NewTransport(drag)
	if t.BaseSpeed, err = opts.Float("base_speed", 0); err != nil {
		return nil, err
	}
	return t, nil
}

// transportOnly returns a factory placing extra modules ahead of the Transport module.
// Module values carry no per-segment state, so they are shared by every pipe built.
func transportOnly(extra ...pipe.Module) Factory {
	return func(physics pipe.Physics, opts Options) ([]pipe.Module, error) {
		t, err := transport(physics, opts)
		if err != nil {
			return nil, err
		}
		return append(slices.Clone(extra), t), nil
	}
}

func goldFactory(physics pipe.Physics, opts Options) ([]pipe.Module, error) {
	t, err := transport(physics, opts)
	if err != nil {
		return nil, err
	}
	b := modules.NewBoost(physics.Acceleration)
	if b.Rate, err = opts.Float("rate", b.Rate); err != nil {
		return nil, err
	}
	if b.Multiplier, err = opts.Float("multiplier", b.Multiplier); err != nil {
		return nil, err
	}
	if b.EnergyCost, b.Capacity, err = energyOptions(opts); err != nil {
		return nil, err
	}
	return []pipe.Module{b, t}, nil
}

func extractorFactory(physics pipe.Physics, opts Options) ([]pipe.Module, error) {
	t, err := transport(physics, opts)
	if err != nil {
		return nil, err
	}
	e := modules.NewExtraction()
	if e.Interval, err = opts.Int("interval", e.Interval); err != nil {
		return nil, err
	}
	if e.Amount, err = opts.Int("amount", e.Amount); err != nil {
		return nil, err
	}
	if e.Interval <= 0 || e.Amount <= 0 {
		return nil, fmt.Errorf("%w: interval and amount must be positive", domain.ErrConfigInvalid)
	}
	if e.EnergyCost, e.Capacity, err = energyOptions(opts); err != nil {
		return nil, err
	}
	// Extractors never chain into each other.
	return []pipe.Module{e, modules.NewBlockConnection(TypeExtractor), t}, nil
}

// energyOptions reads energy_cost and energy_capacity. A cost the buffer can
// never hold would stall the module forever, so it is rejected.
func energyOptions(opts Options) (cost, capacity int64, err error) {
	c, err := opts.Int("energy_cost", 0)
	if err != nil {
		return 0, 0, err
	}
	capa, err := opts.Int("energy_capacity", 0)
	if err != nil {
		return 0, 0, err
	}
	if c < 0 || capa < 0 {
		return 0, 0, fmt.Errorf("%w: energy_cost and energy_capacity must not be negative", domain.ErrConfigInvalid)
	}
	if c > capa {
		return 0, 0, fmt.Errorf("%w: energy_cost %d exceeds energy_capacity %d", domain.ErrConfigInvalid, c, capa)
	}
	return int64(c), int64(capa), nil
}

func filterFactory(physics pipe.Physics, opts Options) ([]pipe.Module, error) {
	t, err := transport(physics, opts)
	if err != nil {
		return nil, err
	}
	sides, err := opts.Sides("filters")
	if err != nil {
		return nil, err
	}
	for dir, ids := range sides {
		if len(ids) > modules.MaxFilterSlots {
			return nil, fmt.Errorf("%w: %s lists %d items, limit %d", domain.ErrConfigInvalid, dir, len(ids), modules.MaxFilterSlots)
		}
	}
	return []pipe.Module{modules.NewItemFilter(sides), t}, nil
}
