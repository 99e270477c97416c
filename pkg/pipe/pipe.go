package pipe

import (
	"slices"

	"github.com/polisai/conduit/pkg/domain"
)

// Pipe is the immutable behaviour descriptor of a segment type.
type Pipe struct {
	name    string
	physics Physics
	modules []Module
}

// New builds a Pipe. Module order is significant.
func New(name string, physics Physics, modules ...Module) *Pipe {
	return &Pipe{
		name:    name,
		physics: physics.WithDefaults(),
		modules: slices.Clone(modules),
	}
}

// Name returns the segment type name.
func (p *Pipe) Name() string { return p.name }

// Physics returns the constants the pipe resolves defaults from.
func (p *Pipe) Physics() Physics { return p.physics }

// Modules returns a copy of the module list.
func (p *Pipe) Modules() []Module { return slices.Clone(p.modules) }

// Module returns the first module with the given key.
func (p *Pipe) Module(key string) (Module, bool) {
	for _, m := range p.modules {
		if m.Key() == key {
			return m, true
		}
	}
	return nil, false
}

func firstValue(mods []Module, query func(Module) (float64, bool), fallback float64) float64 {
	for _, m := range mods {
		if v, ok := query(m); ok {
			return v
		}
	}
	return fallback
}

// TargetSpeed is the speed newly created items start with.
func (p *Pipe) TargetSpeed(ctx *Context) float64 {
	return firstValue(p.modules, func(m Module) (float64, bool) { return m.TargetSpeed(ctx) }, p.physics.MinSpeed)
}

// Acceleration defaults to zero.
func (p *Pipe) Acceleration(ctx *Context) float64 {
	return firstValue(p.modules, func(m Module) (float64, bool) { return m.Acceleration(ctx) }, 0)
}

// Drag defaults to the physics drag.
func (p *Pipe) Drag(ctx *Context) float64 {
	return firstValue(p.modules, func(m Module) (float64, bool) { return m.Drag(ctx) }, p.physics.Drag)
}

// MaxSpeed defaults to the physics ceiling.
func (p *Pipe) MaxSpeed(ctx *Context) float64 {
	return firstValue(p.modules, func(m Module) (float64, bool) { return m.MaxSpeed(ctx) }, p.physics.MaxSpeed)
}

// Motion resolves every kinematic parameter for one tick.
func (p *Pipe) Motion(ctx *Context) Motion {
	return Motion{
		Acceleration: p.Acceleration(ctx),
		Drag:         p.Drag(ctx),
		MaxSpeed:     p.MaxSpeed(ctx),
		MinSpeed:     p.physics.MinSpeed,
	}
}

// EnergyCapacity is the largest capacity any module asks for.
func (p *Pipe) EnergyCapacity() int64 {
	var capacity int64
	for _, m := range p.modules {
		capacity = max(capacity, m.EnergyCapacity())
	}
	return capacity
}

// AcceptsFrom reports whether the segment takes item arriving through face from.
// Without a module verdict only items sent by another segment are accepted.
func (p *Pipe) AcceptsFrom(ctx *Context, item *TravelingItem, from domain.Direction) bool {
	for _, m := range p.modules {
		switch m.AcceptFrom(ctx, item, from) {
		case Allow:
			return true
		case Deny:
			return false
		}
	}
	return ctx.NeighborIsSegment(from)
}

// Discarder is implemented by terminal modules whose discard decision must win
// regardless of their position in the module list.
type Discarder interface {
	Discards(ctx *Context, item *TravelingItem) bool
}

// Route returns the first non-neutral plan. A Discarder that claims the item wins
// before any other module is consulted, so stateful routers are not advanced.
func (p *Pipe) Route(ctx *Context, item *TravelingItem, candidates []domain.Direction) RoutePlan {
	for _, m := range p.modules {
		if d, ok := m.(Discarder); ok && d.Discards(ctx, item) {
			return Discard()
		}
	}
	for _, m := range p.modules {
		plan := m.Route(ctx, item, slices.Clone(candidates)).WithDefaults()
		if !plan.Neutral() {
			return plan
		}
	}
	return Pass()
}

// DiscardWhenNoRoute is true when any module asks for it.
func (p *Pipe) DiscardWhenNoRoute(ctx *Context) bool {
	for _, m := range p.modules {
		if m.DiscardWhenNoRoute(ctx) {
			return true
		}
	}
	return false
}

// FilterConnection returns candidate unless a module refuses the connection.
func (p *Pipe) FilterConnection(ctx *Context, dir domain.Direction, neighbor Neighbor, candidate domain.ConnectionType) domain.ConnectionType {
	if candidate == domain.ConnectionNone {
		return candidate
	}
	for _, m := range p.modules {
		if !m.AllowsConnection(ctx, dir, neighbor, candidate) {
			return domain.ConnectionNone
		}
	}
	return candidate
}

// OnTick runs every module's tick hook in order.
func (p *Pipe) OnTick(ctx *Context) {
	for _, m := range p.modules {
		m.OnTick(ctx)
	}
}

// OnRandomTick runs every module's random tick hook in order.
func (p *Pipe) OnRandomTick(ctx *Context) {
	for _, m := range p.modules {
		m.OnRandomTick(ctx)
	}
}

// OnConnectionsChanged notifies every module.
func (p *Pipe) OnConnectionsChanged(ctx *Context, connected []domain.Direction) {
	for _, m := range p.modules {
		m.OnConnectionsChanged(ctx, slices.Clone(connected))
	}
}

// OnWrench forwards to the first module that handles the interaction.
func (p *Pipe) OnWrench(ctx *Context) Interaction {
	for _, m := range p.modules {
		if result := m.OnWrench(ctx); result != InteractionPass {
			return result
		}
	}
	return InteractionPass
}

// OnUse forwards a tool use to the first module that handles it.
func (p *Pipe) OnUse(ctx *Context, tool string) Interaction {
	for _, m := range p.modules {
		if result := m.OnUse(ctx, tool); result != InteractionPass {
			return result
		}
	}
	return InteractionPass
}

// ComparatorOutput is the strongest signal of any module, clamped to [0,15].
func (p *Pipe) ComparatorOutput(ctx *Context) int {
	level := 0
	for _, m := range p.modules {
		level = max(level, m.ComparatorOutput(ctx))
	}
	return min(level, 15)
}
