package pipe

import "github.com/polisai/conduit/pkg/domain"

// Verdict is a tri-state acceptance answer.
type Verdict uint8

const (
	// Neutral defers to the next module.
	Neutral Verdict = iota
	// Allow accepts the item.
	Allow
	// Deny refuses the item.
	Deny
)

// Interaction is the outcome of a wrench or item use on a segment.
type Interaction uint8

const (
	// InteractionPass lets the next module handle the interaction.
	InteractionPass Interaction = iota
	// InteractionSuccess consumes the interaction and marks the segment changed.
	InteractionSuccess
	// InteractionFail consumes the interaction without changing anything.
	InteractionFail
)

// Module contributes behaviour hooks to a Pipe. Modules are shared by every
// segment of a type and keep per-segment data in Context.State.
//
// Every hook has a neutral answer: ok=false for numeric hooks, Neutral for
// acceptance, a neutral RoutePlan for routing, true for AllowsConnection and
// InteractionPass for interactions. Embed BaseModule to inherit them.
type Module interface {
	// Key namespaces the module's per-segment state.
	Key() string

	TargetSpeed(ctx *Context) (float64, bool)
	Acceleration(ctx *Context) (float64, bool)
	Drag(ctx *Context) (float64, bool)
	MaxSpeed(ctx *Context) (float64, bool)
	EnergyCapacity() int64

	AcceptFrom(ctx *Context, item *TravelingItem, from domain.Direction) Verdict
	Route(ctx *Context, item *TravelingItem, candidates []domain.Direction) RoutePlan
	DiscardWhenNoRoute(ctx *Context) bool
	AllowsConnection(ctx *Context, dir domain.Direction, neighbor Neighbor, candidate domain.ConnectionType) bool

	OnTick(ctx *Context)
	OnRandomTick(ctx *Context)
	OnConnectionsChanged(ctx *Context, connected []domain.Direction)
	OnWrench(ctx *Context) Interaction
	OnUse(ctx *Context, tool string) Interaction
	ComparatorOutput(ctx *Context) int
}

// Neighbor describes the occupant of an adjacent cell as seen by connection filters.
type Neighbor struct {
	Pos domain.Pos
	// Type is the segment type name or the block identity of a non-segment neighbour.
	Type string
	// Segment is non-nil when the neighbour is a segment.
	Segment *Segment
}

// BaseModule answers every hook neutrally.
type BaseModule struct{}

func (BaseModule) TargetSpeed(*Context) (float64, bool)  { return 0, false }
func (BaseModule) Acceleration(*Context) (float64, bool) { return 0, false }
func (BaseModule) Drag(*Context) (float64, bool)         { return 0, false }
func (BaseModule) MaxSpeed(*Context) (float64, bool)     { return 0, false }
func (BaseModule) EnergyCapacity() int64                 { return 0 }

func (BaseModule) AcceptFrom(*Context, *TravelingItem, domain.Direction) Verdict { return Neutral }

func (BaseModule) Route(*Context, *TravelingItem, []domain.Direction) RoutePlan { return Pass() }

func (BaseModule) DiscardWhenNoRoute(*Context) bool { return false }

func (BaseModule) AllowsConnection(*Context, domain.Direction, Neighbor, domain.ConnectionType) bool {
	return true
}

func (BaseModule) OnTick(*Context)                                   {}
func (BaseModule) OnRandomTick(*Context)                             {}
func (BaseModule) OnConnectionsChanged(*Context, []domain.Direction) {}
func (BaseModule) OnWrench(*Context) Interaction                     { return InteractionPass }
func (BaseModule) OnUse(*Context, string) Interaction                { return InteractionPass }
func (BaseModule) ComparatorOutput(*Context) int                     { return 0 }
