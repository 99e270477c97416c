package modules

import (
	"slices"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// Merger funnels several inbound streams into the outputs with a round-robin
// per inbound face. Outputs that cannot take the item right now are skipped.
// A wrench locks a single output; items are then refused from that face.
type Merger struct {
	pipe.BaseModule
}

// NewMerger returns a merger module.
func NewMerger() *Merger { return &Merger{} }

func (m *Merger) Key() string { return "merger" }

// Output returns the wrench-locked output face, if any.
func (m *Merger) Output(ctx *pipe.Context) (domain.Direction, bool) {
	name := ctx.State(m).String("output", "")
	if name == "" {
		return 0, false
	}
	d, err := domain.ParseDirection(name)
	if err != nil || ctx.Connection(d) == domain.ConnectionNone {
		return 0, false
	}
	return d, true
}

func (m *Merger) AcceptFrom(ctx *pipe.Context, _ *pipe.TravelingItem, from domain.Direction) pipe.Verdict {
	if out, ok := m.Output(ctx); ok && out == from {
		return pipe.Deny
	}
	return pipe.Neutral
}

func (m *Merger) Route(ctx *pipe.Context, item *pipe.TravelingItem, candidates []domain.Direction) pipe.RoutePlan {
	if out, ok := m.Output(ctx); ok {
		if slices.Contains(candidates, out) {
			return pipe.Reroute(out)
		}
		return pipe.Pass()
	}
	if len(candidates) == 0 {
		return pipe.Pass()
	}

	st := ctx.State(m)
	key := "next_" + item.From.String()
	start := st.Int(key, 0) % len(candidates)
	for i := range candidates {
		idx := (start + i) % len(candidates)
		if ctx.CanHandOff(candidates[idx], item) {
			st.Set(key, (idx+1)%len(candidates))
			return pipe.Reroute(candidates[idx])
		}
	}
	st.Set(key, (start+1)%len(candidates))
	return pipe.Reroute(candidates[start])
}

// OnWrench cycles the locked output through the connected faces, then back to unlocked.
func (m *Merger) OnWrench(ctx *pipe.Context) pipe.Interaction {
	connected := ctx.Connections()
	if len(connected) == 0 {
		return pipe.InteractionFail
	}
	st := ctx.State(m)
	current, locked := m.Output(ctx)
	switch {
	case !locked:
		st.Set("output", connected[0].String())
	case slices.Index(connected, current) == len(connected)-1:
		st.Delete("output")
	default:
		st.Set("output", connected[slices.Index(connected, current)+1].String())
	}
	return pipe.InteractionSuccess
}

func (m *Merger) OnConnectionsChanged(ctx *pipe.Context, _ []domain.Direction) {
	st := ctx.State(m)
	if st.String("output", "") == "" {
		return
	}
	if _, ok := m.Output(ctx); !ok {
		st.Delete("output")
	}
}
