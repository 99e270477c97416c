package modules

import (
	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// Splitter deals items to its outputs in turn.
type Splitter struct {
	pipe.BaseModule
}

// NewSplitter returns a splitter module.
func NewSplitter() *Splitter { return &Splitter{} }

func (s *Splitter) Key() string { return "splitter" }

func (s *Splitter) Route(ctx *pipe.Context, _ *pipe.TravelingItem, candidates []domain.Direction) pipe.RoutePlan {
	if len(candidates) == 0 {
		return pipe.Pass()
	}
	st := ctx.State(s)
	idx := st.Int("next", 0) % len(candidates)
	st.Set("next", (idx+1)%len(candidates))
	return pipe.Reroute(candidates[idx])
}

func (s *Splitter) OnConnectionsChanged(ctx *pipe.Context, _ []domain.Direction) {
	ctx.State(s).Set("next", 0)
}
