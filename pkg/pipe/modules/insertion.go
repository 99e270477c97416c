package modules

import (
	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// Insertion prefers storage faces that can take the whole stack over peer faces.
// Space already promised to items routed toward a face is taken into account.
type Insertion struct {
	pipe.BaseModule
}

// NewInsertion returns an insertion module.
func NewInsertion() *Insertion { return &Insertion{} }

func (i *Insertion) Key() string { return "insertion" }

func (i *Insertion) Route(ctx *pipe.Context, item *pipe.TravelingItem, candidates []domain.Direction) pipe.RoutePlan {
	var storages, peers []domain.Direction
	for _, d := range candidates {
		switch ctx.Connection(d) {
		case domain.ConnectionStorage:
			if i.fits(ctx, item, d) {
				storages = append(storages, d)
			}
		case domain.ConnectionPeer:
			peers = append(peers, d)
		}
	}
	if len(storages) > 0 {
		return pipe.Reroute(storages...)
	}
	return pipe.Reroute(peers...)
}

func (i *Insertion) fits(ctx *pipe.Context, item *pipe.TravelingItem, dir domain.Direction) bool {
	target, ok := ctx.Storage(dir)
	if !ok {
		return false
	}
	reserved := 0
	for _, other := range ctx.Items() {
		if other != item && other.Routed && other.Direction == dir && other.Stack.ID == item.Stack.ID {
			reserved += other.Stack.Count
		}
	}
	want := item.Stack.Count + reserved
	return target.TryInsert(item.Stack.WithCount(want), true) >= want
}
