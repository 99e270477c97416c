package modules

import (
	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// Void deletes every item reaching the segment center.
type Void struct {
	pipe.BaseModule
}

// NewVoid returns a void module.
func NewVoid() *Void { return &Void{} }

func (v *Void) Key() string { return "void" }

// Discards claims every item, ahead of any other module's plan.
func (v *Void) Discards(*pipe.Context, *pipe.TravelingItem) bool { return true }

func (v *Void) Route(*pipe.Context, *pipe.TravelingItem, []domain.Direction) pipe.RoutePlan {
	return pipe.Discard()
}

func (v *Void) DiscardWhenNoRoute(*pipe.Context) bool { return true }
