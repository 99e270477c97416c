package modules

import "github.com/polisai/conduit/pkg/pipe"

// Comparator exposes the fill level of the segment as a comparator signal.
type Comparator struct {
	pipe.BaseModule
}

// NewComparator returns a comparator module.
func NewComparator() *Comparator { return &Comparator{} }

func (c *Comparator) Key() string { return "comparator" }

// ComparatorOutput maps the carried units onto 1..15; an empty segment reads 0.
func (c *Comparator) ComparatorOutput(ctx *pipe.Context) int {
	total := ctx.Segment().ItemCount()
	if total <= 0 {
		return 0
	}
	capacity := ctx.Physics().Capacity
	return max(1, min(total, capacity)*15/capacity)
}
