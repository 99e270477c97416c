package modules

import "github.com/polisai/conduit/pkg/pipe"

// Transport supplies the base speed and the drag of plain segments.
type Transport struct {
	pipe.BaseModule
	// BaseSpeed is the starting speed of items created in the segment. Zero defers.
	BaseSpeed float64
	// DragCoefficient is always a definitive answer, so zero means frictionless.
	DragCoefficient float64
}

// NewTransport returns a transport module with the given drag.
func NewTransport(drag float64) *Transport {
	return &Transport{DragCoefficient: drag}
}

func (t *Transport) Key() string { return "transport" }

func (t *Transport) TargetSpeed(*pipe.Context) (float64, bool) {
	return t.BaseSpeed, t.BaseSpeed > 0
}

func (t *Transport) Drag(*pipe.Context) (float64, bool) {
	return t.DragCoefficient, true
}
