package pipe

import (
	"math"

	"github.com/google/uuid"

	"github.com/polisai/conduit/pkg/domain"
)

// TravelingItem is the kinematic state of one stack moving through a segment.
type TravelingItem struct {
	ID    uuid.UUID
	Stack domain.ItemStack
	// Direction is the face the item is heading for. It changes when the item is routed.
	Direction domain.Direction
	// From is the face the item entered through.
	From     domain.Direction
	Progress float64
	Speed    float64
	// Routed is set once a route decision has turned the item at the segment center.
	Routed bool

	// entered marks an item handed over during tick enteredAt; it does not move in that tick.
	entered   bool
	enteredAt uint64
}

// NewTravelingItem creates an item at progress 0 heading in dir.
func NewTravelingItem(stack domain.ItemStack, dir domain.Direction, speed float64) *TravelingItem {
	return &TravelingItem{
		ID:        uuid.New(),
		Stack:     stack,
		Direction: dir,
		From:      dir.Opposite(),
		Speed:     speed,
	}
}

// Clone returns an independent copy with a fresh ID.
func (it *TravelingItem) Clone() *TravelingItem {
	c := *it
	c.ID = uuid.New()
	return &c
}

// AtJunction reports whether the item reached the end of the segment.
func (it *TravelingItem) AtJunction() bool {
	return it.Progress >= 1-junctionTolerance
}

// Advance runs one kinematics step using the motion resolved from pipe for ctx.
func (it *TravelingItem) Advance(p *Pipe, ctx *Context, dt float64) bool {
	return it.Step(p.Motion(ctx), dt)
}

// Step applies one kinematics update and returns true once the junction is reached.
//
// An item faster than m.MaxSpeed decelerates so that it reaches MaxSpeed exactly at
// the junction: a = (max² - v²) / (2·remaining). Otherwise acceleration wins over drag.
// Progress integrates the mean of the old and new speed.
func (it *TravelingItem) Step(m Motion, dt float64) bool {
	old := it.Speed
	speed := old
	decelerating := false

	switch {
	case old > m.MaxSpeed:
		remaining := math.Max(decelerationFloor, 1-it.Progress)
		decel := (m.MaxSpeed*m.MaxSpeed - old*old) / (2 * remaining)
		speed = math.Max(old+decel*dt, m.MaxSpeed)
		decelerating = true
	case m.Acceleration != 0:
		speed += m.Acceleration * dt
	case m.Drag != 0:
		speed -= speed * m.Drag * dt
	}

	if speed < m.MinSpeed {
		speed = m.MinSpeed
	}
	if !decelerating && speed > m.MaxSpeed {
		speed = m.MaxSpeed
	}

	it.Speed = speed
	it.Progress += (old + speed) / 2 * dt
	return it.AtJunction()
}
