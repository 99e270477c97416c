package pipe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/polisai/conduit/pkg/domain"
)

func TestStepConstantSpeedWithoutForces(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxSpeed := rapid.Float64Range(DefaultMinSpeed, 1).Draw(rt, "max")
		speed := rapid.Float64Range(DefaultMinSpeed, maxSpeed).Draw(rt, "speed")
		progress := rapid.Float64Range(0, 0.99).Draw(rt, "progress")
		dt := rapid.Float64Range(0.1, 2).Draw(rt, "dt")

		it := &TravelingItem{Speed: speed, Progress: progress}
		it.Step(Motion{MaxSpeed: maxSpeed, MinSpeed: DefaultMinSpeed}, dt)

		if it.Speed != speed {
			rt.Fatalf("speed changed from %v to %v", speed, it.Speed)
		}
		if math.Abs(it.Progress-(progress+speed*dt)) > 1e-12 {
			rt.Fatalf("progress %v, want %v", it.Progress, progress+speed*dt)
		}
	})
}

func TestStepDecelerationReachesTargetAtJunction(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := rapid.Float64Range(DefaultMinSpeed, DefaultMaxSpeed).Draw(rt, "target")
		start := rapid.Float64Range(target, 1).Draw(rt, "start")
		progress := rapid.Float64Range(0, 0.999).Draw(rt, "progress")

		it := &TravelingItem{Speed: start, Progress: progress}
		m := Motion{MaxSpeed: target, MinSpeed: DefaultMinSpeed, Drag: DefaultDrag}

		arrived := false
		for i := 0; i < 1000 && !arrived; i++ {
			arrived = it.Step(m, 1)
			if it.Speed < target-1e-12 {
				rt.Fatalf("speed %v dropped below target %v", it.Speed, target)
			}
		}
		if !arrived {
			rt.Fatalf("item never reached the junction")
		}
		if math.Abs(it.Speed-target) > 1e-6 {
			rt.Fatalf("speed at junction %v, want %v", it.Speed, target)
		}
	})
}

func TestStepAccelerationClampsToMax(t *testing.T) {
	it := &TravelingItem{Speed: 0.24}
	it.Step(Motion{Acceleration: 0.05, MaxSpeed: 0.25, MinSpeed: DefaultMinSpeed}, 1)

	assert.Equal(t, 0.25, it.Speed)
	assert.InDelta(t, (0.24+0.25)/2, it.Progress, 1e-12)
}

func TestStepAccelerationBeatsDrag(t *testing.T) {
	it := &TravelingItem{Speed: 0.1}
	it.Step(Motion{Acceleration: 0.01, Drag: 0.5, MaxSpeed: 1, MinSpeed: DefaultMinSpeed}, 1)

	assert.InDelta(t, 0.11, it.Speed, 1e-12)
}

func TestStepDragNeverGoesBelowMinSpeed(t *testing.T) {
	it := &TravelingItem{Speed: DefaultMinSpeed}
	for i := 0; i < 100; i++ {
		it.Step(Motion{Drag: 0.5, MaxSpeed: DefaultMaxSpeed, MinSpeed: DefaultMinSpeed}, 1)
	}
	assert.Equal(t, DefaultMinSpeed, it.Speed)
}

func TestNewTravelingItem(t *testing.T) {
	stack := domain.ItemStack{ID: "minecraft:stone", Count: 1}
	it := NewTravelingItem(stack, domain.East, DefaultMinSpeed)

	require.NotEqual(t, it.ID.String(), "")
	assert.Equal(t, domain.West, it.From)
	assert.Equal(t, 0.0, it.Progress)

	clone := it.Clone()
	assert.NotEqual(t, it.ID, clone.ID)
	assert.Equal(t, it.Stack, clone.Stack)
}
