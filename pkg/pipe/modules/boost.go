package modules

import "github.com/polisai/conduit/pkg/pipe"

// DefaultBoostMultiplier scales the physics max speed on boost segments.
const DefaultBoostMultiplier = 4

// Boost accelerates items while the segment is powered by redstone or, when an
// energy cost is set, while its buffer can pay for the tick.
type Boost struct {
	pipe.BaseModule
	Rate       float64
	Multiplier float64
	EnergyCost int64
	Capacity   int64
}

// NewBoost returns a boost module accelerating at rate.
func NewBoost(rate float64) *Boost {
	return &Boost{Rate: rate, Multiplier: DefaultBoostMultiplier}
}

func (b *Boost) Key() string { return "boost" }

func (b *Boost) EnergyCapacity() int64 { return b.Capacity }

// Active reports whether the boost applies this tick.
func (b *Boost) Active(ctx *pipe.Context) bool {
	return ctx.Powered() || ctx.State(b).Bool("charged", false)
}

func (b *Boost) Acceleration(ctx *pipe.Context) (float64, bool) {
	if !b.Active(ctx) {
		return 0, false
	}
	return b.Rate, true
}

func (b *Boost) MaxSpeed(ctx *pipe.Context) (float64, bool) {
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = DefaultBoostMultiplier
	}
	return ctx.Physics().MaxSpeed * multiplier, true
}

func (b *Boost) OnTick(ctx *pipe.Context) {
	if b.EnergyCost <= 0 {
		return
	}
	st := ctx.State(b)
	if ctx.Powered() || len(ctx.Items()) == 0 {
		st.Set("charged", false)
		return
	}
	energy := ctx.Energy()
	if energy.Extract(b.EnergyCost, true) < b.EnergyCost {
		st.Set("charged", false)
		return
	}
	energy.Extract(b.EnergyCost, false)
	st.Set("charged", true)
}
