package modules

import "github.com/polisai/conduit/pkg/pipe"

// Oxidation stages of a weathering segment.
const (
	StageUnaffected = iota
	StageExposed
	StageWeathered
	StageOxidized
)

const (
	weatheringGate   = 64
	weatheringOdds   = 1125
	weatheringRadius = 4
)

// Weathering oxidises copper segments over random ticks. It has no effect on transport.
//
// A random tick passes a 64/1125 gate, then scans unwaxed weathering segments
// within Manhattan distance 4. Any less oxidised neighbour stops the progression;
// otherwise the stage advances with chance m·((b+1)/(a+1))², where a counts the
// neighbours, b the more oxidised ones, and m is 0.75 for unaffected copper.
type Weathering struct {
	pipe.BaseModule
}

// NewWeathering returns a weathering module.
func NewWeathering() *Weathering { return &Weathering{} }

func (w *Weathering) Key() string { return "weathering" }

// Stage returns the oxidation stage of the segment.
func (w *Weathering) Stage(ctx *pipe.Context) int {
	return ctx.State(w).Int("stage", StageUnaffected)
}

// Waxed reports whether oxidation is frozen.
func (w *Weathering) Waxed(ctx *pipe.Context) bool {
	return ctx.State(w).Bool("waxed", false)
}

func (w *Weathering) OnRandomTick(ctx *pipe.Context) {
	if w.Waxed(ctx) {
		return
	}
	stage := w.Stage(ctx)
	if stage >= StageOxidized {
		return
	}
	rng := ctx.Rand()
	if rng.IntN(weatheringOdds) >= weatheringGate {
		return
	}

	origin := ctx.Pos()
	a, b := 0, 0
	for dx := -weatheringRadius; dx <= weatheringRadius; dx++ {
		for dy := -weatheringRadius; dy <= weatheringRadius; dy++ {
			for dz := -weatheringRadius; dz <= weatheringRadius; dz++ {
				pos := origin.Add(dx, dy, dz)
				if pos == origin || origin.ManhattanDistance(pos) > weatheringRadius {
					continue
				}
				seg, ok := ctx.World().Segment(pos)
				if !ok {
					continue
				}
				if _, ok := seg.Pipe().Module(w.Key()); !ok {
					continue
				}
				st := seg.State(w.Key())
				if st.Bool("waxed", false) {
					continue
				}
				neighborStage := st.Int("stage", StageUnaffected)
				if neighborStage < stage {
					return
				}
				a++
				if neighborStage > stage {
					b++
				}
			}
		}
	}

	c := float64(b+1) / float64(a+1)
	m := 1.0
	if stage == StageUnaffected {
		m = 0.75
	}
	if rng.Float64() < m*c*c {
		ctx.State(w).Set("stage", stage+1)
	}
}

// OnUse waxes with honeycomb; an axe removes wax first, then scrapes one stage.
func (w *Weathering) OnUse(ctx *pipe.Context, tool string) pipe.Interaction {
	st := ctx.State(w)
	switch tool {
	case "honeycomb":
		if w.Waxed(ctx) {
			return pipe.InteractionFail
		}
		st.Set("waxed", true)
		return pipe.InteractionSuccess
	case "axe":
		if w.Waxed(ctx) {
			st.Set("waxed", false)
			return pipe.InteractionSuccess
		}
		if stage := w.Stage(ctx); stage > StageUnaffected {
			st.Set("stage", stage-1)
			return pipe.InteractionSuccess
		}
		return pipe.InteractionFail
	}
	return pipe.InteractionPass
}
