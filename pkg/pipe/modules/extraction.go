package modules

import (
	"slices"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// DefaultExtractionInterval is the number of ticks between two pulls.
const DefaultExtractionInterval = 60

// Extraction periodically pulls items out of an adjacent storage endpoint.
//
// The face is chosen with the wrench; when unset and exactly one storage face is
// connected, that face is used. Extracted items head away from the storage and
// bypass acceptance hooks.
type Extraction struct {
	pipe.BaseModule
	Interval   int
	Amount     int
	EnergyCost int64
	Capacity   int64
}

// NewExtraction returns an extraction module with the stock interval.
func NewExtraction() *Extraction {
	return &Extraction{Interval: DefaultExtractionInterval, Amount: 1}
}

func (e *Extraction) Key() string { return "extraction" }

func (e *Extraction) EnergyCapacity() int64 { return e.Capacity }

// Face returns the storage face items are pulled from.
func (e *Extraction) Face(ctx *pipe.Context) (domain.Direction, bool) {
	if name := ctx.State(e).String("face", ""); name != "" {
		if d, err := domain.ParseDirection(name); err == nil && ctx.Connection(d) == domain.ConnectionStorage {
			return d, true
		}
	}
	storages := ctx.ConnectionsOf(domain.ConnectionStorage)
	if len(storages) == 1 {
		return storages[0], true
	}
	return 0, false
}

func (e *Extraction) OnTick(ctx *pipe.Context) {
	st := ctx.State(e)
	interval := max(e.Interval, 1)
	elapsed := st.Int("elapsed", 0) + 1
	if elapsed < interval {
		st.Set("elapsed", elapsed)
		return
	}
	st.Set("elapsed", 0)
	e.extract(ctx)
}

func (e *Extraction) extract(ctx *pipe.Context) {
	face, ok := e.Face(ctx)
	if !ok {
		return
	}
	source, ok := ctx.Storage(face)
	if !ok {
		return
	}
	amount := max(e.Amount, 1)
	if !ctx.Segment().HasRoom(amount) {
		return
	}
	if e.EnergyCost > 0 && ctx.Energy().Extract(e.EnergyCost, true) < e.EnergyCost {
		return
	}

	stack := source.TryExtract(amount, false)
	if stack.Empty() {
		return
	}
	if e.EnergyCost > 0 {
		ctx.Energy().Extract(e.EnergyCost, false)
	}
	ctx.AddItem(pipe.NewTravelingItem(stack, face.Opposite(), ctx.Pipe().TargetSpeed(ctx)))
}

// OnWrench cycles the extraction face through the connected storage faces.
func (e *Extraction) OnWrench(ctx *pipe.Context) pipe.Interaction {
	storages := ctx.ConnectionsOf(domain.ConnectionStorage)
	if len(storages) == 0 {
		return pipe.InteractionFail
	}
	next := storages[0]
	if current, ok := e.Face(ctx); ok {
		idx := slices.Index(storages, current)
		next = storages[(idx+1)%len(storages)]
	}
	ctx.State(e).Set("face", next.String())
	return pipe.InteractionSuccess
}

func (e *Extraction) OnConnectionsChanged(ctx *pipe.Context, _ []domain.Direction) {
	st := ctx.State(e)
	name := st.String("face", "")
	if name == "" {
		return
	}
	if d, err := domain.ParseDirection(name); err != nil || ctx.Connection(d) != domain.ConnectionStorage {
		st.Delete("face")
	}
}
