package modules

import (
	"fmt"
	"slices"

	"github.com/polisai/conduit/pkg/domain"
	"github.com/polisai/conduit/pkg/pipe"
)

// MaxFilterSlots is the number of item ids one face can list.
const MaxFilterSlots = 8

// ItemFilter routes items toward the faces whose allow-list names them. Items no
// list names go to faces without a list.
type ItemFilter struct {
	pipe.BaseModule
	// Defaults seed faces that have no per-segment list yet.
	Defaults map[domain.Direction][]string
}

// NewItemFilter returns a filter with the given default lists.
func NewItemFilter(defaults map[domain.Direction][]string) *ItemFilter {
	return &ItemFilter{Defaults: defaults}
}

func (f *ItemFilter) Key() string { return "item_filter" }

func sideKey(dir domain.Direction) string { return "side_" + dir.String() }

// Filters returns the allow-list of a face.
func (f *ItemFilter) Filters(ctx *pipe.Context, dir domain.Direction) []string {
	st := ctx.State(f)
	if _, ok := st[sideKey(dir)]; ok {
		return st.Strings(sideKey(dir))
	}
	return slices.Clone(f.Defaults[dir])
}

// SetFilters stores the allow-list of a face for this segment.
func (f *ItemFilter) SetFilters(ctx *pipe.Context, dir domain.Direction, ids []string) error {
	if len(ids) > MaxFilterSlots {
		return fmt.Errorf("face %s: %d filters exceed the %d slots", dir, len(ids), MaxFilterSlots)
	}
	ctx.State(f).Set(sideKey(dir), slices.Clone(ids))
	return nil
}

func (f *ItemFilter) Route(ctx *pipe.Context, item *pipe.TravelingItem, candidates []domain.Direction) pipe.RoutePlan {
	var matches, fallbacks []domain.Direction
	for _, d := range candidates {
		filters := f.Filters(ctx, d)
		if len(filters) == 0 {
			fallbacks = append(fallbacks, d)
			continue
		}
		if slices.Contains(filters, item.Stack.ID) {
			matches = append(matches, d)
		}
	}
	if len(matches) > 0 {
		return pipe.Reroute(matches...)
	}
	return pipe.Reroute(fallbacks...)
}
