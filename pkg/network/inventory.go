package network

import (
	"maps"
	"slices"

	"github.com/polisai/conduit/pkg/domain"
)

// Inventory is a simple storage endpoint holding up to capacity units of any item.
type Inventory struct {
	capacity int
	counts   map[string]int
	order    []string
	faces    map[domain.Direction]bool
}

// NewInventory creates an inventory exposed on every face.
func NewInventory(capacity int) *Inventory {
	return &Inventory{
		capacity: max(capacity, 0),
		counts:   make(map[string]int),
	}
}

// Expose limits the faces the inventory can be reached from. Without faces it
// is reachable from every face again.
func (inv *Inventory) Expose(faces ...domain.Direction) {
	if len(faces) == 0 {
		inv.faces = nil
		return
	}
	inv.faces = make(map[domain.Direction]bool, len(faces))
	for _, f := range faces {
		inv.faces[f] = true
	}
}

// ExposedOn reports whether face gives access to the inventory.
func (inv *Inventory) ExposedOn(face domain.Direction) bool {
	return inv.faces == nil || inv.faces[face]
}

// Faces returns the exposed faces, or nil when every face is.
func (inv *Inventory) Faces() []domain.Direction {
	if inv.faces == nil {
		return nil
	}
	out := make([]domain.Direction, 0, len(inv.faces))
	for _, d := range domain.Directions {
		if inv.faces[d] {
			out = append(out, d)
		}
	}
	return out
}

// Capacity returns the unit limit.
func (inv *Inventory) Capacity() int { return inv.capacity }

// Total returns the number of stored units.
func (inv *Inventory) Total() int {
	total := 0
	for _, n := range inv.counts {
		total += n
	}
	return total
}

// Count returns the stored units of one item.
func (inv *Inventory) Count(id string) int { return inv.counts[id] }

// Contents returns a copy of the stored counts.
func (inv *Inventory) Contents() map[string]int { return maps.Clone(inv.counts) }

// Stacks returns the contents in first-stored order.
func (inv *Inventory) Stacks() []domain.ItemStack {
	var out []domain.ItemStack
	for _, id := range inv.order {
		out = append(out, domain.ItemStack{ID: id, Count: inv.counts[id]})
	}
	return out
}

// TryInsert accepts as many units as fit.
func (inv *Inventory) TryInsert(stack domain.ItemStack, simulate bool) int {
	if stack.Empty() {
		return 0
	}
	accepted := min(stack.Count, inv.capacity-inv.Total())
	if accepted <= 0 {
		return 0
	}
	if !simulate {
		inv.add(stack.ID, accepted)
	}
	return accepted
}

// TryExtract removes up to maxCount units of the oldest stored item.
func (inv *Inventory) TryExtract(maxCount int, simulate bool) domain.ItemStack {
	if maxCount <= 0 || len(inv.order) == 0 {
		return domain.ItemStack{}
	}
	id := inv.order[0]
	taken := min(maxCount, inv.counts[id])
	if !simulate {
		inv.counts[id] -= taken
		if inv.counts[id] == 0 {
			delete(inv.counts, id)
			inv.order = slices.Delete(inv.order, 0, 1)
		}
	}
	return domain.ItemStack{ID: id, Count: taken}
}

func (inv *Inventory) add(id string, n int) {
	if _, ok := inv.counts[id]; !ok {
		inv.order = append(inv.order, id)
	}
	inv.counts[id] += n
}
