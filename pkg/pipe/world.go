package pipe

import (
	"math/rand/v2"

	"github.com/polisai/conduit/pkg/domain"
)

// World is the host simulation as seen by segments.
type World interface {
	// Time is the current tick number.
	Time() uint64
	// Segment returns the segment at pos.
	Segment(pos domain.Pos) (*Segment, bool)
	// Storage returns the storage endpoint at pos when it is exposed on face.
	Storage(pos domain.Pos, face domain.Direction) (Storage, bool)
	// BlockType identifies whatever occupies pos; empty when nothing does.
	BlockType(pos domain.Pos) string
	// Powered reports a redstone signal into pos.
	Powered(pos domain.Pos) bool
	// Drop spills a stack into the world at pos.
	Drop(pos domain.Pos, stack domain.ItemStack)
	// Rand is the deterministic random source of the simulation.
	Rand() *rand.Rand
}

// Storage is an inventory-like endpoint. Implementations live outside this package.
type Storage interface {
	// TryInsert returns how many units of stack are (or would be) accepted.
	// A real insert must accept what the simulated one reported.
	TryInsert(stack domain.ItemStack, simulate bool) int
	// TryExtract removes up to maxCount units of one item kind.
	TryExtract(maxCount int, simulate bool) domain.ItemStack
}
