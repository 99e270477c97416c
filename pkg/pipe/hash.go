package pipe

import "github.com/polisai/conduit/pkg/domain"

// mixHash scrambles a position, a tick and a salt with the murmur3 finalizer.
func mixHash(pos domain.Pos, tick uint64, salt uint64) uint64 {
	h := uint64(int64(pos.X))*0x9e3779b97f4a7c15 ^
		uint64(int64(pos.Y))*0xc2b2ae3d27d4eb4f ^
		uint64(int64(pos.Z))*0x165667b19e3779f9 ^
		tick*0x27d4eb2f165667c5 ^
		salt
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}
