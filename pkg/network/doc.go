// Package network hosts pipe segments on a grid and drives them tick by tick.
//
// Grid implements pipe.World: it owns segments, storage endpoints, redstone power
// and spilled items, and turns placements into neighbour-change notifications.
// Simulator steps a Grid deterministically, records metrics and opens one span
// per step. Catalog maps pipe type names to module lists, and Snapshot/Codec
// capture the full state for persistence.
package network
