// Package pipe implements the item transport engine of a conduit network.
//
// A Pipe is an immutable, ordered list of Modules describing one segment type.
// Behaviour queries walk the modules in order and take the first definitive
// answer, so reordering modules changes the resulting behaviour. A Segment holds
// the mutable state of one placed segment: its traveling items, the cached
// connection classification, per-module state blocks and an energy buffer.
// Segment.Tick is the per-tick driver; the host supplies neighbours, storage
// endpoints and redstone power through the World interface.
//
// The engine is single threaded. Only EnergyBuffer is safe for use from other
// goroutines, through EnergyTxn.
package pipe
