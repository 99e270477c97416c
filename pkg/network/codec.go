package network

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes snapshots with msgpack.
type Codec struct{}

// Encode serialises snap.
func (Codec) Encode(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(&snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a snapshot produced by Encode.
func (Codec) Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
