package domain

import (
	"fmt"
	"strings"
)

// ConnectionType classifies what sits across one face of a segment.
type ConnectionType uint8

const (
	// ConnectionNone means items cannot leave through the face.
	ConnectionNone ConnectionType = iota
	// ConnectionPeer means the neighbour is another segment of the network.
	ConnectionPeer
	// ConnectionStorage means the neighbour is a storage endpoint.
	ConnectionStorage
)

func (c ConnectionType) String() string {
	switch c {
	case ConnectionPeer:
		return "peer"
	case ConnectionStorage:
		return "storage"
	default:
		return "none"
	}
}

// ParseConnectionType is the inverse of String.
func ParseConnectionType(raw string) (ConnectionType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none", "":
		return ConnectionNone, nil
	case "peer":
		return ConnectionPeer, nil
	case "storage":
		return ConnectionStorage, nil
	default:
		return ConnectionNone, fmt.Errorf("unknown connection type %q", raw)
	}
}
