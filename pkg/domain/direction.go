package domain

import (
	"fmt"
	"strings"
)

// Direction is one of the six faces of a grid cell.
type Direction uint8

// The declaration order is the canonical iteration order used for deterministic routing.
const (
	Down Direction = iota
	Up
	North
	South
	West
	East
)

// Directions lists every face in canonical order.
var Directions = [6]Direction{Down, Up, North, South, West, East}

var directionNames = [6]string{"down", "up", "north", "south", "west", "east"}

// Opposite returns the face pointing the other way.
func (d Direction) Opposite() Direction {
	switch d {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// Valid reports whether d is one of the six faces.
func (d Direction) Valid() bool {
	return d <= East
}

// Bit returns the bit assigned to d in a connection mask.
func (d Direction) Bit() uint8 {
	return 1 << d
}

// Offset returns the unit vector of d. North is -Z, East is +X.
func (d Direction) Offset() (dx, dy, dz int) {
	switch d {
	case Down:
		return 0, -1, 0
	case Up:
		return 0, 1, 0
	case North:
		return 0, 0, -1
	case South:
		return 0, 0, 1
	case West:
		return -1, 0, 0
	default:
		return 1, 0, 0
	}
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the lower-case face names, case-insensitively.
func ParseDirection(raw string) (Direction, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, candidate := range directionNames {
		if candidate == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, raw)
}

// MarshalText encodes the face name.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a face name.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
