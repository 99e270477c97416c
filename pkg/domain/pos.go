package domain

import "fmt"

// Pos is an integer grid coordinate.
type Pos struct {
	X int `json:"x" yaml:"x" msgpack:"x"`
	Y int `json:"y" yaml:"y" msgpack:"y"`
	Z int `json:"z" yaml:"z" msgpack:"z"`
}

// Offset returns the neighbouring cell across face d.
func (p Pos) Offset(d Direction) Pos {
	dx, dy, dz := d.Offset()
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Add translates p by the given amounts.
func (p Pos) Add(dx, dy, dz int) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// ManhattanDistance returns |dx|+|dy|+|dz|.
func (p Pos) ManhattanDistance(o Pos) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y) + abs(p.Z-o.Z)
}

// Less orders positions by Y, then Z, then X. Segments tick in this order.
func (p Pos) Less(o Pos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	if p.Z != o.Z {
		return p.Z < o.Z
	}
	return p.X < o.X
}

func (p Pos) String() string {
	return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
