package pipe

import (
	"slices"

	"github.com/polisai/conduit/pkg/domain"
)

// RouteKind classifies a routing decision.
type RouteKind string

const (
	// RoutePass expresses no opinion; the next module or the default policy decides.
	RoutePass RouteKind = "pass"
	// RouteReroute sends the item toward one of Directions.
	RouteReroute RouteKind = "reroute"
	// RouteSplit divides the stack across Directions.
	RouteSplit RouteKind = "split"
	// RouteDiscard deletes the item.
	RouteDiscard RouteKind = "discard"
	// RouteDrop spills the item into the world at the segment position.
	RouteDrop RouteKind = "drop"
)

// RoutePlan is the result of a routing query.
type RoutePlan struct {
	Kind       RouteKind
	Directions []domain.Direction
}

// Pass constructs the neutral plan.
func Pass() RoutePlan {
	return RoutePlan{Kind: RoutePass}
}

// Reroute constructs a plan choosing among dirs.
func Reroute(dirs ...domain.Direction) RoutePlan {
	return RoutePlan{Kind: RouteReroute, Directions: slices.Clone(dirs)}
}

// Split constructs a plan dividing the stack across dirs.
func Split(dirs ...domain.Direction) RoutePlan {
	return RoutePlan{Kind: RouteSplit, Directions: slices.Clone(dirs)}
}

// Discard constructs the void plan.
func Discard() RoutePlan {
	return RoutePlan{Kind: RouteDiscard}
}

// Drop constructs the spill plan.
func Drop() RoutePlan {
	return RoutePlan{Kind: RouteDrop}
}

// WithDefaults normalises a zero plan to Pass.
func (r RoutePlan) WithDefaults() RoutePlan {
	if r.Kind == "" {
		r.Kind = RoutePass
	}
	return r
}

// Neutral reports whether the plan defers to the next module. A directional plan
// without directions carries no decision and is neutral too.
func (r RoutePlan) Neutral() bool {
	switch r.Kind {
	case "", RoutePass:
		return true
	case RouteReroute, RouteSplit:
		return len(r.Directions) == 0
	default:
		return false
	}
}

// Terminal reports whether the plan removes the item from the network.
func (r RoutePlan) Terminal() bool {
	return r.Kind == RouteDiscard || r.Kind == RouteDrop
}
