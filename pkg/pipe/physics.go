package pipe

import (
	"fmt"

	"github.com/polisai/conduit/pkg/domain"
)

const (
	// DefaultMinSpeed is the speed floor in blocks per tick. Items never stop.
	DefaultMinSpeed = 1.0 / 60.0
	// DefaultMaxSpeed is the speed ceiling of a segment without boost modules.
	DefaultMaxSpeed = 1.0 / 4.0
	// DefaultAcceleration is the per-tick speed gain of a powered boost segment.
	DefaultAcceleration = 1.0 / 200.0
	// DefaultDrag is the fraction of speed lost per tick on an unpowered segment.
	DefaultDrag = 0.00536
	// DefaultCenter is the progress at which routing is decided.
	DefaultCenter = 0.5
	// DefaultCapacity is the number of item units a segment holds (5 stacks of 64).
	DefaultCapacity = 5 * 64

	// decelerationFloor bounds the remaining distance used in the deceleration formula.
	decelerationFloor = 1e-4
	// junctionTolerance absorbs floating point error when summing per-tick progress.
	junctionTolerance = 1e-9
)

// Physics holds the tunable constants of the kinematics model.
type Physics struct {
	MinSpeed     float64 `yaml:"min_speed" msgpack:"min_speed"`
	MaxSpeed     float64 `yaml:"max_speed" msgpack:"max_speed"`
	Acceleration float64 `yaml:"acceleration" msgpack:"acceleration"`
	Drag         float64 `yaml:"drag" msgpack:"drag"`
	Center       float64 `yaml:"center" msgpack:"center"`
	Capacity     int     `yaml:"capacity" msgpack:"capacity"`
	DT           float64 `yaml:"dt" msgpack:"dt"`
}

// DefaultPhysics returns the stock constants.
func DefaultPhysics() Physics {
	return Physics{
		MinSpeed:     DefaultMinSpeed,
		MaxSpeed:     DefaultMaxSpeed,
		Acceleration: DefaultAcceleration,
		Drag:         DefaultDrag,
		Center:       DefaultCenter,
		Capacity:     DefaultCapacity,
		DT:           1,
	}
}

// WithDefaults fills zero fields from DefaultPhysics. Drag is left alone since zero is a valid setting.
func (p Physics) WithDefaults() Physics {
	def := DefaultPhysics()
	if p.MinSpeed == 0 {
		p.MinSpeed = def.MinSpeed
	}
	if p.MaxSpeed == 0 {
		p.MaxSpeed = def.MaxSpeed
	}
	if p.Acceleration == 0 {
		p.Acceleration = def.Acceleration
	}
	if p.Center == 0 {
		p.Center = def.Center
	}
	if p.Capacity == 0 {
		p.Capacity = def.Capacity
	}
	if p.DT == 0 {
		p.DT = def.DT
	}
	return p
}

// Validate checks the constants are physically meaningful.
func (p Physics) Validate() error {
	switch {
	case p.MinSpeed <= 0:
		return fmt.Errorf("%w: min_speed must be positive", domain.ErrConfigInvalid)
	case p.MaxSpeed < p.MinSpeed:
		return fmt.Errorf("%w: max_speed %.4f below min_speed %.4f", domain.ErrConfigInvalid, p.MaxSpeed, p.MinSpeed)
	case p.Drag < 0 || p.Drag >= 1:
		return fmt.Errorf("%w: drag must be in [0,1)", domain.ErrConfigInvalid)
	case p.Acceleration < 0:
		return fmt.Errorf("%w: acceleration must not be negative", domain.ErrConfigInvalid)
	case p.Center <= 0 || p.Center >= 1:
		return fmt.Errorf("%w: center must be in (0,1)", domain.ErrConfigInvalid)
	case p.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", domain.ErrConfigInvalid)
	case p.DT <= 0:
		return fmt.Errorf("%w: dt must be positive", domain.ErrConfigInvalid)
	}
	return nil
}

// Motion is the resolved set of kinematic parameters for one tick of one segment.
type Motion struct {
	Acceleration float64
	Drag         float64
	MaxSpeed     float64
	MinSpeed     float64
}
