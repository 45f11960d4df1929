// Package waypoint samples the centerline into an AI navigation path with
// per-waypoint corner speeds and throttle zones.
package waypoint

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// Gravity is the acceleration used by the corner speed approximation.
const Gravity = 9.81

// Zone is an advisory throttle tag.
type Zone int

const (
	ZoneCruise Zone = iota
	ZoneAccelerate
	ZoneBrake
)

func (z Zone) String() string {
	switch z {
	case ZoneCruise:
		return "cruise"
	case ZoneAccelerate:
		return "accelerate"
	case ZoneBrake:
		return "brake"
	default:
		return fmt.Sprintf("zone(%d)", int(z))
	}
}

// Waypoint is one node of the navigation path.
type Waypoint struct {
	Index    int
	Position math.Vec3
	Rotation math.Quat // faces along the centerline

	Curvature        float64 // 1/m, 0 on straights
	TurnAngle        float64 // degrees
	Radius           float64 // +Inf on straights
	RecommendedSpeed float64
	Zone             Zone

	// SlopeDeg is the climb angle of the road at this waypoint. Diagnostic
	// only; it does not affect speed.
	SlopeDeg float64
}

// IsStraight reports whether the waypoint was classified as a straight.
func (w Waypoint) IsStraight() bool {
	return gomath.IsInf(w.Radius, 1)
}

// Tuning holds the speed and zone classification knobs.
type Tuning struct {
	FrictionCoefficient float64 `yaml:"friction_coefficient"`
	SpeedMultiplier     float64 `yaml:"speed_multiplier"`
	MinSpeed            float64 `yaml:"min_speed"`
	MaxSpeed            float64 `yaml:"max_speed"`

	StraightThresholdDeg float64 `yaml:"straight_threshold_deg"`
	FlattenAngles        bool    `yaml:"flatten_angles"` // ignore elevation when measuring turns
	MinSegmentLength     float64 `yaml:"min_segment_length"`

	LookAheadCount      int     `yaml:"look_ahead_count"`
	BrakeDeltaThreshold float64 `yaml:"brake_delta_threshold"`
	BrakeLeadCount      int     `yaml:"brake_lead_count"`
	AccelTailCount      int     `yaml:"accel_tail_count"`
}

// DefaultTuning returns tuning for a mid-grip road car.
func DefaultTuning() Tuning {
	return Tuning{
		FrictionCoefficient:  1.0,
		SpeedMultiplier:      1.0,
		MinSpeed:             8,
		MaxSpeed:             60,
		StraightThresholdDeg: 2,
		FlattenAngles:        true,
		MinSegmentLength:     1e-3,
		LookAheadCount:       6,
		BrakeDeltaThreshold:  6,
		BrakeLeadCount:       2,
		AccelTailCount:       2,
	}
}

// Validate rejects tuning that cannot classify a path.
func (t Tuning) Validate() error {
	switch {
	case t.FrictionCoefficient <= 0:
		return fmt.Errorf("%w: friction coefficient %.3f must be positive", track.ErrInvalidParameter, t.FrictionCoefficient)
	case t.SpeedMultiplier <= 0:
		return fmt.Errorf("%w: speed multiplier %.3f must be positive", track.ErrInvalidParameter, t.SpeedMultiplier)
	case t.MinSpeed < 0:
		return fmt.Errorf("%w: min speed %.3f is negative", track.ErrInvalidParameter, t.MinSpeed)
	case t.MaxSpeed <= 0 || t.MaxSpeed < t.MinSpeed:
		return fmt.Errorf("%w: max speed %.3f must be positive and at least min speed %.3f", track.ErrInvalidParameter, t.MaxSpeed, t.MinSpeed)
	case t.StraightThresholdDeg < 0:
		return fmt.Errorf("%w: straight threshold %.3f is negative", track.ErrInvalidParameter, t.StraightThresholdDeg)
	case t.MinSegmentLength < 0:
		return fmt.Errorf("%w: min segment length %.3f is negative", track.ErrInvalidParameter, t.MinSegmentLength)
	case t.LookAheadCount < 0 || t.BrakeLeadCount < 0 || t.AccelTailCount < 0:
		return fmt.Errorf("%w: look-ahead %d, brake lead %d and accel tail %d must not be negative",
			track.ErrInvalidParameter, t.LookAheadCount, t.BrakeLeadCount, t.AccelTailCount)
	case t.BrakeDeltaThreshold < 0:
		return fmt.Errorf("%w: brake delta %.3f is negative", track.ErrInvalidParameter, t.BrakeDeltaThreshold)
	}
	return nil
}

// Params controls waypoint sampling.
type Params struct {
	SpacingMeters float64
	RoadWidth     float64
	Tuning        Tuning
}

// DefaultParams returns 10 m spacing on an 8 m road.
func DefaultParams() Params {
	return Params{SpacingMeters: 10, RoadWidth: 8, Tuning: DefaultTuning()}
}

// Validate rejects parameters before any sampling happens.
func (p Params) Validate() error {
	if p.SpacingMeters <= 0 {
		return fmt.Errorf("%w: spacing %.3f must be positive", track.ErrInvalidParameter, p.SpacingMeters)
	}
	if p.RoadWidth <= 0 {
		return fmt.Errorf("%w: road width %.3f must be positive", track.ErrInvalidParameter, p.RoadWidth)
	}
	return p.Tuning.Validate()
}
