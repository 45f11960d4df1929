package curve

import (
	"fmt"

	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// finiteStep is the parameter offset used when the analytic derivative
// vanishes at a knot with collapsed handles.
const finiteStep = 1e-4

// RingSample is one evaluated point along the curve.
type RingSample struct {
	T        float64
	Position math.Vec3
	Tangent  math.Vec3 // unit
	Right    math.Vec3 // normalize(cross(up, tangent))
	Distance float64   // arc length from t=0
}

// Length returns the arc length of the curve, or 0 for a nil curve.
func Length(c *Curve) float64 {
	if c == nil {
		return 0
	}
	return c.arcs().total
}

// Position returns the world position at normalised arc length t.
func Position(c *Curve, t float64) math.Vec3 {
	if c == nil || len(c.Knots) == 0 {
		return math.Vec3{}
	}
	if c.SegmentCount() == 0 {
		return c.Knots[0].Position
	}
	seg, u := c.locate(t)
	return c.pointAt(seg, u)
}

// Tangent returns the unit direction of travel at t. A zero-length curve
// returns ErrDegenerateGeometry.
func Tangent(c *Curve, t float64) (math.Vec3, error) {
	if c == nil || Length(c) < minLength {
		return math.Vec3{}, fmt.Errorf("tangent of zero-length curve: %w", track.ErrDegenerateGeometry)
	}
	seg, u := c.locate(t)
	d := c.derivativeAt(seg, u)
	if d.Length() > 1e-9 {
		return d.Normalize(), nil
	}

	lo, hi := t-finiteStep, t+finiteStep
	if !c.Closed {
		lo, hi = max(0, lo), min(1, hi)
	}
	d = Position(c, hi).Sub(Position(c, lo))
	if d.Length() < 1e-12 {
		return math.Vec3{}, fmt.Errorf("tangent at t=%.4f: %w", t, track.ErrDegenerateGeometry)
	}
	return d.Normalize(), nil
}

// Sample evaluates position, tangent and lateral right vector at t.
func Sample(c *Curve, t float64) (RingSample, error) {
	tangent, err := Tangent(c, t)
	if err != nil {
		return RingSample{T: t, Position: Position(c, t)}, err
	}
	return RingSample{
		T:        t,
		Position: Position(c, t),
		Tangent:  tangent,
		Right:    RightOf(tangent),
		Distance: c.normalize(t) * Length(c),
	}, nil
}

// RightOf returns normalize(cross(up, tangent)), falling back to world right
// when the tangent is vertical.
func RightOf(tangent math.Vec3) math.Vec3 {
	return math.Up.Cross(tangent).NormalizeOr(math.Right, 1e-6)
}
