package waypoint

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/curve"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// MinCurveLength is the shortest centerline that still gets waypoints.
const MinCurveLength = 0.01

const radToDeg = 180 / gomath.Pi

// Build samples c every p.SpacingMeters and annotates each waypoint with
// curvature, corner speed and zone. A nil curve yields a nil set; a
// degenerate curve yields an empty one.
func Build(c *curve.Curve, p Params) (*Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("waypoint")

	if c == nil {
		log.Warn("waypoint build skipped: no centerline", zap.Error(track.ErrMissingDependency))
		return nil, nil
	}
	length := curve.Length(c)
	if len(c.Knots) < 2 || length <= MinCurveLength {
		log.Warn("waypoint build skipped: degenerate centerline",
			zap.Int("knots", len(c.Knots)),
			zap.Float64("length", length),
			zap.Error(track.ErrDegenerateGeometry))
		return &Set{Closed: c.Closed}, nil
	}

	steps := max(2, int(gomath.Floor(length/p.SpacingMeters)))
	count := steps
	if !c.Closed {
		count++
	}

	set := &Set{
		Waypoints: make([]Waypoint, count),
		LeftEdge:  make([]math.Vec3, count),
		RightEdge: make([]math.Vec3, count),
		Closed:    c.Closed,
		Length:    length,
	}

	hw := p.RoadWidth / 2
	prevTangent := math.Forward
	fallbacks := 0
	for i := 0; i < count; i++ {
		s, err := curve.Sample(c, float64(i)/float64(steps))
		if err != nil {
			fallbacks++
			s.Tangent = prevTangent
			s.Right = curve.RightOf(prevTangent)
		}
		prevTangent = s.Tangent

		set.Waypoints[i] = Waypoint{
			Index:    i,
			Position: s.Position,
			Rotation: math.LookRotation(s.Tangent, math.Up),
			SlopeDeg: slope(s.Tangent),
		}
		set.LeftEdge[i] = s.Position.Sub(s.Right.Scale(hw))
		set.RightEdge[i] = s.Position.Add(s.Right.Scale(hw))
	}
	if fallbacks > 0 {
		log.Debug("waypoints used fallback tangents", zap.Int("count", fallbacks))
	}

	speeds := make([]float64, count)
	for i := range set.Waypoints {
		w := &set.Waypoints[i]
		prev := set.Waypoints[neighbour(i, -1, count, set.Closed)].Position
		next := set.Waypoints[neighbour(i, 1, count, set.Closed)].Position
		hint := cornerHint(prev, w.Position, next, p.Tuning)
		w.TurnAngle = hint.turnDeg
		w.Curvature = hint.curvature
		w.Radius = hint.radius
		w.RecommendedSpeed = hint.speed
		speeds[i] = hint.speed
	}

	for i, z := range ClassifyZones(speeds, set.Closed, p.Tuning) {
		set.Waypoints[i].Zone = z
	}

	zones := set.ZoneCounts()
	log.Debug("waypoints built",
		zap.Int("count", count),
		zap.Float64("length", length),
		zap.Int("brake", zones[ZoneBrake]),
		zap.Int("accelerate", zones[ZoneAccelerate]),
		zap.Int("cruise", zones[ZoneCruise]))
	return set, nil
}

type speedHint struct {
	turnDeg   float64
	curvature float64
	radius    float64
	speed     float64
}

// cornerHint estimates the turn at cur from its neighbours and converts the
// implied radius into a circular-motion corner speed.
func cornerHint(prev, cur, next math.Vec3, t Tuning) speedHint {
	a := cur.Sub(prev)
	b := next.Sub(cur)
	if t.FlattenAngles {
		a, b = a.Flat(), b.Flat()
	}

	straight := speedHint{radius: gomath.Inf(1), speed: t.MaxSpeed}
	la, lb := a.Length(), b.Length()
	if la <= t.MinSegmentLength || lb <= t.MinSegmentLength {
		return straight
	}

	angle := math.Angle(a, b)
	deg := angle * radToDeg
	if deg < t.StraightThresholdDeg {
		straight.turnDeg = deg
		return straight
	}

	curvature := angle / ((la + lb) / 2)
	radius := 1 / curvature
	speed := gomath.Sqrt(t.FrictionCoefficient*Gravity*radius) * t.SpeedMultiplier
	return speedHint{
		turnDeg:   deg,
		curvature: curvature,
		radius:    radius,
		speed:     gomath.Max(t.MinSpeed, gomath.Min(t.MaxSpeed, speed)),
	}
}

// slope returns the climb angle of tangent in degrees.
func slope(tangent math.Vec3) float64 {
	return gomath.Atan2(tangent.Y, tangent.Flat().Length()) * radToDeg
}
