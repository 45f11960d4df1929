// Package curve builds and evaluates the circuit centerline.
//
// A Curve is a chain of cubic Bezier segments defined by knots with
// relative in/out tangents. Evaluation is parameterised by normalised arc
// length: t=0.5 is half way along the curve regardless of knot spacing.
package curve

import (
	gomath "math"
	"sort"
	"sync"

	"github.com/Faultbox/circuitgen/pkg/math"
)

// samplesPerSegment is the integration resolution for arc length.
const samplesPerSegment = 64

// minLength is the curve length below which evaluation is degenerate.
const minLength = 1e-6

// Knot is a control point of the curve.
type Knot struct {
	Position   math.Vec3
	TangentIn  math.Vec3 // relative to Position
	TangentOut math.Vec3 // relative to Position
	Rotation   math.Quat
}

// Curve is an immutable centerline. Build it with New or a generator and
// never mutate Knots afterwards; the arc-length table is computed once.
type Curve struct {
	Knots  []Knot
	Closed bool

	once  sync.Once
	table arcTable
}

// arcTable maps arc length to segment-local parameters.
type arcTable struct {
	cumulative []float64   // len segments+1, cumulative[0] = 0
	local      [][]float64 // per segment, samplesPerSegment+1 distances
	total      float64
}

// New returns a curve over a copy of knots.
func New(knots []Knot, closed bool) *Curve {
	k := make([]Knot, len(knots))
	copy(k, knots)
	return &Curve{Knots: k, Closed: closed}
}

// SegmentCount returns the number of Bezier segments.
func (c *Curve) SegmentCount() int {
	n := len(c.Knots)
	if n < 2 {
		return 0
	}
	if c.Closed {
		return n
	}
	return n - 1
}

func (c *Curve) controlPoints(seg int) (p0, p1, p2, p3 math.Vec3) {
	a := c.Knots[seg]
	b := c.Knots[(seg+1)%len(c.Knots)]
	return a.Position, a.Position.Add(a.TangentOut), b.Position.Add(b.TangentIn), b.Position
}

func (c *Curve) pointAt(seg int, u float64) math.Vec3 {
	p0, p1, p2, p3 := c.controlPoints(seg)
	return bezier(p0, p1, p2, p3, u)
}

func (c *Curve) derivativeAt(seg int, u float64) math.Vec3 {
	p0, p1, p2, p3 := c.controlPoints(seg)
	return bezierDerivative(p0, p1, p2, p3, u)
}

func (c *Curve) arcs() *arcTable {
	c.once.Do(func() {
		segs := c.SegmentCount()
		c.table.cumulative = make([]float64, segs+1)
		c.table.local = make([][]float64, segs)
		for s := 0; s < segs; s++ {
			dist := make([]float64, samplesPerSegment+1)
			prev := c.pointAt(s, 0)
			for k := 1; k <= samplesPerSegment; k++ {
				p := c.pointAt(s, float64(k)/samplesPerSegment)
				dist[k] = dist[k-1] + p.Distance(prev)
				prev = p
			}
			c.table.local[s] = dist
			c.table.cumulative[s+1] = c.table.cumulative[s] + dist[samplesPerSegment]
		}
		c.table.total = c.table.cumulative[segs]
	})
	return &c.table
}

// normalize wraps t for closed curves and clamps it for open ones.
func (c *Curve) normalize(t float64) float64 {
	if c.Closed {
		t -= gomath.Floor(t)
		if t >= 1 {
			t = 0
		}
		return t
	}
	return gomath.Max(0, gomath.Min(1, t))
}

// locate converts normalised arc length to a segment and local parameter.
func (c *Curve) locate(t float64) (int, float64) {
	table := c.arcs()
	segs := len(table.local)
	if segs == 0 {
		return 0, 0
	}
	d := c.normalize(t) * table.total

	seg := sort.SearchFloat64s(table.cumulative, d) - 1
	if seg < 0 {
		seg = 0
	}
	if seg >= segs {
		seg = segs - 1
	}

	local := table.local[seg]
	segLen := local[samplesPerSegment]
	if segLen <= 0 {
		return seg, 0
	}
	ld := d - table.cumulative[seg]
	k := sort.SearchFloat64s(local, ld)
	if k <= 0 {
		return seg, 0
	}
	if k > samplesPerSegment {
		return seg, 1
	}
	span := local[k] - local[k-1]
	frac := 0.0
	if span > 0 {
		frac = (ld - local[k-1]) / span
	}
	return seg, (float64(k-1) + frac) / samplesPerSegment
}

func bezier(p0, p1, p2, p3 math.Vec3, u float64) math.Vec3 {
	v := 1 - u
	return p0.Scale(v * v * v).
		Add(p1.Scale(3 * v * v * u)).
		Add(p2.Scale(3 * v * u * u)).
		Add(p3.Scale(u * u * u))
}

func bezierDerivative(p0, p1, p2, p3 math.Vec3, u float64) math.Vec3 {
	v := 1 - u
	return p1.Sub(p0).Scale(3 * v * v).
		Add(p2.Sub(p1).Scale(6 * v * u)).
		Add(p3.Sub(p2).Scale(3 * u * u))
}
