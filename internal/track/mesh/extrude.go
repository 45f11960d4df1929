package mesh

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/curve"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// MinCurveLength is the shortest centerline that still gets a mesh.
const MinCurveLength = 0.01

// Vertex slots within one ring. Curb and grass slots are relative to their
// strip's base offset.
const (
	roadTopLeft = iota
	roadTopRight
	roadBottomLeft
	roadBottomRight
	roadVertices
)

const (
	stripLeftInner = iota
	stripLeftOuter
	stripRightInner
	stripRightOuter
	stripVertices
)

// ringLayout records where each strip starts within a ring.
type ringLayout struct {
	perRing   int
	curbBase  int // -1 when disabled
	grassBase int // -1 when disabled
}

func newRingLayout(p Params) ringLayout {
	l := ringLayout{perRing: roadVertices, curbBase: -1, grassBase: -1}
	if p.Curb.Enabled {
		l.curbBase = l.perRing
		l.perRing += stripVertices
	}
	if p.Grass.Enabled {
		l.grassBase = l.perRing
		l.perRing += stripVertices
	}
	return l
}

// Build extrudes the road along c. A nil curve is a missing dependency and
// yields a nil result; a degenerate curve yields an empty mesh.
func Build(c *curve.Curve, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("mesh")

	if c == nil {
		log.Warn("mesh build skipped: no centerline", zap.Error(track.ErrMissingDependency))
		return nil, nil
	}
	length := curve.Length(c)
	if len(c.Knots) < 2 || length <= MinCurveLength {
		log.Warn("mesh build skipped: degenerate centerline",
			zap.Int("knots", len(c.Knots)),
			zap.Float64("length", length),
			zap.Error(track.ErrDegenerateGeometry))
		return &Result{Mesh: &Buffer{}}, nil
	}

	rings := max(2, int(gomath.Ceil(length/p.StepMeters)))
	ringTotal := rings
	if !c.Closed {
		ringTotal++
	}

	layout := newRingLayout(p)
	b := &builder{
		params: p,
		layout: layout,
		buf: &Buffer{
			Vertices:        make([]Vertex, 0, ringTotal*layout.perRing),
			RingCount:       ringTotal,
			VerticesPerRing: layout.perRing,
		},
	}

	prevTangent := math.Forward
	var prevPos math.Vec3
	var v float64
	fallbacks := 0
	for i := 0; i < ringTotal; i++ {
		t := float64(i) / float64(rings)
		s, err := curve.Sample(c, t)
		if err != nil {
			// Keep the ring and reuse the last good direction.
			fallbacks++
			s.Tangent = prevTangent
			s.Right = curve.RightOf(prevTangent)
		}
		if i > 0 {
			v += s.Position.Distance(prevPos) / p.UVTiling
		}
		b.emitRing(s, v)
		prevTangent = s.Tangent
		prevPos = s.Position
	}
	if fallbacks > 0 {
		log.Debug("rings used fallback tangents", zap.Int("count", fallbacks))
	}

	for i := 0; i+1 < ringTotal; i++ {
		b.stitch(i, i+1)
	}
	if c.Closed {
		b.stitch(ringTotal-1, 0)
	}

	RecalculateNormals(b.buf)
	b.buf.Bounds = ComputeBounds(b.buf.Vertices)

	res := &Result{Mesh: b.buf}
	if p.Grass.Enabled {
		res.Collision = extractSurface(b.buf, SurfaceGrass)
	}

	log.Debug("mesh extruded",
		zap.Int("rings", ringTotal),
		zap.Int("vertices", len(b.buf.Vertices)),
		zap.Int("triangles", b.buf.TriangleCount()),
		zap.Float64("length", length))
	return res, nil
}

type builder struct {
	params Params
	layout ringLayout
	buf    *Buffer
}

func (b *builder) emitRing(s curve.RingSample, v float64) {
	p := b.params
	hw := p.RoadWidth / 2
	pos, right, up := s.Position, s.Right, math.Up
	v32 := float32(v)

	left := pos.Sub(right.Scale(hw))
	rightEdge := pos.Add(right.Scale(hw))
	down := up.Scale(-p.RoadThickness)

	b.add(left, 0, v32)
	b.add(rightEdge, 1, v32)
	b.add(left.Add(down), 0, v32)
	b.add(rightEdge.Add(down), 1, v32)

	if p.Curb.Enabled {
		lift := up.Scale(p.Curb.Height)
		outer := hw + p.Curb.Width
		b.add(left.Add(lift), 0, v32)
		b.add(pos.Sub(right.Scale(outer)).Add(lift), 1, v32)
		b.add(rightEdge.Add(lift), 0, v32)
		b.add(pos.Add(right.Scale(outer)).Add(lift), 1, v32)
	}

	if p.Grass.Enabled {
		inner := p.EdgeOffset()
		outer := inner + p.Grass.Width
		drop := up.Scale(-p.Grass.Drop)
		b.add(pos.Sub(right.Scale(inner)), 0, v32)
		b.add(pos.Sub(right.Scale(outer)).Add(drop), 1, v32)
		b.add(pos.Add(right.Scale(inner)), 0, v32)
		b.add(pos.Add(right.Scale(outer)).Add(drop), 1, v32)
	}
}

func (b *builder) add(p math.Vec3, u, v float32) {
	b.buf.Vertices = append(b.buf.Vertices, Vertex{
		Position: p.Array(),
		TexCoord: [2]float32{u, v},
	})
}

// stitch connects ringA to ringB. Each face is a quad from slot x0 to
// slot x1 whose normal is cross(forward, x1-x0).
func (b *builder) stitch(ringA, ringB int) {
	a := ringA * b.layout.perRing
	c := ringB * b.layout.perRing

	b.quad(SurfaceRoad, a, c, roadTopLeft, roadTopRight)
	b.quad(SurfaceRoad, a, c, roadBottomRight, roadBottomLeft)
	b.quad(SurfaceRoad, a, c, roadBottomLeft, roadTopLeft)
	b.quad(SurfaceRoad, a, c, roadTopRight, roadBottomRight)

	lowLeft, lowRight := roadBottomLeft, roadBottomRight
	if g := b.layout.grassBase; g >= 0 {
		lowLeft, lowRight = g+stripLeftInner, g+stripRightInner
	}

	if k := b.layout.curbBase; k >= 0 {
		b.quad(SurfaceCurb, a, c, k+stripLeftOuter, k+stripLeftInner)
		b.quad(SurfaceCurb, a, c, k+stripRightInner, k+stripRightOuter)
		b.quad(SurfaceCurb, a, c, k+stripLeftInner, roadTopLeft)
		b.quad(SurfaceCurb, a, c, roadTopRight, k+stripRightInner)
		b.quad(SurfaceCurb, a, c, lowLeft, k+stripLeftOuter)
		b.quad(SurfaceCurb, a, c, k+stripRightOuter, lowRight)
	}

	if g := b.layout.grassBase; g >= 0 {
		b.quad(SurfaceGrass, a, c, g+stripLeftOuter, g+stripLeftInner)
		b.quad(SurfaceGrass, a, c, g+stripRightInner, g+stripRightOuter)
	}
}

func (b *builder) quad(s Surface, a, c, x0, x1 int) {
	a0, a1 := uint32(a+x0), uint32(a+x1)
	c0, c1 := uint32(c+x0), uint32(c+x1)
	b.buf.Submeshes[s] = append(b.buf.Submeshes[s],
		a0, c0, a1,
		a1, c0, c1,
	)
}

// extractSurface copies one surface's triangles into a compact buffer.
func extractSurface(src *Buffer, s Surface) *Buffer {
	remap := make(map[uint32]uint32)
	out := &Buffer{RingCount: src.RingCount}
	for _, idx := range src.Submeshes[s] {
		n, ok := remap[idx]
		if !ok {
			n = uint32(len(out.Vertices))
			remap[idx] = n
			out.Vertices = append(out.Vertices, src.Vertices[idx])
		}
		out.Submeshes[s] = append(out.Submeshes[s], n)
	}
	if src.RingCount > 0 {
		out.VerticesPerRing = len(out.Vertices) / src.RingCount
	}
	RecalculateNormals(out)
	out.Bounds = ComputeBounds(out.Vertices)
	return out
}
