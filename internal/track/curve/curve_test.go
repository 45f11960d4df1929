package curve

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/pkg/math"
)

func circleParams() Params {
	return Params{
		Seed:            42,
		KnotCount:       8,
		Radius:          60,
		NoiseAmplitude:  0,
		HeightAmplitude: 0,
		HeightFrequency: 0.01,
		TangentStrength: 0.35,
	}
}

func straightLine(length float64) *Curve {
	return New([]Knot{
		{Position: math.Vec3{}},
		{Position: math.Vec3{X: length}},
	}, false)
}

func TestGenerate_Deterministic(t *testing.T) {
	p := DefaultParams()

	a, err := Generate(p)
	require.NoError(t, err)
	b, err := Generate(p)
	require.NoError(t, err)

	assert.Equal(t, a.Knots, b.Knots, "same seed must give identical knots")
	assert.Equal(t, Length(a), Length(b))

	p.Seed++
	c, err := Generate(p)
	require.NoError(t, err)
	assert.NotEqual(t, a.Knots, c.Knots, "different seeds should differ")
}

func TestGenerate_PerfectCircle(t *testing.T) {
	c, err := Generate(circleParams())
	require.NoError(t, err)
	require.Len(t, c.Knots, 8)
	assert.True(t, c.Closed)

	for i, k := range c.Knots {
		assert.InDelta(t, 60, k.Position.Flat().Length(), 1e-9, "knot %d radius", i)
		assert.Zero(t, k.Position.Y, "knot %d height", i)
	}

	circumference := 2 * gomath.Pi * 60
	assert.InDelta(t, circumference, Length(c), circumference*0.01)
}

func TestGenerate_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"too few knots", func(p *Params) { p.KnotCount = 3 }},
		{"zero radius", func(p *Params) { p.Radius = 0 }},
		{"negative noise", func(p *Params) { p.NoiseAmplitude = -1 }},
		{"noise beyond radius", func(p *Params) { p.NoiseAmplitude = p.Radius }},
		{"negative height", func(p *Params) { p.HeightAmplitude = -0.5 }},
		{"zero tangent strength", func(p *Params) { p.TangentStrength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			c, err := Generate(p)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, track.ErrInvalidParameter)
		})
	}
}

func TestGenerate_NoiseBelowRadiusKeepsKnotsOutsideOrigin(t *testing.T) {
	p := DefaultParams()
	p.Radius = 60
	p.NoiseAmplitude = 59.9
	c, err := Generate(p)
	require.NoError(t, err)
	for i, k := range c.Knots {
		assert.Greater(t, k.Position.Flat().Length(), 0.0, "knot %d", i)
	}
}

func TestGenerate_HeightNoise(t *testing.T) {
	p := DefaultParams()
	p.HeightAmplitude = 10
	c, err := Generate(p)
	require.NoError(t, err)

	var nonZero int
	for _, k := range c.Knots {
		assert.LessOrEqual(t, gomath.Abs(k.Position.Y), 10.0*2)
		if k.Position.Y != 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero, "height noise should displace some knots")
}

func TestClosure(t *testing.T) {
	c, err := Generate(DefaultParams())
	require.NoError(t, err)

	start := Position(c, 0)
	end := Position(c, 1-1e-9)
	assert.True(t, start.ApproxEqual(end, 1e-3), "start %v end %v", start, end)
	assert.Equal(t, Position(c, 0), Position(c, 1), "closed curves wrap at t=1")
	assert.True(t, Position(c, 0.25).ApproxEqual(Position(c, 1.25), 1e-9))
}

func TestArcLengthParameterisation(t *testing.T) {
	c, err := Generate(circleParams())
	require.NoError(t, err)

	// Knot 2 sits a quarter of the way round a symmetric loop.
	assert.True(t, Position(c, 0.25).ApproxEqual(c.Knots[2].Position, 1e-3),
		"got %v want %v", Position(c, 0.25), c.Knots[2].Position)

	// Collapsed handles make the Bezier speed non-uniform; the arc table
	// still lands close to the requested distance.
	line := straightLine(10)
	assert.True(t, Position(line, 0.3).ApproxEqual(math.Vec3{X: 3}, 1e-2), "got %v", Position(line, 0.3))
}

func TestLength_PositiveAndStable(t *testing.T) {
	c, err := Generate(DefaultParams())
	require.NoError(t, err)

	l := Length(c)
	assert.Positive(t, l)

	again := New(c.Knots, c.Closed)
	assert.Equal(t, l, Length(again))
	assert.Zero(t, Length(nil))
}

func TestOpenCurveClamps(t *testing.T) {
	line := straightLine(10)

	assert.InDelta(t, 10, Length(line), 1e-9)
	assert.Equal(t, math.Vec3{X: 10}, Position(line, 1.5))
	assert.Equal(t, math.Vec3{}, Position(line, -1))

	// Collapsed handles force the finite-difference fallback.
	tan, err := Tangent(line, 0)
	require.NoError(t, err)
	assert.True(t, tan.ApproxEqual(math.Vec3{X: 1}, 1e-9), "tangent %v", tan)
}

func TestTangent_ZeroLength(t *testing.T) {
	c := New([]Knot{{}, {}}, false)
	_, err := Tangent(c, 0.5)
	assert.ErrorIs(t, err, track.ErrDegenerateGeometry)

	_, err = Tangent(nil, 0)
	assert.ErrorIs(t, err, track.ErrDegenerateGeometry)
}

func TestSample_RightVector(t *testing.T) {
	c, err := Generate(circleParams())
	require.NoError(t, err)

	for _, tt := range []float64{0, 0.1, 0.37, 0.5, 0.9} {
		s, err := Sample(c, tt)
		require.NoError(t, err)
		assert.InDelta(t, 1, s.Tangent.Length(), 1e-9)
		assert.InDelta(t, 1, s.Right.Length(), 1e-9)
		assert.InDelta(t, 0, s.Right.Dot(s.Tangent), 1e-9)
		assert.InDelta(t, 0, s.Right.Y, 1e-9)
		assert.InDelta(t, tt*Length(c), s.Distance, 1e-9)
	}

	// At t=0 the loop heads +Z, so right points out of the circle along +X.
	s, err := Sample(c, 0)
	require.NoError(t, err)
	assert.True(t, s.Right.ApproxEqual(math.Vec3{X: 1}, 1e-6), "right %v", s.Right)
}

func TestRightOf_VerticalFallback(t *testing.T) {
	assert.Equal(t, math.Right, RightOf(math.Up))
}

func TestGenerateSmoothed(t *testing.T) {
	p := DefaultSmoothParams()

	a, err := GenerateSmoothed(p)
	require.NoError(t, err)
	b, err := GenerateSmoothed(p)
	require.NoError(t, err)

	assert.Equal(t, a.Knots, b.Knots)
	assert.True(t, a.Closed)
	assert.Len(t, a.Knots, p.PointCount*p.SamplesPerSegment)
	assert.Positive(t, Length(a))
	assert.True(t, Position(a, 0).ApproxEqual(Position(a, 1-1e-9), 1e-3))
}

func TestGenerateSmoothed_RelaxationShrinksJitter(t *testing.T) {
	rough := DefaultSmoothParams()
	rough.Iterations = 0
	smooth := DefaultSmoothParams()
	smooth.Iterations = 8

	spread := func(p SmoothParams) float64 {
		c, err := GenerateSmoothed(p)
		require.NoError(t, err)
		lo, hi := gomath.Inf(1), gomath.Inf(-1)
		for _, k := range c.Knots {
			r := k.Position.Flat().Length()
			lo, hi = gomath.Min(lo, r), gomath.Max(hi, r)
		}
		return hi - lo
	}

	assert.Less(t, spread(smooth), spread(rough))
}

func TestGenerateSmoothed_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SmoothParams)
	}{
		{"too few points", func(p *SmoothParams) { p.PointCount = 3 }},
		{"blend above one", func(p *SmoothParams) { p.Blend = 1.5 }},
		{"negative iterations", func(p *SmoothParams) { p.Iterations = -1 }},
		{"no samples", func(p *SmoothParams) { p.SamplesPerSegment = 0 }},
		{"jitter at radius", func(p *SmoothParams) { p.Jitter = p.Radius }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultSmoothParams()
			tt.mutate(&p)
			_, err := GenerateSmoothed(p)
			assert.ErrorIs(t, err, track.ErrInvalidParameter)
		})
	}
}
