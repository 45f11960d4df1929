package curve

import (
	"fmt"
	gomath "math"
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// MinKnots is the smallest knot count that still forms a loop with
// distinct corners.
const MinKnots = 4

// Perlin settings for height displacement.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 3
)

// Params controls the seeded centerline generator.
type Params struct {
	Seed            int64
	KnotCount       int
	Radius          float64
	NoiseAmplitude  float64 // radial jitter, uniform in [-a, a]
	HeightAmplitude float64
	HeightFrequency float64 // scale applied to x/z before sampling noise
	TangentStrength float64 // handle length as a fraction of local segment length
}

// DefaultParams returns a medium-sized rolling circuit.
func DefaultParams() Params {
	return Params{
		Seed:            1337,
		KnotCount:       12,
		Radius:          120,
		NoiseAmplitude:  35,
		HeightAmplitude: 6,
		HeightFrequency: 0.01,
		TangentStrength: 0.35,
	}
}

// Validate rejects parameters that cannot produce a loop.
func (p Params) Validate() error {
	switch {
	case p.KnotCount < MinKnots:
		return fmt.Errorf("%w: knot count %d, need at least %d", track.ErrInvalidParameter, p.KnotCount, MinKnots)
	case p.Radius <= 0:
		return fmt.Errorf("%w: radius %.3f must be positive", track.ErrInvalidParameter, p.Radius)
	case p.NoiseAmplitude < 0:
		return fmt.Errorf("%w: noise amplitude %.3f is negative", track.ErrInvalidParameter, p.NoiseAmplitude)
	case p.NoiseAmplitude >= p.Radius:
		return fmt.Errorf("%w: noise amplitude %.3f must be below radius %.3f", track.ErrInvalidParameter, p.NoiseAmplitude, p.Radius)
	case p.HeightAmplitude < 0:
		return fmt.Errorf("%w: height amplitude %.3f is negative", track.ErrInvalidParameter, p.HeightAmplitude)
	case p.HeightFrequency < 0:
		return fmt.Errorf("%w: height frequency %.3f is negative", track.ErrInvalidParameter, p.HeightFrequency)
	case p.TangentStrength <= 0 || p.TangentStrength > 1:
		return fmt.Errorf("%w: tangent strength %.3f outside (0, 1]", track.ErrInvalidParameter, p.TangentStrength)
	}
	return nil
}

// Generate builds a closed centerline from p. The same parameters always
// produce the same curve.
func Generate(p Params) (*Curve, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(p.Seed))
	noise := perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, p.Seed)

	points := make([]math.Vec3, p.KnotCount)
	for i := range points {
		angle := 2 * gomath.Pi * float64(i) / float64(p.KnotCount)
		// Draw once per knot even when the amplitude is zero so the stream
		// stays aligned across parameter changes.
		r := p.Radius + (rng.Float64()*2-1)*p.NoiseAmplitude
		x := gomath.Cos(angle) * r
		z := gomath.Sin(angle) * r
		y := 0.0
		if p.HeightAmplitude > 0 {
			y = noise.Noise2D(x*p.HeightFrequency, z*p.HeightFrequency) * p.HeightAmplitude
		}
		points[i] = math.Vec3{X: x, Y: y, Z: z}
	}

	knots := make([]Knot, len(points))
	n := len(points)
	for i, pos := range points {
		prev := points[(i-1+n)%n]
		next := points[(i+1)%n]
		dir := next.Sub(prev).NormalizeOr(math.Forward, 1e-9)
		seg := (next.Distance(pos) + pos.Distance(prev)) / 2
		out := dir.Scale(p.TangentStrength * seg)
		knots[i] = Knot{
			Position:   pos,
			TangentIn:  out.Neg(),
			TangentOut: out,
			Rotation:   math.LookRotation(dir, math.Up),
		}
	}

	return &Curve{Knots: knots, Closed: true}, nil
}
