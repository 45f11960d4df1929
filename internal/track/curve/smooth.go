package curve

import (
	"fmt"
	gomath "math"
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// SmoothParams controls the ring-smoothing generator.
type SmoothParams struct {
	Seed              int64
	PointCount        int
	Radius            float64
	Jitter            float64 // radial jitter, uniform in [-j, j]
	Iterations        int     // Laplacian relaxation passes
	Blend             float64 // 0 keeps points, 1 moves them to the neighbour average
	SamplesPerSegment int     // Catmull-Rom resampling density
	HeightAmplitude   float64
	HeightFrequency   float64
}

// DefaultSmoothParams returns settings that give a flowing, rounded loop.
func DefaultSmoothParams() SmoothParams {
	return SmoothParams{
		Seed:              1337,
		PointCount:        16,
		Radius:            120,
		Jitter:            45,
		Iterations:        3,
		Blend:             0.5,
		SamplesPerSegment: 4,
		HeightAmplitude:   6,
		HeightFrequency:   0.01,
	}
}

// Validate rejects parameters that cannot produce a loop.
func (p SmoothParams) Validate() error {
	switch {
	case p.PointCount < MinKnots:
		return fmt.Errorf("%w: point count %d, need at least %d", track.ErrInvalidParameter, p.PointCount, MinKnots)
	case p.Radius <= 0:
		return fmt.Errorf("%w: radius %.3f must be positive", track.ErrInvalidParameter, p.Radius)
	case p.Jitter < 0 || p.Jitter >= p.Radius:
		return fmt.Errorf("%w: jitter %.3f outside [0, radius)", track.ErrInvalidParameter, p.Jitter)
	case p.Iterations < 0:
		return fmt.Errorf("%w: iterations %d is negative", track.ErrInvalidParameter, p.Iterations)
	case p.Blend < 0 || p.Blend > 1:
		return fmt.Errorf("%w: blend %.3f outside [0, 1]", track.ErrInvalidParameter, p.Blend)
	case p.SamplesPerSegment < 1:
		return fmt.Errorf("%w: samples per segment %d, need at least 1", track.ErrInvalidParameter, p.SamplesPerSegment)
	case p.HeightAmplitude < 0:
		return fmt.Errorf("%w: height amplitude %.3f is negative", track.ErrInvalidParameter, p.HeightAmplitude)
	}
	return nil
}

// GenerateSmoothed builds a closed centerline by relaxing jittered ring
// points and resampling them with Catmull-Rom interpolation. Every resampled
// point becomes a knot whose handles reproduce the Catmull-Rom spline.
func GenerateSmoothed(p SmoothParams) (*Curve, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(p.Seed))
	n := p.PointCount

	ring := make([]math.Vec3, n)
	for i := range ring {
		angle := 2 * gomath.Pi * float64(i) / float64(n)
		r := p.Radius + (rng.Float64()*2-1)*p.Jitter
		ring[i] = math.Vec3{X: gomath.Cos(angle) * r, Z: gomath.Sin(angle) * r}
	}

	for it := 0; it < p.Iterations; it++ {
		relaxed := make([]math.Vec3, n)
		for i := range ring {
			avg := ring[(i-1+n)%n].Add(ring[(i+1)%n]).Scale(0.5)
			relaxed[i] = ring[i].Lerp(avg, p.Blend)
		}
		ring = relaxed
	}

	samples := make([]math.Vec3, 0, n*p.SamplesPerSegment)
	for i := 0; i < n; i++ {
		p0 := ring[(i-1+n)%n]
		p1 := ring[i]
		p2 := ring[(i+1)%n]
		p3 := ring[(i+2)%n]
		for s := 0; s < p.SamplesPerSegment; s++ {
			u := float64(s) / float64(p.SamplesPerSegment)
			samples = append(samples, catmullRom(p0, p1, p2, p3, u))
		}
	}

	if p.HeightAmplitude > 0 {
		noise := perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, p.Seed)
		for i, s := range samples {
			samples[i].Y = noise.Noise2D(s.X*p.HeightFrequency, s.Z*p.HeightFrequency) * p.HeightAmplitude
		}
	}

	m := len(samples)
	knots := make([]Knot, m)
	for i, pos := range samples {
		// A Catmull-Rom segment equals a Bezier with handles (p[i+1]-p[i-1])/6.
		chord := samples[(i+1)%m].Sub(samples[(i-1+m)%m])
		out := chord.Scale(1.0 / 6.0)
		knots[i] = Knot{
			Position:   pos,
			TangentIn:  out.Neg(),
			TangentOut: out,
			Rotation:   math.LookRotation(chord, math.Up),
		}
	}

	return &Curve{Knots: knots, Closed: true}, nil
}

func catmullRom(p0, p1, p2, p3 math.Vec3, u float64) math.Vec3 {
	u2 := u * u
	u3 := u2 * u
	return p1.Scale(2).
		Add(p2.Sub(p0).Scale(u)).
		Add(p0.Scale(2).Sub(p1.Scale(5)).Add(p2.Scale(4)).Sub(p3).Scale(u2)).
		Add(p1.Scale(3).Sub(p0).Sub(p2.Scale(3)).Add(p3).Scale(u3)).
		Scale(0.5)
}
