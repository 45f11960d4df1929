// Package checkpoint places gate volumes along the waypoint path and tracks
// each agent's lap progress through them.
package checkpoint

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/circuitgen/internal/logger"
	"github.com/Faultbox/circuitgen/internal/track"
	"github.com/Faultbox/circuitgen/internal/track/waypoint"
	"github.com/Faultbox/circuitgen/pkg/math"
)

// Gate is an oriented box trigger. Position is the centre of its base on
// the road surface; the box extends Size.Y upwards.
type Gate struct {
	Index         int
	WaypointIndex int
	Position      math.Vec3
	Rotation      math.Quat
	Size          math.Vec3 // width (local X), height (local Y), length (local Z)
}

// Transform returns the gate's local-to-world matrix.
func (g Gate) Transform() mgl64.Mat4 {
	t := mgl64.Translate3D(g.Position.X, g.Position.Y, g.Position.Z)
	return t.Mul4(toQuat(g.Rotation).Mat4())
}

// Contains reports whether world point p lies inside the gate volume.
func (g Gate) Contains(p math.Vec3) bool {
	local := toQuat(g.Rotation).Inverse().Rotate(mgl64.Vec3{
		p.X - g.Position.X,
		p.Y - g.Position.Y,
		p.Z - g.Position.Z,
	})
	hw, hl := g.Size.X/2, g.Size.Z/2
	return local.X() >= -hw && local.X() <= hw &&
		local.Y() >= 0 && local.Y() <= g.Size.Y &&
		local.Z() >= -hl && local.Z() <= hl
}

// WireframeVertexCount is the number of vertices returned by Wireframe.
const WireframeVertexCount = 24

// Wireframe returns the 12 box edges as world-space line vertices,
// [x, y, z] per vertex.
func (g Gate) Wireframe() []float32 {
	hw, h, hl := g.Size.X/2, g.Size.Y, g.Size.Z/2
	corners := [8]mgl64.Vec3{
		{-hw, 0, -hl}, {hw, 0, -hl}, {hw, 0, hl}, {-hw, 0, hl},
		{-hw, h, -hl}, {hw, h, -hl}, {hw, h, hl}, {-hw, h, hl},
	}
	m := g.Transform()
	for i, c := range corners {
		corners[i] = mgl64.TransformCoordinate(c, m)
	}
	edges := [12][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0}, // base
		{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // uprights
	}
	out := make([]float32, 0, WireframeVertexCount*3)
	for _, e := range edges {
		for _, i := range e {
			c := corners[i]
			out = append(out, float32(c.X()), float32(c.Y()), float32(c.Z()))
		}
	}
	return out
}

func toQuat(q math.Quat) mgl64.Quat {
	return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
}

// Params controls gate placement.
type Params struct {
	EveryN int     `yaml:"every_n"`
	Width  float64 `yaml:"-"` // derived from the road, see GateWidth
	Height float64 `yaml:"height"`
	Length float64 `yaml:"length"`
	// EndSkipFactor suppresses a trailing gate closer than
	// EndSkipFactor*EveryN waypoints to the end of the path.
	EndSkipFactor float64 `yaml:"end_skip_factor"`
}

// DefaultParams returns a gate every fifth waypoint.
func DefaultParams() Params {
	return Params{
		EveryN:        5,
		Width:         GateWidth(8, 0.35, true, DefaultPadding),
		Height:        4,
		Length:        2,
		EndSkipFactor: 1.5,
	}
}

// DefaultPadding is the extra width added on top of road and curbs.
const DefaultPadding = 1.0

// GateWidth returns the trigger width for a road with optional curbs.
func GateWidth(roadWidth, curbWidth float64, curbs bool, padding float64) float64 {
	w := roadWidth + padding
	if curbs {
		w += 2 * curbWidth
	}
	return w
}

// Validate rejects parameters before any gate is placed.
func (p Params) Validate() error {
	switch {
	case p.EveryN < 1:
		return fmt.Errorf("%w: gate stride %d must be at least 1", track.ErrInvalidParameter, p.EveryN)
	case p.Width <= 0 || p.Height <= 0 || p.Length <= 0:
		return fmt.Errorf("%w: gate size %.3fx%.3fx%.3f must be positive",
			track.ErrInvalidParameter, p.Width, p.Height, p.Length)
	case p.EndSkipFactor < 0:
		return fmt.Errorf("%w: end skip factor %.3f is negative", track.ErrInvalidParameter, p.EndSkipFactor)
	}
	return nil
}

// BuildGates places gate 0 on waypoint 0 and another on every EveryN-th
// waypoint after it. Fewer than two waypoints is a no-op.
func BuildGates(set *waypoint.Set, p Params) ([]Gate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("checkpoint")

	n := set.Len()
	if n < 2 {
		log.Warn("gate build skipped: not enough waypoints",
			zap.Int("waypoints", n),
			zap.Error(track.ErrMissingDependency))
		return nil, nil
	}

	size := math.Vec3{X: p.Width, Y: p.Height, Z: p.Length}
	gates := make([]Gate, 0, n/p.EveryN+1)
	skipped := 0
	for i := 0; i < n; i += p.EveryN {
		// A gate right before the finish makes pass order ambiguous.
		if i > 0 && float64(n-i) < p.EndSkipFactor*float64(p.EveryN) {
			skipped++
			continue
		}
		w := set.Waypoints[i]
		rot := w.Rotation
		if next := set.Next(i); next != i {
			dir := set.Waypoints[next].Position.Sub(w.Position)
			if dir.Length() > 1e-9 {
				rot = math.LookRotation(dir, math.Up)
			}
		}
		gates = append(gates, Gate{
			Index:         len(gates),
			WaypointIndex: i,
			Position:      w.Position,
			Rotation:      rot,
			Size:          size,
		})
	}

	log.Debug("gates built",
		zap.Int("gates", len(gates)),
		zap.Int("waypoints", n),
		zap.Int("skipped_near_end", skipped))
	return gates, nil
}
