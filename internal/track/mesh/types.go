// Package mesh extrudes the road surface, curbs and grass verges along the
// circuit centerline.
package mesh

import (
	"fmt"

	"github.com/Faultbox/circuitgen/internal/track"
)

// Surface identifies a sub-mesh that receives its own material.
type Surface int

const (
	SurfaceRoad Surface = iota
	SurfaceCurb
	SurfaceGrass

	surfaceCount
)

// Surfaces lists every surface in submesh order.
var Surfaces = [surfaceCount]Surface{SurfaceRoad, SurfaceCurb, SurfaceGrass}

func (s Surface) String() string {
	switch s {
	case SurfaceRoad:
		return "road"
	case SurfaceCurb:
		return "curb"
	case SurfaceGrass:
		return "grass"
	default:
		return fmt.Sprintf("surface(%d)", int(s))
	}
}

// Vertex is a mesh vertex in local space.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Bounds holds the axis-aligned bounding box of a buffer.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Group describes one surface's range in a flattened index buffer.
type Group struct {
	Surface    Surface
	StartIndex int32
	IndexCount int32
}

// Buffer is an indexed triangle mesh with one index list per surface.
type Buffer struct {
	Vertices        []Vertex
	Submeshes       [surfaceCount][]uint32
	Bounds          Bounds
	RingCount       int
	VerticesPerRing int
}

// Indices returns the triangle list for a surface.
func (b *Buffer) Indices(s Surface) []uint32 {
	if b == nil || s < 0 || s >= surfaceCount {
		return nil
	}
	return b.Submeshes[s]
}

// TriangleCount returns the number of triangles across all surfaces.
func (b *Buffer) TriangleCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, idx := range b.Submeshes {
		n += len(idx) / 3
	}
	return n
}

// IsEmpty reports whether the buffer has no geometry.
func (b *Buffer) IsEmpty() bool {
	return b == nil || len(b.Vertices) == 0
}

// Flatten concatenates the surface index lists into a single buffer for GPU
// upload. Empty surfaces get no group.
func (b *Buffer) Flatten() ([]uint32, []Group) {
	if b == nil {
		return nil, nil
	}
	var indices []uint32
	var groups []Group
	for _, s := range Surfaces {
		idx := b.Submeshes[s]
		if len(idx) == 0 {
			continue
		}
		groups = append(groups, Group{
			Surface:    s,
			StartIndex: int32(len(indices)),
			IndexCount: int32(len(idx)),
		})
		indices = append(indices, idx...)
	}
	return indices, groups
}

// Result is the output of one extrusion pass.
type Result struct {
	Mesh *Buffer
	// Collision holds only the grass triangles, for a non-rendered collider.
	// It is nil when grass is disabled.
	Collision *Buffer
}

// CurbOptions configures the raised strips beside the road.
type CurbOptions struct {
	Enabled bool    `yaml:"enabled"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
}

// GrassOptions configures the verges outside road and curbs.
type GrassOptions struct {
	Enabled bool    `yaml:"enabled"`
	Width   float64 `yaml:"width"`
	Drop    float64 `yaml:"drop"` // how far the outer edge sits below the road
}

// Params controls extrusion.
type Params struct {
	RoadWidth     float64
	RoadThickness float64
	StepMeters    float64 // arc length between rings
	UVTiling      float64 // metres of road per texture repeat along V
	Curb          CurbOptions
	Grass         GrassOptions
}

// DefaultParams returns a two-lane road with curbs and grass.
func DefaultParams() Params {
	return Params{
		RoadWidth:     8,
		RoadThickness: 0.3,
		StepMeters:    1,
		UVTiling:      8,
		Curb:          CurbOptions{Enabled: true, Width: 0.35, Height: 0.08},
		Grass:         GrassOptions{Enabled: true, Width: 6, Drop: 0.05},
	}
}

// Validate rejects parameters that cannot produce a mesh.
func (p Params) Validate() error {
	switch {
	case p.RoadWidth <= 0:
		return fmt.Errorf("%w: road width %.3f must be positive", track.ErrInvalidParameter, p.RoadWidth)
	case p.RoadThickness < 0:
		return fmt.Errorf("%w: road thickness %.3f is negative", track.ErrInvalidParameter, p.RoadThickness)
	case p.StepMeters <= 0:
		return fmt.Errorf("%w: step %.3f must be positive", track.ErrInvalidParameter, p.StepMeters)
	case p.UVTiling <= 0:
		return fmt.Errorf("%w: uv tiling %.3f must be positive", track.ErrInvalidParameter, p.UVTiling)
	case p.Curb.Enabled && p.Curb.Width <= 0:
		return fmt.Errorf("%w: curb width %.3f must be positive", track.ErrInvalidParameter, p.Curb.Width)
	case p.Curb.Enabled && p.Curb.Height < 0:
		return fmt.Errorf("%w: curb height %.3f is negative", track.ErrInvalidParameter, p.Curb.Height)
	case p.Grass.Enabled && p.Grass.Width <= 0:
		return fmt.Errorf("%w: grass width %.3f must be positive", track.ErrInvalidParameter, p.Grass.Width)
	}
	return nil
}

// EdgeOffset returns the lateral distance from the centerline to the outer
// edge of road plus curb.
func (p Params) EdgeOffset() float64 {
	edge := p.RoadWidth / 2
	if p.Curb.Enabled {
		edge += p.Curb.Width
	}
	return edge
}
