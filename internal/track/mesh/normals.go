package mesh

import gomath "math"

// RecalculateNormals sets every vertex normal to the area-weighted average
// of the faces that use it. Vertices with no faces point up.
func RecalculateNormals(b *Buffer) {
	sums := make([][3]float64, len(b.Vertices))
	for _, idx := range b.Submeshes {
		for i := 0; i+2 < len(idx); i += 3 {
			i0, i1, i2 := idx[i], idx[i+1], idx[i+2]
			n := faceNormal(b.Vertices[i0].Position, b.Vertices[i1].Position, b.Vertices[i2].Position)
			for _, vi := range [3]uint32{i0, i1, i2} {
				sums[vi][0] += n[0]
				sums[vi][1] += n[1]
				sums[vi][2] += n[2]
			}
		}
	}
	for i := range b.Vertices {
		b.Vertices[i].Normal = normalize(sums[i])
	}
}

// faceNormal returns the unnormalised normal, whose length is twice the
// triangle area.
func faceNormal(p0, p1, p2 [3]float32) [3]float64 {
	e1 := [3]float64{float64(p1[0] - p0[0]), float64(p1[1] - p0[1]), float64(p1[2] - p0[2])}
	e2 := [3]float64{float64(p2[0] - p0[0]), float64(p2[1] - p0[1]), float64(p2[2] - p0[2])}
	return cross(e1, e2)
}

// ComputeBounds returns the bounding box of vertices, or zero bounds when
// there are none.
func ComputeBounds(vertices []Vertex) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		updateBounds(&b, v.Position)
	}
	return b
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float64) [3]float32 {
	l := gomath.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l < 1e-12 {
		return [3]float32{0, 1, 0}
	}
	return [3]float32{float32(v[0] / l), float32(v[1] / l), float32(v[2] / l)}
}
