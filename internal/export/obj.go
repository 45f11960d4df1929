package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Faultbox/circuitgen/internal/track/mesh"
)

// WriteOBJ writes b as a Wavefront OBJ object with one group and material
// per surface. Empty surfaces are omitted.
func WriteOBJ(w io.Writer, b *mesh.Buffer, name string) error {
	if b.IsEmpty() {
		return fmt.Errorf("export %s: empty mesh", name)
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# circuitgen %s: %d vertices, %d triangles\n", name, len(b.Vertices), b.TriangleCount())
	fmt.Fprintf(bw, "o %s\n", name)
	for _, v := range b.Vertices {
		fmt.Fprintf(bw, "v %.5f %.5f %.5f\n", v.Position[0], v.Position[1], v.Position[2])
	}
	for _, v := range b.Vertices {
		fmt.Fprintf(bw, "vt %.5f %.5f\n", v.TexCoord[0], v.TexCoord[1])
	}
	for _, v := range b.Vertices {
		fmt.Fprintf(bw, "vn %.5f %.5f %.5f\n", v.Normal[0], v.Normal[1], v.Normal[2])
	}

	indices, groups := b.Flatten()
	for _, g := range groups {
		fmt.Fprintf(bw, "g %s\nusemtl %s\n", g.Surface, g.Surface)
		tris := indices[g.StartIndex : g.StartIndex+g.IndexCount]
		for i := 0; i+2 < len(tris); i += 3 {
			// OBJ indices are 1-based; position, uv and normal share them.
			a, c, d := tris[i]+1, tris[i+1]+1, tris[i+2]+1
			fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, c, c, c, d, d, d)
		}
	}
	return bw.Flush()
}

// WriteOBJFile writes b to path, compressed when path ends in .zst.
func WriteOBJFile(path string, b *mesh.Buffer, name string) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteOBJ(w, b, name)
	})
}
