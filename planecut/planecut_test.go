package planecut

import (
	"math"
	"testing"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// cubeMesh builds an axis-aligned cube of the given half-extent centered
// at the origin, as 12 CCW-outward triangles.
func cubeMesh(h float64) *mesh.IndexedMesh {
	b, err := mesh.NewTriangleBuilder()
	if err != nil {
		panic(err)
	}
	c := func(x, y, z float64) mesh.Vec3 { return mesh.NewVec3(x*h, y*h, z*h) }
	quad := func(a, b2, c2, d mesh.Vec3) {
		must(b.Add(a, b2, c2))
		must(b.Add(a, c2, d))
	}
	// +X, -X, +Y, -Y, +Z, -Z faces, outward-wound.
	quad(c(1, -1, -1), c(1, 1, -1), c(1, 1, 1), c(1, -1, 1))
	quad(c(-1, -1, -1), c(-1, -1, 1), c(-1, 1, 1), c(-1, 1, -1))
	quad(c(-1, 1, -1), c(-1, 1, 1), c(1, 1, 1), c(1, 1, -1))
	quad(c(-1, -1, -1), c(1, -1, -1), c(1, -1, 1), c(-1, -1, 1))
	quad(c(-1, -1, 1), c(1, -1, 1), c(1, 1, 1), c(-1, 1, 1))
	quad(c(-1, -1, -1), c(-1, 1, -1), c(1, 1, -1), c(1, -1, -1))
	return b.Mesh()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func volume(m *mesh.IndexedMesh) float64 {
	total := 0.0
	for p := 0; p < m.NumPrimitives(); p++ {
		a, b, c := m.TriangleAt(p)
		total += a.Dot(b.Cross(c))
	}
	return total / 6
}

func TestCutCubeThroughCenter(t *testing.T) {
	cube := cubeMesh(1)
	out, err := Cut(cube, Plane{N: mesh.NewVec3(1, 0, 0), D: 0})
	if err != nil {
		t.Fatal(err)
	}
	parts := out.Slice()
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	for _, p := range parts {
		v := math.Abs(volume(p))
		if math.Abs(v-4) > 1e-4 {
			t.Errorf("expected volume 4, got %f", v)
		}
	}
}

func TestCutConservesVolume(t *testing.T) {
	cube := cubeMesh(1.5)
	want := math.Abs(volume(cube))
	out, err := Cut(cube, Plane{N: mesh.NewVec3(0, 1, 0.3).Normalize(), D: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	total := 0.0
	for _, p := range out.Slice() {
		total += math.Abs(volume(p))
	}
	if math.Abs(total-want) > 1e-4*want {
		t.Errorf("volume not conserved: want %f got %f", want, total)
	}
}
