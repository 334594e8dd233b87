package massprops

import (
	"math"
	"testing"

	"github.com/maurerpe/libpolyhedra/mesh"
)

func cubeMesh(h float64, center mesh.Vec3) *mesh.IndexedMesh {
	b, err := mesh.NewTriangleBuilder()
	if err != nil {
		panic(err)
	}
	c := func(x, y, z float64) mesh.Vec3 {
		return mesh.NewVec3(x*h, y*h, z*h).Add(center)
	}
	quad := func(a, b2, c2, d mesh.Vec3) {
		must(b.Add(a, b2, c2))
		must(b.Add(a, c2, d))
	}
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

func TestComputeUnitCubeVolumeAndCentroid(t *testing.T) {
	m := cubeMesh(1, mesh.NewVec3(5, -3, 2))
	r, err := Compute(m)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.Volume-8) > 1e-6 {
		t.Errorf("expected volume 8, got %f", r.Volume)
	}
	want := mesh.NewVec3(5, -3, 2)
	if r.Centroid.Dist(want) > 1e-6 {
		t.Errorf("expected centroid %v, got %v", want, r.Centroid)
	}
}

func TestComputeCubeInertiaTensor(t *testing.T) {
	// A cube of side 2 (half-extent 1) has analytic inertia
	// I = (1/6)*m*s^2 per diagonal axis for unit density, s=2, m=8:
	// I_ii = (1/6)*8*4 = 16/3 about its own centroid.
	m := cubeMesh(1, mesh.NewVec3(0, 0, 0))
	r, err := Compute(m)
	if err != nil {
		t.Fatal(err)
	}
	want := 16.0 / 3.0
	for i := 0; i < 3; i++ {
		if math.Abs(r.Inertia.At(i, i)-want) > 1e-5 {
			t.Errorf("I[%d][%d] = %f, want %f", i, i, r.Inertia.At(i, i), want)
		}
		for j := 0; j < 3; j++ {
			if i == j {
				continue
			}
			if math.Abs(r.Inertia.At(i, j)) > 1e-5 {
				t.Errorf("off-diagonal I[%d][%d] = %f, want 0", i, j, r.Inertia.At(i, j))
			}
		}
	}
}

func TestComputeRejectsNonTriangleMesh(t *testing.T) {
	m, err := mesh.New(3, mesh.Point)
	if err != nil {
		t.Fatal(err)
	}
	must(m.Add([]float32{0, 0, 0}))
	m.Finalize()
	if _, err := Compute(m); err == nil {
		t.Fatal("expected error for non-triangle mesh")
	}
}
