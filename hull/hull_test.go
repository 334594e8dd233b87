package hull

import (
	"math"
	"math/rand"
	"testing"

	"github.com/maurerpe/libpolyhedra/massprops"
	"github.com/maurerpe/libpolyhedra/mesh"
)

func pointMesh(pts [][3]float64) *mesh.IndexedMesh {
	m, err := mesh.New(3, mesh.Point)
	if err != nil {
		panic(err)
	}
	for _, p := range pts {
		if _, err := m.Add([]float32{float32(p[0]), float32(p[1]), float32(p[2])}); err != nil {
			panic(err)
		}
	}
	m.Finalize()
	return m
}

func meshBounds(t *testing.T, out *mesh.IndexedMesh) (min, max [3]float64) {
	lo, hi := out.Bounds()
	return [3]float64{float64(lo[0]), float64(lo[1]), float64(lo[2])},
		[3]float64{float64(hi[0]), float64(hi[1]), float64(hi[2])}
}

func TestBuildCubeCorners(t *testing.T) {
	var pts [][3]float64
	for _, x := range []float64{0, 1} {
		for _, y := range []float64{0, 1} {
			for _, z := range []float64{0, 1} {
				pts = append(pts, [3]float64{x, y, z})
			}
		}
	}
	out, err := Build(pointMesh(pts))
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind() != mesh.Triangle {
		t.Fatalf("expected triangle mesh, got %v", out.Kind())
	}
	if out.NumPrimitives() == 0 {
		t.Fatal("hull has no triangles")
	}
	lo, hi := meshBounds(t, out)
	if lo != ([3]float64{0, 0, 0}) || hi != ([3]float64{1, 1, 1}) {
		t.Fatalf("unexpected bounds: %v %v", lo, hi)
	}
	for p := 0; p < out.NumPrimitives(); p++ {
		a, b, c := out.TriangleAt(p)
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Norm() < 1e-9 {
			t.Fatalf("degenerate triangle at primitive %d", p)
		}
	}
}

// TestBuildInteriorPointsDropped checks that points strictly inside the
// hull do not appear as extra facets: every output vertex must lie on
// the unit sphere's surface within tolerance.
func TestBuildInteriorPointsDropped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var pts [][3]float64
	for i := 0; i < 200; i++ {
		var v [3]float64
		for {
			v = [3]float64{rng.Float64()*2 - 1, rng.Float64()*2 - 1, rng.Float64()*2 - 1}
			n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
			if n > 1e-6 && n <= 1 {
				v[0] /= n
				v[1] /= n
				v[2] /= n
				break
			}
		}
		pts = append(pts, v)
	}
	// Add a handful of strictly interior points that must not survive
	// onto the hull surface.
	for i := 0; i < 20; i++ {
		pts = append(pts, [3]float64{0.1 * float64(i%3), 0, 0})
	}

	out, err := Build(pointMesh(pts))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < out.NumVerts(); i++ {
		v := out.Vertex(uint32(i))
		n := math.Sqrt(float64(v[0])*float64(v[0]) + float64(v[1])*float64(v[1]) + float64(v[2])*float64(v[2]))
		if n < 0.99 {
			t.Fatalf("vertex %v (norm %f) should not be on the hull surface", v, n)
		}
	}
}

// TestBuildFacesWindOutward guards against the outward-normal
// regression of a reversed ridge winding in buildNewFaces: every face
// of a hull with more than the initial tetrahedron (i.e. one whose
// main loop actually ran) must have its declared normal/d pair satisfy
// n_f.centroid < d_f (spec.md §8 "convex hull closedness"), and the
// mesh's volume (via massprops, independent of hull's own winding) must
// come out positive rather than negated.
func TestBuildFacesWindOutward(t *testing.T) {
	var pts [][3]float64
	for _, x := range []float64{0, 2} {
		for _, y := range []float64{0, 2} {
			for _, z := range []float64{0, 2} {
				pts = append(pts, [3]float64{x, y, z})
			}
		}
	}
	out, err := Build(pointMesh(pts))
	if err != nil {
		t.Fatal(err)
	}

	var centroid mesh.Vec3
	for i := 0; i < out.NumVerts(); i++ {
		centroid = centroid.Add(mesh.VertexVec3(out.Vertex(uint32(i))))
	}
	centroid = centroid.Scale(1 / float64(out.NumVerts()))

	for p := 0; p < out.NumPrimitives(); p++ {
		a, b, c := out.TriangleAt(p)
		n := b.Sub(a).Cross(c.Sub(a))
		d := n.Dot(a)
		if got := n.Dot(centroid); got >= d {
			t.Fatalf("triangle %d: normal points inward (n.centroid=%v >= d=%v)", p, got, d)
		}
	}

	res, err := massprops.Compute(out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Volume <= 0 {
		t.Fatalf("expected a positive hull volume, got %v", res.Volume)
	}
	want := 8.0 // 2x2x2 cube
	if math.Abs(res.Volume-want) > 1e-4*want {
		t.Fatalf("expected volume %v, got %v", want, res.Volume)
	}
}

func TestBuildRejectsDegenerateInput(t *testing.T) {
	t.Run("TooFewPoints", func(t *testing.T) {
		_, err := Build(pointMesh([][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}))
		if err == nil {
			t.Fatal("expected error for fewer than four unique points")
		}
	})
	t.Run("Coplanar", func(t *testing.T) {
		_, err := Build(pointMesh([][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}))
		if err == nil {
			t.Fatal("expected error for coplanar points")
		}
		if k, ok := mesh.As(err); !ok || k != mesh.InvalidInput {
			t.Fatalf("expected InvalidInput, got %v", err)
		}
	})
}
