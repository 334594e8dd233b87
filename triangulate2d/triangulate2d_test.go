package triangulate2d

import (
	"math"
	"testing"

	"github.com/maurerpe/libpolyhedra/mesh"
)

func lineMesh(t *testing.T, loops [][]mesh.Vec2) *mesh.IndexedMesh {
	m, err := mesh.New(2, mesh.Line)
	if err != nil {
		t.Fatal(err)
	}
	for _, loop := range loops {
		n := len(loop)
		for i := 0; i < n; i++ {
			a := loop[i]
			b := loop[(i+1)%n]
			if _, err := m.Add([]float32{float32(a.X), float32(a.Y)}); err != nil {
				t.Fatal(err)
			}
			if _, err := m.Add([]float32{float32(b.X), float32(b.Y)}); err != nil {
				t.Fatal(err)
			}
		}
	}
	return m
}

func outputArea(out *mesh.IndexedMesh) float64 {
	total := 0.0
	for p := 0; p < out.NumPrimitives(); p++ {
		prim := out.Primitive(p)
		a := out.Vertex(prim[0])
		b := out.Vertex(prim[1])
		c := out.Vertex(prim[2])
		total += 0.5 * float64((b[0]-a[0])*(c[1]-a[1])-(b[1]-a[1])*(c[0]-a[0]))
	}
	return total
}

func squareLoop(cx, cy, half float64, ccw bool) []mesh.Vec2 {
	pts := []mesh.Vec2{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
	}
	if !ccw {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}

func TestTriangulateSimpleSquare(t *testing.T) {
	loop := squareLoop(0, 0, 1, true)
	in := lineMesh(t, [][]mesh.Vec2{loop})
	out, err := Triangulate(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind() != mesh.Triangle || out.F() != 2 {
		t.Fatalf("expected F=2 triangle output, got F=%d kind=%v", out.F(), out.Kind())
	}
	got := outputArea(out)
	want := 4.0 // 2x2 square
	if math.Abs(got-want) > 1e-5*want {
		t.Fatalf("expected area %v, got %v", want, got)
	}
}

func TestTriangulateSquareWithHole(t *testing.T) {
	outer := squareLoop(0, 0, 2, true)
	hole := squareLoop(0, 0, 1, false) // opposite winding, per spec.md scenario 4
	in := lineMesh(t, [][]mesh.Vec2{outer, hole})
	out, err := Triangulate(in)
	if err != nil {
		t.Fatal(err)
	}
	if out.NumPrimitives() != 8 {
		t.Fatalf("expected 8 triangles for a square-with-square-hole, got %d", out.NumPrimitives())
	}
	got := outputArea(out)
	want := 16.0 - 4.0 // outer 4x4 minus hole 2x2
	if math.Abs(got-want) > 1e-5*want {
		t.Fatalf("expected annulus area %v, got %v", want, got)
	}
}

func TestTriangulateRejectsNonLineInput(t *testing.T) {
	m, err := mesh.New(2, mesh.Point)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Triangulate(m); err == nil {
		t.Fatal("expected an error triangulating a non-line-kind mesh")
	}
}

func TestTriangulateIgnoresDegenerateEdge(t *testing.T) {
	loop := squareLoop(0, 0, 1, true)
	in := lineMesh(t, [][]mesh.Vec2{loop})
	// A degenerate (zero-length) edge appended on top: should be
	// ignored rather than breaking the sweep.
	v := loop[0]
	if _, err := in.Add([]float32{float32(v.X), float32(v.Y)}); err != nil {
		t.Fatal(err)
	}
	if _, err := in.Add([]float32{float32(v.X), float32(v.Y)}); err != nil {
		t.Fatal(err)
	}
	out, err := Triangulate(in)
	if err != nil {
		t.Fatal(err)
	}
	got := outputArea(out)
	if math.Abs(got-4.0) > 1e-5*4.0 {
		t.Fatalf("expected degenerate edge to be ignored, area %v", got)
	}
}
