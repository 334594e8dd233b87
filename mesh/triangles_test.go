package mesh

import "testing"

func TestTriangleBuilderDedupAndNormal(t *testing.T) {
	b, err := NewTriangleBuilder()
	if err != nil {
		t.Fatal(err)
	}
	a := NewVec3(0, 0, 0)
	p := NewVec3(1, 0, 0)
	q := NewVec3(0, 1, 0)
	if err := b.Add(a, p, q); err != nil {
		t.Fatal(err)
	}
	if err := b.Add(a, p, q); err != nil {
		t.Fatal(err)
	}
	out := b.Mesh()
	if out.NumVerts() != 3 {
		t.Fatalf("expected 3 unique verts across two identical triangles, got %d", out.NumVerts())
	}
	if out.NumPrimitives() != 2 {
		t.Fatalf("expected 2 triangle primitives, got %d", out.NumPrimitives())
	}
	n := out.TriangleNormal(0)
	if n.Z <= 0 {
		t.Fatalf("expected +Z-facing normal for CCW (a,p,q), got %v", n)
	}
}

func TestEdgeKeyCanonical(t *testing.T) {
	if EdgeKey(3, 7) != EdgeKey(7, 3) {
		t.Fatal("EdgeKey must be symmetric")
	}
	if EdgeKey(1, 1) != ([2]uint32{1, 1}) {
		t.Fatal("EdgeKey of a degenerate edge should be (i, i)")
	}
}

func TestNeedsRepair(t *testing.T) {
	b, err := NewTriangleBuilder()
	if err != nil {
		t.Fatal(err)
	}
	a, p, q, r := NewVec3(0, 0, 0), NewVec3(1, 0, 0), NewVec3(0, 1, 0), NewVec3(0, 0, 1)
	// A single triangle is open (every edge used once): needs repair.
	if err := b.Add(a, p, q); err != nil {
		t.Fatal(err)
	}
	single := b.Mesh()
	if !single.NeedsRepair() {
		t.Fatal("an open single triangle should need repair")
	}

	tet, err := NewTriangleBuilder()
	if err != nil {
		t.Fatal(err)
	}
	faces := [][3]Vec3{
		{a, q, p},
		{a, p, r},
		{a, r, q},
		{p, q, r},
	}
	for _, f := range faces {
		if err := tet.Add(f[0], f[1], f[2]); err != nil {
			t.Fatal(err)
		}
	}
	closed := tet.Mesh()
	if closed.NeedsRepair() {
		t.Fatal("a closed tetrahedron should not need repair")
	}
}
