package mesh

import "testing"

func TestAddDeduplicates(t *testing.T) {
	m, err := New(3, Triangle)
	if err != nil {
		t.Fatal(err)
	}
	a, err := m.Add([]float32{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Add([]float32{1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	c, err := m.Add([]float32{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if a != c {
		t.Fatalf("identical vertex should dedup to same index: %d != %d", a, c)
	}
	if a == b {
		t.Fatal("distinct vertices must not share an index")
	}
	if m.NumVerts() != 2 {
		t.Fatalf("expected 2 unique vertices, got %d", m.NumVerts())
	}
	if m.NumIndices() != 3 {
		t.Fatalf("expected 3 indices, got %d", m.NumIndices())
	}
}

func TestAddWrongArity(t *testing.T) {
	m, err := New(3, Triangle)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add([]float32{1, 2}); err == nil {
		t.Fatal("expected error adding a 2-float vertex to an F=3 mesh")
	} else if kind, ok := As(err); !ok || kind != InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestAddAfterFinalizeFails(t *testing.T) {
	m, err := New(3, Triangle)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add([]float32{0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	m.Finalize()
	if !m.Finalized() {
		t.Fatal("expected Finalized() true after Finalize")
	}
	if _, err := m.Add([]float32{1, 1, 1}); err == nil {
		t.Fatal("expected error adding after finalize")
	}
}

func TestAddIndexRange(t *testing.T) {
	m, err := New(3, Triangle)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add([]float32{0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddIndex(0); err != nil {
		t.Fatal(err)
	}
	if err := m.AddIndex(5); err == nil {
		t.Fatal("expected out-of-range AddIndex to fail")
	}
}

func TestCopyTruncatesAttributes(t *testing.T) {
	src, err := New(6, Triangle)
	if err != nil {
		t.Fatal(err)
	}
	verts := [][]float32{
		{0, 0, 0, 1, 0, 0},
		{1, 0, 0, 1, 0, 0},
		{0, 1, 0, 1, 0, 0},
	}
	for _, v := range verts {
		if _, err := src.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	dst, err := Copy(src, 3)
	if err != nil {
		t.Fatal(err)
	}
	if dst.F() != 3 {
		t.Fatalf("expected F=3, got %d", dst.F())
	}
	if dst.NumVerts() != 3 {
		t.Fatalf("expected 3 verts, got %d", dst.NumVerts())
	}
	if _, err := Copy(src, 8); err == nil {
		t.Fatal("expected error copying to a larger F")
	}
}

func TestBounds(t *testing.T) {
	m, err := New(3, Point)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range [][]float32{{-1, 2, 0}, {3, -2, 5}} {
		if _, err := m.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	min, max := m.Bounds()
	if min[0] != -1 || min[1] != -2 || min[2] != 0 {
		t.Fatalf("unexpected min: %v", min)
	}
	if max[0] != 3 || max[1] != 2 || max[2] != 5 {
		t.Fatalf("unexpected max: %v", max)
	}
}

func TestNumPrimitivesAndPrimitive(t *testing.T) {
	m, err := New(3, Triangle)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range [][]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {2, 0, 0}, {2, 1, 0}} {
		if _, err := m.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	if m.NumPrimitives() != 2 {
		t.Fatalf("expected 2 triangles, got %d", m.NumPrimitives())
	}
	if len(m.Primitive(1)) != 3 {
		t.Fatal("expected 3 indices per triangle primitive")
	}
}
