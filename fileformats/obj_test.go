package fileformats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/maurerpe/libpolyhedra/mesh"
)

func cubeTriMesh(t *testing.T) *mesh.IndexedMesh {
	t.Helper()
	m, err := mesh.New(3, mesh.Triangle)
	if err != nil {
		t.Fatal(err)
	}
	corners := [8][3]float32{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	idx := make([]uint32, 8)
	for i, c := range corners {
		v, err := m.Add(c[:])
		if err != nil {
			t.Fatal(err)
		}
		idx[i] = v
	}
	faces := [12][3]int{
		{0, 1, 2}, {0, 2, 3}, {4, 6, 5}, {4, 7, 6},
		{0, 4, 5}, {0, 5, 1}, {1, 5, 6}, {1, 6, 2},
		{2, 6, 7}, {2, 7, 3}, {3, 7, 4}, {3, 4, 0},
	}
	for _, f := range faces {
		for _, c := range f {
			if err := m.AddIndex(idx[c]); err != nil {
				t.Fatal(err)
			}
		}
	}
	m.Finalize()
	return m
}

func TestWriteReadOBJRoundTrip(t *testing.T) {
	m := cubeTriMesh(t)
	list := mesh.NewList()
	list.Append(m)

	var buf bytes.Buffer
	if err := WriteOBJ(&buf, list); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "# libpolyhedra\n") {
		t.Fatalf("missing header: %q", buf.String()[:20])
	}

	out, err := ReadOBJ(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 1 {
		t.Fatalf("expected 1 mesh, got %d", out.Len())
	}
	got := out.Slice()[0]
	if got.F() != 3 {
		t.Fatalf("expected F=3, got %d", got.F())
	}
	if got.NumVerts() != m.NumVerts() {
		t.Fatalf("expected %d unique vertices, got %d", m.NumVerts(), got.NumVerts())
	}
	if got.NumPrimitives() != m.NumPrimitives() {
		t.Fatalf("expected %d triangles, got %d", m.NumPrimitives(), got.NumPrimitives())
	}
}

func TestReadOBJMultipleObjects(t *testing.T) {
	src := strings.NewReader(`# c
o first
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
o second
v 0 0 1
v 1 0 1
v 0 1 1
f 4 5 6
`)
	list, err := ReadOBJ(src)
	if err != nil {
		t.Fatal(err)
	}
	if list.Len() != 2 {
		t.Fatalf("expected 2 meshes, got %d", list.Len())
	}
}

func TestReadOBJRejectsNonTriangleFace(t *testing.T) {
	src := strings.NewReader(`v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
f 1 2 3 4
`)
	if _, err := ReadOBJ(src); err == nil {
		t.Fatal("expected error for quad face")
	}
}

func TestReadOBJVtVnLayout(t *testing.T) {
	src := strings.NewReader(`v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vn 0 0 1
vn 0 0 1
vn 0 0 1
f 1/1/1 2/2/2 3/3/3
`)
	list, err := ReadOBJ(src)
	if err != nil {
		t.Fatal(err)
	}
	m := list.Slice()[0]
	if m.F() != 8 {
		t.Fatalf("expected F=8 for vt+vn, got %d", m.F())
	}
	v := m.Vertex(0)
	// vt "0 0" is stored as (u, 1-v) = (0, 1)
	if v[3] != 0 || v[4] != 1 {
		t.Fatalf("unexpected texcoord: %v", v[3:5])
	}
	if v[5] != 0 || v[6] != 0 || v[7] != 1 {
		t.Fatalf("unexpected normal: %v", v[5:8])
	}
}
