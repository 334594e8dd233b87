package mesh

// TriangleBuilder accumulates Vec3 triangles into a triangle-kind
// IndexedMesh with F=3, de-duplicating vertices as it goes. This is the
// common output path for hull, planecut, simplify, and the primitive
// generators.
type TriangleBuilder struct {
	m *IndexedMesh
}

// NewTriangleBuilder creates a builder for an F=3 triangle mesh.
func NewTriangleBuilder() (*TriangleBuilder, error) {
	m, err := New(3, Triangle)
	if err != nil {
		return nil, err
	}
	return &TriangleBuilder{m: m}, nil
}

// Add appends one triangle (a, b, c), in the given winding order.
func (b *TriangleBuilder) Add(a, c2, c Vec3) error {
	for _, v := range [3]Vec3{a, c2, c} {
		arr := v.Array32()
		if _, err := b.m.Add(arr[:]); err != nil {
			return err
		}
	}
	return nil
}

// Mesh finalizes and returns the accumulated mesh.
func (b *TriangleBuilder) Mesh() *IndexedMesh {
	b.m.Finalize()
	return b.m
}

// TriangleAt returns the three Vec3 corners of the p-th triangle
// primitive. m.Kind() must be Triangle.
func (m *IndexedMesh) TriangleAt(p int) (a, b, c Vec3) {
	prim := m.Primitive(p)
	return VertexVec3(m.Vertex(prim[0])), VertexVec3(m.Vertex(prim[1])), VertexVec3(m.Vertex(prim[2]))
}

// TriangleNormal returns the (non-normalized) CCW cross-product normal
// of the p-th triangle.
func (m *IndexedMesh) TriangleNormal(p int) Vec3 {
	a, b, c := m.TriangleAt(p)
	return b.Sub(a).Cross(c.Sub(a))
}

// EdgeKey canonicalizes an undirected edge (i, j) for adjacency maps.
func EdgeKey(i, j uint32) [2]uint32 {
	if i < j {
		return [2]uint32{i, j}
	}
	return [2]uint32{j, i}
}

// NeedsRepair reports whether the mesh is not a closed 2-manifold
// triangle mesh: some edge is shared by a number of triangles other than
// exactly two. Supplemental sanity check per SPEC_FULL.md §10, grounded
// on the teacher's Mesh.NeedsRepair().
func (m *IndexedMesh) NeedsRepair() bool {
	if m.kind != Triangle {
		return true
	}
	counts := map[[2]uint32]int{}
	for p := 0; p < m.NumPrimitives(); p++ {
		prim := m.Primitive(p)
		for k := 0; k < 3; k++ {
			e := EdgeKey(prim[k], prim[(k+1)%3])
			counts[e]++
		}
	}
	for _, c := range counts {
		if c != 2 {
			return true
		}
	}
	return false
}
