// Package halfedge implements HalfEdgeMesh (the "VEF" graph of spec.md
// §3/§4.11): a derived Vertex/Edge/Face view over a closed 2-manifold
// triangle IndexedMesh, with per-face plane/2D-basis caching and
// per-edge dihedral info, plus the ConvexInteriorDist/ConvexRayDist
// utilities used by ConvexDecomp.
package halfedge

import (
	"math"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// Vertex is a VEF vertex: a position plus its incident edges.
type Vertex struct {
	Pos   mesh.Vec3
	Edges []*Edge
}

// Edge is an ordered pair of vertices with up to two adjacent faces (the
// mesh is assumed 2-manifold) and optional cached dihedral info.
type Edge struct {
	V [2]*Vertex
	F [2]*Face // nil if only one face touches this edge (boundary)

	hasDihedral bool
	XVec, ZVec  mesh.Vec3
	Ang         float64 // in [0, 2*pi)
}

// Face is a CCW triangle with outward normal/plane offset and an
// optional cached in-plane 2D basis.
type Face struct {
	V [3]*Vertex
	E [3]*Edge // E[i] runs V[i] -> V[(i+1)%3]

	Normal mesh.Vec3
	D      float64 // plane offset: Normal . p = D for p on the plane

	hasBasis bool
	XVec     mesh.Vec3
	YVec     mesh.Vec3
	P1, P2   mesh.Vec2 // in-plane coords of V[1], V[2] relative to V[0]
}

// Mesh is the full VEF graph.
type Mesh struct {
	Verts []*Vertex
	Edges []*Edge
	Faces []*Face
}

// Build derives a Mesh from a closed 2-manifold triangle IndexedMesh.
func Build(im *mesh.IndexedMesh) (*Mesh, error) {
	if im.Kind() != mesh.Triangle || im.F() < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "halfedge: need a triangle mesh with F>=3")
	}
	if im.NeedsRepair() {
		return nil, mesh.Errorf(mesh.InvalidInput, "halfedge: mesh is not a closed 2-manifold")
	}

	m := &Mesh{}
	verts := make([]*Vertex, im.NumVerts())
	for i := range verts {
		verts[i] = &Vertex{Pos: mesh.VertexVec3(im.Vertex(uint32(i)))}
	}
	m.Verts = verts

	edgeOf := map[[2]uint32]*Edge{}
	getEdge := func(a, b uint32) *Edge {
		key := mesh.EdgeKey(a, b)
		e, ok := edgeOf[key]
		if !ok {
			e = &Edge{V: [2]*Vertex{verts[a], verts[b]}}
			edgeOf[key] = e
			m.Edges = append(m.Edges, e)
			verts[a].Edges = append(verts[a].Edges, e)
			verts[b].Edges = append(verts[b].Edges, e)
		}
		return e
	}

	for p := 0; p < im.NumPrimitives(); p++ {
		prim := im.Primitive(p)
		f := &Face{V: [3]*Vertex{verts[prim[0]], verts[prim[1]], verts[prim[2]]}}
		for k := 0; k < 3; k++ {
			e := getEdge(prim[k], prim[(k+1)%3])
			f.E[k] = e
			if e.F[0] == nil {
				e.F[0] = f
			} else if e.F[1] == nil {
				e.F[1] = f
			} else {
				return nil, mesh.Errorf(mesh.InvalidInput, "halfedge: edge shared by more than two faces")
			}
		}
		a, b, c := f.V[0].Pos, f.V[1].Pos, f.V[2].Pos
		f.Normal = b.Sub(a).Cross(c.Sub(a)).Normalize()
		f.D = f.Normal.Dot(a)
		m.Faces = append(m.Faces, f)
	}
	return m, nil
}

// Basis lazily computes and caches f's in-plane 2D basis.
func (f *Face) Basis() (xv, yv mesh.Vec3, p1, p2 mesh.Vec2) {
	if !f.hasBasis {
		a, b, c := f.V[0].Pos, f.V[1].Pos, f.V[2].Pos
		f.XVec = b.Sub(a).Normalize()
		f.YVec = f.Normal.Cross(f.XVec)
		f.P1 = mesh.Vec2{X: b.Sub(a).Norm(), Y: 0}
		rel := c.Sub(a)
		f.P2 = mesh.Vec2{X: f.XVec.Dot(rel), Y: f.YVec.Dot(rel)}
		f.hasBasis = true
	}
	return f.XVec, f.YVec, f.P1, f.P2
}

// Dihedral lazily computes and caches e's dihedral angle and unit basis.
// Requires both faces to be present.
func (e *Edge) Dihedral() (xVec, zVec mesh.Vec3, ang float64, ok bool) {
	if e.F[0] == nil || e.F[1] == nil {
		return mesh.Vec3{}, mesh.Vec3{}, 0, false
	}
	if !e.hasDihedral {
		dir := e.V[1].Pos.Sub(e.V[0].Pos).Normalize()
		e.XVec = dir
		e.ZVec = e.F[0].Normal
		n0 := e.F[0].Normal
		n1 := e.F[1].Normal
		cosA := math.Max(-1, math.Min(1, n0.Dot(n1)))
		angle := math.Acos(cosA)
		// Orient by whether n1 rotates "outward" (convex) or "inward"
		// (reflex) around dir, giving a value in [0, 2*pi).
		cross := n0.Cross(n1)
		if cross.Dot(dir) < 0 {
			angle = 2*math.Pi - angle
		}
		e.Ang = angle
		e.hasDihedral = true
	}
	return e.XVec, e.ZVec, e.Ang, true
}

// ConvexInteriorDist returns the signed distance from pt to the nearest
// bounding plane of a convex hull's VEF mesh, per spec.md §4.11: the
// minimum of (d_f - n_f.pt) over all faces, found by a pruned BFS from a
// start face. Returns -Inf on error (m has no faces).
func (m *Mesh) ConvexInteriorDist(pt mesh.Vec3) float64 {
	if len(m.Faces) == 0 {
		return math.Inf(-1)
	}
	tol := 1e-6 * diag(m)
	start := m.Faces[0]
	val := func(f *Face) float64 { return f.D - f.Normal.Dot(pt) }

	visited := map[*Face]bool{start: true}
	queue := []*Face{start}
	currentMin := val(start)
	for i := 0; i < len(queue); i++ {
		f := queue[i]
		v := val(f)
		if v < currentMin {
			currentMin = v
		}
		if v > currentMin+tol {
			continue
		}
		for _, e := range f.E {
			var nb *Face
			if e.F[0] == f {
				nb = e.F[1]
			} else {
				nb = e.F[0]
			}
			if nb != nil && !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return currentMin
}

func diag(m *Mesh) float64 {
	if len(m.Verts) == 0 {
		return 1
	}
	min, max := m.Verts[0].Pos, m.Verts[0].Pos
	for _, v := range m.Verts[1:] {
		min = mesh.NewVec3(math.Min(min.X, v.Pos.X), math.Min(min.Y, v.Pos.Y), math.Min(min.Z, v.Pos.Z))
		max = mesh.NewVec3(math.Max(max.X, v.Pos.X), math.Max(max.Y, v.Pos.Y), math.Max(max.Z, v.Pos.Z))
	}
	d := max.Sub(min).Norm()
	if d == 0 {
		return 1
	}
	return d
}

// ConvexRayDist walks from a start face to find the first intersection
// of the ray (pt, dir) with the convex hull's surface, per spec.md
// §4.11. Returns GeometryInconsistent if the walk revisits a face
// (cycle).
func (m *Mesh) ConvexRayDist(pt, dir mesh.Vec3) (float64, error) {
	if len(m.Faces) == 0 {
		return 0, mesh.Errorf(mesh.GeometryInconsistent, "ConvexRayDist: empty mesh")
	}
	tol := 2e-6 * diag(m)
	f := m.Faces[0]
	visited := map[*Face]bool{}

	for step := 0; step < len(m.Faces)+1; step++ {
		if visited[f] {
			return 0, mesh.Errorf(mesh.GeometryInconsistent, "ConvexRayDist: ray walk revisited a face")
		}
		visited[f] = true

		denom := f.Normal.Dot(dir)
		if math.Abs(denom) < 1e-12 {
			f = anyNeighbor(f)
			continue
		}
		if denom < 0 {
			// A face turned away from dir cannot be where the ray exits:
			// step to the unvisited neighbor most aligned with dir.
			var next *Face
			for _, e := range f.E {
				if nb := e.otherFace(f); nb != nil && !visited[nb] && (next == nil || nb.Normal.Dot(dir) > next.Normal.Dot(dir)) {
					next = nb
				}
			}
			if next == nil {
				return 0, mesh.Errorf(mesh.GeometryInconsistent, "ConvexRayDist: no unvisited neighbor facing the ray")
			}
			f = next
			continue
		}
		t := (f.D - f.Normal.Dot(pt)) / denom
		hit := pt.Add(dir.Scale(t))

		xv, yv, p1, p2 := f.Basis()
		rel := hit.Sub(f.V[0].Pos)
		h := mesh.Vec2{X: xv.Dot(rel), Y: yv.Dot(rel)}

		tri := [3]mesh.Vec2{{0, 0}, p1, p2}
		if pointInTriangle(h, tri, tol) {
			return t, nil
		}

		// Move across whichever edge the hit point lies beyond.
		next := crossEdgeNeighbor(f, tri, h)
		if next == nil {
			return 0, mesh.Errorf(mesh.GeometryInconsistent, "ConvexRayDist: no neighbor across exited edge")
		}
		f = next
	}
	return 0, mesh.Errorf(mesh.GeometryInconsistent, "ConvexRayDist: walk did not converge")
}

func anyNeighbor(f *Face) *Face {
	for _, e := range f.E {
		if e.F[0] != nil && e.F[0] != f {
			return e.F[0]
		}
		if e.F[1] != nil && e.F[1] != f {
			return e.F[1]
		}
	}
	return f
}

func pointInTriangle(p mesh.Vec2, tri [3]mesh.Vec2, tol float64) bool {
	for i := 0; i < 3; i++ {
		a, b := tri[i], tri[(i+1)%3]
		edge := b.Sub(a)
		rel := p.Sub(a)
		if edge.Cross(rel) < -tol {
			return false
		}
	}
	return true
}

func crossEdgeNeighbor(f *Face, tri [3]mesh.Vec2, h mesh.Vec2) *Face {
	var worst *Face
	worstVal := 0.0
	for i := 0; i < 3; i++ {
		a, b := tri[i], tri[(i+1)%3]
		edge := b.Sub(a)
		rel := h.Sub(a)
		v := edge.Cross(rel)
		if v < worstVal {
			worstVal = v
			worst = f.E[i].otherFace(f)
		}
	}
	return worst
}

func (e *Edge) otherFace(f *Face) *Face {
	if e.F[0] == f {
		return e.F[1]
	}
	return e.F[0]
}

// ToMesh re-encodes the VEF graph back to a triangle IndexedMesh.
func (m *Mesh) ToMesh() (*mesh.IndexedMesh, error) {
	b, err := mesh.NewTriangleBuilder()
	if err != nil {
		return nil, errors.Wrap(err, "halfedge.ToMesh")
	}
	for _, f := range m.Faces {
		if err := b.Add(f.V[0].Pos, f.V[1].Pos, f.V[2].Pos); err != nil {
			return nil, errors.Wrap(err, "halfedge.ToMesh")
		}
	}
	return b.Mesh(), nil
}
