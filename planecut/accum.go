package planecut

import (
	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/container/uqueue"
	"github.com/maurerpe/libpolyhedra/mesh"
	"github.com/maurerpe/libpolyhedra/triangulate2d"
)

// sideAccum collects one side's triangles (direct pieces from cut
// triangles, plus its cap triangles), the on-plane boundary edges it
// has toggled, and finally splits into connected components.
type sideAccum struct {
	tris         [][3]mesh.Vec3
	onPlaneEdges map[[2][2]float32]onPlaneEdge
}

type onPlaneEdge struct {
	present bool
	a, b    mesh.Vec2
	pa, pb  mesh.Vec3
}

func newSideAccum() *sideAccum {
	return &sideAccum{onPlaneEdges: map[[2][2]float32]onPlaneEdge{}}
}

func (s *sideAccum) addTriangle(a, b, c mesh.Vec3) {
	s.tris = append(s.tris, [3]mesh.Vec3{a, b, c})
}

func key2D(p mesh.Vec2) [2]float32 {
	return [2]float32{float32(p.X), float32(p.Y)}
}

func edgeKey2D(a, b mesh.Vec2) [2][2]float32 {
	ka, kb := key2D(a), key2D(b)
	if ka[0] > kb[0] || (ka[0] == kb[0] && ka[1] > kb[1]) {
		ka, kb = kb, ka
	}
	return [2][2]float32{ka, kb}
}

// toggleOnPlaneEdge records a boundary edge shared between the plane
// and an input triangle. A matching edge recorded twice cancels (it
// was an interior edge of two coplanar triangles, not a cap boundary),
// per spec.md §4.7's toggle rule.
func (s *sideAccum) toggleOnPlaneEdge(a mesh.Vec2, pa mesh.Vec3, b mesh.Vec2, pb mesh.Vec3) {
	k := edgeKey2D(a, b)
	e, ok := s.onPlaneEdges[k]
	if ok && e.present {
		delete(s.onPlaneEdges, k)
		return
	}
	s.onPlaneEdges[k] = onPlaneEdge{present: true, a: a, b: b, pa: pa, pb: pb}
}

// addCap triangulates this side's cap boundary (the shared
// intersection segments plus this side's surviving on-plane edges)
// and appends the resulting triangles, flipped if flip is set (spec.md
// §4.7: "the two sides receive opposite winding").
func (s *sideAccum) addCap(segs []segment, u, v, n mesh.Vec3, flip bool) error {
	lm, err := mesh.New(2, mesh.Line)
	if err != nil {
		return err
	}
	posByKey := map[[2]float32]mesh.Vec3{}
	addSeg := func(a, b mesh.Vec2, pa, pb mesh.Vec3) error {
		posByKey[key2D(a)] = pa
		posByKey[key2D(b)] = pb
		if _, err := lm.Add([]float32{float32(a.X), float32(a.Y)}); err != nil {
			return err
		}
		if _, err := lm.Add([]float32{float32(b.X), float32(b.Y)}); err != nil {
			return err
		}
		return nil
	}
	any := false
	for _, seg := range segs {
		if err := addSeg(seg.a, seg.b, seg.pa, seg.pb); err != nil {
			return err
		}
		any = true
	}
	for _, e := range s.onPlaneEdges {
		if !e.present {
			continue
		}
		if err := addSeg(e.a, e.b, e.pa, e.pb); err != nil {
			return err
		}
		any = true
	}
	if !any {
		return nil
	}
	lm.Finalize()

	capTris, err := triangulate2d.Triangulate(lm)
	if err != nil {
		return errors.Wrap(err, "cap triangulation")
	}
	for p := 0; p < capTris.NumPrimitives(); p++ {
		prim := capTris.Primitive(p)
		var p3 [3]mesh.Vec3
		for k := 0; k < 3; k++ {
			vv := capTris.Vertex(prim[k])
			pos, ok := posByKey[[2]float32{vv[0], vv[1]}]
			if !ok {
				return mesh.Errorf(mesh.GeometryInconsistent, "planecut: cap vertex not found in boundary map")
			}
			p3[k] = pos
		}
		if flip {
			s.addTriangle(p3[0], p3[2], p3[1])
		} else {
			s.addTriangle(p3[0], p3[1], p3[2])
		}
	}
	return nil
}

// connectedComponents finalizes this side's triangle soup into an
// IndexedMesh, then splits it into one IndexedMesh per connected
// component via BFS over face-edge-face adjacency, per spec.md §4.7.
func (s *sideAccum) connectedComponents() ([]*mesh.IndexedMesh, error) {
	if len(s.tris) == 0 {
		return nil, nil
	}

	b, err := mesh.NewTriangleBuilder()
	if err != nil {
		return nil, err
	}
	for _, t := range s.tris {
		if err := b.Add(t[0], t[1], t[2]); err != nil {
			return nil, err
		}
	}
	full := b.Mesh()

	adj := map[[2]uint32][]int{}
	for p := 0; p < full.NumPrimitives(); p++ {
		prim := full.Primitive(p)
		for k := 0; k < 3; k++ {
			ek := mesh.EdgeKey(prim[k], prim[(k+1)%3])
			adj[ek] = append(adj[ek], p)
		}
	}

	visited := make([]bool, full.NumPrimitives())
	var parts []*mesh.IndexedMesh
	for start := 0; start < full.NumPrimitives(); start++ {
		if visited[start] {
			continue
		}
		q := uqueue.New[int]()
		q.Push(start)
		visited[start] = true
		pb, err := mesh.NewTriangleBuilder()
		if err != nil {
			return nil, err
		}
		for {
			p, ok := q.Pop()
			if !ok {
				break
			}
			prim := full.Primitive(p)
			a, bb, c := mesh.VertexVec3(full.Vertex(prim[0])), mesh.VertexVec3(full.Vertex(prim[1])), mesh.VertexVec3(full.Vertex(prim[2]))
			if err := pb.Add(a, bb, c); err != nil {
				return nil, err
			}
			for k := 0; k < 3; k++ {
				ek := mesh.EdgeKey(prim[k], prim[(k+1)%3])
				for _, nb := range adj[ek] {
					if !visited[nb] {
						visited[nb] = true
						q.Push(nb)
					}
				}
			}
		}
		parts = append(parts, pb.Mesh())
	}
	return parts, nil
}
