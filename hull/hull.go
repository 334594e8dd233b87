// Package hull implements ConvexHull3D (QuickHull), an incremental
// horizon-ridge algorithm over a face graph with per-face outside-point
// lists, per spec.md §4.6.
package hull

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/splaytree"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// face is one triangular facet of the hull under construction. Faces
// carry their own outside-point conflict list and rank in a
// splaytree.Tree ordered by that list's maximum signed distance, so the
// main loop can always pop the globally farthest conflict in O(log n)
// (spec.md §4.6 main loop step 1) without scanning every face.
type face struct {
	v       [3]int // indices into points
	normal  mesh.Vec3
	d       float64 // normal . p = d on the plane
	outside []int
	maxDist float64
	maxIdx  int
	uid     int // tie-breaker, assigned on creation; mirrors the
	// teacher's meshDiscsQueueNode.UID in model3d/parameterization.go
	inTree bool
	dead   bool
}

// Compare orders faces by their outside-list maximum distance, giving
// splaytree.Tree.Max() the face with the globally farthest conflict
// point.
func (f *face) Compare(other *face) int {
	if f.maxDist < other.maxDist {
		return -1
	} else if f.maxDist == other.maxDist {
		if f.uid == other.uid {
			return 0
		} else if f.uid < other.uid {
			return -1
		}
		return 1
	}
	return 1
}

func (f *face) edgeKey(i int) [2]int {
	return [2]int{f.v[i], f.v[(i+1)%3]}
}

func dist(n mesh.Vec3, d float64, p mesh.Vec3) float64 {
	return n.Dot(p) - d
}

// hullState carries the mutable arrays/maps of a single Build call.
type hullState struct {
	points []mesh.Vec3
	faces  map[*face]bool
	edges  map[[2]int]*face // directed edge -> owning face
	ranked *splaytree.Tree[*face]
	// rankedCount mirrors the teacher's inQueue-map-as-size-tracker
	// pattern (model3d/parameterization.go): splaytree.Tree exposes
	// Insert/Delete/Max but not a count, so membership is tracked
	// alongside it rather than queried from it.
	rankedCount int
	nextUID     int
}

func (st *hullState) newFace(v [3]int) *face {
	f := &face{v: v, uid: st.nextUID}
	st.nextUID++
	return f
}

// Build computes the 3D convex hull of in's vertices (only the first
// three floats of each vertex are used, per spec.md §4.6) and returns a
// triangle-kind IndexedMesh with F=3.
func Build(in *mesh.IndexedMesh) (*mesh.IndexedMesh, error) {
	if in.Kind() != mesh.Triangle && in.Kind() != mesh.Point && in.Kind() != mesh.Unspecified {
		return nil, mesh.Errorf(mesh.InvalidInput, "hull: unsupported primitive kind")
	}
	if in.F() < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "hull: need F>=3")
	}

	points := uniquePoints(in)
	if len(points) < 4 {
		return nil, mesh.Errorf(mesh.InvalidInput, "hull: fewer than four unique points")
	}

	st, err := initTetrahedron(points)
	if err != nil {
		return nil, errors.Wrap(err, "hull")
	}

	if err := st.run(); err != nil {
		return nil, errors.Wrap(err, "hull")
	}

	return st.toMesh()
}

func uniquePoints(in *mesh.IndexedMesh) []mesh.Vec3 {
	seen := map[[3]float32]bool{}
	var pts []mesh.Vec3
	for i := 0; i < in.NumVerts(); i++ {
		v := in.Vertex(uint32(i))
		key := [3]float32{v[0], v[1], v[2]}
		if seen[key] {
			continue
		}
		seen[key] = true
		pts = append(pts, mesh.NewVec3(float64(v[0]), float64(v[1]), float64(v[2])))
	}
	return pts
}

// initTetrahedron builds the starting 4-face polytope per spec.md §4.6
// steps 1-6: pick extreme-x points, the farthest third point, check for
// colinearity, then complete the tetrahedron with the point farthest
// from that plane on either side, orienting the base face away from it.
func initTetrahedron(points []mesh.Vec3) (*hullState, error) {
	pMinI, pMaxI := 0, 0
	for i, p := range points {
		if p.X < points[pMinI].X {
			pMinI = i
		}
		if p.X > points[pMaxI].X {
			pMaxI = i
		}
	}
	pMin, pMax := points[pMinI], points[pMaxI]

	pDI := -1
	bestSum := -1.0
	for i, p := range points {
		if i == pMinI || i == pMaxI {
			continue
		}
		s := p.Dist(pMin) + p.Dist(pMax)
		if s > bestSum {
			bestSum = s
			pDI = i
		}
	}
	if pDI == -1 {
		return nil, mesh.Errorf(mesh.InvalidInput, "hull: fewer than four unique points")
	}
	pD := points[pDI]

	n0 := pMax.Sub(pMin).Cross(pD.Sub(pMin))
	if n0.Norm() < 1e-12*math.Max(1, pMax.Sub(pMin).Norm()*pD.Sub(pMin).Norm()) {
		return nil, mesh.Errorf(mesh.InvalidInput, "hull: all points colinear")
	}

	// Find the point farthest from the (pMin,pMax,pD) plane on either
	// side to complete a non-degenerate tetrahedron.
	n := n0.Normalize()
	d := n.Dot(pMin)
	fourthI := -1
	bestAbs := 0.0
	for i, p := range points {
		if i == pMinI || i == pMaxI || i == pDI {
			continue
		}
		dd := math.Abs(dist(n, d, p))
		if dd > bestAbs {
			bestAbs = dd
			fourthI = i
		}
	}
	if fourthI == -1 {
		return nil, mesh.Errorf(mesh.InvalidInput, "hull: all points coplanar")
	}
	apex := points[fourthI]
	if dist(n, d, apex) > 0 {
		// Orient the base so the apex is on the negative side,
		// i.e. the base's outward normal points away from apex.
		pMinI, pMaxI = pMaxI, pMinI
	}

	st := &hullState{
		points: points,
		faces:  map[*face]bool{},
		edges:  map[[2]int]*face{},
		ranked: &splaytree.Tree[*face]{},
	}

	base := [3]int{pMinI, pMaxI, pDI}
	st.addFace(base, apex)
	// Build the three remaining faces of the tetrahedron from apex to
	// each edge of the base, facing outward.
	for i := 0; i < 3; i++ {
		tri := [3]int{base[i], base[(i+1)%3], fourthI}
		st.addFace(tri, centroidOf(points, base))
	}

	all := []int{pMinI, pMaxI, pDI, fourthI}
	for i, p := range points {
		if contains(all, i) {
			continue
		}
		st.assignPoint(i, p)
	}
	return st, nil
}

func centroidOf(points []mesh.Vec3, idx [3]int) mesh.Vec3 {
	return points[idx[0]].Add(points[idx[1]]).Add(points[idx[2]]).Scale(1.0 / 3.0)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// addFace creates a face from the three given point indices, oriented
// so its outward normal points away from "inward", and registers its
// directed edges.
func (st *hullState) addFace(v [3]int, inward mesh.Vec3) *face {
	p0, p1, p2 := st.points[v[0]], st.points[v[1]], st.points[v[2]]
	n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	if dist(n, n.Dot(p0), inward) > 0 {
		v[1], v[2] = v[2], v[1]
		n = n.Scale(-1)
	}
	d := n.Dot(p0)
	f := st.newFace(v)
	f.normal, f.d = n, d
	st.faces[f] = true
	for i := 0; i < 3; i++ {
		st.edges[f.edgeKey(i)] = f
	}
	return f
}

// assignPoint adds point i to the outside list of the first face (of
// the current hull) that it lies strictly above, if any.
func (st *hullState) assignPoint(i int, p mesh.Vec3) {
	for f := range st.faces {
		if f.dead {
			continue
		}
		dd := dist(f.normal, f.d, p)
		if dd > faceTolerance(st, f) {
			st.addOutside(f, i, dd)
			return
		}
	}
}

func faceTolerance(st *hullState, f *face) float64 {
	a := st.points[f.v[1]].Sub(st.points[f.v[0]]).Cross(st.points[f.v[2]].Sub(st.points[f.v[0]])).Norm() / 2
	return 1e-5 * math.Sqrt(math.Abs(a))
}

func (st *hullState) addOutside(f *face, i int, dd float64) {
	f.outside = append(f.outside, i)
	if !f.inTree || dd > f.maxDist {
		if f.inTree {
			st.ranked.Delete(f)
			st.rankedCount--
		}
		f.maxDist = dd
		f.maxIdx = i
		st.ranked.Insert(f)
		st.rankedCount++
		f.inTree = true
	}
}

func (st *hullState) removeFromTree(f *face) {
	if f.inTree {
		st.ranked.Delete(f)
		st.rankedCount--
		f.inTree = false
	}
}

// recomputeMax rescans f's outside list for its new maximum (used after
// pooling points away from f).
func (st *hullState) recomputeMax(f *face) {
	if len(f.outside) == 0 {
		st.removeFromTree(f)
		return
	}
	best, bestI := -math.MaxFloat64, f.outside[0]
	for _, i := range f.outside {
		dd := dist(f.normal, f.d, st.points[i])
		if dd > best {
			best, bestI = dd, i
		}
	}
	if f.inTree {
		st.ranked.Delete(f)
		st.rankedCount--
	}
	f.maxDist, f.maxIdx = best, bestI
	st.ranked.Insert(f)
	st.rankedCount++
	f.inTree = true
}

// run drives the main QuickHull loop (spec.md §4.6).
func (st *hullState) run() error {
	for st.rankedCount > 0 {
		f := st.ranked.Max()
		if len(f.outside) == 0 {
			st.removeFromTree(f)
			continue
		}
		pStarI := f.maxIdx
		pStar := st.points[pStarI]

		visible, pool, err := st.visibleRegion(f, pStar)
		if err != nil {
			return err
		}
		if len(visible) == 0 {
			// Boundary case caused by coplanarity: reassign the
			// pool back to f and its neighbors.
			for _, i := range pool {
				st.assignPoint(i, st.points[i])
			}
			st.removeAllFromOutside(f, pool)
			continue
		}

		ridge, err := st.horizon(visible)
		if err != nil {
			return err
		}

		newFaces := st.buildNewFaces(ridge, pStarI, pStar)

		for f := range visible {
			st.removeFromTree(f)
			delete(st.faces, f)
			f.dead = true
		}

		for _, i := range pool {
			if i == pStarI {
				continue
			}
			st.assignAmong(i, newFaces)
		}
		for _, nf := range newFaces {
			st.recomputeMax(nf)
		}
	}
	return nil
}

func (st *hullState) removeAllFromOutside(f *face, pool []int) {
	f.outside = nil
	st.removeFromTree(f)
}

type visRegion map[*face]bool

// visibleRegion finds the maximal connected set of faces that pStar
// sees, via BFS from f, pooling their outside lists (spec.md §4.6 step
// 2).
func (st *hullState) visibleRegion(f *face, pStar mesh.Vec3) (visRegion, []int, error) {
	visible := visRegion{}
	var pool []int
	queue := []*face{f}
	visited := map[*face]bool{f: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		tol := faceTolerance(st, cur)
		dd := dist(cur.normal, cur.d, pStar)
		if dd <= tol {
			continue // PRESENT: not actually visible
		}
		visible[cur] = true
		pool = append(pool, cur.outside...)
		for i := 0; i < 3; i++ {
			nb := st.edges[[2]int{cur.v[(i+1)%3], cur.v[i]}]
			if nb != nil && !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return visible, pool, nil
}

// ridgeElem is one edge of the horizon: the boundary between the
// visible region and the rest of the hull.
type ridgeElem struct {
	a, b int // edge from a to b, in the surviving (non-visible) face's winding
	nb   *face
}

// horizon walks the cycle of edges separating visible faces from
// present faces (spec.md §4.6 step 4).
func (st *hullState) horizon(visible visRegion) ([]ridgeElem, error) {
	var ridge []ridgeElem
	for f := range visible {
		for i := 0; i < 3; i++ {
			a, b := f.v[i], f.v[(i+1)%3]
			nb := st.edges[[2]int{b, a}]
			if nb == nil || visible[nb] {
				continue
			}
			ridge = append(ridge, ridgeElem{a: b, b: a, nb: nb})
		}
	}
	if len(ridge) < 3 {
		return nil, mesh.Errorf(mesh.GeometryInconsistent, "hull: horizon walk failed to close")
	}
	return ridge, nil
}

// buildNewFaces fans new triangles from pStar to each ridge edge
// (spec.md §4.6 step 5), hooking each new face to the pre-existing
// neighbor across its ridge edge.
func (st *hullState) buildNewFaces(ridge []ridgeElem, pStarI int, pStar mesh.Vec3) []*face {
	var newFaces []*face
	for _, r := range ridge {
		v := [3]int{r.b, r.a, pStarI}
		nf := st.newFace(v)
		p0, p1, p2 := st.points[v[0]], st.points[v[1]], st.points[v[2]]
		n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
		nf.normal = n
		nf.d = n.Dot(p0)
		st.faces[nf] = true
		for i := 0; i < 3; i++ {
			st.edges[nf.edgeKey(i)] = nf
		}
		newFaces = append(newFaces, nf)
	}
	return newFaces
}

// assignAmong classifies point i against the newly created faces only
// (the rest of the hull cannot be closer, since the point was outside
// the now-deleted visible region).
func (st *hullState) assignAmong(i int, faces []*face) {
	p := st.points[i]
	for _, f := range faces {
		dd := dist(f.normal, f.d, p)
		if dd > faceTolerance(st, f) {
			st.addOutside(f, i, dd)
			return
		}
	}
}

func (st *hullState) toMesh() (*mesh.IndexedMesh, error) {
	b, err := mesh.NewTriangleBuilder()
	if err != nil {
		return nil, err
	}
	for f := range st.faces {
		a, b0, c := st.points[f.v[0]], st.points[f.v[1]], st.points[f.v[2]]
		if err := b.Add(a, b0, c); err != nil {
			return nil, err
		}
	}
	return b.Mesh(), nil
}
