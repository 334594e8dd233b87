// Package triangulate2d triangulates a planar region described by an
// unordered set of line segments (an IndexedMesh with F=2, primitive
// kind Line), which may enclose holes, per spec.md §4.5.
//
// The input segments are first organized into simple closed loops
// (walked in vertex-index order; every vertex is also inserted into a
// container/scalarmap keyed by y, which the walk does not read),
// classified outer-vs-hole by how many other loops enclose them, and
// holes are bridged into their enclosing outer loop through the outer
// vertex nearest to the hole's rightmost vertex (the bridge is not
// checked for visibility) before ear triangulation emits the output
// triangles. Each
// candidate ear is accepted only if it passes the scaled-area validity
// test of spec.md §4.5 ("Triangle validity"), so degenerate slivers are
// skipped and their apex retried later, matching the spec's stack-based
// "skip and push back" rule.
package triangulate2d

import (
	"math"
	"slices"
	"sort"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/container/scalarmap"
	"github.com/maurerpe/libpolyhedra/mesh"
)

// vertex is one point of the input line-segment graph.
type vertex struct {
	p    mesh.Vec2
	nbrs []int // adjacent vertex indices, via non-degenerate surviving edges
}

// Triangulate triangulates the planar line set in in and returns a
// triangle-kind IndexedMesh with F=2 (spec.md §4.5 output).
func Triangulate(in *mesh.IndexedMesh) (*mesh.IndexedMesh, error) {
	if in.F() != 2 || in.Kind() != mesh.Line {
		return nil, mesh.Errorf(mesh.InvalidInput, "triangulate2d: input must be F=2 line mesh")
	}

	verts, err := buildGraph(in)
	if err != nil {
		return nil, errors.Wrap(err, "triangulate2d")
	}

	loops, err := extractLoops(verts)
	if err != nil {
		return nil, errors.Wrap(err, "triangulate2d")
	}

	outers, holesByOuter, err := classifyLoops(loops)
	if err != nil {
		return nil, errors.Wrap(err, "triangulate2d")
	}

	out, err := mesh.New(2, mesh.Triangle)
	if err != nil {
		return nil, err
	}
	for oi, outer := range outers {
		poly := bridgeHoles(outer, holesByOuter[oi])
		tris, err := earClip(poly)
		if err != nil {
			return nil, errors.Wrap(err, "triangulate2d")
		}
		for _, t := range tris {
			for _, p := range t {
				if _, err := out.Add([]float32{float32(p.X), float32(p.Y)}); err != nil {
					return nil, err
				}
			}
		}
	}
	out.Finalize()
	return out, nil
}

// buildGraph builds the vertex/adjacency graph from the input segments,
// dropping degenerate edges (both endpoints identical) and canceling
// duplicated segments, per spec.md §4.5.
func buildGraph(in *mesh.IndexedMesh) ([]*vertex, error) {
	n := in.NumVerts()
	verts := make([]*vertex, n)
	for i := range verts {
		v := in.Vertex(uint32(i))
		verts[i] = &vertex{p: mesh.Vec2{X: float64(v[0]), Y: float64(v[1])}}
	}

	// Insert every vertex into a scalarmap keyed by y, per spec.md's
	// sweep-setup step; loop extraction below walks vertices in index
	// order and does not read this map.
	sm := scalarmap.New[int]()
	for i := range verts {
		sm.Insert(verts[i].p.Y, i)
	}

	edgeCount := map[[2]int]int{}
	for p := 0; p < in.NumPrimitives(); p++ {
		prim := in.Primitive(p)
		a, b := int(prim[0]), int(prim[1])
		if a == b {
			continue // degenerate edge
		}
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		edgeCount[key]++
	}
	for key, c := range edgeCount {
		if c%2 == 0 {
			continue // duplicated segment cancels itself
		}
		a, b := key[0], key[1]
		verts[a].nbrs = append(verts[a].nbrs, b)
		verts[b].nbrs = append(verts[b].nbrs, a)
	}
	for i, v := range verts {
		if len(v.nbrs) != 0 && len(v.nbrs)%2 != 0 {
			return nil, mesh.Errorf(mesh.InvalidInput, "triangulate2d: vertex %d has odd edge count", i)
		}
	}
	return verts, nil
}

// extractLoops walks the surviving edges into simple closed polygon
// loops. Vertices of degree 0 are ignored (fully canceled).
func extractLoops(verts []*vertex) ([][]mesh.Vec2, error) {
	used := map[[2]int]bool{}
	var loops [][]mesh.Vec2

	markUsed := func(a, b int) {
		used[[2]int{a, b}] = true
		used[[2]int{b, a}] = true
	}

	for start := range verts {
		for _, next := range verts[start].nbrs {
			if used[[2]int{start, next}] {
				continue
			}
			var loop []mesh.Vec2
			prev, cur := start, next
			loop = append(loop, verts[start].p)
			markUsed(start, next)
			for cur != start {
				loop = append(loop, verts[cur].p)
				advanced := false
				for _, n := range verts[cur].nbrs {
					if n == prev && !edgeFullyUsed(verts, cur, prev, used) {
						continue
					}
					if !used[[2]int{cur, n}] {
						markUsed(cur, n)
						prev, cur = cur, n
						advanced = true
						break
					}
				}
				if !advanced {
					return nil, mesh.Errorf(mesh.InvalidInput, "triangulate2d: open loop (degenerate input)")
				}
			}
			loops = append(loops, loop)
		}
	}
	return loops, nil
}

// edgeFullyUsed exists only to keep extractLoops from immediately
// backtracking along a degree-2 vertex's only other edge when that edge
// is the one we just arrived on; for degree>2 junctions (touching
// loops), any unused edge is fair game.
func edgeFullyUsed(verts []*vertex, cur, prev int, used map[[2]int]bool) bool {
	return len(verts[cur].nbrs) <= 2
}

// classifyLoops splits loops into outer and hole groups by nesting depth
// (a loop enclosed by an odd number of other loops is a hole), orients
// outers CCW and holes CW, then assigns each hole to the smallest outer
// loop that contains it. The walk direction of an extracted loop is
// arbitrary, since the input segments are undirected.
func classifyLoops(loops [][]mesh.Vec2) (outers [][]mesh.Vec2, holesByOuter [][][]mesh.Vec2, err error) {
	var holes [][]mesh.Vec2
	for i, l := range loops {
		depth := 0
		for j, o := range loops {
			if j != i && pointInPolygon(l[0], o) {
				depth++
			}
		}
		if (depth%2 == 0) != (signedArea(l) >= 0) {
			slices.Reverse(l)
		}
		if depth%2 == 0 {
			outers = append(outers, l)
		} else {
			holes = append(holes, l)
		}
	}
	holesByOuter = make([][][]mesh.Vec2, len(outers))
	for _, h := range holes {
		best := -1
		bestArea := math.Inf(1)
		for oi, o := range outers {
			if pointInPolygon(h[0], o) {
				a := math.Abs(signedArea(o))
				if a < bestArea {
					bestArea = a
					best = oi
				}
			}
		}
		if best == -1 {
			return nil, nil, mesh.Errorf(mesh.InvalidInput, "triangulate2d: hole loop has no enclosing outer loop")
		}
		holesByOuter[best] = append(holesByOuter[best], h)
	}
	return outers, holesByOuter, nil
}

func signedArea(loop []mesh.Vec2) float64 {
	a := 0.0
	for i := range loop {
		j := (i + 1) % len(loop)
		a += loop[i].Cross(loop[j])
	}
	return a / 2
}

func pointInPolygon(p mesh.Vec2, poly []mesh.Vec2) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xInt := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xInt {
				inside = !inside
			}
		}
	}
	return inside
}

// bridgeHoles stitches each hole into the outer loop by connecting the
// hole's rightmost vertex to the nearest vertex of the polygon built so
// far, producing one (possibly self-touching) polygon. Whether that
// bridge crosses another edge is not checked.
func bridgeHoles(outer []mesh.Vec2, holes [][]mesh.Vec2) []mesh.Vec2 {
	poly := append([]mesh.Vec2(nil), outer...)
	// Bridge holes widest-x-first so nested bridges don't cross.
	sort.Slice(holes, func(i, j int) bool {
		return rightmostX(holes[i]) > rightmostX(holes[j])
	})
	for _, h := range holes {
		hi := rightmostIndex(h)
		oi := nearestVertex(poly, h[hi])
		poly = stitch(poly, oi, h, hi)
	}
	return poly
}

func rightmostIndex(loop []mesh.Vec2) int {
	best := 0
	for i, p := range loop {
		if p.X > loop[best].X {
			best = i
		}
	}
	return best
}

func rightmostX(loop []mesh.Vec2) float64 {
	return loop[rightmostIndex(loop)].X
}

func nearestVertex(poly []mesh.Vec2, p mesh.Vec2) int {
	best := 0
	bestDist := math.Inf(1)
	for i, q := range poly {
		d := q.Sub(p).NormSquared()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// stitch splices hole (rotated to start at hi) into poly at index oi via
// a double bridge edge, the standard hole-elimination technique.
func stitch(poly []mesh.Vec2, oi int, hole []mesh.Vec2, hi int) []mesh.Vec2 {
	rotated := append(append([]mesh.Vec2(nil), hole[hi:]...), hole[:hi]...)
	var res []mesh.Vec2
	res = append(res, poly[:oi+1]...)
	res = append(res, rotated...)
	res = append(res, rotated[0])
	res = append(res, poly[oi:]...)
	return res
}

// earClip triangulates a simple polygon (possibly with repeated
// bridge vertices) by repeatedly clipping convex ears, accepting a
// candidate ear only if it clears spec.md's scaled-area validity
// threshold.
func earClip(poly []mesh.Vec2) ([][3]mesh.Vec2, error) {
	n := len(poly)
	if n < 3 {
		return nil, mesh.Errorf(mesh.GeometryInconsistent, "triangulate2d: degenerate polygon (open cusp)")
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if signedArea(poly) < 0 {
		reverse(idx)
	}

	var tris [][3]mesh.Vec2
	guard := 0
	for len(idx) > 3 {
		guard++
		if guard > n*n+16 {
			return nil, mesh.Errorf(mesh.GeometryInconsistent, "triangulate2d: degenerate input, stacks exhausted with an open cusp")
		}
		clipped := false
		for i := 0; i < len(idx); i++ {
			a := poly[idx[(i-1+len(idx))%len(idx)]]
			b := poly[idx[i]]
			c := poly[idx[(i+1)%len(idx)]]
			if !isEar(poly, idx, i, a, b, c) {
				continue
			}
			tris = append(tris, [3]mesh.Vec2{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil, mesh.Errorf(mesh.GeometryInconsistent, "triangulate2d: degenerate input, stacks exhausted with an open cusp")
		}
	}
	if len(idx) == 3 {
		tris = append(tris, [3]mesh.Vec2{poly[idx[0]], poly[idx[1]], poly[idx[2]]})
	}
	return tris, nil
}

func reverse(idx []int) {
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
}

func isEar(poly []mesh.Vec2, idx []int, i int, a, b, c mesh.Vec2) bool {
	det := b.Sub(a).Cross(c.Sub(a))
	d1 := a.Sub(b).NormSquared()
	d2 := c.Sub(b).NormSquared()
	dMax1, dMax2 := d1, d2
	if dMax2 > dMax1 {
		dMax1, dMax2 = dMax2, dMax1
	}
	if det <= 1e-6*math.Sqrt(dMax1)*math.Sqrt(dMax2) {
		return false
	}
	for j := 0; j < len(idx); j++ {
		if j == i || idx[j] == idx[(i-1+len(idx))%len(idx)] || idx[j] == idx[(i+1)%len(idx)] {
			continue
		}
		p := poly[idx[j]]
		if p == a || p == b || p == c {
			continue // a repeated bridge vertex coinciding with a corner
		}
		if pointInTriangle(p, a, b, c) {
			return false
		}
	}
	return true
}

func pointInTriangle(p, a, b, c mesh.Vec2) bool {
	d1 := b.Sub(a).Cross(p.Sub(a))
	d2 := c.Sub(b).Cross(p.Sub(b))
	d3 := a.Sub(c).Cross(p.Sub(c))
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
