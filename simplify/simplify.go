// Package simplify implements quadric-error-metric pair contraction
// (spec.md §4.8): the classic Garland-Heckbert algorithm, optionally
// enriched with proximity pairs found via a VertexBVH.
package simplify

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/splaytree"

	"github.com/maurerpe/libpolyhedra/bvh"
	"github.com/maurerpe/libpolyhedra/mesh"
)

type vertexRec struct {
	id    int
	pos   mesh.Vec3
	q     quadric
	alive bool
	faces map[*faceRec]bool
	pairs map[int]*pairRec
}

type faceRec struct {
	v     [3]int
	alive bool
}

// pairRec is both a candidate contraction and the splaytree.Tree node
// ranking it by cost, matching the teacher's meshDiscsQueueNode
// pattern in model3d/parameterization.go (see hull.face.Compare).
type pairRec struct {
	a, b    int // canonical: a < b
	target  mesh.Vec3
	cost    float64
	uid     int
	inTree  bool
}

func (p *pairRec) Compare(other *pairRec) int {
	if p.cost < other.cost {
		return -1
	} else if p.cost == other.cost {
		if p.uid == other.uid {
			return 0
		} else if p.uid < other.uid {
			return -1
		}
		return 1
	}
	return 1
}

type state struct {
	verts       []*vertexRec
	faces       []*faceRec
	pairSet     map[[2]int]*pairRec
	ranked      *splaytree.Tree[*pairRec]
	rankedCount int
	nextUID     int
	aliveFaces  int
}

// Simplify reduces im to at most target faces using quadric-error pair
// contraction, enriched with proximity pairs closer than aggThreshold
// when aggThreshold > 0 (spec.md §4.8).
func Simplify(im *mesh.IndexedMesh, target int, aggThreshold float64) (*mesh.IndexedMesh, error) {
	if im.Kind() != mesh.Triangle || im.F() < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "simplify: need a triangle mesh with F>=3")
	}
	if target < 0 {
		return nil, mesh.Errorf(mesh.InvalidInput, "simplify: target face count must be >= 0")
	}

	st, err := buildState(im, aggThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "simplify")
	}

	st.run(target)

	return st.toMesh()
}

func buildState(im *mesh.IndexedMesh, aggThreshold float64) (*state, error) {
	st := &state{pairSet: map[[2]int]*pairRec{}, ranked: &splaytree.Tree[*pairRec]{}}

	st.verts = make([]*vertexRec, im.NumVerts())
	for i := range st.verts {
		st.verts[i] = &vertexRec{
			id:    i,
			pos:   mesh.VertexVec3(im.Vertex(uint32(i))),
			alive: true,
			faces: map[*faceRec]bool{},
			pairs: map[int]*pairRec{},
		}
	}

	for p := 0; p < im.NumPrimitives(); p++ {
		prim := im.Primitive(p)
		f := &faceRec{v: [3]int{int(prim[0]), int(prim[1]), int(prim[2])}, alive: true}
		st.faces = append(st.faces, f)
		st.aliveFaces++
		for _, vi := range f.v {
			st.verts[vi].faces[f] = true
		}
		n, d := facePlane(st.verts[f.v[0]].pos, st.verts[f.v[1]].pos, st.verts[f.v[2]].pos)
		k := planeQuadric(n, d)
		for _, vi := range f.v {
			st.verts[vi].q = st.verts[vi].q.add(k)
		}
		for i := 0; i < 3; i++ {
			st.addPair(f.v[i], f.v[(i+1)%3])
		}
	}

	if aggThreshold > 0 {
		pts := make([]mesh.Vec3, len(st.verts))
		for i, v := range st.verts {
			pts[i] = v.pos
		}
		tree := bvh.Build(pts, aggThreshold)
		tree.Pairs(aggThreshold, func(a, b int) {
			st.addPair(a, b)
		})
	}

	for _, p := range st.pairSet {
		st.recost(p)
		st.insertTree(p)
	}

	return st, nil
}

func facePlane(a, b, c mesh.Vec3) (n mesh.Vec3, d float64) {
	n = b.Sub(a).Cross(c.Sub(a)).Normalize()
	return n, -n.Dot(a)
}

func canon(i, j int) (int, int) {
	if i < j {
		return i, j
	}
	return j, i
}

// addPair creates a pair between i and j if one doesn't already exist.
func (st *state) addPair(i, j int) *pairRec {
	if i == j {
		return nil
	}
	lo, hi := canon(i, j)
	if p, ok := st.pairSet[[2]int{lo, hi}]; ok {
		return p
	}
	p := &pairRec{a: lo, b: hi, uid: st.nextUID}
	st.nextUID++
	st.pairSet[[2]int{lo, hi}] = p
	st.verts[lo].pairs[hi] = p
	st.verts[hi].pairs[lo] = p
	return p
}

func (st *state) recost(p *pairRec) {
	va, vb := st.verts[p.a], st.verts[p.b]
	q := va.q.add(vb.q)
	p.target = q.optimalTarget(va.pos, vb.pos)
	p.cost = q.eval(p.target)
}

func (st *state) insertTree(p *pairRec) {
	if p.inTree {
		return
	}
	st.ranked.Insert(p)
	st.rankedCount++
	p.inTree = true
}

func (st *state) removeTree(p *pairRec) {
	if p.inTree {
		st.ranked.Delete(p)
		st.rankedCount--
		p.inTree = false
	}
}

func (st *state) rekey(p *pairRec) {
	st.removeTree(p)
	st.insertTree(p)
}

// run drives the main contraction loop (spec.md §4.8).
func (st *state) run(target int) {
	for st.aliveFaces > target && st.rankedCount > 0 {
		p := st.ranked.Min()
		if math.IsInf(p.cost, 1) {
			break
		}

		if !st.admissible(p) {
			st.removeTree(p)
			p.cost = math.Inf(1)
			st.insertTree(p)
			continue
		}

		st.contract(p)
	}
}

// admissible reports whether contracting p is allowed: no surviving
// incident face (one that does not contain both endpoints) may have
// its normal inverted by substituting its endpoint with p.target.
func (st *state) admissible(p *pairRec) bool {
	a, b := st.verts[p.a], st.verts[p.b]
	check := func(v *vertexRec, other *vertexRec) bool {
		for f := range v.faces {
			if b.faces[f] && a.faces[f] {
				continue // deleted on contraction, not "surviving"
			}
			oldN, _ := facePlane(st.verts[f.v[0]].pos, st.verts[f.v[1]].pos, st.verts[f.v[2]].pos)
			newPos := [3]mesh.Vec3{st.verts[f.v[0]].pos, st.verts[f.v[1]].pos, st.verts[f.v[2]].pos}
			for i, vi := range f.v {
				if vi == v.id {
					newPos[i] = p.target
				}
			}
			newN := newPos[1].Sub(newPos[0]).Cross(newPos[2].Sub(newPos[0]))
			if newN.Norm() == 0 {
				return false
			}
			if oldN.Dot(newN.Normalize()) <= 0 {
				return false
			}
		}
		return true
	}
	return check(a, b) && check(b, a)
}

// contract performs the pair contraction described in spec.md §4.8
// step 3: move a to v̄, merge quadrics, retarget b's pairs and faces
// onto a, delete faces and the pair, then delete b.
func (st *state) contract(p *pairRec) {
	a, b := st.verts[p.a], st.verts[p.b]
	vbar := p.target

	both := map[*faceRec]bool{}
	for f := range a.faces {
		if b.faces[f] {
			both[f] = true
		}
	}

	a.pos = vbar
	a.q = a.q.add(b.q)

	for f := range both {
		f.alive = false
		st.aliveFaces--
		delete(a.faces, f)
		delete(b.faces, f)
		for _, vi := range f.v {
			delete(st.verts[vi].faces, f)
		}
	}

	for f := range b.faces {
		for i, vi := range f.v {
			if vi == b.id {
				f.v[i] = a.id
			}
		}
		canonicalizeFace(f)
		a.faces[f] = true
	}
	b.faces = map[*faceRec]bool{}

	for other := range b.pairs {
		if other == a.id {
			continue
		}
		old := b.pairs[other]
		st.removeTree(old)
		delete(b.pairs, other)
		delete(st.verts[other].pairs, b.id)
		delete(st.pairSet, [2]int{essentials.MinInt(old.a, old.b), essentials.MaxInt(old.a, old.b)})

		if _, ok := a.pairs[other]; ok {
			continue // already have a pair to this vertex; drop the duplicate
		}
		lo, hi := canon(a.id, other)
		np := &pairRec{a: lo, b: hi, uid: st.nextUID}
		st.nextUID++
		st.pairSet[[2]int{lo, hi}] = np
		a.pairs[other] = np
		st.verts[other].pairs[a.id] = np
	}

	for _, pr := range a.pairs {
		st.recost(pr)
		st.rekey(pr)
	}

	ab := [2]int{p.a, p.b}
	delete(st.pairSet, ab)
	delete(a.pairs, b.id)
	st.removeTree(p)

	b.alive = false
}

func canonicalizeFace(f *faceRec) {
	minI := 0
	for i := 1; i < 3; i++ {
		if f.v[i] < f.v[minI] {
			minI = i
		}
	}
	f.v = [3]int{f.v[minI], f.v[(minI+1)%3], f.v[(minI+2)%3]}
}

func (st *state) toMesh() (*mesh.IndexedMesh, error) {
	b, err := mesh.NewTriangleBuilder()
	if err != nil {
		return nil, err
	}
	for _, f := range st.faces {
		if !f.alive {
			continue
		}
		a, b2, c := st.verts[f.v[0]].pos, st.verts[f.v[1]].pos, st.verts[f.v[2]].pos
		if err := b.Add(a, b2, c); err != nil {
			return nil, err
		}
	}
	return b.Mesh(), nil
}
