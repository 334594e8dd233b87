// Package decomp implements ConvexDecomp: splitting a closed triangle
// mesh into a list of approximately-convex parts by repeatedly
// PlaneCut-ing the part with the worst hull/volume error, per spec.md
// §4.10.
package decomp

import (
	"math"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/container/scalarmap"
	"github.com/maurerpe/libpolyhedra/container/uqueue"
	"github.com/maurerpe/libpolyhedra/halfedge"
	"github.com/maurerpe/libpolyhedra/hull"
	"github.com/maurerpe/libpolyhedra/massprops"
	"github.com/maurerpe/libpolyhedra/mesh"
	"github.com/maurerpe/libpolyhedra/planecut"
)

// numEdges and numAngles are the search-width constants of spec.md
// §4.10's candidate-cut step.
const (
	numEdges  = 16
	numAngles = 9
)

type part struct {
	mesh       *mesh.IndexedMesh
	volume     float64
	hullVolume float64
	err        float64
}

// Decomp splits im into a MeshList of approximately-convex parts,
// stopping once the aggregate hull/volume error drops to at most tau
// times the input's volume, or no admissible cut can be found for the
// worst remaining part.
func Decomp(im *mesh.IndexedMesh, tau float64) (*mesh.List, error) {
	if im.Kind() != mesh.Triangle || im.F() < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "decomp: need a triangle mesh with F>=3")
	}
	if tau <= 0 || tau > 1 {
		return nil, mesh.Errorf(mesh.InvalidInput, "decomp: tau must be in (0,1]")
	}

	inputProps, err := massprops.Compute(im)
	if err != nil {
		return nil, errors.Wrap(err, "decomp")
	}
	inputVolume := inputProps.Volume

	first, err := computePart(im)
	if err != nil {
		return nil, errors.Wrap(err, "decomp")
	}
	parts := []part{first}

	for {
		total := 0.0
		worstIdx := 0
		for i, p := range parts {
			total += p.err
			if p.err > parts[worstIdx].err {
				worstIdx = i
			}
		}
		if total <= tau*inputVolume {
			break
		}
		worst := parts[worstIdx]
		if worst.err <= 0 {
			break
		}

		cutParts, ok, err := bestCut(worst)
		if err != nil {
			return nil, errors.Wrap(err, "decomp")
		}
		if !ok {
			break
		}

		parts = append(parts[:worstIdx], parts[worstIdx+1:]...)
		parts = append(parts, cutParts...)
	}

	result := mesh.NewList()
	for _, p := range parts {
		result.Append(p.mesh)
	}
	return result, nil
}

// computePart measures a part's volume and convex-hull error. A part
// that cannot be hulled (too few distinct points, coplanar) is treated
// as already maximally convex rather than as a hard failure.
func computePart(m *mesh.IndexedMesh) (part, error) {
	mp, err := massprops.Compute(m)
	if err != nil {
		return part{}, err
	}
	h, err := hull.Build(m)
	if err != nil {
		return part{mesh: m, volume: mp.Volume, hullVolume: mp.Volume, err: 0}, nil
	}
	hp, err := massprops.Compute(h)
	if err != nil {
		return part{}, err
	}
	e := hp.Volume - mp.Volume
	if e < 0 {
		e = 0
	}
	return part{mesh: m, volume: mp.Volume, hullVolume: hp.Volume, err: e}, nil
}

// bestCut searches up to numEdges candidate edges (ranked by distance
// from the part's surface to its hull's surface along a dihedral-
// bisecting ray) and, for each, numAngles candidate cutting planes
// spanning the edge's dihedral angle. It returns the parts produced by
// the best (lowest weighted sum-of-squared-error) admissible cut.
func bestCut(p part) ([]part, bool, error) {
	hm, err := halfedge.Build(p.mesh)
	if err != nil {
		return nil, false, nil
	}
	hullMesh, err := hull.Build(p.mesh)
	if err != nil {
		return nil, false, nil
	}
	hullHM, err := halfedge.Build(hullMesh)
	if err != nil {
		return nil, false, nil
	}

	edges := bfsEdges(hm)

	sm := scalarmap.New[*halfedge.Edge]()
	for _, e := range edges {
		xv, zv, ang, ok := e.Dihedral()
		if !ok {
			continue
		}
		mid := e.V[0].Pos.Add(e.V[1].Pos).Scale(0.5)
		dir := rotateAroundAxis(zv, xv, ang/2)
		dist, err := hullHM.ConvexRayDist(mid, dir)
		if err != nil {
			continue
		}
		sm.Insert(dist, e)
	}

	var candidates []*halfedge.Edge
	if h, ok := sm.Highest(); ok {
		candidates = append(candidates, h.Value())
		cur := h
		for len(candidates) < numEdges {
			prev, ok := sm.Predecessor(cur)
			if !ok {
				break
			}
			candidates = append(candidates, prev.Value())
			cur = prev
		}
	}

	var best []part
	bestScore := math.Inf(1)
	mid1 := float64(numEdges-1) / 2
	for i, e := range candidates {
		xv, zv, ang, ok := e.Dihedral()
		if !ok {
			continue
		}
		mid := e.V[0].Pos.Add(e.V[1].Pos).Scale(0.5)
		weight := 1 + 1e-3*math.Abs(float64(i)-mid1)

		for k := 0; k < numAngles; k++ {
			theta := ang * float64(k) / float64(numAngles-1)
			normal := rotateAroundAxis(zv, xv, theta).Normalize()
			plane := planecut.Plane{N: normal, D: normal.Dot(mid)}

			cutList, err := planecut.Cut(p.mesh, plane)
			if err != nil {
				continue
			}
			pieces := cutList.Slice()
			if len(pieces) < 2 {
				continue
			}

			sse := 0.0
			pieceParts := make([]part, 0, len(pieces))
			failed := false
			for _, pm := range pieces {
				ps, err := computePart(pm)
				if err != nil {
					failed = true
					break
				}
				pieceParts = append(pieceParts, ps)
				sse += ps.err * ps.err
			}
			if failed {
				continue
			}

			score := sse * weight
			if score < bestScore {
				bestScore = score
				best = pieceParts
			}
		}
	}

	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

// bfsEdges walks hm's faces breadth-first from an arbitrary start face,
// returning every edge exactly once in visitation order.
func bfsEdges(hm *halfedge.Mesh) []*halfedge.Edge {
	if len(hm.Faces) == 0 {
		return nil
	}
	q := uqueue.New[*halfedge.Face]()
	q.Push(hm.Faces[0])

	edgeSeen := map[*halfedge.Edge]bool{}
	var edges []*halfedge.Edge
	for {
		f, ok := q.Pop()
		if !ok {
			break
		}
		for _, e := range f.E {
			if !edgeSeen[e] {
				edgeSeen[e] = true
				edges = append(edges, e)
			}
			for _, nb := range e.F {
				if nb != nil {
					q.Push(nb)
				}
			}
		}
	}
	return edges
}

// rotateAroundAxis rotates v by theta radians around the unit axis,
// via Rodrigues' formula.
func rotateAroundAxis(v, axis mesh.Vec3, theta float64) mesh.Vec3 {
	k := axis.Normalize()
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	return v.Scale(cosT).
		Add(k.Cross(v).Scale(sinT)).
		Add(k.Scale(k.Dot(v) * (1 - cosT)))
}
