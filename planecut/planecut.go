// Package planecut implements PlaneCut: slicing a closed triangle mesh
// by a plane into zero or more closed polyhedra on each side, per
// spec.md §4.7.
package planecut

import (
	"math"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// Plane is n.p = d, with n expected (but not required) to already be a
// unit vector; Cut normalizes it.
type Plane struct {
	N mesh.Vec3
	D float64
}

// Cut slices im by plane and returns the closed polyhedra on each side
// as a MeshList (spec.md §4.7).
func Cut(im *mesh.IndexedMesh, plane Plane) (*mesh.List, error) {
	if im.Kind() != mesh.Triangle || im.F() < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "planecut: need a triangle mesh with F>=3")
	}

	n := plane.N.Normalize()
	d := plane.D / plane.N.Norm()
	if n.Norm() == 0 {
		return nil, mesh.Errorf(mesh.InvalidInput, "planecut: zero plane normal")
	}

	u, v := basis(n)

	sides := [2]*sideAccum{newSideAccum(), newSideAccum()}
	// segs are the intersection-line segments, shared by both sides'
	// caps (the cut boundary is the same curve for both halves).
	var segs []segment

	pos := make([]mesh.Vec3, im.NumVerts())
	s := make([]float64, im.NumVerts())
	for i := range pos {
		pos[i] = mesh.VertexVec3(im.Vertex(uint32(i)))
		raw := n.Dot(pos[i]) - d
		tol := 1e-5 * math.Max(pos[i].Norm(), math.Abs(d))
		if math.Abs(raw) < tol {
			raw = 0
		}
		s[i] = raw
	}

	for p := 0; p < im.NumPrimitives(); p++ {
		prim := im.Primitive(p)
		idx := [3]uint32{prim[0], prim[1], prim[2]}
		sv := [3]float64{s[idx[0]], s[idx[1]], s[idx[2]]}
		pv := [3]mesh.Vec3{pos[idx[0]], pos[idx[1]], pos[idx[2]]}

		if err := classifyTriangle(sides, &segs, u, v, idx, sv, pv); err != nil {
			return nil, errors.Wrap(err, "planecut")
		}
	}

	result := mesh.NewList()
	for sideIdx, sd := range sides {
		// side 0 is the s>=0 material; its cap outward normal is -n.
		flip := sideIdx == 0
		if err := sd.addCap(segs, u, v, n, flip); err != nil {
			return nil, errors.Wrap(err, "planecut")
		}
		parts, err := sd.connectedComponents()
		if err != nil {
			return nil, errors.Wrap(err, "planecut")
		}
		for _, pm := range parts {
			result.Append(pm)
		}
	}
	return result, nil
}

// basis builds a deterministic orthonormal in-plane basis (u, v) with
// u cross v = n, per spec.md §4.7 ("deterministic tie-breaks on axis
// choice").
func basis(n mesh.Vec3) (u, v mesh.Vec3) {
	seed := mesh.NewVec3(1, 0, 0)
	if math.Abs(n.X) <= math.Abs(n.Y) && math.Abs(n.X) <= math.Abs(n.Z) {
		seed = mesh.NewVec3(1, 0, 0)
	} else if math.Abs(n.Y) <= math.Abs(n.Z) {
		seed = mesh.NewVec3(0, 1, 0)
	} else {
		seed = mesh.NewVec3(0, 0, 1)
	}
	u = seed.Sub(n.Scale(n.Dot(seed))).Normalize()
	v = n.Cross(u)
	return
}

// segment is one 2D edge of the cut boundary, shared between the two
// sides' caps. 3D positions are carried alongside so the cap
// triangulation's output (which only ever reuses input 2D points) can
// be lifted back to 3D by coordinate lookup.
type segment struct {
	a, b   mesh.Vec2
	pa, pb mesh.Vec3
}

func to2D(p mesh.Vec3, u, v mesh.Vec3) mesh.Vec2 {
	return mesh.Vec2{X: u.Dot(p), Y: v.Dot(p)}
}

// classifyTriangle implements the per-triangle action table of spec.md
// §4.7.
func classifyTriangle(sides [2]*sideAccum, segs *[]segment, u, v mesh.Vec3, idx [3]uint32, sv [3]float64, pv [3]mesh.Vec3) error {
	nZero, nPos := 0, 0
	for _, x := range sv {
		if x == 0 {
			nZero++
		} else if x > 0 {
			nPos++
		}
	}
	nNeg := 3 - nZero - nPos

	sideOf := func(x float64) int {
		if x >= 0 {
			return 0
		}
		return 1
	}

	switch {
	case nZero == 3:
		// Degenerate: triangle lies entirely in the plane. Zero
		// volume contribution either way; skip it.
		return nil

	case nZero == 0 && (nPos == 3 || nNeg == 3):
		// 0 intersections, whole triangle on one side.
		side := sideOf(sv[0])
		sides[side].addTriangle(pv[0], pv[1], pv[2])
		return nil

	case nZero == 1 && nPos != 1 && nNeg != 1:
		// one on-plane vertex, the other two share a sign: 0
		// intersections, keep triangle whole on that side.
		var onI int
		for i, x := range sv {
			if x == 0 {
				onI = i
			}
		}
		other := sv[(onI+1)%3]
		side := sideOf(other)
		sides[side].addTriangle(pv[0], pv[1], pv[2])
		return nil

	case nZero == 2:
		// 0 intersections; triangle shares an edge with the plane.
		// Side is determined by the lone non-on-plane vertex;
		// record the boundary edge with toggle semantics.
		var offI int
		for i, x := range sv {
			if x != 0 {
				offI = i
			}
		}
		side := sideOf(sv[offI])
		i0, i1 := (offI+1)%3, (offI+2)%3
		p0, p1 := to2D(pv[i0], u, v), to2D(pv[i1], u, v)
		sides[side].toggleOnPlaneEdge(p0, pv[i0], p1, pv[i1])
		sides[side].addTriangle(pv[0], pv[1], pv[2])
		return nil

	case nZero == 1 && nPos == 1 && nNeg == 1:
		// one on-plane vertex, other two straddle: 1 intersection.
		var onI int
		for i, x := range sv {
			if x == 0 {
				onI = i
			}
		}
		i1, i2 := (onI+1)%3, (onI+2)%3
		t := sv[i1] / (sv[i1] - sv[i2])
		ip := pv[i1].Add(pv[i2].Sub(pv[i1]).Scale(t))
		ip2D := to2D(ip, u, v)
		onP2D := to2D(pv[onI], u, v)

		side1 := sideOf(sv[i1])
		side2 := sideOf(sv[i2])
		sides[side1].addTriangle(pv[onI], pv[i1], ip)
		sides[side2].addTriangle(pv[onI], ip, pv[i2])
		*segs = append(*segs, segment{a: onP2D, b: ip2D, pa: pv[onI], pb: ip})
		return nil

	case nZero == 0 && (nPos == 1 || nNeg == 1):
		// 2 intersections: classic cut. The lone vertex is the
		// "singleton"; the other two are the "pair".
		var loneI int
		for i := range sv {
			if sideOf(sv[i]) != sideOf(sv[(i+1)%3]) && sideOf(sv[i]) != sideOf(sv[(i+2)%3]) {
				loneI = i
			}
		}
		pairA, pairB := (loneI+1)%3, (loneI+2)%3

		tA := sv[loneI] / (sv[loneI] - sv[pairA])
		ipA := pv[loneI].Add(pv[pairA].Sub(pv[loneI]).Scale(tA))
		tB := sv[loneI] / (sv[loneI] - sv[pairB])
		ipB := pv[loneI].Add(pv[pairB].Sub(pv[loneI]).Scale(tB))

		loneSide := sideOf(sv[loneI])
		pairSide := sideOf(sv[pairA])

		sides[loneSide].addTriangle(pv[loneI], ipA, ipB)

		// quad (pairA, pairB, ipB, ipA) split along the shorter
		// diagonal.
		dAB := pv[pairA].Dist(ipB)
		dBA := ipA.Dist(pv[pairB])
		if dAB <= dBA {
			sides[pairSide].addTriangle(pv[pairA], pv[pairB], ipB)
			sides[pairSide].addTriangle(pv[pairA], ipB, ipA)
		} else {
			sides[pairSide].addTriangle(pv[pairA], pv[pairB], ipA)
			sides[pairSide].addTriangle(pv[pairB], ipB, ipA)
		}

		ipA2D, ipB2D := to2D(ipA, u, v), to2D(ipB, u, v)
		*segs = append(*segs, segment{a: ipA2D, b: ipB2D, pa: ipA, pb: ipB})
		return nil

	default:
		return mesh.Errorf(mesh.GeometryInconsistent, "planecut: impossible triangle sign pattern")
	}
}
