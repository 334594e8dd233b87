package simplify

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// quadric is the 4x4 symmetric matrix Q = [a b c d]^T[a b c d] for a
// face's unit normal (a,b,c) and offset d = -n.p, stored as the 10
// upper-triangular entries in the order spec.md §4.8 calls out: {aa,
// ab, ac, ad, bb, bc, bd, cc, cd, dd}.
type quadric [10]float64

const (
	qAA = iota
	qAB
	qAC
	qAD
	qBB
	qBC
	qBD
	qCC
	qCD
	qDD
)

// planeQuadric builds the quadric for a single face plane with unit
// normal n and offset d (n.p = -d for p on the plane, matching
// spec.md's "d = -n.p" convention).
func planeQuadric(n mesh.Vec3, d float64) quadric {
	p := [4]float64{n.X, n.Y, n.Z, d}
	var q quadric
	q[qAA] = p[0] * p[0]
	q[qAB] = p[0] * p[1]
	q[qAC] = p[0] * p[2]
	q[qAD] = p[0] * p[3]
	q[qBB] = p[1] * p[1]
	q[qBC] = p[1] * p[2]
	q[qBD] = p[1] * p[3]
	q[qCC] = p[2] * p[2]
	q[qCD] = p[2] * p[3]
	q[qDD] = p[3] * p[3]
	return q
}

func (q quadric) add(o quadric) quadric {
	var r quadric
	for i := range q {
		r[i] = q[i] + o[i]
	}
	return r
}

// eval computes v^T Q v for the homogeneous point [p.X, p.Y, p.Z, 1].
func (q quadric) eval(p mesh.Vec3) float64 {
	x, y, z := p.X, p.Y, p.Z
	return q[qAA]*x*x + 2*q[qAB]*x*y + 2*q[qAC]*x*z + 2*q[qAD]*x +
		q[qBB]*y*y + 2*q[qBC]*y*z + 2*q[qBD]*y +
		q[qCC]*z*z + 2*q[qCD]*z +
		q[qDD]
}

// optimalTarget finds the v minimizing eval(v) by solving the 3x3
// linear system formed from Q's upper-left block (spec.md §4.8); falls
// back to the cheapest of the two endpoints and their midpoint if that
// system is singular.
func (q quadric) optimalTarget(a, b mesh.Vec3) mesh.Vec3 {
	A := mat.NewDense(3, 3, []float64{
		q[qAA], q[qAB], q[qAC],
		q[qAB], q[qBB], q[qBC],
		q[qAC], q[qBC], q[qCC],
	})
	rhs := mat.NewDense(3, 1, []float64{-q[qAD], -q[qBD], -q[qCD]})

	var x mat.Dense
	if err := x.Solve(A, rhs); err == nil {
		v := mesh.NewVec3(x.At(0, 0), x.At(1, 0), x.At(2, 0))
		if isFinite(v) {
			return v
		}
	}

	mid := a.Add(b).Scale(0.5)
	best, bestCost := a, q.eval(a)
	if c := q.eval(b); c < bestCost {
		best, bestCost = b, c
	}
	if c := q.eval(mid); c < bestCost {
		best, bestCost = mid, c
	}
	return best
}

func isFinite(v mesh.Vec3) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
