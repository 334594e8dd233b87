// Package massprops computes closed-form mass properties of closed
// triangle meshes via Mirtich's polyhedral integration method (spec.md
// §4.9), assuming uniform unit density.
package massprops

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// Result holds the computed volume, centroid, and inertia tensor about
// the centroid.
type Result struct {
	Volume   float64
	Centroid mesh.Vec3
	Inertia  *mat.Dense // 3x3, symmetric
}

// Compute returns the mass properties of im, a closed triangle mesh.
func Compute(im *mesh.IndexedMesh) (Result, error) {
	if im.Kind() != mesh.Triangle || im.F() < 3 {
		return Result{}, mesh.Errorf(mesh.InvalidInput, "massprops: need a triangle mesh with F>=3")
	}
	if im.NumPrimitives() == 0 {
		return Result{}, mesh.Errorf(mesh.InvalidInput, "massprops: mesh has no faces")
	}

	pos := make([]mesh.Vec3, im.NumVerts())
	var mean mesh.Vec3
	for i := range pos {
		pos[i] = mesh.VertexVec3(im.Vertex(uint32(i)))
		mean = mean.Add(pos[i])
	}
	mean = mean.Scale(1 / float64(len(pos)))

	shifted := make([]mesh.Vec3, len(pos))
	for i, p := range pos {
		shifted[i] = p.Sub(mean)
	}

	var t0 float64
	var t1, t2, tp [3]float64

	for f := 0; f < im.NumPrimitives(); f++ {
		prim := im.Primitive(f)
		v := [3]mesh.Vec3{shifted[prim[0]], shifted[prim[1]], shifted[prim[2]]}

		n := v[1].Sub(v[0]).Cross(v[2].Sub(v[0]))
		norm := n.Norm()
		if norm == 0 {
			continue // degenerate face contributes nothing
		}
		n = n.Scale(1 / norm)
		w := -n.Dot(v[0])

		c := dominantAxis(n)
		a := (c + 1) % 3
		b := (a + 1) % 3

		fi := faceIntegrals(v, comp(n, a), comp(n, b), comp(n, c), w, a, b)

		t0 += comp(n, 0) * pick(fi, a, b, c, 0)
		t1[a] += comp(n, a) * fi.faa
		t1[b] += comp(n, b) * fi.fbb
		t1[c] += comp(n, c) * fi.fcc
		t2[a] += comp(n, a) * fi.faaa
		t2[b] += comp(n, b) * fi.fbbb
		t2[c] += comp(n, c) * fi.fccc
		tp[a] += comp(n, a) * fi.faab
		tp[b] += comp(n, b) * fi.fbbc
		tp[c] += comp(n, c) * fi.fcca
	}

	t1[0] /= 2
	t1[1] /= 2
	t1[2] /= 2
	t2[0] /= 3
	t2[1] /= 3
	t2[2] /= 3
	tp[0] /= 2
	tp[1] /= 2
	tp[2] /= 2

	if t0 == 0 {
		return Result{}, mesh.Errorf(mesh.GeometryInconsistent, "massprops: zero volume")
	}

	r := mesh.NewVec3(t1[0]/t0, t1[1]/t0, t1[2]/t0)

	j := mat.NewDense(3, 3, nil)
	j.Set(0, 0, t2[1]+t2[2])
	j.Set(1, 1, t2[2]+t2[0])
	j.Set(2, 2, t2[0]+t2[1])
	j.Set(0, 1, -tp[0])
	j.Set(1, 0, -tp[0])
	j.Set(1, 2, -tp[1])
	j.Set(2, 1, -tp[1])
	j.Set(2, 0, -tp[2])
	j.Set(0, 2, -tp[2])

	// Parallel-axis shift from the shifted-frame origin to its own
	// centroid r; this is the true inertia about the mesh's centroid
	// regardless of the earlier translate-by-mean step, since rigidly
	// translating a body leaves its about-centroid inertia unchanged.
	j.Set(0, 0, j.At(0, 0)-t0*(r.Y*r.Y+r.Z*r.Z))
	j.Set(1, 1, j.At(1, 1)-t0*(r.Z*r.Z+r.X*r.X))
	j.Set(2, 2, j.At(2, 2)-t0*(r.X*r.X+r.Y*r.Y))
	j.Set(0, 1, j.At(0, 1)+t0*r.X*r.Y)
	j.Set(1, 0, j.At(1, 0)+t0*r.X*r.Y)
	j.Set(1, 2, j.At(1, 2)+t0*r.Y*r.Z)
	j.Set(2, 1, j.At(2, 1)+t0*r.Y*r.Z)
	j.Set(2, 0, j.At(2, 0)+t0*r.Z*r.X)
	j.Set(0, 2, j.At(0, 2)+t0*r.Z*r.X)

	return Result{
		Volume:   t0,
		Centroid: r.Add(mean),
		Inertia:  j,
	}, nil
}

func comp(v mesh.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func dominantAxis(n mesh.Vec3) int {
	nx, ny, nz := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	if nx > ny && nx > nz {
		return 0
	}
	if ny > nz {
		return 1
	}
	return 2
}

// faceIntSet holds the 12 face integrals F* needed by the T0/T1/T2/TP
// accumulation (spec.md §4.9), independent of which axis plays A, B, C.
type faceIntSet struct {
	fa, fb, fc             float64
	faa, fbb, fcc          float64
	faaa, fbbb, fccc       float64
	faab, fbbc, fcca       float64
}

func pick(fi faceIntSet, a, b, c, want int) float64 {
	switch want {
	case a:
		return fi.fa
	case b:
		return fi.fb
	default:
		return fi.fc
	}
}

// faceIntegrals computes the 12 face integrals for one triangular face
// given its vertices (in 3D, projected via axes a, b), the face normal's
// a/b/c components, and plane offset w (n.p = -w).
func faceIntegrals(v [3]mesh.Vec3, na, nb, nc, w float64, a, b int) faceIntSet {
	p := projectionIntegrals(v, a, b)

	k1 := 1 / nc
	k2 := k1 * k1
	k3 := k2 * k1
	k4 := k3 * k1

	var fi faceIntSet
	fi.fa = k1 * p.pa
	fi.fb = k1 * p.pb
	fi.fc = -k2 * (na*p.pa + nb*p.pb + w*p.p1)

	fi.faa = k1 * p.paa
	fi.fbb = k1 * p.pbb
	fi.fcc = k3 * (na*na*p.paa + 2*na*nb*p.pab + nb*nb*p.pbb +
		w*(2*(na*p.pa+nb*p.pb)+w*p.p1))

	fi.faaa = k1 * p.paaa
	fi.fbbb = k1 * p.pbbb
	fi.fccc = -k4 * (na*na*na*p.paaa + 3*na*na*nb*p.paab +
		3*na*nb*nb*p.pabb + nb*nb*nb*p.pbbb +
		3*w*(na*na*p.paa+2*na*nb*p.pab+nb*nb*p.pbb) +
		w*w*(3*(na*p.pa+nb*p.pb)+w*p.p1))

	fi.faab = k1 * p.paab
	fi.fbbc = -k2 * (na*p.pabb + nb*p.pbbb + w*p.pbb)
	fi.fcca = k3 * (na*na*p.paaa + 2*na*nb*p.paab + nb*nb*p.pabb +
		w*(2*(na*p.paa+nb*p.pab)+w*p.pa))

	return fi
}

type projIntegrals struct {
	p1, pa, pb, paa, pab, pbb, paaa, paab, pabb, pbbb float64
}

// projectionIntegrals computes the 10 closed-form projection integrals
// over a triangle's edges in the (a, b) plane, via Green's theorem edge
// sums (spec.md §4.9).
func projectionIntegrals(v [3]mesh.Vec3, aAxis, bAxis int) projIntegrals {
	var pi projIntegrals
	for i := 0; i < 3; i++ {
		a0 := comp(v[i], aAxis)
		b0 := comp(v[i], bAxis)
		a1 := comp(v[(i+1)%3], aAxis)
		b1 := comp(v[(i+1)%3], bAxis)
		da := a1 - a0
		db := b1 - b0

		a0_2, a0_3, a0_4 := a0*a0, a0*a0*a0, a0*a0*a0*a0
		b0_2, b0_3, b0_4 := b0*b0, b0*b0*b0, b0*b0*b0*b0
		a1_2, a1_3 := a1*a1, a1*a1*a1
		b1_2, b1_3 := b1*b1, b1*b1*b1

		c1 := a1 + a0
		ca := a1*c1 + a0_2
		caa := a1*ca + a0_3
		caaa := a1*caa + a0_4
		cb := b1*(b1+b0) + b0_2
		cbb := b1*cb + b0_3
		cbbb := b1*cbb + b0_4
		cab := 3*a1_2 + 2*a1*a0 + a0_2
		kab := a1_2 + 2*a1*a0 + 3*a0_2
		caab := a0*cab + 4*a1_3
		kaab := a1*kab + 4*a0_3
		cabb := 4*b1_3 + 3*b1_2*b0 + 2*b1*b0_2 + b0_3
		kabb := b1_3 + 2*b1_2*b0 + 3*b1*b0_2 + 4*b0_3

		pi.p1 += db * c1
		pi.pa += db * ca
		pi.paa += db * caa
		pi.paaa += db * caaa
		pi.pb += da * cb
		pi.pbb += da * cbb
		pi.pbbb += da * cbbb
		pi.pab += db * (b1*cab + b0*kab)
		pi.paab += db * (b1*caab + b0*kaab)
		pi.pabb += da * (a1*cabb + a0*kabb)
	}

	pi.p1 /= 2
	pi.pa /= 6
	pi.paa /= 12
	pi.paaa /= 20
	pi.pb /= -6
	pi.pbb /= -12
	pi.pbbb /= -20
	pi.pab /= 24
	pi.paab /= 60
	pi.pabb /= -60

	return pi
}
