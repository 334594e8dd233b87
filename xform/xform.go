// Package xform implements rigid transforms (unit quaternion +
// translation) over IndexedMesh, the "rigid transforms" external
// collaborator named as out-of-scope plumbing by spec.md §1 and
// specified as a supplemental component in SPEC_FULL.md §7.
package xform

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/maurerpe/libpolyhedra/mesh"
)

// Transform composes a unit quaternion rotation with a translation,
// applied rotation-then-translation: Apply(p) = Rot(p) + T.
type Transform struct {
	Rot quat.Number
	T   r3.Vec
}

// Identity is the no-op transform.
func Identity() Transform {
	return Transform{Rot: quat.Number{Real: 1}}
}

// FromAxisAngle builds a Transform that rotates by angle radians about
// axis (need not be normalized) and then translates by t.
func FromAxisAngle(axis mesh.Vec3, angle float64, t mesh.Vec3) Transform {
	axis = axis.Normalize()
	half := angle / 2
	s := math.Sin(half)
	return Transform{
		Rot: quat.Number{
			Real: math.Cos(half),
			Imag: axis.X * s,
			Jmag: axis.Y * s,
			Kmag: axis.Z * s,
		},
		T: r3.Vec{X: t.X, Y: t.Y, Z: t.Z},
	}
}

func toVec(v mesh.Vec3) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
func fromVec(v r3.Vec) mesh.Vec3 { return mesh.NewVec3(v.X, v.Y, v.Z) }

func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Apply rotates then translates a single point.
func (t Transform) Apply(p mesh.Vec3) mesh.Vec3 {
	return fromVec(r3.Add(rotate(t.Rot, toVec(p)), t.T))
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := quat.Conj(t.Rot)
	negT := rotate(inv, r3.Scale(-1, t.T))
	return Transform{Rot: inv, T: negT}
}

// Compose returns the transform that applies t first, then other:
// other.Apply(t.Apply(p)).
func (t Transform) Compose(other Transform) Transform {
	return Transform{
		Rot: quat.Mul(other.Rot, t.Rot),
		T:   r3.Add(rotate(other.Rot, t.T), other.T),
	}
}

// ApplyMesh returns a copy of im with t applied to the first 3 floats
// (position) of every vertex; any remaining per-vertex attributes
// (texcoords, normals) pass through unchanged, except that a trailing
// 3-float normal block (F==6 or F==8, per fileformats' OBJ/STL layouts)
// is rotated (not translated) along with the position.
func (t Transform) ApplyMesh(im *mesh.IndexedMesh) (*mesh.IndexedMesh, error) {
	return transformMesh(im, t)
}

func transformMesh(im *mesh.IndexedMesh, t Transform) (*mesh.IndexedMesh, error) {
	out, err := mesh.New(im.F(), im.Kind())
	if err != nil {
		return nil, err
	}
	normalOff := normalOffset(im.F())
	for k := 0; k < im.NumIndices(); k++ {
		src := im.Vertex(im.Index(k))
		rec := append([]float32(nil), src...)
		p := t.Apply(mesh.VertexVec3(src))
		arr := p.Array32()
		rec[0], rec[1], rec[2] = arr[0], arr[1], arr[2]
		if normalOff >= 0 {
			n := t.Rot
			nv := rotate(n, r3.Vec{X: float64(src[normalOff]), Y: float64(src[normalOff+1]), Z: float64(src[normalOff+2])})
			rec[normalOff], rec[normalOff+1], rec[normalOff+2] = float32(nv.X), float32(nv.Y), float32(nv.Z)
		}
		if _, err := out.Add(rec); err != nil {
			return nil, err
		}
	}
	out.Finalize()
	return out, nil
}

// normalOffset returns the offset of the 3-float normal block in the
// fileformats OBJ vertex layout (F==6 -> offset 3, F==8 -> offset 5),
// or -1 if f carries no normal.
func normalOffset(f int) int {
	switch f {
	case 6:
		return 3
	case 8:
		return 5
	default:
		return -1
	}
}
