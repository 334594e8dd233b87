package fileformats

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/mesh"
)

const stlHeaderSize = 80

// ReadSTL reads a binary .stl stream per spec.md §6.1: an 80-byte
// header (ignored), a 4-byte little-endian face count, then per face
// {float32 n[3]; float32 v[9]; uint16 attr}. Winding is corrected to
// match the declared normal; each triangle emits three vertices with
// F=6 (position, face normal). ASCII STL is not supported.
func ReadSTL(r io.Reader) (*mesh.List, error) {
	header := make([]byte, stlHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "fileformats: read STL header")
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "fileformats: read STL face count")
	}

	im, err := mesh.New(6, mesh.Triangle)
	if err != nil {
		return nil, errors.Wrap(err, "fileformats: read STL")
	}

	buf := make([]byte, 50) // 12 floats * 4 bytes + 2-byte attr
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "fileformats: read STL face %d", i)
		}
		var n [3]float32
		var v [3][3]float32
		for k := 0; k < 3; k++ {
			n[k] = readFloat32LE(buf[4*k:])
		}
		for k := 0; k < 3; k++ {
			for c := 0; c < 3; c++ {
				v[k][c] = readFloat32LE(buf[12+4*(3*k+c):])
			}
		}

		declared := mesh.NewVec3(float64(n[0]), float64(n[1]), float64(n[2]))
		p0 := mesh.VertexVec3(v[0][:])
		p1 := mesh.VertexVec3(v[1][:])
		p2 := mesh.VertexVec3(v[2][:])
		ccw := p1.Sub(p0).Cross(p2.Sub(p0))
		if ccw.Dot(declared) < 0 {
			v[1], v[2] = v[2], v[1]
		}

		for k := 0; k < 3; k++ {
			rec := []float32{v[k][0], v[k][1], v[k][2], n[0], n[1], n[2]}
			if _, err := im.Add(rec); err != nil {
				return nil, errors.Wrapf(err, "fileformats: read STL face %d", i)
			}
		}
	}
	im.Finalize()

	list := mesh.NewList()
	list.Append(im)
	return list, nil
}

func readFloat32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// WriteSTL writes list as a binary .stl stream per spec.md §6.1.
// Primitive kind must be Triangle; the plane normal is recomputed from
// the first three position floats of each triangle (ignoring any other
// stored attribute), attr is written as 0.
func WriteSTL(w io.Writer, list *mesh.List) error {
	var faces int
	var werr error
	list.Each(func(im *mesh.IndexedMesh) {
		if werr != nil {
			return
		}
		if im.Kind() != mesh.Triangle || im.F() < 3 {
			werr = mesh.Errorf(mesh.InvalidInput, "fileformats: WriteSTL needs triangle meshes with F>=3")
			return
		}
		faces += im.NumPrimitives()
	})
	if werr != nil {
		return werr
	}

	header := make([]byte, stlHeaderSize)
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "fileformats: write STL header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(faces)); err != nil {
		return errors.Wrap(err, "fileformats: write STL face count")
	}

	list.Each(func(im *mesh.IndexedMesh) {
		if werr != nil {
			return
		}
		for p := 0; p < im.NumPrimitives(); p++ {
			a, b, c := im.TriangleAt(p)
			n := b.Sub(a).Cross(c.Sub(a)).Normalize()
			if err := writeSTLFace(w, n, a, b, c); err != nil {
				werr = errors.Wrap(err, "fileformats: write STL")
				return
			}
		}
	})
	return werr
}

func writeSTLFace(w io.Writer, n, a, b, c mesh.Vec3) error {
	buf := make([]byte, 50)
	putFloat32LE(buf[0:], float32(n.X))
	putFloat32LE(buf[4:], float32(n.Y))
	putFloat32LE(buf[8:], float32(n.Z))
	pts := [3]mesh.Vec3{a, b, c}
	for k, p := range pts {
		putFloat32LE(buf[12+12*k:], float32(p.X))
		putFloat32LE(buf[16+12*k:], float32(p.Y))
		putFloat32LE(buf[20+12*k:], float32(p.Z))
	}
	// attr bytes already zero
	_, err := w.Write(buf)
	return err
}

func putFloat32LE(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}
