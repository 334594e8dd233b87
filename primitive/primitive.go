// Package primitive implements the cube/cylinder/uvsphere/icosphere
// generators of spec.md §6.3, the `primative` CLI's out-of-scope
// boundary collaborator named in spec.md §1. cube/cylinder/uvsphere
// build a point cloud and take its convex hull; icosphere subdivides
// an icosahedron directly.
package primitive

import (
	"math"

	"github.com/maurerpe/libpolyhedra/hull"
	"github.com/maurerpe/libpolyhedra/mesh"
)

func pointMesh(pts []mesh.Vec3) (*mesh.IndexedMesh, error) {
	im, err := mesh.New(3, mesh.Point)
	if err != nil {
		return nil, err
	}
	for _, p := range pts {
		arr := p.Array32()
		if _, err := im.Add(arr[:]); err != nil {
			return nil, err
		}
	}
	im.Finalize()
	return im, nil
}

// Cube returns the convex hull of the eight signed corners of a
// rectangular prism of size x by y by z, centered at the origin.
func Cube(x, y, z float64) (*mesh.IndexedMesh, error) {
	hx, hy, hz := x/2, y/2, z/2
	var pts []mesh.Vec3
	for _, sx := range []float64{-hx, hx} {
		for _, sy := range []float64{-hy, hy} {
			for _, sz := range []float64{-hz, hz} {
				pts = append(pts, mesh.NewVec3(sx, sy, sz))
			}
		}
	}
	pm, err := pointMesh(pts)
	if err != nil {
		return nil, err
	}
	return hull.Build(pm)
}

// Cylinder returns the convex hull of n points per revolution on each
// of the top and bottom circles of a cylinder with the given diameter
// and height, centered at the origin with its axis along Z.
func Cylinder(diameter, height float64, n int) (*mesh.IndexedMesh, error) {
	if n < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "primitive: cylinder needs n>=3, got %d", n)
	}
	r := diameter / 2
	hz := height / 2
	var pts []mesh.Vec3
	for _, z := range []float64{-hz, hz} {
		for i := 0; i < n; i++ {
			theta := 2 * math.Pi * float64(i) / float64(n)
			pts = append(pts, mesh.NewVec3(r*math.Cos(theta), r*math.Sin(theta), z))
		}
	}
	pm, err := pointMesh(pts)
	if err != nil {
		return nil, err
	}
	return hull.Build(pm)
}

// UVSphere returns the convex hull of two poles plus n-1 rings of n
// segments each, on a sphere of the given diameter.
func UVSphere(diameter float64, n int) (*mesh.IndexedMesh, error) {
	if n < 3 {
		return nil, mesh.Errorf(mesh.InvalidInput, "primitive: uvsphere needs n>=3, got %d", n)
	}
	r := diameter / 2
	pts := []mesh.Vec3{
		mesh.NewVec3(0, 0, r),
		mesh.NewVec3(0, 0, -r),
	}
	for ring := 1; ring < n; ring++ {
		phi := math.Pi * float64(ring) / float64(n)
		sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
		for seg := 0; seg < n; seg++ {
			theta := 2 * math.Pi * float64(seg) / float64(n)
			pts = append(pts, mesh.NewVec3(
				r*sinPhi*math.Cos(theta),
				r*sinPhi*math.Sin(theta),
				r*cosPhi,
			))
		}
	}
	pm, err := pointMesh(pts)
	if err != nil {
		return nil, err
	}
	return hull.Build(pm)
}

// Icosphere returns a mesh built by subdividing the 12-vertex
// icosahedron's 20 triangles into 4 for n iterations, projected onto a
// sphere of the given diameter. Faces = 20 * 4^n.
func Icosphere(diameter float64, n int) (*mesh.IndexedMesh, error) {
	if n < 0 {
		return nil, mesh.Errorf(mesh.InvalidInput, "primitive: icosphere needs n>=0, got %d", n)
	}
	r := diameter / 2
	verts, tris := icosahedron()
	for i := 0; i < n; i++ {
		verts, tris = subdivide(verts, tris)
	}

	tb, err := mesh.NewTriangleBuilder()
	if err != nil {
		return nil, err
	}
	for _, t := range tris {
		a := verts[t[0]].Normalize().Scale(r)
		b := verts[t[1]].Normalize().Scale(r)
		c := verts[t[2]].Normalize().Scale(r)
		if err := tb.Add(a, b, c); err != nil {
			return nil, err
		}
	}
	return tb.Mesh(), nil
}

func icosahedron() ([]mesh.Vec3, [][3]int) {
	t := (1 + math.Sqrt(5)) / 2
	raw := [][3]float64{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	verts := make([]mesh.Vec3, len(raw))
	for i, p := range raw {
		verts[i] = mesh.NewVec3(p[0], p[1], p[2]).Normalize()
	}
	tris := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	return verts, tris
}

// subdivide splits each triangle into 4 by inserting edge midpoints,
// deduplicating midpoints by edge key so shared edges share a vertex.
func subdivide(verts []mesh.Vec3, tris [][3]int) ([]mesh.Vec3, [][3]int) {
	midCache := map[[2]int]int{}
	midpoint := func(a, b int) int {
		key := [2]int{a, b}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if idx, ok := midCache[key]; ok {
			return idx
		}
		m := verts[a].Add(verts[b]).Scale(0.5).Normalize()
		idx := len(verts)
		verts = append(verts, m)
		midCache[key] = idx
		return idx
	}

	var out [][3]int
	for _, t := range tris {
		a, b, c := t[0], t[1], t[2]
		ab := midpoint(a, b)
		bc := midpoint(b, c)
		ca := midpoint(c, a)
		out = append(out,
			[3]int{a, ab, ca},
			[3]int{ab, b, bc},
			[3]int{ca, bc, c},
			[3]int{ab, bc, ca},
		)
	}
	return verts, out
}
