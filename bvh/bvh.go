// Package bvh implements VertexBVH, an axis-aligned bounding-volume
// hierarchy over a set of 3D points, used for proximity queries (spec.md
// §4.4). The top node bounds every point; each internal node splits
// along its longest axis at the median coordinate (found via
// container/scalarmap's order-statistic Median, per spec.md's design
// note), falling back to the midpoint if the median coincides with an
// extreme of the axis.
package bvh

import (
	"math"

	"github.com/maurerpe/libpolyhedra/container/scalarmap"
	"github.com/maurerpe/libpolyhedra/mesh"
)

// minLeafSize and the caller-supplied extent threshold jointly decide
// when a node stops splitting, per spec.md §4.4: "Do not split when
// fewer than 4 points remain or the axis extent is below a
// user-supplied threshold d."
const minLeafSize = 4

// A Tree is a VertexBVH built over a fixed slice of points.
type Tree struct {
	points []mesh.Vec3
	root   *node
}

type node struct {
	min, max mesh.Vec3
	axis     int // -1 for a leaf
	split    float64
	left     *node
	right    *node
	idx      []int // point indices, only set on leaves
}

// Build constructs a Tree over points. extentThreshold is the minimum
// per-axis extent a node must have to be split further.
func Build(points []mesh.Vec3, extentThreshold float64) *Tree {
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	t := &Tree{points: points}
	t.root = t.build(idx, extentThreshold)
	return t
}

func (t *Tree) bounds(idx []int) (min, max mesh.Vec3) {
	min = t.points[idx[0]]
	max = min
	for _, i := range idx[1:] {
		p := t.points[i]
		min = mesh.NewVec3(math.Min(min.X, p.X), math.Min(min.Y, p.Y), math.Min(min.Z, p.Z))
		max = mesh.NewVec3(math.Max(max.X, p.X), math.Max(max.Y, p.Y), math.Max(max.Z, p.Z))
	}
	return
}

func axisOf(v mesh.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func longestAxis(min, max mesh.Vec3) (axis int, extent float64) {
	ext := max.Sub(min)
	axis = 0
	extent = ext.X
	if ext.Y > extent {
		axis, extent = 1, ext.Y
	}
	if ext.Z > extent {
		axis, extent = 2, ext.Z
	}
	return
}

func (t *Tree) build(idx []int, threshold float64) *node {
	min, max := t.bounds(idx)
	axis, extent := longestAxis(min, max)

	if len(idx) < minLeafSize || extent < threshold {
		return &node{min: min, max: max, axis: -1, idx: idx}
	}

	sm := scalarmap.New[int]()
	for _, i := range idx {
		sm.Insert(axisOf(t.points[i], axis), i)
	}
	medHandle, _ := sm.Median()
	splitVal := axisOf(t.points[medHandle.Value()], axis)

	lo := axisOf(min, axis)
	hi := axisOf(max, axis)
	if splitVal == lo || splitVal == hi {
		splitVal = (lo + hi) / 2
	}

	var left, right []int
	for _, i := range idx {
		if axisOf(t.points[i], axis) <= splitVal {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		// Degenerate split (e.g. all remaining points share this axis
		// value): stop splitting rather than loop forever.
		return &node{min: min, max: max, axis: -1, idx: idx}
	}

	return &node{
		min:   min,
		max:   max,
		axis:  axis,
		split: splitVal,
		left:  t.build(left, threshold),
		right: t.build(right, threshold),
	}
}

// boxSeparation returns the minimum Euclidean distance between two
// AABBs (0 if they overlap or touch).
func boxSeparation(aMin, aMax, bMin, bMax mesh.Vec3) float64 {
	d := 0.0
	for axis := 0; axis < 3; axis++ {
		aLo, aHi := axisOf(aMin, axis), axisOf(aMax, axis)
		bLo, bHi := axisOf(bMin, axis), axisOf(bMax, axis)
		var gap float64
		if aHi < bLo {
			gap = bLo - aHi
		} else if bHi < aLo {
			gap = aLo - bHi
		}
		d += gap * gap
	}
	return math.Sqrt(d)
}

// Pairs calls cb(a, b) for every unordered pair of distinct point
// indices whose Euclidean distance is < d. cb must treat duplicate
// calls as idempotent, matching spec.md §4.4.
func (t *Tree) Pairs(d float64, cb func(a, b int)) {
	if t.root == nil {
		return
	}
	t.pairsSelf(t.root, d, cb)
}

func (t *Tree) pairsSelf(n *node, d float64, cb func(a, b int)) {
	if n.axis == -1 {
		t.pairsLeafLeaf(n, n, d, cb)
		return
	}
	t.pairsSelf(n.left, d, cb)
	t.pairsSelf(n.right, d, cb)
	t.pairsCross(n.left, n.right, d, cb)
}

func (t *Tree) pairsCross(a, b *node, d float64, cb func(a, b int)) {
	if boxSeparation(a.min, a.max, b.min, b.max) >= d {
		return
	}
	switch {
	case a.axis == -1 && b.axis == -1:
		t.pairsLeafLeaf(a, b, d, cb)
	case a.axis == -1:
		t.pairsCross(a, b.left, d, cb)
		t.pairsCross(a, b.right, d, cb)
	case b.axis == -1:
		t.pairsCross(a.left, b, d, cb)
		t.pairsCross(a.right, b, d, cb)
	default:
		t.pairsCross(a.left, b.left, d, cb)
		t.pairsCross(a.left, b.right, d, cb)
		t.pairsCross(a.right, b.left, d, cb)
		t.pairsCross(a.right, b.right, d, cb)
	}
}

func (t *Tree) pairsLeafLeaf(a, b *node, d float64, cb func(a, b int)) {
	if a == b {
		for i := 0; i < len(a.idx); i++ {
			for j := i + 1; j < len(a.idx); j++ {
				if t.points[a.idx[i]].Dist(t.points[a.idx[j]]) < d {
					cb(a.idx[i], a.idx[j])
				}
			}
		}
		return
	}
	for _, i := range a.idx {
		for _, j := range b.idx {
			if i == j {
				continue
			}
			if t.points[i].Dist(t.points[j]) < d {
				cb(i, j)
			}
		}
	}
}
