package bvh

import (
	"sort"
	"testing"

	"github.com/maurerpe/libpolyhedra/mesh"
)

func gridPoints() []mesh.Vec3 {
	var pts []mesh.Vec3
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				pts = append(pts, mesh.NewVec3(float64(x), float64(y), float64(z)))
			}
		}
	}
	return pts
}

func bruteForcePairs(pts []mesh.Vec3, d float64) map[[2]int]bool {
	want := map[[2]int]bool{}
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if pts[i].Dist(pts[j]) < d {
				key := [2]int{i, j}
				want[key] = true
			}
		}
	}
	return want
}

func normalizePairs(got [][2]int) map[[2]int]bool {
	out := map[[2]int]bool{}
	for _, p := range got {
		a, b := p[0], p[1]
		if a > b {
			a, b = b, a
		}
		out[[2]int{a, b}] = true
	}
	return out
}

func TestPairsMatchesBruteForce(t *testing.T) {
	pts := gridPoints()
	tree := Build(pts, 1e-9)

	for _, d := range []float64{0.5, 1.01, 1.5, 2.1} {
		var got [][2]int
		tree.Pairs(d, func(a, b int) { got = append(got, [2]int{a, b}) })
		gotSet := normalizePairs(got)
		wantSet := bruteForcePairs(pts, d)
		if len(gotSet) != len(wantSet) {
			t.Fatalf("d=%v: expected %d unique pairs, got %d", d, len(wantSet), len(gotSet))
		}
		for k := range wantSet {
			if !gotSet[k] {
				t.Fatalf("d=%v: missing expected pair %v", d, k)
			}
		}
	}
}

func TestPairsEmptyBelowThreshold(t *testing.T) {
	pts := gridPoints()
	tree := Build(pts, 1e-9)
	var got [][2]int
	tree.Pairs(0.1, func(a, b int) { got = append(got, [2]int{a, b}) })
	if len(got) != 0 {
		t.Fatalf("expected no pairs under distance 0.1 on a unit grid, got %d", len(got))
	}
}

func TestBuildSinglePoint(t *testing.T) {
	pts := []mesh.Vec3{mesh.NewVec3(0, 0, 0)}
	tree := Build(pts, 1e-9)
	var got [][2]int
	tree.Pairs(1, func(a, b int) { got = append(got, [2]int{a, b}) })
	if len(got) != 0 {
		t.Fatal("a single point has no pairs")
	}
}

func TestBuildDuplicatePoints(t *testing.T) {
	pts := make([]mesh.Vec3, 10)
	for i := range pts {
		pts[i] = mesh.NewVec3(1, 1, 1)
	}
	tree := Build(pts, 1e-9)
	var count int
	tree.Pairs(0.5, func(a, b int) { count++ })
	want := len(pts) * (len(pts) - 1) / 2
	if count != want {
		t.Fatalf("expected %d pairs among coincident points, got %d", want, count)
	}
}

func TestBuildExtentThresholdStopsSplitting(t *testing.T) {
	pts := gridPoints()
	// A huge threshold means every axis extent is "below threshold",
	// so the root should never split: this still must produce correct
	// pairs via the leaf-leaf fallback.
	tree := Build(pts, 1000)
	var got int
	tree.Pairs(1.01, func(a, b int) { got++ })
	want := len(bruteForcePairs(pts, 1.01))
	if got != want {
		t.Fatalf("expected %d pairs with an unsplit tree, got %d", want, got)
	}
}

func TestRandomPointsPairsMatchBruteForce(t *testing.T) {
	pts := []mesh.Vec3{}
	seedVals := []float64{0.1, 0.7, 1.3, 2.9, 3.5, 4.1, 5.7, 6.3, 7.9, 8.1, 9.3, 10.7}
	for i, sx := range seedVals {
		pts = append(pts, mesh.NewVec3(sx, float64(i%5)*0.9, float64(i%3)*1.7))
	}
	sort.Float64s(seedVals) // sorts the seed slice only; pts was built above
	tree := Build(pts, 0.01)
	d := 2.0
	var got [][2]int
	tree.Pairs(d, func(a, b int) { got = append(got, [2]int{a, b}) })
	gotSet := normalizePairs(got)
	wantSet := bruteForcePairs(pts, d)
	if len(gotSet) != len(wantSet) {
		t.Fatalf("expected %d pairs, got %d", len(wantSet), len(gotSet))
	}
}
