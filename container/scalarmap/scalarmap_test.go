package scalarmap

import (
	"math/rand"
	"sort"
	"testing"
)

func TestInsertOrderedTraversal(t *testing.T) {
	m := New[string]()
	keys := []float64{5, 1, 9, 3, 7, 2, 8}
	for _, k := range keys {
		m.Insert(k, "")
	}
	var got []float64
	m.InOrder(func(key float64, _ string) { got = append(got, key) })
	sort.Float64s(keys)
	if len(got) != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), len(got))
	}
	for i := range keys {
		if got[i] != keys[i] {
			t.Fatalf("InOrder not sorted: %v", got)
		}
	}
}

func TestLowestHighest(t *testing.T) {
	m := New[int]()
	for _, k := range []float64{5, 1, 9, 3} {
		m.Insert(k, int(k))
	}
	lo, ok := m.Lowest()
	if !ok || lo.Value() != 1 {
		t.Fatalf("expected lowest 1, got %v", lo.Value())
	}
	hi, ok := m.Highest()
	if !ok || hi.Value() != 9 {
		t.Fatalf("expected highest 9, got %v", hi.Value())
	}
}

func TestSuccessorPredecessor(t *testing.T) {
	m := New[int]()
	vals := []float64{10, 20, 30, 40, 50}
	var handles []Handle[int]
	for _, k := range vals {
		handles = append(handles, m.Insert(k, int(k)))
	}
	mid := handles[2] // key 30
	succ, ok := m.Successor(mid)
	if !ok || succ.Value() != 40 {
		t.Fatalf("expected successor 40, got %v ok=%v", succ.Value(), ok)
	}
	pred, ok := m.Predecessor(mid)
	if !ok || pred.Value() != 20 {
		t.Fatalf("expected predecessor 20, got %v ok=%v", pred.Value(), ok)
	}
	hi, _ := m.Highest()
	if _, ok := m.Successor(hi); ok {
		t.Fatal("successor of the highest entry should not exist")
	}
	lo, _ := m.Lowest()
	if _, ok := m.Predecessor(lo); ok {
		t.Fatal("predecessor of the lowest entry should not exist")
	}
}

func TestMedianMatchesRank(t *testing.T) {
	m := New[int]()
	n := 101
	for i := 0; i < n; i++ {
		m.Insert(float64(i), i)
	}
	med, ok := m.Median()
	if !ok {
		t.Fatal("expected a median on a non-empty map")
	}
	if med.Value() != n/2 {
		t.Fatalf("expected median value %d, got %d", n/2, med.Value())
	}
}

func TestRekeyPreservesOrder(t *testing.T) {
	m := New[int]()
	h1 := m.Insert(1, 1)
	m.Insert(2, 2)
	h3 := m.Insert(3, 3)
	m.Rekey(h1, 10)
	var got []float64
	m.InOrder(func(key float64, _ int) { got = append(got, key) })
	want := []float64{2, 3, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("after rekey, expected order %v, got %v", want, got)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("rekey must not change size, got %d", m.Len())
	}
	hi, _ := m.Highest()
	if hi.Value() != h1.Value() {
		t.Fatal("rekeyed entry should now be the highest")
	}
	_ = h3
}

func TestDeleteReducesSizeAndRemovesEntry(t *testing.T) {
	m := New[int]()
	var handles []Handle[int]
	for i := 0; i < 20; i++ {
		handles = append(handles, m.Insert(float64(i), i))
	}
	m.Delete(handles[10])
	if m.Len() != 19 {
		t.Fatalf("expected len 19 after delete, got %d", m.Len())
	}
	var got []float64
	m.InOrder(func(key float64, _ int) { got = append(got, key) })
	for _, k := range got {
		if k == 10 {
			t.Fatal("deleted key 10 should no longer be present")
		}
	}
}

func TestRandomizedInsertDeleteStaysOrdered(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	m := New[int]()
	var handles []Handle[int]
	var keys []float64
	for i := 0; i < 500; i++ {
		k := r.Float64() * 1000
		handles = append(handles, m.Insert(k, int(k*1000)))
		keys = append(keys, k)
	}
	// Delete every third entry.
	for i := 0; i < len(handles); i += 3 {
		m.Delete(handles[i])
		keys[i] = -1 // mark removed
	}
	var want []float64
	for _, k := range keys {
		if k != -1 {
			want = append(want, k)
		}
	}
	sort.Float64s(want)
	var got []float64
	m.InOrder(func(key float64, _ int) { got = append(got, key) })
	if len(got) != len(want) {
		t.Fatalf("expected %d surviving entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: want %v got %v", i, want[i], got[i])
		}
	}
}

func TestDynamicKeyMode(t *testing.T) {
	// Keys are base + ctx, derived by kf: every entry is inserted with
	// a key argument of 0, so ascending base order shows the map orders
	// by the derived key rather than the key passed to Insert.
	type item struct{ base float64 }
	kf := func(v *item, ctx any) float64 {
		return v.base + ctx.(float64)
	}
	m := NewDynamic[*item](kf)
	m.SetContext(0.0)
	a := &item{base: 1}
	b := &item{base: 2}
	c := &item{base: 3}
	m.Insert(0, a)
	m.Insert(0, b)
	m.Insert(0, c)
	var order []float64
	m.InOrder(func(key float64, v *item) { order = append(order, v.base) })
	if order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected ascending base order, got %v", order)
	}
}
