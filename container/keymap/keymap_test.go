package keymap

import "testing"

func TestStoreLoadStringKeys(t *testing.T) {
	m, err := New[int]()
	if err != nil {
		t.Fatal(err)
	}
	if n := m.Store(StringKey("a"), 1); n != 1 {
		t.Fatalf("expected new-insertion return 1, got %d", n)
	}
	if n := m.Store(StringKey("b"), 2); n != 1 {
		t.Fatalf("expected new-insertion return 1, got %d", n)
	}
	if n := m.Store(StringKey("a"), 10); n != 0 {
		t.Fatalf("expected replacement return 0, got %d", n)
	}
	v, ok := m.Load(StringKey("a"))
	if !ok || v != 10 {
		t.Fatalf("expected replaced value 10, got %v ok=%v", v, ok)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
}

func TestLoadMissing(t *testing.T) {
	m, err := New[int]()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Load(StringKey("missing")); ok {
		t.Fatal("expected Load of an absent key to report ok=false")
	}
}

func TestDelete(t *testing.T) {
	m, err := New[int]()
	if err != nil {
		t.Fatal(err)
	}
	m.Store(StringKey("x"), 1)
	m.Delete(StringKey("x"))
	if _, ok := m.Load(StringKey("x")); ok {
		t.Fatal("expected key to be gone after Delete")
	}
	if m.Len() != 0 {
		t.Fatalf("expected len 0 after delete, got %d", m.Len())
	}
}

func TestBlobKeyDistinguishesExactBytes(t *testing.T) {
	m, err := New[string]()
	if err != nil {
		t.Fatal(err)
	}
	m.Store(BlobKey([]byte{1, 2, 3}), "abc")
	m.Store(BlobKey([]byte{1, 2, 3, 4}), "abcd")
	v, ok := m.Load(BlobKey([]byte{1, 2, 3}))
	if !ok || v != "abc" {
		t.Fatalf("expected abc, got %v ok=%v", v, ok)
	}
	v2, ok := m.Load(BlobKey([]byte{1, 2, 3, 4}))
	if !ok || v2 != "abcd" {
		t.Fatalf("expected abcd, got %v ok=%v", v2, ok)
	}
}

func TestIdentityKeyDistinguishesPointers(t *testing.T) {
	m, err := New[string]()
	if err != nil {
		t.Fatal(err)
	}
	a, b := new(int), new(int)
	m.Store(IdentityKey(a), "a")
	m.Store(IdentityKey(b), "b")
	va, _ := m.Load(IdentityKey(a))
	vb, _ := m.Load(IdentityKey(b))
	if va != "a" || vb != "b" {
		t.Fatalf("expected distinct values per pointer identity, got %q %q", va, vb)
	}
}

func TestGrowPreservesAllEntries(t *testing.T) {
	m, err := New[int]()
	if err != nil {
		t.Fatal(err)
	}
	const n = 500
	for i := 0; i < n; i++ {
		m.Store(BlobKey([]byte{byte(i), byte(i >> 8)}), i)
	}
	if m.Len() != n {
		t.Fatalf("expected %d entries, got %d", n, m.Len())
	}
	for i := 0; i < n; i++ {
		v, ok := m.Load(BlobKey([]byte{byte(i), byte(i >> 8)}))
		if !ok || v != i {
			t.Fatalf("lost entry %d after growth: got %v ok=%v", i, v, ok)
		}
	}
}

func TestRangeVisitsEveryEntry(t *testing.T) {
	m, err := New[int]()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		m.Store(StringKey(k), v)
	}
	got := map[string]int{}
	m.Range(func(key []byte, value int) { got[string(key)] = value })
	if len(got) != len(want) {
		t.Fatalf("expected %d entries from Range, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Range mismatch for %q: want %d got %d", k, v, got[k])
		}
	}
}
