// Package keymap implements a hashed mapping keyed by identity, a
// nul-terminated string, or a fixed-width byte blob, using SipHash-2-4
// keyed by a 16-byte per-instance secret drawn from a process-global
// CSPRNG (see secret.go). Buckets are separate-chained; the table
// doubles when items exceed twice the bucket count. Iteration order is
// unspecified but stable across non-mutating observers, since it depends
// only on the (fixed, post-construction) per-instance secret.
package keymap

import (
	"encoding/binary"
	"unsafe"

	"github.com/dchest/siphash"
	"github.com/pkg/errors"
)

const initialBuckets = 8

type entry[V any] struct {
	key   []byte
	value V
	next  *entry[V]
}

// A Map is a hashed mapping from a byte-key to a value of type V. Use
// NewIdentity, NewString, or NewBlob depending on the key flavor; all
// three share this same implementation, differing only in how the
// caller's key is turned into bytes before hashing.
type Map[V any] struct {
	k0, k1  uint64
	buckets []*entry[V]
	items   int
}

// New creates an empty Map. Returns an error only if the process-wide
// secret could not be seeded from OS entropy (spec.md's AllocationFailed
// / seed-initialization-failure case).
func New[V any]() (*Map[V], error) {
	k0, k1, err := newInstanceSecret()
	if err != nil {
		return nil, errors.Wrap(err, "create keymap")
	}
	return &Map[V]{
		k0:      k0,
		k1:      k1,
		buckets: make([]*entry[V], initialBuckets),
	}, nil
}

func (m *Map[V]) hash(key []byte) uint64 {
	return siphash.Hash(m.k0, m.k1, key)
}

func (m *Map[V]) bucketIndex(key []byte) int {
	return int(m.hash(key) % uint64(len(m.buckets)))
}

// Store inserts or replaces the value for key. Returns 1 if this was a
// new insertion, 0 if it replaced an existing entry, matching spec.md's
// "Insert returns 0/1 distinguishing replacement from new-insertion."
func (m *Map[V]) Store(key []byte, value V) int {
	idx := m.bucketIndex(key)
	for e := m.buckets[idx]; e != nil; e = e.next {
		if bytesEqual(e.key, key) {
			e.value = value
			return 0
		}
	}
	m.buckets[idx] = &entry[V]{key: append([]byte(nil), key...), value: value, next: m.buckets[idx]}
	m.items++
	if m.items > 2*len(m.buckets) {
		m.grow()
	}
	return 1
}

// Load retrieves the value stored for key.
func (m *Map[V]) Load(key []byte) (V, bool) {
	idx := m.bucketIndex(key)
	for e := m.buckets[idx]; e != nil; e = e.next {
		if bytesEqual(e.key, key) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Delete removes the entry for key, if present.
func (m *Map[V]) Delete(key []byte) {
	idx := m.bucketIndex(key)
	var prev *entry[V]
	for e := m.buckets[idx]; e != nil; e = e.next {
		if bytesEqual(e.key, key) {
			if prev == nil {
				m.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			m.items--
			return
		}
		prev = e
	}
}

// Len returns the number of stored entries.
func (m *Map[V]) Len() int {
	return m.items
}

// Range calls f for every stored entry. Order is unspecified; do not
// mutate the map from within f.
func (m *Map[V]) Range(f func(key []byte, value V)) {
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			f(e.key, e.value)
		}
	}
}

func (m *Map[V]) grow() {
	old := m.buckets
	m.buckets = make([]*entry[V], len(old)*2)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			idx := m.bucketIndex(e.key)
			e.next = m.buckets[idx]
			m.buckets[idx] = e
			e = next
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IdentityKey encodes a pointer/handle-shaped key by its address, for
// identity-keyed maps.
func IdentityKey[T any](p *T) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(uintptr(unsafe.Pointer(p))))
	return buf[:]
}

// StringKey encodes a nul-terminated string key (the nul terminator is
// implicit in using the string's own length, matching a C string's
// semantics without requiring an embedded NUL).
func StringKey(s string) []byte {
	return []byte(s)
}

// BlobKey encodes a fixed-width byte blob key as-is.
func BlobKey(b []byte) []byte {
	return b
}
