// Package mesh implements IndexedMesh, the vertex-deduplicating indexed
// mesh at the bottom of every kernel in this repository (spec.md §3,
// §4.1), plus the shared Kind/Error machinery every kernel uses to
// report failures uniformly (spec.md §7).
package mesh

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/maurerpe/libpolyhedra/container/keymap"
)

// InvalidIndex is the UINT_MAX sentinel spec.md §6.4 calls out: "A
// distinguished UINT_MAX value signals 'operation failed' from any
// operation that otherwise returns an unsigned vertex index."
const InvalidIndex uint32 = math.MaxUint32

// IndexedMesh is a deduplicated vertex store plus an index sequence,
// tagged with a primitive kind. See spec.md §3.
type IndexedMesh struct {
	f    int
	kind PrimitiveKind

	verts     []float32 // flat, f floats per vertex
	indices   []uint32
	intern    *keymap.Map[uint32] // nil once finalized
	finalized bool
}

// New creates an empty IndexedMesh with f floats per vertex and the
// given primitive kind. f must be >= 1.
func New(f int, kind PrimitiveKind) (*IndexedMesh, error) {
	if f < 1 {
		return nil, Errorf(InvalidInput, "floats-per-vertex must be >= 1, got %d", f)
	}
	intern, err := keymap.New[uint32]()
	if err != nil {
		return nil, errors.Wrap(err, "create IndexedMesh")
	}
	return &IndexedMesh{f: f, kind: kind, intern: intern}, nil
}

// F returns the fixed floats-per-vertex of the mesh.
func (m *IndexedMesh) F() int { return m.f }

// Kind returns the mesh's primitive kind.
func (m *IndexedMesh) Kind() PrimitiveKind { return m.kind }

// NumVerts returns the number of unique stored vertices.
func (m *IndexedMesh) NumVerts() int { return len(m.verts) / m.f }

// NumIndices returns the length of the index sequence.
func (m *IndexedMesh) NumIndices() int { return len(m.indices) }

// Finalized reports whether Finalize has been called.
func (m *IndexedMesh) Finalized() bool { return m.finalized }

func vertKey(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// Add de-duplicates v (byte-exactly against prior records) and appends
// its vertex index to the index sequence, returning that index.
func (m *IndexedMesh) Add(v []float32) (uint32, error) {
	if len(v) != m.f {
		return InvalidIndex, Errorf(InvalidInput, "vertex has %d floats, mesh expects %d", len(v), m.f)
	}
	if m.finalized {
		return InvalidIndex, Errorf(InvalidInput, "cannot add vertex after finalize")
	}
	key := vertKey(v)
	var idx uint32
	if existing, ok := m.intern.Load(key); ok {
		idx = existing
	} else {
		n := m.NumVerts()
		if uint64(n) >= uint64(InvalidIndex) {
			return InvalidIndex, Errorf(AllocationFailed, "vertex capacity exceeded uint32_max")
		}
		idx = uint32(n)
		m.verts = append(m.verts, v...)
		m.intern.Store(key, idx)
	}
	m.indices = append(m.indices, idx)
	return idx, nil
}

// AddIndex appends i directly to the index sequence. i must refer to an
// already-added vertex.
func (m *IndexedMesh) AddIndex(i uint32) error {
	if int(i) >= m.NumVerts() {
		return Errorf(InvalidInput, "index %d out of range (%d vertices)", i, m.NumVerts())
	}
	m.indices = append(m.indices, i)
	return nil
}

// Finalize drops the interning side table, freeing memory. No further
// Add calls are allowed afterward (AddIndex still works).
func (m *IndexedMesh) Finalize() {
	m.intern = nil
	m.finalized = true
}

// Vertex returns the raw f-float record for vertex index i.
func (m *IndexedMesh) Vertex(i uint32) []float32 {
	return m.verts[int(i)*m.f : int(i)*m.f+m.f]
}

// LookupVert returns the vertex pointed at by the k-th index.
func (m *IndexedMesh) LookupVert(k int) ([]float32, error) {
	if k < 0 || k >= len(m.indices) {
		return nil, Errorf(InvalidInput, "index position %d out of range", k)
	}
	return m.Vertex(m.indices[k]), nil
}

// Index returns the k-th raw vertex index.
func (m *IndexedMesh) Index(k int) uint32 {
	return m.indices[k]
}

// Indices returns the full index sequence. Callers must not mutate it.
func (m *IndexedMesh) Indices() []uint32 {
	return m.indices
}

// NumPrimitives returns how many complete primitives the index sequence
// contains, per m.Kind's arity. Returns 0 for Unspecified.
func (m *IndexedMesh) NumPrimitives() int {
	g := m.kind.GroupSize()
	if g == 0 {
		return 0
	}
	return len(m.indices) / g
}

// Primitive returns the g indices of the p-th primitive, where g is
// m.Kind's arity.
func (m *IndexedMesh) Primitive(p int) []uint32 {
	g := m.kind.GroupSize()
	return m.indices[p*g : p*g+g]
}

// Copy re-emits src's index sequence through Add into a fresh mesh with
// floats-per-vertex newF <= src.F(), truncating per-vertex attributes.
func Copy(src *IndexedMesh, newF int) (*IndexedMesh, error) {
	if newF > src.f {
		return nil, Errorf(InvalidInput, "copy: new F (%d) must not exceed source F (%d)", newF, src.f)
	}
	dst, err := New(newF, src.kind)
	if err != nil {
		return nil, err
	}
	for _, idx := range src.indices {
		v := src.Vertex(idx)[:newF]
		if _, err := dst.Add(v); err != nil {
			return nil, errors.Wrap(err, "copy IndexedMesh")
		}
	}
	return dst, nil
}

// Bounds returns the axis-aligned bounding box (min, max) of the first
// min(3, F) components of every vertex. Supplemental accessor per
// SPEC_FULL.md §10, grounded on the teacher's Mesh.Min()/Max().
func (m *IndexedMesh) Bounds() (min, max []float32) {
	n := m.f
	if n > 3 {
		n = 3
	}
	if m.NumVerts() == 0 {
		return make([]float32, n), make([]float32, n)
	}
	min = append([]float32(nil), m.Vertex(0)[:n]...)
	max = append([]float32(nil), m.Vertex(0)[:n]...)
	for i := 1; i < m.NumVerts(); i++ {
		v := m.Vertex(uint32(i))
		for j := 0; j < n; j++ {
			if v[j] < min[j] {
				min[j] = v[j]
			}
			if v[j] > max[j] {
				max[j] = v[j]
			}
		}
	}
	return min, max
}
