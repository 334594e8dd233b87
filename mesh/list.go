package mesh

// List is a linked sequence of owned IndexedMesh values, used for
// returning multiple polyhedra from a single operation (spec.md §3
// MeshList).
type List struct {
	head *listNode
	tail *listNode
	n    int
}

type listNode struct {
	mesh *IndexedMesh
	next *listNode
}

// NewList creates an empty List.
func NewList() *List {
	return &List{}
}

// Append adds m to the back of the list, transferring ownership to the
// list.
func (l *List) Append(m *IndexedMesh) {
	node := &listNode{mesh: m}
	if l.tail == nil {
		l.head = node
		l.tail = node
	} else {
		l.tail.next = node
		l.tail = node
	}
	l.n++
}

// Len returns the number of meshes in the list.
func (l *List) Len() int { return l.n }

// Slice returns the meshes as a plain slice, in append order.
func (l *List) Slice() []*IndexedMesh {
	res := make([]*IndexedMesh, 0, l.n)
	for n := l.head; n != nil; n = n.next {
		res = append(res, n.mesh)
	}
	return res
}

// Each calls f for every mesh in order.
func (l *List) Each(f func(*IndexedMesh)) {
	for n := l.head; n != nil; n = n.next {
		f(n.mesh)
	}
}
