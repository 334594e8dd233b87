// Package scalarmap implements a balanced ordered map keyed by a scalar
// (float64), augmented with subtree size for order-statistic lookups
// (median, rank) and an optional dynamic-key mode in which the ordering
// key is recomputed on demand from the stored value plus an external
// context, so the tree can track an advancing sweep parameter without a
// full re-sort.
//
// The tree rebalances with standard AVL rotations. Rekey is implemented
// as detach-then-reinsert, per spec: this keeps the tree correctly
// ordered under key drift without needing to special-case move-in-place.
package scalarmap

// KeyFunc computes the ordering key for a dynamic-key map. ctx carries
// whatever external sweep state the comparison depends on (e.g. the
// sweep line's current y and x, for Triangulate2D).
type KeyFunc[V any] func(value V, ctx any) float64

// A Map is an AVL tree keyed by float64, optionally with a dynamic key
// function. The zero value is not usable; use New or NewDynamic.
type Map[V any] struct {
	root *node[V]
	size int

	dynamic KeyFunc[V]
	ctx     any
}

type node[V any] struct {
	key    float64
	value  V
	height int
	size   int
	left   *node[V]
	right  *node[V]
	parent *node[V]
}

// New creates a Map with a static key: the key supplied at Insert time
// never changes thereafter (short of an explicit Rekey).
func New[V any]() *Map[V] {
	return &Map[V]{}
}

// NewDynamic creates a Map whose ordering key is computed by kf(value,
// ctx) every time two entries are compared. Call SetContext before any
// structural mutation that depends on an updated sweep parameter.
func NewDynamic[V any](kf KeyFunc[V]) *Map[V] {
	return &Map[V]{dynamic: kf}
}

// SetContext updates the context used by a dynamic-key map's KeyFunc.
// Only valid between structural operations: all currently-live nodes
// must agree on relative order at the new context, or the tree's
// invariant is violated.
func (m *Map[V]) SetContext(ctx any) {
	m.ctx = ctx
}

func (m *Map[V]) keyOf(n *node[V]) float64 {
	if m.dynamic != nil {
		return m.dynamic(n.value, m.ctx)
	}
	return n.key
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	return m.size
}

func height[V any](n *node[V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func size[V any](n *node[V]) int {
	if n == nil {
		return 0
	}
	return n.size
}

func (m *Map[V]) update(n *node[V]) {
	n.height = 1 + max(height(n.left), height(n.right))
	n.size = 1 + size(n.left) + size(n.right)
}

func balanceFactor[V any](n *node[V]) int {
	return height(n.left) - height(n.right)
}

// A Handle addresses a single entry so callers can delete/rekey it
// without a fresh lookup.
type Handle[V any] struct {
	n *node[V]
}

// Value returns the entry's current value.
func (h Handle[V]) Value() V {
	return h.n.value
}

// Insert adds value under key (or, in dynamic mode, under
// kf(value, currentCtx)) and returns a Handle for later Delete/Rekey.
func (m *Map[V]) Insert(key float64, value V) Handle[V] {
	n := &node[V]{key: key, value: value, height: 1, size: 1}
	m.root = m.insertNode(m.root, n)
	m.size++
	return Handle[V]{n: n}
}

func (m *Map[V]) insertNode(root, n *node[V]) *node[V] {
	if root == nil {
		return n
	}
	if m.keyOf(n) < m.keyOf(root) {
		root.left = m.insertNode(root.left, n)
		root.left.parent = root
	} else {
		root.right = m.insertNode(root.right, n)
		root.right.parent = root
	}
	m.update(root)
	return m.rebalance(root)
}

func (m *Map[V]) rebalance(n *node[V]) *node[V] {
	bf := balanceFactor(n)
	if bf > 1 {
		if balanceFactor(n.left) < 0 {
			n.left = m.rotateLeft(n.left)
		}
		return m.rotateRight(n)
	}
	if bf < -1 {
		if balanceFactor(n.right) > 0 {
			n.right = m.rotateRight(n.right)
		}
		return m.rotateLeft(n)
	}
	return n
}

func (m *Map[V]) rotateLeft(n *node[V]) *node[V] {
	r := n.right
	n.right = r.left
	if r.left != nil {
		r.left.parent = n
	}
	r.parent = n.parent
	r.left = n
	n.parent = r
	m.update(n)
	m.update(r)
	return r
}

func (m *Map[V]) rotateRight(n *node[V]) *node[V] {
	l := n.left
	n.left = l.right
	if l.right != nil {
		l.right.parent = n
	}
	l.parent = n.parent
	l.right = n
	n.parent = l
	m.update(n)
	m.update(l)
	return l
}

// Delete removes the entry addressed by h.
func (m *Map[V]) Delete(h Handle[V]) {
	m.root = m.deleteNode(m.root, h.n)
	m.size--
}

// deleteNode removes target from the tree structurally (used by both
// Delete and Rekey's detach-then-reinsert).
func (m *Map[V]) deleteNode(root, target *node[V]) *node[V] {
	if root == nil {
		return nil
	}
	k := m.keyOf(target)
	rk := m.keyOf(root)
	if root == target {
		if root.left == nil {
			return attachParent(root.right, root.parent)
		}
		if root.right == nil {
			return attachParent(root.left, root.parent)
		}
		// Move the successor node itself into root's place, so every
		// outstanding Handle keeps addressing its own entry.
		succ := leftmost(root.right)
		right := m.deleteNode(root.right, succ)
		succ.left = attachParent(root.left, succ)
		succ.right = attachParent(right, succ)
		succ.parent = root.parent
		root = succ
	} else if k < rk {
		root.left = m.deleteNode(root.left, target)
	} else {
		root.right = m.deleteNode(root.right, target)
	}
	m.update(root)
	return m.rebalance(root)
}

func attachParent[V any](n, parent *node[V]) *node[V] {
	if n != nil {
		n.parent = parent
	}
	return n
}

func leftmost[V any](n *node[V]) *node[V] {
	for n.left != nil {
		n = n.left
	}
	return n
}

func rightmost[V any](n *node[V]) *node[V] {
	for n.right != nil {
		n = n.right
	}
	return n
}

// Rekey changes the key (static mode) or re-sorts the entry under its
// current dynamic key (dynamic mode) by detaching and reinserting it.
func (m *Map[V]) Rekey(h Handle[V], newKey float64) {
	m.root = m.deleteNode(m.root, h.n)
	h.n.key = newKey
	h.n.left, h.n.right, h.n.parent, h.n.height, h.n.size = nil, nil, nil, 1, 1
	m.root = m.insertNode(m.root, h.n)
}

// Lowest returns the handle with the smallest key, or ok=false if empty.
func (m *Map[V]) Lowest() (h Handle[V], ok bool) {
	if m.root == nil {
		return Handle[V]{}, false
	}
	return Handle[V]{n: leftmost(m.root)}, true
}

// Highest returns the handle with the largest key, or ok=false if empty.
func (m *Map[V]) Highest() (h Handle[V], ok bool) {
	if m.root == nil {
		return Handle[V]{}, false
	}
	return Handle[V]{n: rightmost(m.root)}, true
}

// Successor returns the entry immediately after h in key order.
func (m *Map[V]) Successor(h Handle[V]) (Handle[V], bool) {
	n := h.n
	if n.right != nil {
		return Handle[V]{n: leftmost(n.right)}, true
	}
	cur := n
	p := n.parent
	for p != nil && cur == p.right {
		cur = p
		p = p.parent
	}
	if p == nil {
		return Handle[V]{}, false
	}
	return Handle[V]{n: p}, true
}

// Predecessor returns the entry immediately before h in key order.
func (m *Map[V]) Predecessor(h Handle[V]) (Handle[V], bool) {
	n := h.n
	if n.left != nil {
		return Handle[V]{n: rightmost(n.left)}, true
	}
	cur := n
	p := n.parent
	for p != nil && cur == p.left {
		cur = p
		p = p.parent
	}
	if p == nil {
		return Handle[V]{}, false
	}
	return Handle[V]{n: p}, true
}

// Median returns the entry at rank m.Len()/2 (0-indexed; for an even
// Len this is the upper of the two middle entries),
// descending via subtree sizes: at each step, if the target position
// equals the size of the left subtree, this node is the answer;
// otherwise recurse into the side that contains it, adjusting the
// target by the left subtree size plus one.
func (m *Map[V]) Median() (Handle[V], bool) {
	if m.root == nil {
		return Handle[V]{}, false
	}
	return m.Rank(m.size / 2)
}

// Rank returns the entry at the given 0-indexed position in sorted
// order.
func (m *Map[V]) Rank(target int) (Handle[V], bool) {
	n := m.root
	for n != nil {
		ls := size(n.left)
		if target == ls {
			return Handle[V]{n: n}, true
		} else if target < ls {
			n = n.left
		} else {
			target -= ls + 1
			n = n.right
		}
	}
	return Handle[V]{}, false
}

// InOrder calls f for every entry in ascending key order. Do not mutate
// the map from within f.
func (m *Map[V]) InOrder(f func(key float64, value V)) {
	var walk func(*node[V])
	walk = func(n *node[V]) {
		if n == nil {
			return
		}
		walk(n.left)
		f(m.keyOf(n), n.value)
		walk(n.right)
	}
	walk(m.root)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
