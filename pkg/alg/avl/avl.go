// Package avl provides a height-balanced (AVL) binary search tree implementing
// ordered.Index. Nodes live in an arena owned by the tree and are addressed by
// index, so rotations only move child indices and never create sharing.
//
// The tree supports insert-or-replace, exact lookup and strict
// predecessor/successor queries in O(log n). It has no delete operation and
// is not safe for concurrent use.
package avl

import (
	"cmp"
	"iter"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/ordered"
)

// Balance factor limits that trigger a rotation.
const (
	rightHeavy = 2
	leftHeavy  = -2
)

// Tree is an AVL tree mapping keys of type K to values of type V.
type Tree[K, V any] struct {
	nodes   arena[K, V]
	compare ordered.CompareFunc[K]

	// Root of the tree, absent when empty.
	root uint32

	// Number of stored keys.
	count int

	singleRotations int64
	doubleRotations int64
}

var _ ordered.Index[int, struct{}] = (*Tree[int, struct{}])(nil)

// Option configures a Tree.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity pre-sizes the node arena for n keys.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// New creates an empty tree for naturally ordered keys.
func New[K cmp.Ordered, V any](opts ...Option) *Tree[K, V] {
	return NewFunc[K, V](ordered.Natural[K](), opts...)
}

// NewFunc creates an empty tree ordered by compare.
func NewFunc[K, V any](compare ordered.CompareFunc[K], opts ...Option) *Tree[K, V] {
	if compare == nil {
		panic("avl: nil compare function")
	}

	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Tree[K, V]{
		nodes:   newArena[K, V](cfg.capacity),
		compare: compare,
		root:    absent,
	}
}

// Len returns the number of keys in the tree.
func (tree *Tree[K, V]) Len() int {
	return tree.count
}

// IsEmpty reports whether the tree holds no keys.
func (tree *Tree[K, V]) IsEmpty() bool {
	return tree.count == 0
}

// Height returns the height of the root, -1 for an empty tree.
func (tree *Tree[K, V]) Height() int {
	return int(tree.nodes.height(tree.root))
}

// Insert stores value under key, replacing and returning the previous value
// when the key is already present.
func (tree *Tree[K, V]) Insert(key K, value V) (V, bool) {
	var res insertResult[V]

	tree.root = tree.insert(tree.root, key, value, &res)

	if !res.replaced {
		tree.count++
	}

	return res.old, res.replaced
}

type insertResult[V any] struct {
	old      V
	replaced bool
}

// insert places key under the subtree rooted at idx and returns the index of
// the (possibly rotated) subtree root.
func (tree *Tree[K, V]) insert(idx uint32, key K, value V, res *insertResult[V]) uint32 {
	if idx == absent {
		return tree.nodes.malloc(key, value)
	}

	comp := tree.compare(key, tree.nodes.at(idx).key)

	switch {
	case comp == 0:
		nd := tree.nodes.at(idx)
		res.old, res.replaced = nd.value, true
		nd.value = value

		return idx
	case comp < 0:
		child := tree.insert(tree.nodes.at(idx).left, key, value, res)
		tree.nodes.at(idx).left = child
	default:
		child := tree.insert(tree.nodes.at(idx).right, key, value, res)
		tree.nodes.at(idx).right = child
	}

	tree.updateHeight(idx)

	return tree.rebalance(idx, key)
}

// rebalance restores the AVL property at idx after key was inserted below it.
// Only the insertion path can have grown, so the side of the heavy child the
// key went to decides between a single and a double rotation.
func (tree *Tree[K, V]) rebalance(idx uint32, key K) uint32 {
	nd := tree.nodes.at(idx)
	factor := tree.nodes.height(nd.right) - tree.nodes.height(nd.left)

	switch {
	case factor >= rightHeavy:
		if tree.compare(key, tree.nodes.at(nd.right).key) > 0 {
			tree.singleRotations++

			return tree.rotateLeft(idx)
		}

		tree.doubleRotations++
		nd.right = tree.rotateRight(nd.right)

		return tree.rotateLeft(idx)
	case factor <= leftHeavy:
		if tree.compare(key, tree.nodes.at(nd.left).key) < 0 {
			tree.singleRotations++

			return tree.rotateRight(idx)
		}

		tree.doubleRotations++
		nd.left = tree.rotateLeft(nd.left)

		return tree.rotateRight(idx)
	default:
		return idx
	}
}

// updateHeight recomputes the cached height of idx from its children.
func (tree *Tree[K, V]) updateHeight(idx uint32) {
	nd := tree.nodes.at(idx)
	nd.height = 1 + max(tree.nodes.height(nd.left), tree.nodes.height(nd.right))
}

// rotateDirection rotates the subtree rooted at idx and returns the new root.
// isLeft=true performs a left rotation, isLeft=false a right rotation.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
// Heights are refreshed for the old root first, then for the new one.
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree[K, V]) rotateDirection(idx uint32, isLeft bool) uint32 {
	nd := tree.nodes.at(idx)

	var pivot uint32
	if isLeft {
		pivot = nd.right
	} else {
		pivot = nd.left
	}

	doAssert(pivot != absent)

	pv := tree.nodes.at(pivot)

	if isLeft {
		nd.right = pv.left
		pv.left = idx
	} else {
		nd.left = pv.right
		pv.right = idx
	}

	tree.updateHeight(idx)
	tree.updateHeight(pivot)

	return pivot
}

func (tree *Tree[K, V]) rotateLeft(idx uint32) uint32 {
	return tree.rotateDirection(idx, true)
}

func (tree *Tree[K, V]) rotateRight(idx uint32) uint32 {
	return tree.rotateDirection(idx, false)
}

// Find returns the value stored under key.
func (tree *Tree[K, V]) Find(key K) (V, bool) {
	idx := tree.root

	for idx != absent {
		nd := tree.nodes.at(idx)
		comp := tree.compare(key, nd.key)

		switch {
		case comp == 0:
			return nd.value, true
		case comp < 0:
			idx = nd.left
		default:
			idx = nd.right
		}
	}

	var zero V

	return zero, false
}

// FindNext returns the smallest key strictly greater than key. The key itself
// does not need to be stored.
func (tree *Tree[K, V]) FindNext(key K) (K, bool) {
	bound := absent

	for idx := tree.root; idx != absent; {
		nd := tree.nodes.at(idx)

		if tree.compare(key, nd.key) < 0 {
			// nd is the tightest upper bound seen so far.
			bound = idx
			idx = nd.left
		} else {
			idx = nd.right
		}
	}

	return tree.keyAt(bound)
}

// FindPrev returns the largest key strictly less than key. The key itself
// does not need to be stored.
func (tree *Tree[K, V]) FindPrev(key K) (K, bool) {
	bound := absent

	for idx := tree.root; idx != absent; {
		nd := tree.nodes.at(idx)

		if tree.compare(key, nd.key) > 0 {
			bound = idx
			idx = nd.right
		} else {
			idx = nd.left
		}
	}

	return tree.keyAt(bound)
}

// Min returns the smallest key in the tree.
func (tree *Tree[K, V]) Min() (K, bool) {
	idx := tree.root
	if idx == absent {
		return tree.keyAt(absent)
	}

	for tree.nodes.at(idx).left != absent {
		idx = tree.nodes.at(idx).left
	}

	return tree.keyAt(idx)
}

// Max returns the largest key in the tree.
func (tree *Tree[K, V]) Max() (K, bool) {
	idx := tree.root
	if idx == absent {
		return tree.keyAt(absent)
	}

	for tree.nodes.at(idx).right != absent {
		idx = tree.nodes.at(idx).right
	}

	return tree.keyAt(idx)
}

func (tree *Tree[K, V]) keyAt(idx uint32) (K, bool) {
	if idx == absent {
		var zero K

		return zero, false
	}

	return tree.nodes.at(idx).key, true
}

// All iterates over the tree in ascending key order. The tree must not be
// modified while iterating.
func (tree *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		stack := make([]uint32, 0, tree.Height()+1)
		idx := tree.root

		for idx != absent || len(stack) > 0 {
			for idx != absent {
				stack = append(stack, idx)
				idx = tree.nodes.at(idx).left
			}

			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			nd := tree.nodes.at(top)
			if !yield(nd.key, nd.value) {
				return
			}

			idx = nd.right
		}
	}
}

// Keys returns all keys in ascending order.
func (tree *Tree[K, V]) Keys() []K {
	keys, _ := ordered.Collect(tree.All(), tree.count)

	return keys
}

// Values returns all values in ascending key order.
func (tree *Tree[K, V]) Values() []V {
	_, values := ordered.Collect(tree.All(), tree.count)

	return values
}
