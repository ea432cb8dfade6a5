// Package bst provides a plain, unbalanced binary search tree implementing
// ordered.Index. It shares the contract of the avl package and serves as a
// reference for differential tests and benchmarks; sorted insertion order
// degrades it to a linked list.
package bst

import (
	"cmp"
	"iter"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/ordered"
)

// Tree is an unbalanced binary search tree.
type Tree[K, V any] struct {
	root    *node[K, V]
	compare ordered.CompareFunc[K]
	count   int
}

type node[K, V any] struct {
	key         K
	value       V
	left, right *node[K, V]
	height      int
}

var _ ordered.Index[int, struct{}] = (*Tree[int, struct{}])(nil)

// New creates an empty tree for naturally ordered keys.
func New[K cmp.Ordered, V any]() *Tree[K, V] {
	return NewFunc[K, V](ordered.Natural[K]())
}

// NewFunc creates an empty tree ordered by compare.
func NewFunc[K, V any](compare ordered.CompareFunc[K]) *Tree[K, V] {
	if compare == nil {
		panic("bst: nil compare function")
	}

	return &Tree[K, V]{compare: compare}
}

// Len returns the number of keys in the tree.
func (tree *Tree[K, V]) Len() int { return tree.count }

// IsEmpty reports whether the tree holds no keys.
func (tree *Tree[K, V]) IsEmpty() bool { return tree.count == 0 }

// Height returns the height of the root, -1 for an empty tree.
func (tree *Tree[K, V]) Height() int { return height(tree.root) }

func height[K, V any](n *node[K, V]) int {
	if n == nil {
		return -1
	}

	return n.height
}

// Insert stores value under key and returns the replaced value, if any.
func (tree *Tree[K, V]) Insert(key K, value V) (V, bool) {
	var (
		old      V
		replaced bool
	)

	link := &tree.root
	path := make([]*node[K, V], 0, tree.Height()+1)

	for *link != nil {
		cur := *link
		comp := tree.compare(key, cur.key)

		if comp == 0 {
			old, replaced = cur.value, true
			cur.value = value

			return old, replaced
		}

		path = append(path, cur)

		if comp < 0 {
			link = &cur.left
		} else {
			link = &cur.right
		}
	}

	*link = &node[K, V]{key: key, value: value}
	tree.count++

	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		n.height = 1 + max(height(n.left), height(n.right))
	}

	return old, replaced
}

// Find returns the value stored under key.
func (tree *Tree[K, V]) Find(key K) (V, bool) {
	for cur := tree.root; cur != nil; {
		comp := tree.compare(key, cur.key)

		switch {
		case comp == 0:
			return cur.value, true
		case comp < 0:
			cur = cur.left
		default:
			cur = cur.right
		}
	}

	var zero V

	return zero, false
}

// FindNext returns the smallest key strictly greater than key.
func (tree *Tree[K, V]) FindNext(key K) (K, bool) {
	return tree.findNext(tree.root, key)
}

func (tree *Tree[K, V]) findNext(cur *node[K, V], key K) (K, bool) {
	if cur == nil {
		var zero K

		return zero, false
	}

	comp := tree.compare(key, cur.key)

	switch {
	case comp == 0:
		if cur.right == nil {
			var zero K

			return zero, false
		}

		lowest := cur.right
		for lowest.left != nil {
			lowest = lowest.left
		}

		return lowest.key, true
	case comp < 0:
		if found, ok := tree.findNext(cur.left, key); ok {
			return found, true
		}

		return cur.key, true
	default:
		return tree.findNext(cur.right, key)
	}
}

// FindPrev returns the largest key strictly less than key.
func (tree *Tree[K, V]) FindPrev(key K) (K, bool) {
	return tree.findPrev(tree.root, key)
}

func (tree *Tree[K, V]) findPrev(cur *node[K, V], key K) (K, bool) {
	if cur == nil {
		var zero K

		return zero, false
	}

	comp := tree.compare(key, cur.key)

	switch {
	case comp == 0:
		if cur.left == nil {
			var zero K

			return zero, false
		}

		highest := cur.left
		for highest.right != nil {
			highest = highest.right
		}

		return highest.key, true
	case comp > 0:
		if found, ok := tree.findPrev(cur.right, key); ok {
			return found, true
		}

		return cur.key, true
	default:
		return tree.findPrev(cur.left, key)
	}
}

// All iterates over the tree in ascending key order.
func (tree *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var stack []*node[K, V]

		cur := tree.root

		for cur != nil || len(stack) > 0 {
			for cur != nil {
				stack = append(stack, cur)
				cur = cur.left
			}

			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(top.key, top.value) {
				return
			}

			cur = top.right
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
