package avl

import "math"

// Reserved node indices and heights.
const (
	// absent is the index of the missing child. Slot zero of the storage is
	// never handed out.
	absent uint32 = 0

	// absentHeight is the height of a missing subtree; a leaf has height 0.
	absentHeight int32 = -1

	// maxNodes bounds the arena so that every index fits in a uint32.
	maxNodes = math.MaxUint32 - 1
)

// node is one entry of the tree. Children are owned exclusively through their
// index; there are no parent links.
type node[K, V any] struct {
	key         K
	value       V
	left, right uint32
	height      int32
}

// arena owns the nodes of a single tree. Nodes are only ever appended: the
// tree has no deletion, so there is no free list.
type arena[K, V any] struct {
	storage []node[K, V]
}

func newArena[K, V any](capacity int) arena[K, V] {
	storage := make([]node[K, V], 1, max(capacity, 0)+1)

	return arena[K, V]{storage: storage}
}

// malloc appends a leaf holding key and value and returns its index.
// Pointers obtained through at before a malloc call must not be reused.
func (a *arena[K, V]) malloc(key K, value V) uint32 {
	if len(a.storage) > maxNodes {
		panic("avl: node arena reached the uint32 index limit")
	}

	a.storage = append(a.storage, node[K, V]{key: key, value: value, height: 0})

	return uint32(len(a.storage) - 1) //nolint:gosec // bounded by maxNodes above.
}

// at returns the node stored under idx.
func (a *arena[K, V]) at(idx uint32) *node[K, V] {
	doAssert(idx != absent)

	return &a.storage[idx]
}

// height returns the cached height of idx, or absentHeight for a missing child.
func (a *arena[K, V]) height(idx uint32) int32 {
	if idx == absent {
		return absentHeight
	}

	return a.storage[idx].height
}

// used returns the number of allocated nodes.
func (a *arena[K, V]) used() int {
	return len(a.storage) - 1
}

func doAssert(condition bool) {
	if !condition {
		panic("avl internal assertion failed")
	}
}
