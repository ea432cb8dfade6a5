// Package ordered defines the ordered-dictionary contract shared by the tree
// implementations in pkg/alg: keyed insert with replace, exact lookup, and
// strict predecessor/successor search that does not require the query key to
// be stored. Deletion is deliberately absent from the contract.
package ordered

import (
	"cmp"
	"iter"
)

// CompareFunc reports the ordering of a and b: negative when a < b, zero when
// equal, positive when a > b. It must define a strict total order.
type CompareFunc[K any] func(a, b K) int

// Index is an ordered dictionary over keys of type K.
type Index[K, V any] interface {
	// Insert stores value under key. When the key already exists its value is
	// replaced and the previous value is returned with replaced set to true.
	Insert(key K, value V) (old V, replaced bool)

	// Find returns the value stored under key. An empty index reports false.
	Find(key K) (V, bool)

	// FindNext returns the smallest stored key strictly greater than key.
	FindNext(key K) (K, bool)

	// FindPrev returns the largest stored key strictly less than key.
	FindPrev(key K) (K, bool)

	// Len returns the number of stored keys.
	Len() int

	// IsEmpty reports whether the index holds no keys.
	IsEmpty() bool

	// Keys returns all keys in ascending order. O(n), for inspection only.
	Keys() []K

	// Values returns all values in ascending key order. O(n), for inspection only.
	Values() []V

	// All iterates over key/value pairs in ascending key order.
	All() iter.Seq2[K, V]
}

// Natural returns the comparator for a naturally ordered key type.
func Natural[K cmp.Ordered]() CompareFunc[K] {
	return cmp.Compare[K]
}

// Collect drains an ascending iteration into key and value slices.
func Collect[K, V any](seq iter.Seq2[K, V], sizeHint int) ([]K, []V) {
	keys := make([]K, 0, sizeHint)
	values := make([]V, 0, sizeHint)

	for key, value := range seq {
		keys = append(keys, key)
		values = append(values, value)
	}

	return keys, values
}
