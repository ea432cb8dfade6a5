package avl

import (
	"testing"
)

// Benchmark constants.
const (
	benchKeyCount = 10000
	benchStride   = 7
)

// BenchmarkInsertSequential benchmarks ascending inserts, the worst case for
// an unbalanced tree.
func BenchmarkInsertSequential(b *testing.B) {
	for range b.N {
		tree := New[int, int](WithCapacity(benchKeyCount))

		for i := range benchKeyCount {
			tree.Insert(i, i)
		}
	}
}

// BenchmarkFindNext benchmarks successor queries on absent keys.
func BenchmarkFindNext(b *testing.B) {
	tree := New[int, int]()

	for i := range benchKeyCount {
		tree.Insert(i*benchStride, i)
	}

	b.ResetTimer()

	for i := range b.N {
		tree.FindNext((i % benchKeyCount) * benchStride)
	}
}

// BenchmarkFind benchmarks exact lookups.
func BenchmarkFind(b *testing.B) {
	tree := New[int, int]()

	for i := range benchKeyCount {
		tree.Insert(i, i)
	}

	b.ResetTimer()

	for i := range b.N {
		tree.Find(i % benchKeyCount)
	}
}
