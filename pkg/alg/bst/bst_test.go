package bst_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/avl"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/bst"
)

// Test constants.
const (
	testSeedHi    = 11
	testSeedLo    = 13
	testInserts   = 1500
	testKeySpace  = 400
	testChainSize = 64
)

// TestEmpty verifies lookups on an empty tree report not found.
func TestEmpty(t *testing.T) {
	t.Parallel()

	tree := bst.New[int, string]()
	assert.True(t, tree.IsEmpty())
	assert.Equal(t, -1, tree.Height())

	_, found := tree.Find(3)
	assert.False(t, found)

	_, found = tree.FindNext(3)
	assert.False(t, found)

	_, found = tree.FindPrev(3)
	assert.False(t, found)
}

// TestNewFunc_NilComparePanics verifies the constructor guard.
func TestNewFunc_NilComparePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		bst.NewFunc[int, int](nil)
	})
}

// TestSortedInsertDegrades verifies the baseline does not rebalance.
func TestSortedInsertDegrades(t *testing.T) {
	t.Parallel()

	tree := bst.New[int, int]()
	for i := range testChainSize {
		tree.Insert(i, i)
	}

	assert.Equal(t, testChainSize-1, tree.Height())
	assert.Equal(t, testChainSize, tree.Len())
}

// TestReplace verifies insert of an existing key keeps the size.
func TestReplace(t *testing.T) {
	t.Parallel()

	tree := bst.New[string, int]()
	tree.Insert("a", 1)

	old, replaced := tree.Insert("a", 2)
	require.True(t, replaced)
	assert.Equal(t, 1, old)
	assert.Equal(t, 1, tree.Len())

	value, found := tree.Find("a")
	require.True(t, found)
	assert.Equal(t, 2, value)
}

// TestMatchesAVL runs the same random workload against both trees.
func TestMatchesAVL(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(testSeedHi, testSeedLo))
	plain := bst.New[int, int]()
	balanced := avl.New[int, int]()

	for step := range testInserts {
		key := rng.IntN(testKeySpace)

		plainOld, plainReplaced := plain.Insert(key, step)
		avlOld, avlReplaced := balanced.Insert(key, step)

		require.Equal(t, avlReplaced, plainReplaced)
		require.Equal(t, avlOld, plainOld)
	}

	assert.Equal(t, balanced.Keys(), plain.Keys())
	assert.Equal(t, balanced.Values(), plain.Values())
	assert.LessOrEqual(t, balanced.Height(), plain.Height())

	for key := -1; key <= testKeySpace; key++ {
		wantNext, wantHasNext := balanced.FindNext(key)
		gotNext, gotHasNext := plain.FindNext(key)
		require.Equal(t, wantHasNext, gotHasNext, "next of %d", key)
		require.Equal(t, wantNext, gotNext, "next of %d", key)

		wantPrev, wantHasPrev := balanced.FindPrev(key)
		gotPrev, gotHasPrev := plain.FindPrev(key)
		require.Equal(t, wantHasPrev, gotHasPrev, "prev of %d", key)
		require.Equal(t, wantPrev, gotPrev, "prev of %d", key)
	}
}
