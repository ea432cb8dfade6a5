package rangeset

import (
	"github.com/Sumatoshi-tech/rangekeeper/pkg/alg/avl"
)

// Index stores pairwise non-overlapping ranges. Both trees always hold the
// same set of ranges; Insert is the only mutation and refuses overlaps.
//
// Index is not safe for concurrent use.
type Index[P any] struct {
	byStart *avl.Tree[float64, *Range[P]]
	byEnd   *avl.Tree[float64, *Range[P]]
}

// Stats holds structural counters of both trees.
type Stats struct {
	Len   int
	Start avl.Stats
	End   avl.Stats
}

// New creates an empty index. Options are applied to both trees.
func New[P any](opts ...avl.Option) *Index[P] {
	return &Index[P]{
		byStart: avl.New[float64, *Range[P]](opts...),
		byEnd:   avl.New[float64, *Range[P]](opts...),
	}
}

// Len returns the number of stored ranges.
func (idx *Index[P]) Len() int {
	return idx.byStart.Len()
}

// IsEmpty reports whether the index holds no ranges.
func (idx *Index[P]) IsEmpty() bool {
	return idx.byStart.IsEmpty()
}

// Insert stores r unless it overlaps a stored range. It reports whether r was
// stored; on false the index is unchanged. r must come from NewRange.
func (idx *Index[P]) Insert(r *Range[P]) bool {
	if idx.HasConflict(r) {
		return false
	}

	idx.byStart.Insert(r.start, r)
	idx.byEnd.Insert(r.end, r)

	return true
}

// HasConflict reports whether r overlaps any stored range.
func (idx *Index[P]) HasConflict(r *Range[P]) bool {
	_, found := idx.Conflict(r)

	return found
}

// Conflict returns a stored range overlapping r.
//
// Stored ranges are disjoint, so the range starting at the last start before
// r.End is also the one with the first end after that start. If it ends after
// r.Start it overlaps. The mirrored lookup starts from the first end after
// r.Start.
func (idx *Index[P]) Conflict(r *Range[P]) (*Range[P], bool) {
	if idx.IsEmpty() {
		return nil, false
	}

	if start, ok := idx.byStart.FindPrev(r.end); ok && start < r.end {
		if end, ok := idx.byEnd.FindNext(start); ok && end > r.start {
			return idx.byEnd.Find(end)
		}
	}

	if end, ok := idx.byEnd.FindNext(r.start); ok && end > r.start {
		if start, ok := idx.byStart.FindPrev(end); ok && start < r.end {
			return idx.byStart.Find(start)
		}
	}

	return nil, false
}

// FindByStart returns the range starting exactly at t.
func (idx *Index[P]) FindByStart(t float64) (*Range[P], bool) {
	return idx.byStart.Find(t)
}

// FindByEnd returns the range ending exactly at t.
func (idx *Index[P]) FindByEnd(t float64) (*Range[P], bool) {
	return idx.byEnd.Find(t)
}

// NextStart returns the smallest stored start strictly greater than t.
func (idx *Index[P]) NextStart(t float64) (float64, bool) {
	return idx.byStart.FindNext(t)
}

// PrevStart returns the largest stored start strictly less than t.
func (idx *Index[P]) PrevStart(t float64) (float64, bool) {
	return idx.byStart.FindPrev(t)
}

// NextEnd returns the smallest stored end strictly greater than t.
func (idx *Index[P]) NextEnd(t float64) (float64, bool) {
	return idx.byEnd.FindNext(t)
}

// PrevEnd returns the largest stored end strictly less than t.
func (idx *Index[P]) PrevEnd(t float64) (float64, bool) {
	return idx.byEnd.FindPrev(t)
}

// Owner returns the stored range containing t.
func (idx *Index[P]) Owner(t float64) (*Range[P], bool) {
	if r, ok := idx.byStart.Find(t); ok {
		return r, true
	}

	start, ok := idx.byStart.FindPrev(t)
	if !ok {
		return nil, false
	}

	r, _ := idx.byStart.Find(start)
	if !r.Contains(t) {
		return nil, false
	}

	return r, true
}

// Ranges returns all stored ranges sorted by start.
func (idx *Index[P]) Ranges() []*Range[P] {
	return idx.byStart.Values()
}

// StartTimes returns all start bounds in ascending order.
func (idx *Index[P]) StartTimes() []float64 {
	return idx.byStart.Keys()
}

// EndTimes returns all end bounds in ascending order.
func (idx *Index[P]) EndTimes() []float64 {
	return idx.byEnd.Keys()
}

// Gaps returns the free parts of [lo, hi) in ascending order. An empty or
// NaN window has no gaps.
func (idx *Index[P]) Gaps(lo, hi float64) []Span {
	if !(lo < hi) {
		return nil
	}

	var gaps []Span

	cursor := lo

	for start, r := range idx.byStart.All() {
		if start >= hi {
			break
		}

		if r.end <= cursor {
			continue
		}

		if start > cursor {
			gaps = append(gaps, Span{Start: cursor, End: start})
		}

		cursor = r.end
	}

	if cursor < hi {
		gaps = append(gaps, Span{Start: cursor, End: hi})
	}

	return gaps
}

// Stats returns structural counters of both trees.
func (idx *Index[P]) Stats() Stats {
	return Stats{
		Len:   idx.Len(),
		Start: idx.byStart.Stats(),
		End:   idx.byEnd.Stats(),
	}
}
