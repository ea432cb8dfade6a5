// Package rangeset provides an index of pairwise non-overlapping half-open
// ranges [Start, End). The index keeps two AVL trees, one keyed by start and
// one keyed by end, and uses a constant number of predecessor/successor lookups
// to decide in O(log n) whether a candidate range overlaps a stored one.
package rangeset

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned for ranges whose end is not strictly after the
// start, or whose bounds are not finite.
var ErrInvalidRange = errors.New("invalid range")

// Range is an immutable half-open range with an opaque payload. Identity is by
// pointer: two ranges with equal bounds are still distinct values.
type Range[P any] struct {
	start   float64
	end     float64
	payload P
}

// NewRange validates the bounds and creates a range.
func NewRange[P any](start, end float64, payload P) (*Range[P], error) {
	if !finite(start) || !finite(end) {
		return nil, fmt.Errorf("%w: non-finite bound [%v, %v)", ErrInvalidRange, start, end)
	}

	if end <= start {
		return nil, fmt.Errorf("%w: end %v is not after start %v", ErrInvalidRange, end, start)
	}

	return &Range[P]{start: start, end: end, payload: payload}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Start returns the inclusive lower bound.
func (r *Range[P]) Start() float64 { return r.start }

// End returns the exclusive upper bound.
func (r *Range[P]) End() float64 { return r.end }

// Payload returns the value attached at construction.
func (r *Range[P]) Payload() P { return r.payload }

// Duration returns End - Start.
func (r *Range[P]) Duration() float64 { return r.end - r.start }

// Contains reports whether t lies in [Start, End).
func (r *Range[P]) Contains(t float64) bool {
	return r.start <= t && t < r.end
}

// Overlaps reports whether the two ranges share any point. Ranges that only
// touch at an endpoint do not overlap.
func (r *Range[P]) Overlaps(other *Range[P]) bool {
	return r.start < other.end && other.start < r.end
}

func (r *Range[P]) String() string {
	return fmt.Sprintf("[%g, %g)", r.start, r.end)
}

// Span is a payload-free half-open interval, used for gaps.
type Span struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end"   yaml:"end"`
}

// Duration returns End - Start.
func (s Span) Duration() float64 { return s.End - s.Start }
