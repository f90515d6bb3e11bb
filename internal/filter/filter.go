// Package filter implements spec.md §4.4: the PointFilter chain applied to
// every tick's detected points after unprojection and before tracking.
package filter

import "github.com/zwostein/pointird/internal/types"

// Filter mutates pa in place, typically culling or truncating points.
type Filter func(pa *types.PointArray)

// Chain applies a sequence of filters in insertion order, grounded on
// original_source/src/pointird/PointFilter/PointFilterChain.hpp.
type Chain []Filter

// Apply runs every filter in the chain against pa, in order.
func (c Chain) Apply(pa *types.PointArray) {
	for _, f := range c {
		f(pa)
	}
}

// eraseUnordered removes the point at index by swapping it with the last
// element and shrinking by one, matching the original's erase_unordered —
// cheap because filter order doesn't matter to anything downstream.
func eraseUnordered(pa *types.PointArray, index int) {
	last := len(pa.Points) - 1
	pa.Points[index] = pa.Points[last]
	pa.Points = pa.Points[:last]
}

// NewOffscreenFilter returns a Filter that erases any point outside
// [-tolerance, 1+tolerance]^2, grounded on
// original_source/src/pointird/PointFilter/OffscreenFilter.cpp.
func NewOffscreenFilter(tolerance float32) Filter {
	return func(pa *types.PointArray) {
		minMargin := -tolerance
		maxMargin := 1 + tolerance
		for i := 0; i < len(pa.Points); {
			p := pa.Points[i]
			if p.X < minMargin || p.X >= maxMargin || p.Y < minMargin || p.Y >= maxMargin {
				eraseUnordered(pa, i)
				continue
			}
			i++
		}
	}
}

// DefaultOffscreenTolerance is the original's default margin of 0.1.
const DefaultOffscreenTolerance = 0.1

// NewLimitNumberFilter returns a Filter that truncates pa to at most limit
// points, per spec.md §4.4.
func NewLimitNumberFilter(limit int) Filter {
	return func(pa *types.PointArray) {
		if len(pa.Points) > limit {
			pa.Points = pa.Points[:limit]
		}
	}
}
