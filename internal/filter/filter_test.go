package filter

import (
	"testing"

	"github.com/zwostein/pointird/internal/types"
)

func pointArray(pts ...types.Point) *types.PointArray {
	pa := &types.PointArray{}
	for _, p := range pts {
		pa.Append(p)
	}
	return pa
}

func TestOffscreenFilterKeepsInBounds(t *testing.T) {
	pa := pointArray(types.Point{X: 0.5, Y: 0.5})
	NewOffscreenFilter(DefaultOffscreenTolerance)(pa)
	if pa.Len() != 1 {
		t.Fatalf("expected the in-bounds point to survive, got %d points", pa.Len())
	}
}

func TestOffscreenFilterErasesOutOfTolerance(t *testing.T) {
	pa := pointArray(types.Point{X: -0.5, Y: 0.5}, types.Point{X: 0.5, Y: 0.5})
	NewOffscreenFilter(DefaultOffscreenTolerance)(pa)
	if pa.Len() != 1 {
		t.Fatalf("expected 1 surviving point, got %d", pa.Len())
	}
	if pa.Points[0].X != 0.5 {
		t.Fatalf("wrong point survived: %v", pa.Points[0])
	}
}

func TestOffscreenFilterKeepsWithinTolerance(t *testing.T) {
	pa := pointArray(types.Point{X: -0.05, Y: 1.05})
	NewOffscreenFilter(DefaultOffscreenTolerance)(pa)
	if pa.Len() != 1 {
		t.Fatalf("expected point within tolerance margin to survive, got %d", pa.Len())
	}
}

func TestOffscreenFilterIdempotent(t *testing.T) {
	pa := pointArray(types.Point{X: -0.5, Y: 0.2}, types.Point{X: 0.3, Y: 0.4}, types.Point{X: 2, Y: 2})
	f := NewOffscreenFilter(DefaultOffscreenTolerance)
	f(pa)
	once := append([]types.Point{}, pa.Points...)
	f(pa)
	if len(pa.Points) != len(once) {
		t.Fatalf("filter not idempotent: %v vs %v", once, pa.Points)
	}
}

func TestLimitNumberFilterTruncates(t *testing.T) {
	pa := pointArray(types.Point{X: 0}, types.Point{X: 1}, types.Point{X: 2})
	NewLimitNumberFilter(2)(pa)
	if pa.Len() != 2 {
		t.Fatalf("expected truncation to 2 points, got %d", pa.Len())
	}
}

func TestLimitNumberFilterNoopWhenUnderLimit(t *testing.T) {
	pa := pointArray(types.Point{X: 0})
	NewLimitNumberFilter(5)(pa)
	if pa.Len() != 1 {
		t.Fatalf("expected no truncation, got %d points", pa.Len())
	}
}

func TestChainAppliesInOrder(t *testing.T) {
	// the off-screen point comes first, so applying the limit before the
	// off-screen filter would leave no points at all.
	pa := pointArray(types.Point{X: 2}, types.Point{X: 0.1}, types.Point{X: 0.2})
	chain := Chain{NewOffscreenFilter(DefaultOffscreenTolerance), NewLimitNumberFilter(1)}
	chain.Apply(pa)
	if pa.Len() != 1 {
		t.Fatalf("expected chain to leave exactly 1 point, got %d", pa.Len())
	}
}
