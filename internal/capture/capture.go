// Package capture implements spec.md §4.1: the Processor's pull-based
// frame source contract.
package capture

import (
	"time"

	"github.com/zwostein/pointird/internal/types"
)

// Provider is the Capture contract consumed by the Processor.
type Provider interface {
	Start() error
	// Advance waits for the next frame to become ready. It returns false
	// on timeout or end-of-stream. When timeout <= 0 and block is true,
	// it waits indefinitely.
	Advance(block bool, timeout time.Duration) bool
	// Retrieve resizes into to the source resolution and writes 8-bit
	// greyscale data.
	Retrieve(into *types.Frame) bool
	Stop() error
	IsCapturing() bool
	Name() string
	Width() int
	Height() int
}

// FrameInterval is a rational frame interval in seconds per frame,
// matching the numerator/denominator shape V4L2 itself uses for
// v4l2_fract.
type FrameInterval struct {
	Numerator   int
	Denominator int
}

// Seconds returns the interval's length in seconds.
func (f FrameInterval) Seconds() float64 {
	if f.Denominator == 0 {
		return 0
	}
	return float64(f.Numerator) / float64(f.Denominator)
}

// ContinuousRange describes a V4L2_FRMIVAL_TYPE_CONTINUOUS/STEPWISE style
// interval range.
type ContinuousRange struct {
	Min, Max FrameInterval
}

// SelectDiscreteInterval picks, from a set of discrete intervals, the one
// whose length is closest to 1/fps — grounded on
// original_source/src/pointird/Capture/Video4Linux2.cpp's
// getClosestFrameInterval discrete case.
func SelectDiscreteInterval(fps float64, intervals []FrameInterval) FrameInterval {
	target := 1 / fps
	best := intervals[0]
	bestErr := absFloat(best.Seconds() - target)
	for _, ival := range intervals[1:] {
		err := absFloat(ival.Seconds() - target)
		if err < bestErr {
			best, bestErr = ival, err
		}
	}
	return best
}

// SelectContinuousInterval returns r.Min or r.Max when 1/fps lies outside
// r, and otherwise a rational approximation of 1/fps whose denominator is
// bounded by maxDenominator. Grounded on the same function's
// V4L2_FRMIVAL_TYPE_CONTINUOUS/STEPWISE branch.
func SelectContinuousInterval(fps float64, r ContinuousRange, maxDenominator int64) FrameInterval {
	target := 1 / fps
	min, max := r.Min.Seconds(), r.Max.Seconds()
	switch {
	case target < min:
		return r.Min
	case target > max:
		return r.Max
	default:
		num, den := rationalApproximation(target, maxDenominator)
		return FrameInterval{Numerator: int(num), Denominator: int(den)}
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// rationalApproximation finds integers num/den with den <= maxDenom
// approximating f, via the continued-fraction method. Grounded on
// original_source/src/pointird/Capture/Video4Linux2.cpp's rat_approx,
// itself credited there to rosettacode.org's decimal-to-rational
// conversion.
func rationalApproximation(f float64, maxDenom int64) (num, den int64) {
	if maxDenom <= 1 {
		return int64(f), 1
	}

	neg := false
	if f < 0 {
		neg = true
		f = -f
	}

	n := int64(1)
	for f != float64(int64(f)) {
		n <<= 1
		f *= 2
	}
	d := int64(f)

	h0, h1 := int64(0), int64(1)
	k0, k1 := int64(1), int64(0)

	for i := 0; i < 64; i++ {
		var a int64
		if n != 0 {
			a = d / n
		}
		if i != 0 && a == 0 {
			break
		}

		d, n = n, d%n

		x := a
		if k1*a+k0 >= maxDenom {
			x = (maxDenom - k0) / k1
			if x*2 >= a || k1 >= maxDenom {
				// clamp to the best approximation achievable within
				// maxDenom, apply it once more, then stop.
				h0, h1 = h1, x*h1+h0
				k0, k1 = k1, x*k1+k0
				break
			}
			break
		}

		h0, h1 = h1, x*h1+h0
		k0, k1 = k1, x*k1+k0
	}

	if neg {
		h1 = -h1
	}
	return h1, k1
}
