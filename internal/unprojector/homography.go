package unprojector

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform acting on pixel coordinates,
// stored row-major as nine float64 elements, plus the pixel resolution it
// was calibrated against. The zero value has all nine elements zero and is
// not a usable transform; NewIdentityHomography returns the uncalibrated
// default (identity at resolution 0x0) described in spec.md §3.
type Homography struct {
	H             [9]float64
	Width, Height int
}

// NewIdentityHomography returns the uncalibrated default: H is the
// identity matrix.
func NewIdentityHomography() Homography {
	return Homography{H: [9]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}}
}

func (h Homography) mat() *mat.Dense {
	return mat.NewDense(3, 3, h.H[:])
}

func fromMat(m *mat.Dense) [9]float64 {
	var out [9]float64
	copy(out[:], m.RawMatrix().Data)
	return out
}

// Normalized derives H_n = diag(1/w, 1/h, 1) * H, the matrix that maps
// pixel-space input points into the normalized unit square. Computed on
// demand per spec.md §3: it is cheap relative to the rest of a tick and
// caching it would just be another piece of invalidation logic.
func (h Homography) Normalized() [9]float64 {
	if h.Width == 0 || h.Height == 0 {
		return h.H
	}
	normalize := mat.NewDense(3, 3, []float64{
		1.0 / float64(h.Width), 0, 0,
		0, 1.0 / float64(h.Height), 0,
		0, 0, 1,
	})
	var out mat.Dense
	out.Mul(normalize, h.mat())
	return fromMat(&out)
}

// PreCompose returns M*H for the given 3x3 row-major matrix M, used to
// fold the vertical-flip mirror correction into the calibrated
// homography (spec.md §4.3 step c).
func (h Homography) PreCompose(m [9]float64) Homography {
	var out mat.Dense
	out.Mul(mat.NewDense(3, 3, m[:]), h.mat())
	return Homography{H: fromMat(&out), Width: h.Width, Height: h.Height}
}

// Inverse returns H^-1, used to project the mirror-marker's object-space
// sampling point back into image pixel coordinates during calibration.
func (h Homography) Inverse() Homography {
	var inv mat.Dense
	if err := inv.Inverse(h.mat()); err != nil {
		// A degenerate homography should never reach here: findHomography
		// rejects non-invertible solutions. Fall back to identity rather
		// than panicking on a malformed calibration frame.
		return NewIdentityHomography()
	}
	return Homography{H: fromMat(&inv), Width: h.Width, Height: h.Height}
}

// epsilon is the f64 machine epsilon, used by UnprojectPoint's projective
// divide guard per spec.md §4.3.
const epsilon = 2.220446049250313e-16

// unprojectXY applies matrix m (row-major 3x3) to (x, y) with a
// projective divide, returning (0,0) if the divisor underflows epsilon.
func unprojectXY(m [9]float64, x, y float64) (float64, float64) {
	w := x*m[6] + y*m[7] + m[8]
	if math.Abs(w) <= epsilon {
		return 0, 0
	}
	w = 1 / w
	return (x*m[0] + y*m[1] + m[2]) * w, (x*m[3] + y*m[4] + m[5]) * w
}
