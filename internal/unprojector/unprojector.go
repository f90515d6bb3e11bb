package unprojector

import "github.com/zwostein/pointird/internal/types"

// Unprojector is the homography core described in spec.md §4.3: it warps
// frames and maps points from camera-pixel space into normalized surface
// coordinates using a calibrated (or identity) homography.
type Unprojector interface {
	// UnprojectFrame warps frame in place by the pixel-space homography
	// H, i.e. diag(w,h,1)*H_n.
	UnprojectFrame(frame *types.Frame)
	// UnprojectPoint maps a single point through the normalized matrix H_n.
	UnprojectPoint(p *types.Point)
	// UnprojectPoints maps every point in pa through H_n.
	UnprojectPoints(pa *types.PointArray)
	// Serialize returns an opaque blob capturing the current calibration.
	Serialize() []byte
	// Deserialize restores a calibration previously produced by
	// Serialize. It rejects blobs of the wrong length.
	Deserialize(blob []byte) bool
}

// AutoCalibrator is implemented by Unprojectors that support deriving a
// homography from a captured chessboard frame. The Processor probes for
// this capability with a type assertion — the idiomatic Go analogue of
// the original's dynamic_cast<AAutoUnprojector*> (spec.md §9).
type AutoCalibrator interface {
	// GenerateCalibrationImage renders the chessboard pattern into frame
	// at the requested resolution.
	GenerateCalibrationImage(frame *types.Frame, width, height int)
	// Calibrate attempts to detect the chessboard in frame and solve for
	// a new homography. On failure it returns false and leaves the
	// current calibration unchanged.
	Calibrate(frame *types.Frame) bool
}
