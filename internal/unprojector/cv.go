package unprojector

import (
	"encoding/binary"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/zwostein/pointird/internal/types"
)

// chessboard geometry, taken literally from the original daemon's
// calibration pattern (original_source/.../Unprojector/AutoOpenCV.cpp):
// a 10x7 field checkerboard with a 1% border and a 3%-inset mirror marker
// in the bottom-right cell.
const (
	chessboardFieldsX  = 10
	chessboardFieldsY  = 7
	chessboardCornersX = chessboardFieldsX - 1
	chessboardCornersY = chessboardFieldsY - 1
	chessboardBorder   = 0.01
	mirrorMarkBorder   = 0.03
	mirrorThreshold    = 0x3F
)

// CV is the default, auto-calibratable Unprojector implementation.
// It is the sole concrete type registered under "homography" by
// internal/registry, and the only one the Processor's AutoCalibrator probe
// finds — see spec.md §9.
type CV struct {
	homography Homography
}

// NewCV returns an Unprojector with the identity homography, matching the
// "fresh Unprojector leaves any point unchanged" invariant (spec.md §8.2).
func NewCV() *CV {
	return &CV{homography: NewIdentityHomography()}
}

var _ Unprojector = (*CV)(nil)
var _ AutoCalibrator = (*CV)(nil)

// GenerateCalibrationImage renders the checkerboard pattern with the
// mirror marker, matching original_source's drawChessboard/drawQuad.
func (c *CV) GenerateCalibrationImage(frame *types.Frame, width, height int) {
	frame.Resize(width, height)
	for i := range frame.Data {
		frame.Data[i] = 0xff
	}

	boardX := int(float64(width) * chessboardBorder)
	boardY := int(float64(height) * chessboardBorder)
	boardW := int(float64(width) * (1 - 2*chessboardBorder))
	boardH := int(float64(height) * (1 - 2*chessboardBorder))

	pixelsPerFieldX := float64(boardW) / float64(chessboardFieldsX)
	pixelsPerFieldY := float64(boardH) / float64(chessboardFieldsY)
	for h := 0; h < boardH; h++ {
		for w := 0; w < boardW; w++ {
			fieldX := int(float64(w) / pixelsPerFieldX)
			fieldY := int(float64(h) / pixelsPerFieldY)
			tone := byte(0x00)
			if (fieldX+fieldY)&1 != 0 {
				tone = 0xff
			}
			frame.Data[(boardY+h)*width+(boardX+w)] = tone
		}
	}

	markW := int(float64(boardW)/float64(chessboardFieldsX) - mirrorMarkBorder*float64(width))
	markH := int(float64(boardH)/float64(chessboardFieldsY) - mirrorMarkBorder*float64(height))
	markX := boardX + boardW - markW
	markY := boardY + boardH - markH
	for h := 0; h < markH; h++ {
		for w := 0; w < markW; w++ {
			frame.Data[(markY+h)*width+(markX+w)] = 0x00
		}
	}
}

// Calibrate implements spec.md §4.3's calibrate operation: it detects the
// chessboard, solves the homography, checks for mirroring and stores the
// result only on success.
func (c *CV) Calibrate(frame *types.Frame) bool {
	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC1, frame.Data)
	if err != nil {
		return false
	}
	defer img.Close()

	offsetX := float64(frame.Width) * chessboardBorder
	offsetY := float64(frame.Height) * chessboardBorder
	boardWidth := float64(frame.Width) * (1 - 2*chessboardBorder)
	boardHeight := float64(frame.Height) * (1 - 2*chessboardBorder)

	objectPoints := gocv.NewPoint2fVector()
	defer objectPoints.Close()
	for row := 1; row <= chessboardCornersY; row++ {
		for col := 1; col <= chessboardCornersX; col++ {
			objectPoints.Append(gocv.Point2f{
				X: float32(offsetX + boardWidth*float64(col)/float64(chessboardFieldsX)),
				Y: float32(offsetY + boardHeight*float64(row)/float64(chessboardFieldsY)),
			})
		}
	}

	imagePoints := gocv.NewPoint2fVector()
	defer imagePoints.Close()
	patternSize := image.Point{X: chessboardCornersX, Y: chessboardCornersY}
	found := gocv.FindChessboardCorners(img, patternSize, &imagePoints,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBFilterQuads)
	if !found {
		return false
	}

	mask := gocv.NewMat()
	defer mask.Close()
	perspective := gocv.FindHomography(imagePoints, &objectPoints, gocv.HomographyMethodAllPoints, 3, &mask, 2000, 0.995)
	defer perspective.Close()

	h := matToHomography(perspective, frame.Width, frame.Height)

	// mirror check: sample the mirror marker's object-space point back
	// into image space through H^-1 and see if the mark is absent there.
	inv := h.Inverse()
	markObjX := offsetX + boardWidth*(1-1/(3*float64(chessboardFieldsX)))
	markObjY := offsetY + boardHeight*(1-1/(3*float64(chessboardFieldsY)))
	markImgX, markImgY := unprojectXY(inv.H, markObjX, markObjY)

	mirrored := false
	ix, iy := int(markImgX), int(markImgY)
	if ix >= 0 && ix < frame.Width && iy >= 0 && iy < frame.Height {
		mirrored = frame.At(ix, iy) > mirrorThreshold
	}

	if mirrored {
		flip := [9]float64{
			1, 0, 0,
			0, -1, float64(frame.Height),
			0, 0, 1,
		}
		h = h.PreCompose(flip)
	}

	c.homography = h
	return true
}

func matToHomography(m gocv.Mat, width, height int) Homography {
	var h Homography
	h.Width, h.Height = width, height
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			h.H[row*3+col] = m.GetDoubleAt(row, col)
		}
	}
	return h
}

// UnprojectFrame warps frame by the stored pixel-space homography H
// (equal to diag(w,h,1)*H_n), producing a rectified frame of the same
// resolution (spec.md §4.3).
func (c *CV) UnprojectFrame(frame *types.Frame) {
	if frame.Empty() {
		return
	}
	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC1, frame.Data)
	if err != nil {
		return
	}
	defer src.Close()

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.SetDoubleAt(row, col, c.homography.H[row*3+col])
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpPerspective(src, &dst, m, image.Point{X: frame.Width, Y: frame.Height})
	copy(frame.Data, dst.ToBytes())
}

// UnprojectPoint applies the normalized matrix H_n to p, per spec.md §4.3.
func (c *CV) UnprojectPoint(p *types.Point) {
	m := c.homography.Normalized()
	x, y := unprojectXY(m, float64(p.X), float64(p.Y))
	p.X, p.Y = float32(x), float32(y)
}

// UnprojectPoints maps every detected point through H_n.
func (c *CV) UnprojectPoints(pa *types.PointArray) {
	m := c.homography.Normalized()
	for i := range pa.Points {
		x, y := unprojectXY(m, float64(pa.Points[i].X), float64(pa.Points[i].Y))
		pa.Points[i].X, pa.Points[i].Y = float32(x), float32(y)
	}
}

// calibrationBlobLen is the fixed length of the serialized blob:
// u32 width, u32 height, f64 h[9].
const calibrationBlobLen = 4 + 4 + 9*8

// Serialize returns the opaque little-endian blob described in spec.md §6.
func (c *CV) Serialize() []byte {
	buf := make([]byte, calibrationBlobLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(c.homography.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(c.homography.Height))
	for i, v := range c.homography.H {
		binary.LittleEndian.PutUint64(buf[8+i*8:16+i*8], math.Float64bits(v))
	}
	return buf
}

// Deserialize restores a calibration from a blob previously produced by
// Serialize, rejecting on length mismatch per spec.md §3.
func (c *CV) Deserialize(blob []byte) bool {
	if len(blob) != calibrationBlobLen {
		return false
	}
	var h Homography
	h.Width = int(binary.LittleEndian.Uint32(blob[0:4]))
	h.Height = int(binary.LittleEndian.Uint32(blob[4:8]))
	for i := range h.H {
		h.H[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8+i*8 : 16+i*8]))
	}
	c.homography = h
	return true
}
