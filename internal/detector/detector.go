// Package detector implements spec.md §4.2: turning a thresholded greyscale
// frame into a set of blob centroids.
package detector

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/zwostein/pointird/internal/types"
)

// Detector is the blob-detection stage between capture and unprojection.
type Detector interface {
	// Detect appends the centroid of every qualifying blob in frame to out.
	// out is not reset first; callers own that.
	Detect(frame *types.Frame, out *types.PointArray)
}

// CV is the default Detector: a brightness threshold followed by external
// contour extraction, grounded on
// original_source/src/pointird/PointDetector/PointDetectorCV.cpp. Each
// contour's point is the unweighted mean of its outline vertices, not an
// image moment — the original never computes moments here.
type CV struct {
	// IntensityThreshold is the greyscale cutoff (>=) above which a pixel
	// is considered part of a blob. Default 128, from PointDetectorCV.hpp.
	IntensityThreshold uint8

	// BoundingFilterEnabled gates blobs by their contour bounding-box size
	// relative to the frame. Disabled by default, matching the original.
	BoundingFilterEnabled bool

	// MinBoundingSize and MaxBoundingSize are fractions of
	// (width+height)/2 that a blob's bounding box must fall within when
	// the filter is enabled. Defaults 0.0002 and 0.125.
	MinBoundingSize float32
	MaxBoundingSize float32
}

// NewCV returns a CV detector with the original's defaults.
func NewCV() *CV {
	return &CV{
		IntensityThreshold: 128,
		MinBoundingSize:    0.0002,
		MaxBoundingSize:    0.125,
	}
}

var _ Detector = (*CV)(nil)

func (d *CV) Detect(frame *types.Frame, out *types.PointArray) {
	if frame.Empty() {
		return
	}

	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC1, frame.Data)
	if err != nil {
		return
	}
	defer src.Close()

	thresholded := gocv.NewMat()
	defer thresholded.Close()
	// ThresholdBinary keeps src > thresh; the half-step offset makes that
	// src >= IntensityThreshold for 8-bit pixels.
	gocv.Threshold(src, &thresholded, float32(d.IntensityThreshold)-0.5, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(thresholded, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if d.BoundingFilterEnabled {
		averageImageSize := float32(frame.Width+frame.Height) / 2
		minSize := max32(1, d.MinBoundingSize*averageImageSize)
		maxSize := max32(1, d.MaxBoundingSize*averageImageSize)
		appendBoundFiltered(out, contours, minSize, maxSize)
		return
	}
	appendAll(out, contours)
}

func appendAll(out *types.PointArray, contours gocv.PointsVector) {
	for i := 0; i < contours.Size(); i++ {
		points := contours.At(i).ToPoints()
		if len(points) == 0 {
			continue
		}
		out.Append(centroid(points))
	}
}

func appendBoundFiltered(out *types.PointArray, contours gocv.PointsVector, minSize, maxSize float32) {
	for i := 0; i < contours.Size(); i++ {
		points := contours.At(i).ToPoints()
		if len(points) == 0 {
			continue
		}
		box := boundingBox(points)
		boxSizeX := box.maxX - box.minX + 1
		boxSizeY := box.maxY - box.minY + 1
		if boxSizeX > maxSize || boxSizeY > maxSize || boxSizeX < minSize || boxSizeY < minSize {
			continue
		}
		out.Append(centroid(points))
	}
}

func centroid(points []image.Point) types.Point {
	var sumX, sumY float32
	for _, p := range points {
		sumX += float32(p.X)
		sumY += float32(p.Y)
	}
	n := float32(len(points))
	return types.Point{X: sumX / n, Y: sumY / n}
}

type boundingBoxT struct {
	minX, minY, maxX, maxY float32
}

func boundingBox(points []image.Point) boundingBoxT {
	x0, y0 := float32(points[0].X), float32(points[0].Y)
	box := boundingBoxT{minX: x0, minY: y0, maxX: x0, maxY: y0}
	for _, p := range points {
		x, y := float32(p.X), float32(p.Y)
		if x > box.maxX {
			box.maxX = x
		}
		if y > box.maxY {
			box.maxY = y
		}
		if x < box.minX {
			box.minX = x
		}
		if y < box.minY {
			box.minY = y
		}
	}
	return box
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
