// Package calibstore implements spec.md §4.8: persisting and restoring an
// Unprojector's calibration, grounded on
// original_source/src/pointird/Unprojector/{CalibrationDataFile,
// CalibrationImageFile}.cpp.
package calibstore

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zwostein/pointird/internal/types"
)

// calibFileName matches the original's hardcoded "PointIR.calib".
const calibFileName = "PointIR.calib"

// Unprojector is the subset of unprojector.Unprojector/AutoCalibrator this
// package needs; declared locally to avoid importing internal/unprojector
// just for two methods.
type Unprojector interface {
	Serialize() []byte
	Deserialize(blob []byte) bool
}

// AutoCalibrator is the subset needed to render a calibration image.
type AutoCalibrator interface {
	GenerateCalibrationImage(frame *types.Frame, width, height int)
}

// Store persists calibration blobs and calibration images under a single
// configured directory.
type Store struct {
	Directory string
}

// Load reads the calibration blob file and hands it to u.Deserialize. A
// missing file is not an error — the Unprojector keeps its current
// (identity, by default) calibration.
func (s *Store) Load(u Unprojector) error {
	path := filepath.Join(s.Directory, calibFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("calibstore: no calibration file found, keeping current calibration", "path", path)
			return nil
		}
		return err
	}
	if !u.Deserialize(data) {
		slog.Warn("calibstore: calibration file failed to deserialize, keeping current calibration", "path", path)
		return nil
	}
	slog.Info("calibstore: loaded calibration", "path", path)
	return nil
}

// Save writes u.Serialize() to the calibration blob file.
func (s *Store) Save(u Unprojector) error {
	path := filepath.Join(s.Directory, calibFileName)
	if err := os.WriteFile(path, u.Serialize(), 0o644); err != nil {
		return err
	}
	slog.Info("calibstore: saved calibration", "path", path)
	return nil
}

// GenerateImage renders the calibration pattern into an 8-bit greyscale
// PNG named PointIR.<W>x<H>.png. If the file already exists it is left
// untouched and ok is false.
func (s *Store) GenerateImage(u AutoCalibrator, width, height int) (ok bool, err error) {
	path := filepath.Join(s.Directory, fmt.Sprintf("PointIR.%dx%d.png", width, height))
	if _, statErr := os.Stat(path); statErr == nil {
		slog.Info("calibstore: calibration image already exists, skipping", "path", path)
		return false, nil
	}

	var frame types.Frame
	u.GenerateCalibrationImage(&frame, width, height)

	img := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			img.SetGray(x, y, color.Gray{Y: frame.At(x, y)})
		}
	}

	out, createErr := os.Create(path)
	if createErr != nil {
		return false, createErr
	}
	defer out.Close()
	if encodeErr := png.Encode(out, img); encodeErr != nil {
		return false, encodeErr
	}
	slog.Info("calibstore: generated calibration image", "path", path)
	return true, nil
}
