package registry

import (
	"fmt"
	"os"

	"github.com/zwostein/pointird/internal/capture"
	"github.com/zwostein/pointird/internal/config"
	"github.com/zwostein/pointird/internal/control"
	"github.com/zwostein/pointird/internal/detector"
	"github.com/zwostein/pointird/internal/filter"
	"github.com/zwostein/pointird/internal/processor"
	"github.com/zwostein/pointird/internal/tracker"
	"github.com/zwostein/pointird/internal/transport"
	"github.com/zwostein/pointird/internal/unprojector"
)

// DefaultCaptureRegistry registers the two capture.Provider
// implementations spec.md §4.1 and SPEC_FULL.md §4.1 name.
func DefaultCaptureRegistry(cfg *config.Config) *Registry[capture.Provider] {
	r := New[capture.Provider]("capture")
	r.Register("mock", func() (capture.Provider, error) {
		return capture.NewMockProvider(cfg.Capture.Width, cfg.Capture.Height), nil
	})
	r.Register("yuyv", func() (capture.Provider, error) {
		f, err := os.Open(cfg.Capture.Device)
		if err != nil {
			return nil, fmt.Errorf("registry: opening yuyv device %q: %w", cfg.Capture.Device, err)
		}
		bytesPerLine := cfg.Capture.BytesPerLine
		if bytesPerLine == 0 {
			bytesPerLine = cfg.Capture.Width * 2
		}
		return capture.NewYUYVProvider(f, cfg.Capture.Width, cfg.Capture.Height, bytesPerLine), nil
	})
	return r
}

// DefaultDetectorRegistry registers the "cv" PointDetector (spec.md
// §4.2). Only one implementation exists, but it still goes through the
// registry so a future variant needs no caller changes.
func DefaultDetectorRegistry(cfg *config.Config) *Registry[detector.Detector] {
	r := New[detector.Detector]("detector")
	r.Register("cv", func() (detector.Detector, error) {
		d := detector.NewCV()
		d.IntensityThreshold = uint8(cfg.Detector.IntensityThreshold)
		d.BoundingFilterEnabled = cfg.Detector.BoundingFilterEnabled
		d.MinBoundingSize = float32(cfg.Detector.MinBoundingSize)
		d.MaxBoundingSize = float32(cfg.Detector.MaxBoundingSize)
		return d, nil
	})
	return r
}

// DefaultUnprojectorRegistry registers the "homography" Unprojector
// (spec.md §4.3), the sole AutoCalibrator-capable implementation.
func DefaultUnprojectorRegistry() *Registry[unprojector.Unprojector] {
	r := New[unprojector.Unprojector]("unprojector")
	r.Register("homography", func() (unprojector.Unprojector, error) {
		return unprojector.NewCV(), nil
	})
	return r
}

// DefaultTrackerRegistry registers both Tracker variants from spec.md
// §4.5. Unlike the other registries, an unknown name here falls back to
// "simple" via NewOrDefault, matching the original's
// TrackerFactory::newTracker (spec.md §4.9).
func DefaultTrackerRegistry() *Registry[tracker.Tracker] {
	r := New[tracker.Tracker]("tracker")
	r.Register("simple", func() (tracker.Tracker, error) { return tracker.NewSimple(), nil })
	r.Register("hungarian", func() (tracker.Tracker, error) { return tracker.NewHungarian(), nil })
	return r
}

// DefaultFilterChain builds the ordered PointFilter chain from
// spec.md §4.4: an OffscreenFilter followed by a LimitNumberFilter, when
// a positive point limit is configured.
func DefaultFilterChain(cfg *config.Config) filter.Chain {
	chain := filter.Chain{filter.NewOffscreenFilter(float32(cfg.Output.OffscreenTolerance))}
	if cfg.Output.PointLimit > 0 {
		chain = append(chain, filter.NewLimitNumberFilter(cfg.Output.PointLimit))
	}
	return chain
}

// DefaultFrameSinkRegistry registers the local socket frame sink under
// "socket" when socketServer is non-nil. No other sink (e.g. "mqtt") is
// registered here.
func DefaultFrameSinkRegistry(socketServer *transport.Server) *Registry[processor.FrameSink] {
	r := New[processor.FrameSink]("frame_sink")
	if socketServer != nil {
		r.Register("socket", func() (processor.FrameSink, error) {
			return transport.NewFrameSink(socketServer), nil
		})
	}
	return r
}

// DefaultPointSinkRegistry registers the local socket point sink under
// "socket".
func DefaultPointSinkRegistry(socketServer *transport.Server) *Registry[processor.PointSink] {
	r := New[processor.PointSink]("point_sink")
	if socketServer != nil {
		r.Register("socket", func() (processor.PointSink, error) {
			return transport.NewPointSink(socketServer), nil
		})
	}
	return r
}

// DefaultControllerRegistry registers "hooks" (SPEC_FULL.md §4.11) and
// "none".
func DefaultControllerRegistry(cfg *config.Config) *Registry[control.Controller] {
	r := New[control.Controller]("controller")
	r.Register("none", func() (control.Controller, error) { return control.Noop{}, nil })
	r.Register("hooks", func() (control.Controller, error) {
		return control.NewHookController(cfg.Hooks.Begin, cfg.Hooks.End), nil
	})
	return r
}
