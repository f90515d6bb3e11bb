package config

import "fmt"

// Validate checks the configuration for the contradictions the daemon
// cannot recover from at runtime, per spec.md §7's "configuration errors
// ... reported once at startup, process exits non-zero".
func Validate(cfg *Config) error {
	if cfg.Capture.Name == "" {
		return fmt.Errorf("capture.name is required")
	}
	if cfg.Capture.Width <= 0 || cfg.Capture.Height <= 0 {
		return fmt.Errorf("capture.width and capture.height must be > 0")
	}
	if cfg.Capture.Name == "yuyv" && cfg.Capture.Device == "" {
		return fmt.Errorf("capture.device is required when capture.name is \"yuyv\"")
	}
	if cfg.Capture.FPS < 0 {
		return fmt.Errorf("capture.fps must be >= 0")
	}

	if cfg.Detector.IntensityThreshold < 0 || cfg.Detector.IntensityThreshold > 255 {
		return fmt.Errorf("detector.intensity_threshold must be in [0,255]")
	}
	if cfg.Detector.BoundingFilterEnabled && cfg.Detector.MinBoundingSize > cfg.Detector.MaxBoundingSize {
		return fmt.Errorf("detector.min_bounding_size must be <= detector.max_bounding_size")
	}

	switch cfg.Tracker.Name {
	case "", "simple", "hungarian":
	default:
		return fmt.Errorf("tracker.name %q is not a known tracker (registry falls back to \"simple\")", cfg.Tracker.Name)
	}

	if cfg.Output.PointLimit < 0 {
		return fmt.Errorf("output.point_limit must be >= 0")
	}
	if cfg.Output.OffscreenTolerance < 0 {
		return fmt.Errorf("output.offscreen_tolerance must be >= 0")
	}

	if cfg.Calibration.Directory == "" {
		return fmt.Errorf("calibration.directory is required")
	}

	if cfg.MQTT != nil && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when the mqtt block is present")
	}

	if cfg.HealthPort < 0 || cfg.HealthPort > 65535 {
		return fmt.Errorf("health_port must be in [0,65535]")
	}

	return nil
}
