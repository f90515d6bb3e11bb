// Package config implements spec.md §4.10 (SPEC_FULL.md): loading and
// validating the daemon's YAML configuration, grounded on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// internal/config package (same Load/Validate split, same "read file,
// unmarshal, validate, wrap errors" shape).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete daemon configuration: capture source, detector
// and tracker tuning, output sinks, calibration persistence, calibration
// hooks, and an optional MQTT republisher.
type Config struct {
	Capture     CaptureConfig     `yaml:"capture"`
	Detector    DetectorConfig    `yaml:"detector"`
	Tracker     TrackerConfig     `yaml:"tracker"`
	Output      OutputConfig      `yaml:"output"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Hooks       HooksConfig       `yaml:"hooks"`
	MQTT        *MQTTConfig       `yaml:"mqtt,omitempty"`
	HealthPort  int               `yaml:"health_port"`
	// Controllers lists controller registry entries to start alongside
	// the Processor (spec.md §6's repeatable --controller flag).
	Controllers []string `yaml:"controllers"`
}

// CaptureConfig selects and parameterizes a capture.Provider registry
// entry.
type CaptureConfig struct {
	// Name is the registry key: "mock" or "yuyv".
	Name         string  `yaml:"name"`
	Device       string  `yaml:"device"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          float64 `yaml:"fps"`
	BytesPerLine int     `yaml:"bytes_per_line"`
}

// DetectorConfig parameterizes the "cv" detector registry entry
// (spec.md §4.2).
type DetectorConfig struct {
	Name                  string  `yaml:"name"`
	IntensityThreshold    int     `yaml:"intensity_threshold"`
	BoundingFilterEnabled bool    `yaml:"bounding_filter_enabled"`
	MinBoundingSize       float64 `yaml:"min_bounding_size"`
	MaxBoundingSize       float64 `yaml:"max_bounding_size"`
}

// TrackerConfig selects the tracker registry entry: "simple" (the
// default, greedy nearest-neighbor) or "hungarian" (optimal assignment).
type TrackerConfig struct {
	Name string `yaml:"name"`
}

// OutputConfig configures the point filter chain and the set of sink
// registry entries the Processor fans out to each tick.
type OutputConfig struct {
	FrameSocketPath    string   `yaml:"frame_socket_path"`
	PointSocketPath    string   `yaml:"point_socket_path"`
	OffscreenTolerance float64  `yaml:"offscreen_tolerance"`
	PointLimit         int      `yaml:"point_limit"`
	// Sinks lists additional point/frame sink registry entries beyond the
	// two local sockets, e.g. "mqtt". Repeatable via -o/--output on the
	// CLI surface (spec.md §6).
	Sinks []string `yaml:"sinks"`
}

// CalibrationConfig configures the CalibrationStore (spec.md §4.8).
type CalibrationConfig struct {
	Directory   string `yaml:"directory"`
	ImageWidth  int    `yaml:"image_width"`
	ImageHeight int    `yaml:"image_height"`
}

// HooksConfig names the two calibration shell hooks (spec.md §6).
type HooksConfig struct {
	Begin string `yaml:"begin"`
	End   string `yaml:"end"`
}

// MQTTConfig enables the optional MQTTSink domain-stack addition
// (SPEC_FULL.md §4.12). A nil *MQTTConfig means the sink is not
// registered.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	PointsTopic string `yaml:"points_topic"`
	FramesTopic string `yaml:"frames_topic"`
	QoS         byte   `yaml:"qos"`
}

// Default returns the configuration the daemon runs with when no YAML
// file is given: a mock capture source at 640x480, the default detector
// and tracker, both local sockets enabled, calibration data alongside the
// binary's working directory.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Name:   "mock",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detector: DetectorConfig{
			Name:               "cv",
			IntensityThreshold: 128,
			MinBoundingSize:    0.0002,
			MaxBoundingSize:    0.125,
		},
		Tracker: TrackerConfig{Name: "simple"},
		Output: OutputConfig{
			FrameSocketPath:    "/tmp/PointIR.video.socket",
			PointSocketPath:    "/tmp/PointIR.points.socket",
			OffscreenTolerance: 0.1,
			PointLimit:         64,
		},
		Calibration: CalibrationConfig{
			Directory:   ".",
			ImageWidth:  640,
			ImageHeight: 480,
		},
	}
}

// Load reads and parses a YAML configuration file, applying Default's
// values as a base and validating the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid %q: %w", path, err)
	}

	return cfg, nil
}
