package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() should validate cleanly: %v", err)
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pointird.yaml")
	yaml := "capture:\n  name: mock\n  width: 320\n  height: 240\ntracker:\n  name: hungarian\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Capture.Width != 320 || cfg.Capture.Height != 240 {
		t.Fatalf("expected overridden resolution 320x240, got %dx%d", cfg.Capture.Width, cfg.Capture.Height)
	}
	if cfg.Tracker.Name != "hungarian" {
		t.Fatalf("expected overridden tracker name, got %q", cfg.Tracker.Name)
	}
	// fields left unset in the YAML should keep Default()'s values.
	if cfg.Output.PointSocketPath == "" {
		t.Fatalf("expected default point socket path to survive merge")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestValidateRejectsYUYVWithoutDevice(t *testing.T) {
	cfg := Default()
	cfg.Capture.Name = "yuyv"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error when capture.name is yuyv without a device")
	}
}

func TestValidateRejectsBadBoundingSizeRange(t *testing.T) {
	cfg := Default()
	cfg.Detector.BoundingFilterEnabled = true
	cfg.Detector.MinBoundingSize = 0.5
	cfg.Detector.MaxBoundingSize = 0.1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error when min_bounding_size > max_bounding_size")
	}
}

func TestValidateRequiresMQTTBrokerWhenBlockPresent(t *testing.T) {
	cfg := Default()
	cfg.MQTT = &MQTTConfig{}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for an mqtt block without a broker")
	}
}
