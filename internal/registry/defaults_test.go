package registry

import (
	"testing"

	"github.com/zwostein/pointird/internal/config"
)

func TestDefaultCaptureRegistryMock(t *testing.T) {
	cfg := config.Default()
	r := DefaultCaptureRegistry(cfg)
	provider, err := r.New("mock")
	if err != nil {
		t.Fatal(err)
	}
	if provider.Width() != cfg.Capture.Width || provider.Height() != cfg.Capture.Height {
		t.Fatalf("expected mock provider sized %dx%d, got %dx%d",
			cfg.Capture.Width, cfg.Capture.Height, provider.Width(), provider.Height())
	}
}

func TestDefaultCaptureRegistryYUYVRequiresDevice(t *testing.T) {
	cfg := config.Default()
	cfg.Capture.Device = "/nonexistent/device"
	r := DefaultCaptureRegistry(cfg)
	if _, err := r.New("yuyv"); err == nil {
		t.Fatal("expected an error opening a nonexistent device")
	}
}

func TestDefaultTrackerRegistryFallsBackToSimple(t *testing.T) {
	r := DefaultTrackerRegistry()
	_, err, usedDefault := r.NewOrDefault("not-a-tracker", "simple")
	if err != nil {
		t.Fatal(err)
	}
	if !usedDefault {
		t.Fatal("expected fallback to simple for an unknown tracker name")
	}
}

func TestDefaultControllerRegistryNone(t *testing.T) {
	cfg := config.Default()
	r := DefaultControllerRegistry(cfg)
	c, err := r.New("none")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultFilterChainSkipsLimitWhenUnset(t *testing.T) {
	cfg := config.Default()
	cfg.Output.PointLimit = 0
	chain := DefaultFilterChain(cfg)
	if len(chain) != 1 {
		t.Fatalf("expected only the offscreen filter, got %d filters", len(chain))
	}
}

func TestDefaultFilterChainIncludesLimitWhenSet(t *testing.T) {
	cfg := config.Default()
	cfg.Output.PointLimit = 4
	chain := DefaultFilterChain(cfg)
	if len(chain) != 2 {
		t.Fatalf("expected offscreen + limit filters, got %d", len(chain))
	}
}
