// Command pointird runs the PointIR daemon: capture -> detect ->
// unproject -> filter -> track -> emit, plus its calibration state
// machine and local stream servers. Grounded on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// cmd/oriond/main.go — flag parsing, a JSON slog handler, a cancellable
// context wired to SIGINT/SIGTERM, and a bounded shutdown timeout,
// layered outside the single-threaded tick loop per spec.md §5.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zwostein/pointird/internal/calibstore"
	"github.com/zwostein/pointird/internal/config"
	"github.com/zwostein/pointird/internal/control"
	"github.com/zwostein/pointird/internal/mqttsink"
	"github.com/zwostein/pointird/internal/processor"
	"github.com/zwostein/pointird/internal/registry"
	"github.com/zwostein/pointird/internal/transport"
	"github.com/zwostein/pointird/internal/unprojector"
)

// stringSlice implements flag.Value for the CLI surface's repeatable
// -o/--output and --controller flags (spec.md §6).
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")

	device := flag.String("device", "", "capture device path (yuyv capture only)")
	width := flag.Int("width", 0, "capture width in pixels")
	height := flag.Int("height", 0, "capture height in pixels")
	fps := flag.Float64("fps", 0, "target capture frames per second")
	captureName := flag.String("capture", "", "capture registry name (mock, yuyv)")
	trackerName := flag.String("tracker", "", "tracker registry name (simple, hungarian)")
	intensityThreshold := flag.Int("intensityThreshold", -1, "detector brightness threshold [0,255]")
	pointLimit := flag.Int("pointLimit", -1, "maximum points emitted per tick, 0 disables the cap")
	calibBeginHook := flag.String("calibBeginHook", "", "shell command run when calibration begins")
	calibEndHook := flag.String("calibEndHook", "", "shell command run when calibration ends")
	calibDir := flag.String("calibDir", "", "directory holding PointIR.calib and calibration images")
	healthPort := flag.Int("healthPort", -1, "port for /health and /readiness, 0 disables the server")
	generateCalibImage := flag.Bool("generateCalibImage", false, "render the calibration pattern PNG and exit")

	var outputs stringSlice
	flag.Var(&outputs, "o", "additional point/frame sink registry name (repeatable)")
	flag.Var(&outputs, "output", "alias for -o")
	var controllers stringSlice
	flag.Var(&controllers, "controller", "controller registry name to start (repeatable)")

	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("pointird: configuration error", "error", err)
		return 1
	}
	applyFlagOverrides(cfg, flagOverrides{
		device: *device, width: *width, height: *height, fps: *fps,
		captureName: *captureName, trackerName: *trackerName,
		intensityThreshold: *intensityThreshold, pointLimit: *pointLimit,
		calibBeginHook: *calibBeginHook, calibEndHook: *calibEndHook,
		calibDir: *calibDir, healthPort: *healthPort,
		outputs: outputs, controllers: controllers,
	})
	if err := config.Validate(cfg); err != nil {
		slog.Error("pointird: configuration error", "error", err)
		return 1
	}

	store := &calibstore.Store{Directory: cfg.Calibration.Directory}
	auto := unprojector.NewCV()

	if *generateCalibImage {
		ok, err := store.GenerateImage(auto, cfg.Calibration.ImageWidth, cfg.Calibration.ImageHeight)
		if err != nil {
			slog.Error("pointird: generating calibration image failed", "error", err)
			return 1
		}
		if !ok {
			slog.Info("pointird: calibration image already exists, left untouched")
		}
		return 0
	}

	if err := store.Load(auto); err != nil {
		slog.Warn("pointird: loading calibration failed", "error", err)
	}

	proc, cleanup, err := buildProcessor(cfg, auto)
	if err != nil {
		slog.Error("pointird: startup failed", "error", err)
		return 1
	}
	defer cleanup()

	activeControllers, err := startControllers(cfg, proc)
	if err != nil {
		slog.Error("pointird: starting controllers failed", "error", err)
		return 1
	}
	defer stopControllers(activeControllers)

	proc.AddCalibrationListener(saveOnSuccess{store: store, unprojector: auto})

	var healthServer *http.Server
	if cfg.HealthPort > 0 {
		healthServer = startHealthServer(cfg.HealthPort, proc)
		defer healthServer.Close()
	}

	if err := proc.Start(); err != nil {
		slog.Error("pointird: starting capture failed", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("pointird: received shutdown signal", "signal", sig)
		cancel()
	}()

	runLoop(ctx, proc)

	stopped := make(chan error, 1)
	go func() { stopped <- proc.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			slog.Error("pointird: stopping capture failed", "error", err)
		}
	case <-time.After(shutdownTimeout):
		slog.Error("pointird: shutdown timed out", "timeout", shutdownTimeout)
		return 1
	}

	slog.Info("pointird: stopped cleanly")
	return 0
}

// runLoop is the single-threaded scheduling model of spec.md §5: ticks
// proceed in lockstep, and the loop sleeps 1 second between ticks
// whenever the Processor isn't Processing or Calibrating, to yield the
// CPU while any controllers are polled.
func runLoop(ctx context.Context, proc *processor.Processor) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if proc.State() == processor.Idle {
			time.Sleep(time.Second)
			continue
		}
		proc.Tick()
	}
}

type flagOverrides struct {
	device                         string
	width, height                  int
	fps                            float64
	captureName, trackerName       string
	intensityThreshold, pointLimit int
	calibBeginHook, calibEndHook   string
	calibDir                       string
	healthPort                     int
	outputs, controllers           stringSlice
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func applyFlagOverrides(cfg *config.Config, f flagOverrides) {
	if f.device != "" {
		cfg.Capture.Device = f.device
	}
	if f.width > 0 {
		cfg.Capture.Width = f.width
	}
	if f.height > 0 {
		cfg.Capture.Height = f.height
	}
	if f.fps > 0 {
		cfg.Capture.FPS = f.fps
	}
	if f.captureName != "" {
		cfg.Capture.Name = f.captureName
	}
	if f.trackerName != "" {
		cfg.Tracker.Name = f.trackerName
	}
	if f.intensityThreshold >= 0 {
		cfg.Detector.IntensityThreshold = f.intensityThreshold
	}
	if f.pointLimit >= 0 {
		cfg.Output.PointLimit = f.pointLimit
	}
	if f.calibBeginHook != "" {
		cfg.Hooks.Begin = f.calibBeginHook
	}
	if f.calibEndHook != "" {
		cfg.Hooks.End = f.calibEndHook
	}
	if f.calibDir != "" {
		cfg.Calibration.Directory = f.calibDir
	}
	if f.healthPort >= 0 {
		cfg.HealthPort = f.healthPort
	}
	cfg.Output.Sinks = append(cfg.Output.Sinks, f.outputs...)
	cfg.Controllers = append(cfg.Controllers, f.controllers...)
	if len(cfg.Hooks.Begin) > 0 || len(cfg.Hooks.End) > 0 {
		cfg.Controllers = appendUnique(cfg.Controllers, "hooks")
	}
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}

// buildProcessor wires every registry-constructed component into a
// Processor, per spec.md §4.9's "the registry is the only place where
// concrete variants are enumerated." cleanup releases the sockets and any
// MQTT connection regardless of how run() returns.
func buildProcessor(cfg *config.Config, auto *unprojector.CV) (*processor.Processor, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	captureProvider, err := registry.DefaultCaptureRegistry(cfg).New(cfg.Capture.Name)
	if err != nil {
		return nil, cleanup, fmt.Errorf("pointird: %w", err)
	}

	det, err := registry.DefaultDetectorRegistry(cfg).New(cfg.Detector.Name)
	if err != nil {
		return nil, cleanup, fmt.Errorf("pointird: %w", err)
	}

	trk, _, usedDefault := registry.DefaultTrackerRegistry().NewOrDefault(cfg.Tracker.Name, "simple")
	if usedDefault {
		slog.Warn("pointird: unknown tracker, falling back to simple", "requested", cfg.Tracker.Name)
	}

	frameServer, err := transport.NewServer(cfg.Output.FrameSocketPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("pointird: frame socket: %w", err)
	}
	closers = append(closers, func() { frameServer.Close() })

	pointServer, err := transport.NewServer(cfg.Output.PointSocketPath)
	if err != nil {
		return nil, cleanup, fmt.Errorf("pointird: point socket: %w", err)
	}
	closers = append(closers, func() { pointServer.Close() })

	frameSinkRegistry := registry.DefaultFrameSinkRegistry(frameServer)
	pointSinkRegistry := registry.DefaultPointSinkRegistry(pointServer)

	if cfg.MQTT != nil {
		sink, err := mqttsink.New(mqttsink.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			PointsTopic: cfg.MQTT.PointsTopic,
			FramesTopic: cfg.MQTT.FramesTopic,
			QoS:         cfg.MQTT.QoS,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("pointird: mqtt: %w", err)
		}
		closers = append(closers, sink.Close)
		frameSinkRegistry.Register("mqtt", func() (processor.FrameSink, error) { return sink, nil })
		pointSinkRegistry.Register("mqtt", func() (processor.PointSink, error) { return sink, nil })
	}

	proc := processor.New(processor.Config{
		Capture:            captureProvider,
		Detector:           det,
		Unprojector:        auto,
		Filters:            registry.DefaultFilterChain(cfg),
		Tracker:            trk,
		AdvanceTimeout:     time.Duration(0),
		FrameOutputEnabled: true,
		PointOutputEnabled: true,
	})

	for _, name := range appendUnique(cfg.Output.Sinks, "socket") {
		if fs, err := frameSinkRegistry.New(name); err == nil {
			proc.AddFrameSink(fs)
		}
		if ps, err := pointSinkRegistry.New(name); err == nil {
			proc.AddPointSink(ps)
		}
	}

	return proc, cleanup, nil
}

func startControllers(cfg *config.Config, proc *processor.Processor) ([]control.Controller, error) {
	reg := registry.DefaultControllerRegistry(cfg)
	var active []control.Controller
	for _, name := range cfg.Controllers {
		c, err := reg.New(name)
		if err != nil {
			return active, fmt.Errorf("pointird: %w", err)
		}
		if err := c.Start(); err != nil {
			return active, fmt.Errorf("pointird: starting controller %q: %w", name, err)
		}
		if listener, ok := c.(processor.CalibrationListener); ok {
			proc.AddCalibrationListener(listener)
		}
		active = append(active, c)
	}
	return active, nil
}

func stopControllers(controllers []control.Controller) {
	for _, c := range controllers {
		if err := c.Stop(); err != nil {
			slog.Warn("pointird: stopping controller failed", "error", err)
		}
	}
}

func startHealthServer(port int, proc *processor.Processor) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", proc.LivenessHandler)
	mux.HandleFunc("/readiness", proc.ReadinessHandler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("pointird: health server failed", "error", err)
		}
	}()
	return server
}

// saveOnSuccess persists a successful calibration immediately, an
// enrichment over the original's D-Bus-triggered manual save (spec.md
// §9's original_source note): with no D-Bus control surface in scope,
// autosaving on success is the straightforward substitute.
type saveOnSuccess struct {
	store       *calibstore.Store
	unprojector *unprojector.CV
}

func (s saveOnSuccess) CalibrationBegin() {}
func (s saveOnSuccess) CalibrationEnd(success bool) {
	if !success {
		return
	}
	if err := s.store.Save(s.unprojector); err != nil {
		slog.Warn("pointird: saving calibration failed", "error", err)
	}
}
