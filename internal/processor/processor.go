// Package processor implements spec.md §4.7: the Processor orchestrator
// and its calibration state machine, directly modeled on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// internal/core/orion.go — a single-threaded Tick driven from
// cmd/pointird's loop, log/slog at every
// state transition, and an RWMutex-guarded state struct rather than raw
// booleans, since the health endpoint and any CLI/hook controller read
// Processor state from outside the tick loop.
package processor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zwostein/pointird/internal/capture"
	"github.com/zwostein/pointird/internal/detector"
	"github.com/zwostein/pointird/internal/filter"
	"github.com/zwostein/pointird/internal/tracker"
	"github.com/zwostein/pointird/internal/types"
	"github.com/zwostein/pointird/internal/unprojector"
)

// State is one of the three states of spec.md §4.7's calibration state
// machine.
type State int

const (
	Idle State = iota
	Processing
	Calibrating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Calibrating:
		return "calibrating"
	default:
		return "unknown"
	}
}

// FrameSink receives one Frame per tick when frame output is enabled. It
// must not retain the pointer beyond the call (spec.md §3, invariant ii).
type FrameSink interface {
	EmitFrame(f *types.Frame)
}

// PointSink receives one PointArray per tick when point output is
// enabled, after unprojection, filtering, and tracking. It must not
// retain the pointer beyond the call.
type PointSink interface {
	EmitPoints(pa *types.PointArray)
}

// TrackingPointSink is an optional capability a PointSink may also
// implement to additionally receive the tracker's per-point IDs
// (parallel to pa.Points by index). The local socket transports do not
// implement it — the wire format has no ID field (spec.md §4.6) — but a
// remote dashboard sink can use stable IDs to draw persistent contacts.
type TrackingPointSink interface {
	EmitTrackedPoints(pa *types.PointArray, ids []int)
}

// CalibrationListener is notified around a calibration attempt (spec.md
// §4.7's calibration_begin/calibration_end events).
type CalibrationListener interface {
	CalibrationBegin()
	CalibrationEnd(success bool)
}

// Config holds everything the Processor needs at construction. Unprojector
// may additionally implement unprojector.AutoCalibrator; if it does not,
// StartCalibration logs a warning, returns nil and leaves the state
// unchanged.
type Config struct {
	Capture     capture.Provider
	Detector    detector.Detector
	Unprojector unprojector.Unprojector
	Filters     filter.Chain
	Tracker     tracker.Tracker // nil disables tracking

	// AdvanceTimeout bounds each tick's capture.Advance call. Zero means
	// block indefinitely, matching spec.md §4.1's timeout_s <= 0 rule.
	AdvanceTimeout time.Duration

	FrameOutputEnabled bool
	PointOutputEnabled bool
}

// Processor is the per-tick orchestrator described in spec.md §4.7. All
// pipeline state is owned here and mutated only from Tick; the mutex only
// protects the small set of fields the health endpoint and controllers
// read from other goroutines (spec.md §5, "Shared resources").
type Processor struct {
	capture     capture.Provider
	detector    detector.Detector
	unprojector unprojector.Unprojector
	autoCalib   unprojector.AutoCalibrator // nil if Unprojector doesn't support it
	filters     filter.Chain
	tracker     tracker.Tracker
	advanceTimeout time.Duration

	mu                 sync.RWMutex
	state              State
	frameOutputEnabled bool
	pointOutputEnabled bool
	calibrationSucceeded bool
	startedAt          time.Time

	frameSinks     []FrameSink
	pointSinks     []PointSink
	calibListeners []CalibrationListener

	frame          types.Frame
	detected       types.PointArray
	previousPoints types.PointArray
	previousIDs    []int
}

// New constructs a Processor in the Idle state.
func New(cfg Config) *Processor {
	auto, _ := cfg.Unprojector.(unprojector.AutoCalibrator)
	return &Processor{
		capture:            cfg.Capture,
		detector:           cfg.Detector,
		unprojector:        cfg.Unprojector,
		autoCalib:          auto,
		filters:            cfg.Filters,
		tracker:            cfg.Tracker,
		advanceTimeout:     cfg.AdvanceTimeout,
		frameOutputEnabled: cfg.FrameOutputEnabled,
		pointOutputEnabled: cfg.PointOutputEnabled,
	}
}

// AddFrameSink registers a frame subscriber. Not safe to call
// concurrently with Tick.
func (p *Processor) AddFrameSink(s FrameSink) { p.frameSinks = append(p.frameSinks, s) }

// AddPointSink registers a point subscriber. Not safe to call
// concurrently with Tick.
func (p *Processor) AddPointSink(s PointSink) { p.pointSinks = append(p.pointSinks, s) }

// AddCalibrationListener registers a listener for calibration
// begin/end events. Not safe to call concurrently with Tick.
func (p *Processor) AddCalibrationListener(l CalibrationListener) {
	p.calibListeners = append(p.calibListeners, l)
}

// State returns the current state.
func (p *Processor) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// CalibrationSucceeded reports the result of the most recently completed
// calibration attempt.
func (p *Processor) CalibrationSucceeded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calibrationSucceeded
}

// SetFrameOutputEnabled toggles whether frames are fanned out each tick.
func (p *Processor) SetFrameOutputEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frameOutputEnabled = enabled
}

// SetPointOutputEnabled toggles whether points are fanned out each tick.
func (p *Processor) SetPointOutputEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pointOutputEnabled = enabled
}

func (p *Processor) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Start transitions Idle -> Processing and starts the capture source.
// Idempotent if already Processing or Calibrating.
func (p *Processor) Start() error {
	if p.State() != Idle {
		return nil
	}
	if err := p.capture.Start(); err != nil {
		return err
	}
	p.mu.Lock()
	p.startedAt = time.Now()
	p.mu.Unlock()
	p.setState(Processing)
	slog.Info("processor: started", "capture", p.capture.Name())
	return nil
}

// Stop transitions Processing|Calibrating -> Idle, stops the capture
// source, and ends any in-flight calibration with failure.
func (p *Processor) Stop() error {
	state := p.State()
	if state == Idle {
		return nil
	}
	if state == Calibrating {
		p.endCalibration(false)
	}
	err := p.capture.Stop()
	p.setState(Idle)
	slog.Info("processor: stopped")
	return err
}

// StartCalibration transitions Processing -> Calibrating, fires
// calibration_begin, and flushes the capture source of buffered
// pre-calibration frames (spec.md §9.5).
func (p *Processor) StartCalibration() error {
	if p.State() != Processing {
		return nil
	}
	if p.autoCalib == nil {
		slog.Warn("processor: calibration requested but unprojector does not support it")
		return nil
	}
	p.setState(Calibrating)
	for _, l := range p.calibListeners {
		l.CalibrationBegin()
	}
	slog.Info("processor: calibration begin")
	return p.flushCapture()
}

// flushCapture stops then restarts the capture source to drop any frames
// buffered before the caller's intent (spec.md §9.5).
func (p *Processor) flushCapture() error {
	if err := p.capture.Stop(); err != nil {
		slog.Warn("processor: flush stop failed", "error", err)
	}
	return p.capture.Start()
}

func (p *Processor) endCalibration(success bool) {
	p.mu.Lock()
	p.calibrationSucceeded = success
	p.mu.Unlock()
	for _, l := range p.calibListeners {
		l.CalibrationEnd(success)
	}
	slog.Info("processor: calibration end", "success", success)
}

// Tick runs one iteration of the loop appropriate to the current state.
// It is a no-op in Idle.
func (p *Processor) Tick() {
	switch p.State() {
	case Processing:
		p.tickProcessing()
	case Calibrating:
		p.tickCalibrating()
	}
}

func (p *Processor) advanceAndRetrieve() bool {
	if !p.capture.Advance(true, p.advanceTimeout) {
		slog.Warn("processor: capture advance timed out or ended")
		return false
	}
	if !p.capture.Retrieve(&p.frame) {
		slog.Warn("processor: capture retrieve failed")
		return false
	}
	return true
}

func (p *Processor) emitFrame() {
	p.mu.RLock()
	enabled := p.frameOutputEnabled
	p.mu.RUnlock()
	if !enabled {
		return
	}
	for _, s := range p.frameSinks {
		s.EmitFrame(&p.frame)
	}
}

func (p *Processor) tickProcessing() {
	if !p.advanceAndRetrieve() {
		return
	}
	p.emitFrame()

	p.detected.Reset()
	p.detector.Detect(&p.frame, &p.detected)
	p.unprojector.UnprojectPoints(&p.detected)
	p.filters.Apply(&p.detected)

	var currentIDs []int
	if p.tracker != nil {
		currentIDs, _, _ = p.tracker.AssignIDs(&p.previousPoints, p.previousIDs, &p.detected)
		p.previousPoints.Reset()
		for _, pt := range p.detected.Points {
			p.previousPoints.Append(pt)
		}
		p.previousIDs = currentIDs
	}

	p.mu.RLock()
	enabled := p.pointOutputEnabled
	p.mu.RUnlock()
	if !enabled {
		return
	}
	for _, s := range p.pointSinks {
		if ts, ok := s.(TrackingPointSink); ok && currentIDs != nil {
			ts.EmitTrackedPoints(&p.detected, currentIDs)
			continue
		}
		s.EmitPoints(&p.detected)
	}
}

func (p *Processor) tickCalibrating() {
	if !p.advanceAndRetrieve() {
		return
	}
	p.emitFrame()

	success := p.autoCalib.Calibrate(&p.frame)
	p.setState(Processing)
	p.endCalibration(success)
	if err := p.flushCapture(); err != nil {
		slog.Warn("processor: post-calibration flush failed", "error", err)
	}
}
