package processor

import (
	"testing"
	"time"

	"github.com/zwostein/pointird/internal/filter"
	"github.com/zwostein/pointird/internal/tracker"
	"github.com/zwostein/pointird/internal/types"
)

type fakeCapture struct {
	started    bool
	advanceOK  bool
	retrieveOK bool
	startErr   error
	stopCalls  int
	startCalls int
}

func (f *fakeCapture) Start() error {
	f.startCalls++
	f.started = true
	return f.startErr
}
func (f *fakeCapture) Advance(block bool, timeout time.Duration) bool { return f.advanceOK }
func (f *fakeCapture) Retrieve(into *types.Frame) bool {
	if !f.retrieveOK {
		return false
	}
	into.Resize(4, 4)
	return true
}
func (f *fakeCapture) Stop() error {
	f.stopCalls++
	f.started = false
	return nil
}
func (f *fakeCapture) IsCapturing() bool { return f.started }
func (f *fakeCapture) Name() string      { return "fake" }
func (f *fakeCapture) Width() int        { return 4 }
func (f *fakeCapture) Height() int       { return 4 }

type fakeDetector struct{}

func (fakeDetector) Detect(frame *types.Frame, out *types.PointArray) {
	out.Append(types.Point{X: 1, Y: 2})
}

type identityUnprojector struct {
	calibrateResult bool
	calibrateCalled bool
}

func (identityUnprojector) UnprojectFrame(*types.Frame)       {}
func (identityUnprojector) UnprojectPoint(*types.Point)       {}
func (identityUnprojector) UnprojectPoints(*types.PointArray) {}
func (identityUnprojector) Serialize() []byte                 { return nil }
func (identityUnprojector) Deserialize([]byte) bool           { return true }
func (u *identityUnprojector) GenerateCalibrationImage(*types.Frame, int, int) {}
func (u *identityUnprojector) Calibrate(*types.Frame) bool {
	u.calibrateCalled = true
	return u.calibrateResult
}

type recordingFrameSink struct{ calls int }

func (s *recordingFrameSink) EmitFrame(*types.Frame) { s.calls++ }

type recordingPointSink struct {
	calls  int
	lastPA int
}

func (s *recordingPointSink) EmitPoints(pa *types.PointArray) {
	s.calls++
	s.lastPA = pa.Len()
}

type recordingListener struct {
	begins int
	ends   int
	lastOK bool
}

func (l *recordingListener) CalibrationBegin() { l.begins++ }
func (l *recordingListener) CalibrationEnd(ok bool) {
	l.ends++
	l.lastOK = ok
}

func newTestProcessor(u *identityUnprojector) (*Processor, *fakeCapture) {
	cap := &fakeCapture{advanceOK: true, retrieveOK: true}
	p := New(Config{
		Capture:            cap,
		Detector:           fakeDetector{},
		Unprojector:        u,
		Filters:            filter.Chain{},
		Tracker:            tracker.NewSimple(),
		FrameOutputEnabled: true,
		PointOutputEnabled: true,
	})
	return p, cap
}

func TestStartTransitionsIdleToProcessing(t *testing.T) {
	p, cap := newTestProcessor(&identityUnprojector{})
	if p.State() != Idle {
		t.Fatal("expected initial state Idle")
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if p.State() != Processing {
		t.Fatalf("expected Processing, got %v", p.State())
	}
	if cap.startCalls != 1 {
		t.Fatalf("expected capture.Start called once, got %d", cap.startCalls)
	}
}

func TestStopReturnsToIdle(t *testing.T) {
	p, cap := newTestProcessor(&identityUnprojector{})
	p.Start()
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if p.State() != Idle {
		t.Fatalf("expected Idle, got %v", p.State())
	}
	if cap.stopCalls != 1 {
		t.Fatalf("expected capture.Stop called once, got %d", cap.stopCalls)
	}
}

func TestTickProcessingEmitsFrameAndPoints(t *testing.T) {
	p, _ := newTestProcessor(&identityUnprojector{})
	frameSink := &recordingFrameSink{}
	pointSink := &recordingPointSink{}
	p.AddFrameSink(frameSink)
	p.AddPointSink(pointSink)
	p.Start()

	p.Tick()

	if frameSink.calls != 1 {
		t.Fatalf("expected 1 frame emitted, got %d", frameSink.calls)
	}
	if pointSink.calls != 1 {
		t.Fatalf("expected 1 point emission, got %d", pointSink.calls)
	}
	if pointSink.lastPA != 1 {
		t.Fatalf("expected 1 detected point, got %d", pointSink.lastPA)
	}
}

func TestTickSkippedOnAdvanceFailure(t *testing.T) {
	p, _ := newTestProcessor(&identityUnprojector{})
	pointSink := &recordingPointSink{}
	p.AddPointSink(pointSink)
	p.Start()
	p.capture.(*fakeCapture).advanceOK = false

	p.Tick()

	if pointSink.calls != 0 {
		t.Fatalf("expected no point emission when advance fails, got %d", pointSink.calls)
	}
	if p.State() != Processing {
		t.Fatalf("expected state to remain Processing after a skipped tick, got %v", p.State())
	}
}

// TestCalibrationStateMachine covers spec.md §8's scenario S7 and
// invariant 10: start -> start_calibration -> one tick -> calibration_end,
// with exactly one begin and one end event and calibration_succeeded
// reflecting the last result.
func TestCalibrationStateMachine(t *testing.T) {
	u := &identityUnprojector{calibrateResult: true}
	p, _ := newTestProcessor(u)
	listener := &recordingListener{}
	p.AddCalibrationListener(listener)

	p.Start()
	if err := p.StartCalibration(); err != nil {
		t.Fatal(err)
	}
	if p.State() != Calibrating {
		t.Fatalf("expected Calibrating, got %v", p.State())
	}
	if listener.begins != 1 {
		t.Fatalf("expected exactly one begin event, got %d", listener.begins)
	}

	p.Tick()

	if p.State() != Processing {
		t.Fatalf("expected Processing after calibration tick, got %v", p.State())
	}
	if listener.ends != 1 {
		t.Fatalf("expected exactly one end event, got %d", listener.ends)
	}
	if !listener.lastOK || !p.CalibrationSucceeded() {
		t.Fatal("expected calibration_succeeded to reflect a successful result")
	}
	if !u.calibrateCalled {
		t.Fatal("expected Calibrate to have been invoked")
	}
}

func TestCalibrationFailureKeepsHomographyDecisionToCaller(t *testing.T) {
	u := &identityUnprojector{calibrateResult: false}
	p, _ := newTestProcessor(u)
	listener := &recordingListener{}
	p.AddCalibrationListener(listener)

	p.Start()
	p.StartCalibration()
	p.Tick()

	if listener.lastOK {
		t.Fatal("expected calibration_end to report failure")
	}
	if p.State() != Processing {
		t.Fatalf("expected Processing even after a failed calibration, got %v", p.State())
	}
}

func TestStopDuringCalibrationEndsWithFailure(t *testing.T) {
	u := &identityUnprojector{calibrateResult: true}
	p, _ := newTestProcessor(u)
	listener := &recordingListener{}
	p.AddCalibrationListener(listener)

	p.Start()
	p.StartCalibration()
	p.Stop()

	if listener.ends != 1 || listener.lastOK {
		t.Fatalf("expected Stop to end the in-flight calibration with failure, got ends=%d ok=%v", listener.ends, listener.lastOK)
	}
	if p.State() != Idle {
		t.Fatalf("expected Idle, got %v", p.State())
	}
}

func TestReadinessHandlerReflectsState(t *testing.T) {
	p, _ := newTestProcessor(&identityUnprojector{})
	if status := p.healthStatus(); status.Status != "unhealthy" {
		t.Fatalf("expected unhealthy while Idle, got %q", status.Status)
	}
	p.Start()
	if status := p.healthStatus(); status.Status != "healthy" {
		t.Fatalf("expected healthy while Processing, got %q", status.Status)
	}
	p.StartCalibration()
	if status := p.healthStatus(); status.Status != "degraded" {
		t.Fatalf("expected degraded while Calibrating, got %q", status.Status)
	}
}
