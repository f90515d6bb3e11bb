package capture

import (
	"bytes"
	"io"
	"testing"

	"github.com/zwostein/pointird/internal/types"
)

func TestMockProviderProducesFrameOfExpectedSize(t *testing.T) {
	p := NewMockProvider(32, 16)
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if !p.Advance(true, 0) {
		t.Fatal("expected advance to succeed while capturing")
	}
	var f types.Frame
	if !p.Retrieve(&f) {
		t.Fatal("expected retrieve to succeed")
	}
	if f.Width != 32 || f.Height != 16 || len(f.Data) != 32*16 {
		t.Fatalf("unexpected frame shape: %dx%d len=%d", f.Width, f.Height, len(f.Data))
	}
}

func TestMockProviderStopsCapturing(t *testing.T) {
	p := NewMockProvider(8, 8)
	p.Start()
	p.Stop()
	if p.IsCapturing() {
		t.Fatal("expected IsCapturing to be false after Stop")
	}
	var f types.Frame
	if p.Advance(true, 0) || p.Retrieve(&f) {
		t.Fatal("expected advance/retrieve to fail once stopped")
	}
}

type readCloser struct {
	io.Reader
}

func (readCloser) Close() error { return nil }

func closerOf(r io.Reader) io.ReadCloser {
	return readCloser{r}
}

func TestYUYVProviderExtractsLuma(t *testing.T) {
	width, height := 2, 1
	// one YUYV pixel pair (Y0 U0 Y1 V0), i.e. two pixels, with no extra
	// padding.
	frame := []byte{0x11, 0x80, 0x22, 0x80}
	src := closerOf(bytes.NewReader(frame))
	p := NewYUYVProvider(src, width, height, width*2)
	p.Start()
	if !p.Advance(true, 0) {
		t.Fatal("expected advance to read the frame")
	}
	var f types.Frame
	if !p.Retrieve(&f) {
		t.Fatal("expected retrieve to succeed")
	}
	if f.Data[0] != 0x11 || f.Data[1] != 0x22 {
		t.Fatalf("unexpected luma bytes: %v", f.Data)
	}
}

func TestYUYVProviderHonorsStride(t *testing.T) {
	width, height := 2, 2
	bytesPerLine := width*2 + 4 // 4 padding bytes per row
	row0 := []byte{0x01, 0x80, 0x02, 0x80, 0xAA, 0xAA, 0xAA, 0xAA}
	row1 := []byte{0x03, 0x80, 0x04, 0x80, 0xAA, 0xAA, 0xAA, 0xAA}
	frame := append(append([]byte{}, row0...), row1...)
	src := closerOf(bytes.NewReader(frame))
	p := NewYUYVProvider(src, width, height, bytesPerLine)
	p.Start()
	if !p.Advance(true, 0) {
		t.Fatal("expected advance to read the frame")
	}
	var f types.Frame
	if !p.Retrieve(&f) {
		t.Fatal("expected retrieve to succeed")
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	for i, w := range want {
		if f.Data[i] != w {
			t.Fatalf("byte %d: got %#x want %#x (%v)", i, f.Data[i], w, f.Data)
		}
	}
}

func TestSelectDiscreteIntervalPicksClosest(t *testing.T) {
	intervals := []FrameInterval{{1, 15}, {1, 30}, {1, 60}}
	got := SelectDiscreteInterval(30, intervals)
	if got != (FrameInterval{1, 30}) {
		t.Fatalf("expected 1/30, got %v", got)
	}
}

func TestSelectContinuousIntervalClampsToRange(t *testing.T) {
	r := ContinuousRange{Min: FrameInterval{1, 60}, Max: FrameInterval{1, 5}}
	got := SelectContinuousInterval(1000, r, 1000) // way faster than range supports
	if got != r.Min {
		t.Fatalf("expected clamp to min, got %v", got)
	}
}

func TestRationalApproximationRecoversExactFraction(t *testing.T) {
	num, den := rationalApproximation(1.0/30.0, 1000)
	if num != 1 || den != 30 {
		t.Fatalf("expected exactly 1/30, got %d/%d", num, den)
	}
}
