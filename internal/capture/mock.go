package capture

import (
	"time"

	"github.com/zwostein/pointird/internal/types"
)

// MockProvider is a synthetic frame source: a dark frame with a bright
// square that drifts one pixel per advance, used by tests and by the
// "mock" registry entry. Grounded on the generated-frame shape of
// _examples/e7canasta-orion-care-sensor/.../internal/stream/mock.go,
// adapted to the synchronous Start/Advance/Retrieve/Stop contract spec.md
// §4.1 requires instead of that file's channel-push model.
type MockProvider struct {
	width, height int
	capturing     bool
	tick          int
}

// NewMockProvider returns a MockProvider for the given resolution.
func NewMockProvider(width, height int) *MockProvider {
	return &MockProvider{width: width, height: height}
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) Start() error {
	m.capturing = true
	return nil
}

func (m *MockProvider) Advance(block bool, timeout time.Duration) bool {
	if !m.capturing {
		return false
	}
	m.tick++
	return true
}

func (m *MockProvider) Retrieve(into *types.Frame) bool {
	if !m.capturing {
		return false
	}
	into.Resize(m.width, m.height)
	for i := range into.Data {
		into.Data[i] = 0x10
	}
	squareSize := m.width / 8
	if squareSize < 1 {
		squareSize = 1
	}
	x0 := m.tick % (m.width - squareSize + 1)
	y0 := m.height / 2
	for y := y0; y < y0+squareSize && y < m.height; y++ {
		for x := x0; x < x0+squareSize && x < m.width; x++ {
			into.Data[y*m.width+x] = 0xff
		}
	}
	return true
}

func (m *MockProvider) Stop() error {
	m.capturing = false
	return nil
}

func (m *MockProvider) IsCapturing() bool { return m.capturing }
func (m *MockProvider) Name() string      { return "mock" }
func (m *MockProvider) Width() int        { return m.width }
func (m *MockProvider) Height() int       { return m.height }
