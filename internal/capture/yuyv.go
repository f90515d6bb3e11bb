package capture

import (
	"io"
	"time"

	"github.com/zwostein/pointird/internal/types"
)

// YUYVProvider reads raw YUYV frames from src, one frame per Advance, and
// extracts only the luma bytes on Retrieve — the camera/device ioctl
// plumbing itself (V4L2 buffer queueing, format negotiation) is the
// out-of-scope "camera driver" collaborator; this type only owns the
// byte-stream-to-greyscale-Frame conversion described in spec.md §4.1.
type YUYVProvider struct {
	src    io.ReadCloser
	width  int
	height int
	// BytesPerLine is the stride of one row in the source stream,
	// honoring any row padding beyond width*2 YUYV bytes.
	bytesPerLine int

	capturing bool
	buf       []byte
	ready     bool
}

// NewYUYVProvider wraps src, a raw YUYV byte stream of frames at
// width x height, each row bytesPerLine bytes wide (>= width*2).
func NewYUYVProvider(src io.ReadCloser, width, height, bytesPerLine int) *YUYVProvider {
	if bytesPerLine < width*2 {
		bytesPerLine = width * 2
	}
	return &YUYVProvider{src: src, width: width, height: height, bytesPerLine: bytesPerLine}
}

var _ Provider = (*YUYVProvider)(nil)

func (y *YUYVProvider) Start() error {
	y.capturing = true
	y.buf = make([]byte, y.bytesPerLine*y.height)
	return nil
}

// Advance reads one full frame into the internal buffer. block and
// timeout are accepted for interface compatibility; the underlying reader
// is expected to block on its own until a frame is available.
func (y *YUYVProvider) Advance(block bool, timeout time.Duration) bool {
	if !y.capturing {
		return false
	}
	_, err := io.ReadFull(y.src, y.buf)
	y.ready = err == nil
	return y.ready
}

// Retrieve copies the luma byte of every pixel (both Y bytes of each
// YUYV pixel pair) into into, honoring bytesPerLine's end-of-row padding.
func (y *YUYVProvider) Retrieve(into *types.Frame) bool {
	if !y.capturing || !y.ready {
		return false
	}
	into.Resize(y.width, y.height)
	for row := 0; row < y.height; row++ {
		src := y.buf[row*y.bytesPerLine : row*y.bytesPerLine+y.width*2]
		dst := into.Data[row*y.width : (row+1)*y.width]
		for col := 0; col < y.width; col++ {
			dst[col] = src[col*2]
		}
	}
	return true
}

func (y *YUYVProvider) Stop() error {
	y.capturing = false
	return y.src.Close()
}

func (y *YUYVProvider) IsCapturing() bool { return y.capturing }
func (y *YUYVProvider) Name() string      { return "yuyv" }
func (y *YUYVProvider) Width() int        { return y.width }
func (y *YUYVProvider) Height() int       { return y.height }
