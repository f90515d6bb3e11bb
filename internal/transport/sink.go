package transport

import "github.com/zwostein/pointird/internal/types"

// FrameSink adapts a Server to the Processor's frame-sink capability
// (spec.md §3's frame_subscribers): encode-then-send, reusing the
// encoding buffer across ticks the same way types.Frame reuses its own.
type FrameSink struct {
	server *Server
	buf    []byte
}

// NewFrameSink wraps server as a frame sink.
func NewFrameSink(server *Server) *FrameSink {
	return &FrameSink{server: server}
}

// EmitFrame encodes f per spec.md §6 and sends it to every subscriber.
func (s *FrameSink) EmitFrame(f *types.Frame) {
	s.buf = EncodeFrame(f, s.buf)
	s.server.Send(s.buf)
}

// PointSink adapts a Server to the Processor's point-sink capability
// (spec.md §3's point_subscribers).
type PointSink struct {
	server *Server
	buf    []byte
}

// NewPointSink wraps server as a point sink.
func NewPointSink(server *Server) *PointSink {
	return &PointSink{server: server}
}

// EmitPoints encodes pa per spec.md §6 and sends it to every subscriber.
// IDs are not part of the wire format (spec.md §4.6) so a Tracker's
// per-point identifiers never reach this socket.
func (s *PointSink) EmitPoints(pa *types.PointArray) {
	s.buf = EncodePoints(pa, s.buf)
	s.server.Send(s.buf)
}
