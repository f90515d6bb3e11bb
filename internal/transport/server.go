// Package transport implements spec.md §6's local stream servers: a
// listening SOCK_SEQPACKET Unix socket that fans out one wire packet per
// tick to every connected subscriber, accepting new connections
// opportunistically, skipping packets for subscribers that fall behind and
// dropping ones that disconnect.
//
// Grounded on original_source/src/pointird/PointOutput/UnixDomainSocket.cpp
// (the FrameOutput variant is byte-identical in shape).
package transport

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// subscriber is one accepted connection, tagged with a trace ID for log
// correlation across its accept/send/drop lifecycle — the same TraceID
// pattern the teacher's stream emitters stamp onto every event.
type subscriber struct {
	conn    *net.UnixConn
	traceID string
}

// Server owns a listening unixpacket socket and the set of currently
// connected subscribers. It is not safe for concurrent use — the Processor
// calls Send from its single tick loop.
type Server struct {
	path     string
	listener *net.UnixListener
	remotes  []subscriber
	sendBuf  int
}

// NewServer removes any stale socket file at path and starts listening.
func NewServer(path string) (*Server, error) {
	if err := unlinkSocket(path); err != nil {
		return nil, err
	}
	addr, err := net.ResolveUnixAddr("unixpacket", path)
	if err != nil {
		return nil, err
	}
	listener, err := net.ListenUnix("unixpacket", addr)
	if err != nil {
		return nil, err
	}
	return &Server{path: path, listener: listener}, nil
}

// Path returns the filesystem path of the listening socket.
func (s *Server) Path() string {
	return s.path
}

func unlinkSocket(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return errors.New("transport: \"" + path + "\" exists and is not a socket")
	}
	return os.Remove(path)
}

// acceptPending accepts every connection waiting in the backlog, matching
// the original's EAGAIN/EWOULDBLOCK accept loop. Each accept carries a
// 1 ms deadline: a pending connection is accepted at once, and an empty
// backlog ends the loop after at most 1 ms.
func (s *Server) acceptPending() {
	for {
		if err := s.listener.SetDeadline(time.Now().Add(time.Millisecond)); err != nil {
			slog.Warn("transport: set accept deadline failed", "path", s.path, "error", err)
			return
		}
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return
			}
			slog.Warn("transport: accept failed", "path", s.path, "error", err)
			return
		}
		if err := setSendBuffer(conn, s.sendBuf); err != nil {
			slog.Warn("transport: setting send buffer on new subscriber failed", "path", s.path, "error", err)
		}
		traceID := uuid.New().String()
		slog.Info("transport: subscriber connected", "path", s.path, "trace_id", traceID)
		s.remotes = append(s.remotes, subscriber{conn: conn, traceID: traceID})
	}
}

// Send resizes every subscriber's send buffer to fit packet (if it grew
// since the last send) and writes it to each one, removing subscribers
// that disconnected or failed in the same pass. A subscriber whose socket
// buffer stays full for the 1 ms write deadline keeps its place and
// misses this packet.
func (s *Server) Send(packet []byte) {
	s.acceptPending()

	if len(packet) > s.sendBuf {
		s.sendBuf = len(packet)
		for _, remote := range s.remotes {
			if err := setSendBuffer(remote.conn, s.sendBuf); err != nil {
				slog.Warn("transport: resizing send buffer failed", "path", s.path, "trace_id", remote.traceID, "error", err)
			}
		}
	}

	kept := s.remotes[:0]
	for _, remote := range s.remotes {
		remote.conn.SetWriteDeadline(time.Now().Add(time.Millisecond))
		n, err := remote.conn.Write(packet)
		switch {
		case err == nil && n == len(packet):
			kept = append(kept, remote)
		case err == nil:
			// incomplete transfer — not handled, drop the subscriber to
			// be safe, matching the original.
			slog.Warn("transport: incomplete transfer, dropping subscriber", "path", s.path, "trace_id", remote.traceID, "sent", n, "want", len(packet))
			remote.conn.Close()
		case isBrokenConn(err):
			slog.Info("transport: subscriber disconnected", "path", s.path, "trace_id", remote.traceID)
			remote.conn.Close()
		case isWouldBlock(err) || errors.Is(err, os.ErrDeadlineExceeded):
			slog.Warn("transport: subscriber too slow, skipping this packet", "path", s.path, "trace_id", remote.traceID)
			kept = append(kept, remote)
		default:
			slog.Warn("transport: send failed, dropping subscriber", "path", s.path, "trace_id", remote.traceID, "error", err)
			remote.conn.Close()
		}
	}
	s.remotes = kept
}

// Close closes every subscriber connection, the listener, and unlinks the
// socket file.
func (s *Server) Close() error {
	for _, remote := range s.remotes {
		remote.conn.Close()
	}
	s.remotes = nil
	err := s.listener.Close()
	if unlinkErr := unlinkSocket(s.path); unlinkErr != nil && err == nil {
		err = unlinkErr
	}
	return err
}

func isBrokenConn(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// setSendBuffer resizes a unixpacket connection's SO_SNDBUF, matching the
// original's setsockopt call — not strictly necessary for SOCK_SEQPACKET
// per the original's own comment, but carried over since it costs nothing
// and keeps large point/frame packets from being rejected outright by a
// small default buffer.
func setSendBuffer(conn *net.UnixConn, size int) error {
	if size <= 0 {
		return nil
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, size)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
