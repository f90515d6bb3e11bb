package transport

import (
	"encoding/binary"
	"math"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zwostein/pointird/internal/types"
)

func TestEncodeFrame(t *testing.T) {
	f := &types.Frame{Width: 2, Height: 1, Data: []byte{0x10, 0x20}}
	buf := EncodeFrame(f, nil)
	if len(buf) != 10 {
		t.Fatalf("expected 10-byte packet, got %d", len(buf))
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != 2 || binary.LittleEndian.Uint32(buf[4:8]) != 1 {
		t.Fatalf("unexpected header: %v", buf[:8])
	}
	if buf[8] != 0x10 || buf[9] != 0x20 {
		t.Fatalf("unexpected payload: %v", buf[8:])
	}
}

func TestEncodePoints(t *testing.T) {
	pa := &types.PointArray{}
	pa.Append(types.Point{X: 0.5, Y: -0.25})
	buf := EncodePoints(pa, nil)
	if len(buf) != 12 {
		t.Fatalf("expected 12-byte packet, got %d", len(buf))
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != 1 {
		t.Fatalf("unexpected count header")
	}
	x := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))
	if x != 0.5 || y != -0.25 {
		t.Fatalf("unexpected point: %v, %v", x, y)
	}
}

func TestServerDeliversPacketToSubscriber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.socket")
	srv, err := NewServer(path)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	addr, err := net.ResolveUnixAddr("unixpacket", path)
	if err != nil {
		t.Fatal(err)
	}
	client, err := net.DialUnix("unixpacket", nil, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	// give the server a moment to be ready to accept; acceptPending is
	// non-blocking so the dial above may race it.
	var sent bool
	for i := 0; i < 50; i++ {
		srv.Send([]byte{1, 2, 3})
		sent = true
		if len(srv.remotes) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !sent {
		t.Fatal("never sent")
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("expected to read a packet: %v", err)
	}
	if n != 3 || buf[0] != 1 || buf[1] != 2 || buf[2] != 3 {
		t.Fatalf("unexpected packet: %v", buf[:n])
	}
}

func TestServerRemovesClosedSubscriber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.socket")
	srv, err := NewServer(path)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	addr, _ := net.ResolveUnixAddr("unixpacket", path)
	client, err := net.DialUnix("unixpacket", nil, addr)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 50; i++ {
		srv.Send([]byte{1})
		if len(srv.remotes) > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	client.Close()

	// the next several sends should eventually notice the close and drop
	// the subscriber.
	for i := 0; i < 50; i++ {
		srv.Send([]byte{1})
		if len(srv.remotes) == 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("expected closed subscriber to be removed")
}

func TestNewServerRemovesStaleSocketFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.socket")
	srv1, err := NewServer(path)
	if err != nil {
		t.Fatal(err)
	}
	// simulate a stale file left behind by an unclean shutdown: close the
	// listener without unlinking, then try to start a fresh server.
	srv1.listener.Close()
	if _, err := os.Stat(path); err != nil {
		t.Skip("platform did not leave a socket file behind on close")
	}
	srv2, err := NewServer(path)
	if err != nil {
		t.Fatalf("expected NewServer to clean up the stale socket, got %v", err)
	}
	srv2.Close()
}
