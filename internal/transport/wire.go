package transport

import (
	"encoding/binary"
	"math"

	"github.com/zwostein/pointird/internal/types"
)

// EncodeFrame builds the frame-socket wire packet described in spec.md §6:
// {u32 width, u32 height, u8[width*height]}.
func EncodeFrame(f *types.Frame, buf []byte) []byte {
	size := 8 + len(f.Data)
	if cap(buf) < size {
		buf = make([]byte, size)
	} else {
		buf = buf[:size]
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Height))
	copy(buf[8:], f.Data)
	return buf
}

// EncodePoints builds the point-socket wire packet described in spec.md
// §6: {u32 count, Point{f32,f32}[count]}.
func EncodePoints(pa *types.PointArray, buf []byte) []byte {
	size := 4 + len(pa.Points)*8
	if cap(buf) < size {
		buf = make([]byte, size)
	} else {
		buf = buf[:size]
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(pa.Points)))
	for i, p := range pa.Points {
		off := 4 + i*8
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], math.Float32bits(p.Y))
	}
	return buf
}
