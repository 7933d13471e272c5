// Package endian provides the byte-order engine used by patpack's binary
// framings.
//
// Every fixed-size header in patpack (the artifact envelope, the periodic
// stream, the hybrid match record, FEC envelopes) is little-endian on the
// wire regardless of the host. The engine combines binary.ByteOrder and
// binary.AppendByteOrder so writers can append fields without scratch
// buffers:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint32(buf, count)
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness reports the host's native byte order.
func CheckEndianness() binary.ByteOrder {
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// GetLittleEndianEngine returns the wire byte order of all patpack framings.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// PutUint16At writes v at buf[off:off+2] and returns the next offset.
func PutUint16At(engine EndianEngine, buf []byte, off int, v uint16) int {
	engine.PutUint16(buf[off:off+2], v)
	return off + 2
}

// PutUint32At writes v at buf[off:off+4] and returns the next offset.
func PutUint32At(engine EndianEngine, buf []byte, off int, v uint32) int {
	engine.PutUint32(buf[off:off+4], v)
	return off + 4
}

// PutUint64At writes v at buf[off:off+8] and returns the next offset.
func PutUint64At(engine EndianEngine, buf []byte, off int, v uint64) int {
	engine.PutUint64(buf[off:off+8], v)
	return off + 8
}
