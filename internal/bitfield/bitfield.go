// Package bitfield extracts fixed-width integer fields from a byte buffer at
// arbitrary bit offsets.
//
// Fields are packed most-significant bit first. A read loads a 64-bit window
// starting at the byte that holds the first bit of the field, normalizes it to
// big-endian register order and shifts the field down into place.
package bitfield

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// MaxWidth is the widest field that can be extracted in a single read.
const MaxWidth = 32

var (
	// ErrOutOfBounds reports a field whose bits extend past the end of the buffer.
	ErrOutOfBounds = errors.New("bit field out of bounds")
	// ErrFieldWidth reports a field width larger than MaxWidth.
	ErrFieldWidth = errors.New("bit field width out of range")
)

// Window returns the 64 bits starting at the byte that contains bit offset,
// normalized so that the first stored byte sits in the most significant
// position. Bytes past the end of buf read as zero.
func Window(buf []byte, offset uint64) uint64 {
	var raw [8]byte
	start := offset / 8
	if start < uint64(len(buf)) {
		copy(raw[:], buf[start:])
	}
	// The stored layout is the byte reverse of a host little-endian load.
	return bits.ReverseBytes64(binary.LittleEndian.Uint64(raw[:]))
}

// Uint reads an unsigned field of length bits at offset.
// A zero-length field reads as 0.
func Uint(buf []byte, offset uint64, length uint) (uint32, error) {
	if length > MaxWidth {
		return 0, fmt.Errorf("%w: %d bits (max %d)", ErrFieldWidth, length, MaxWidth)
	}
	if length == 0 {
		return 0, nil
	}
	if end := offset + uint64(length); end > uint64(len(buf))*8 || end < offset {
		return 0, fmt.Errorf("%w: %d bits at bit %d, buffer holds %d bytes", ErrOutOfBounds, length, offset, len(buf))
	}

	mask := uint64(1)<<length - 1
	shift := 64 - uint64(length) - offset%8
	return uint32((Window(buf, offset) >> shift) & mask), nil
}

// Int reads a two's-complement signed field of length bits at offset and
// sign-extends it to 32 bits.
func Int(buf []byte, offset uint64, length uint) (int32, error) {
	v, err := Uint(buf, offset, length)
	if err != nil || length == 0 {
		return 0, err
	}
	return SignExtend(v, length), nil
}

// SignExtend interprets the low length bits of v as a two's-complement value.
func SignExtend(v uint32, length uint) int32 {
	if length == 0 || length >= MaxWidth {
		return int32(v)
	}
	mask := uint32(1)<<length - 1
	v &= mask
	if v>>(length-1) != 0 {
		v |= ^mask
	}
	return int32(v)
}
