package pe

import (
	"encoding/binary"
	"fmt"
)

// Buffer is a bounds-checked view over raw little-endian data.
// Every accessor validates offset+size against the buffer length.
type Buffer []byte

// Len returns the number of bytes in the buffer
func (b Buffer) Len() int {
	return len(b)
}

// Has reports whether n bytes starting at off are inside the buffer
func (b Buffer) Has(off, n int) bool {
	return off >= 0 && n >= 0 && off <= len(b) && n <= len(b)-off
}

// Uint16 reads an unaligned little-endian uint16 at off
func (b Buffer) Uint16(off int) (uint16, error) {
	if !b.Has(off, 2) {
		return 0, outOfBounds(off, 2, len(b))
	}
	return binary.LittleEndian.Uint16(b[off:]), nil
}

// Uint32 reads an unaligned little-endian uint32 at off
func (b Buffer) Uint32(off int) (uint32, error) {
	if !b.Has(off, 4) {
		return 0, outOfBounds(off, 4, len(b))
	}
	return binary.LittleEndian.Uint32(b[off:]), nil
}

// Slice returns the n bytes starting at off without copying
func (b Buffer) Slice(off, n int) ([]byte, error) {
	if !b.Has(off, n) {
		return nil, outOfBounds(off, n, len(b))
	}
	return b[off : off+n : off+n], nil
}

func outOfBounds(off, n, size int) error {
	return fmt.Errorf("%w: read of %d bytes at 0x%X exceeds buffer of %d bytes", ErrMalformed, n, off, size)
}
