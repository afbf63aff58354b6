package icon

import (
	"bytes"
	"encoding/binary"
)

// Format is the encoding of an RT_ICON payload
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatDIB
)

// String returns the string representation of the payload format
func (f Format) String() string {
	names := []string{"Unknown", "PNG", "DIB"}
	if int(f) < len(names) {
		return names[f]
	}
	return "Unknown"
}

// magicPNG is the leading part of the PNG signature. Icon payloads are
// detected on the first four bytes only.
var magicPNG = []byte{0x89, 0x50, 0x4E, 0x47}

// Header sizes of the DIB variants that can appear in icon resources
// (BITMAPCOREHEADER is not accepted).
const (
	sizeOfBitmapInfoHeader   = 40
	sizeOfBitmapV5Header     = 124
	sizeOfBitmapV4Header     = 108
	sizeOfBitmapV3InfoHeader = 56
)

// DetectFormat examines the payload's leading bytes. A payload is a DIB when
// it starts with a plausible BITMAPINFOHEADER size.
func DetectFormat(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	if bytes.HasPrefix(data, magicPNG) {
		return FormatPNG
	}
	switch binary.LittleEndian.Uint32(data) {
	case sizeOfBitmapInfoHeader, sizeOfBitmapV3InfoHeader, sizeOfBitmapV4Header, sizeOfBitmapV5Header:
		return FormatDIB
	}
	return FormatUnknown
}
