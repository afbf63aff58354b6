package icns

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned when compressed data or an archive cannot be parsed
var ErrCorrupt = errors.New("corrupt icns data")

const (
	minRun     = 3
	maxRun     = 130
	maxLiteral = 128

	// Offset of R in a canonical [0, R, G, B] pixel
	firstChannel = 1
	pixelStride  = 4
)

// CompressChannel run-length encodes n bytes read from src at offset,
// offset+stride, offset+2*stride, ... and appends the result to dst.
//
// Runs of 3 to 130 equal bytes become a header byte of 125+length followed
// by the value. Everything else is emitted as literals of up to 128 bytes,
// a header byte of length-1 followed by the bytes.
func CompressChannel(dst, src []byte, offset, stride, n int) []byte {
	at := func(i int) byte { return src[offset+i*stride] }

	var literal []byte
	flush := func() {
		if len(literal) > 0 {
			dst = append(dst, byte(len(literal)-1))
			dst = append(dst, literal...)
			literal = literal[:0]
		}
	}

	for i := 0; i < n; {
		run := 1
		for i+run < n && run < maxRun && at(i+run) == at(i) {
			run++
		}
		if run >= minRun {
			flush()
			dst = append(dst, byte(run+maxLiteral-minRun), at(i))
			i += run
			continue
		}

		literal = append(literal, at(i))
		if len(literal) == maxLiteral {
			flush()
		}
		i++
	}
	flush()
	return dst
}

// CompressImage encodes the R, G and B planes of a canonical pixel buffer
// one after another, behind the zero pad required by tag.
func CompressImage(tag OSType, rgb []byte) []byte {
	n := len(rgb) / pixelStride
	out := make([]byte, PadSize(tag), PadSize(tag)+n*3)
	for c := 0; c < 3; c++ {
		out = CompressChannel(out, rgb, firstChannel+c, pixelStride, n)
	}
	return out
}

// DecompressChannel decodes one channel of n bytes from src into dst at
// offset, offset+stride, ... and returns the number of bytes of src consumed.
func DecompressChannel(dst, src []byte, offset, stride, n int) (int, error) {
	pos, written := 0, 0
	for written < n {
		if pos >= len(src) {
			return pos, fmt.Errorf("%w: channel ends after %d of %d bytes", ErrCorrupt, written, n)
		}
		h := int(src[pos])
		pos++

		if h >= maxLiteral {
			run := h - maxLiteral + minRun
			if pos >= len(src) {
				return pos, fmt.Errorf("%w: run without a value", ErrCorrupt)
			}
			if written+run > n {
				return pos, fmt.Errorf("%w: run of %d overflows channel", ErrCorrupt, run)
			}
			for k := 0; k < run; k++ {
				dst[offset+(written+k)*stride] = src[pos]
			}
			pos++
			written += run
			continue
		}

		count := h + 1
		if pos+count > len(src) || written+count > n {
			return pos, fmt.Errorf("%w: literal of %d overflows", ErrCorrupt, count)
		}
		for k := 0; k < count; k++ {
			dst[offset+(written+k)*stride] = src[pos+k]
		}
		pos += count
		written += count
	}
	return pos, nil
}

// DecompressImage is the inverse of CompressImage for an image of n pixels
func DecompressImage(tag OSType, data []byte, n int) ([]byte, error) {
	pad := PadSize(tag)
	if len(data) < pad {
		return nil, fmt.Errorf("%w: missing %d byte pad", ErrCorrupt, pad)
	}
	data = data[pad:]

	rgb := make([]byte, n*pixelStride)
	for c := 0; c < 3; c++ {
		used, err := DecompressChannel(rgb, data, firstChannel+c, pixelStride, n)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", c, err)
		}
		data = data[used:]
	}
	return rgb, nil
}
