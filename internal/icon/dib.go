package icon

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned for bit depths, compressions and headers
	// that have no decoder
	ErrUnsupported = errors.New("unsupported icon image")
	// ErrTruncated is returned when the payload is shorter than its header implies
	ErrTruncated = errors.New("truncated icon image")
)

const (
	biRGB = 0

	// Largest dimension accepted from a DIB header
	maxDimension = 1024
)

// dibHeader is the part of BITMAPINFOHEADER the decoders need
type dibHeader struct {
	Size        uint32
	Width       int
	Height      int // of the colour plane, the stored value is doubled for the AND mask
	TopDown     bool
	BitCount    int
	Compression uint32
	ColorsUsed  uint32
}

// parseDIBHeader reads a BITMAPINFOHEADER (or a later version) from an icon
// payload. Icon DIBs carry no BITMAPFILEHEADER.
func parseDIBHeader(data []byte) (dibHeader, error) {
	if len(data) < sizeOfBitmapInfoHeader {
		return dibHeader{}, fmt.Errorf("%w: %d bytes is too short for a bitmap header", ErrTruncated, len(data))
	}

	h := dibHeader{
		Size:        binary.LittleEndian.Uint32(data[0:4]),
		Width:       int(int32(binary.LittleEndian.Uint32(data[4:8]))),
		Height:      int(int32(binary.LittleEndian.Uint32(data[8:12]))),
		BitCount:    int(binary.LittleEndian.Uint16(data[14:16])),
		Compression: binary.LittleEndian.Uint32(data[16:20]),
		ColorsUsed:  binary.LittleEndian.Uint32(data[32:36]),
	}
	if h.Size < sizeOfBitmapInfoHeader || int(h.Size) > len(data) {
		return dibHeader{}, fmt.Errorf("%w: bitmap header size %d", ErrUnsupported, h.Size)
	}
	if h.Height < 0 {
		h.TopDown = true
		h.Height = -h.Height
	}
	h.Height /= 2
	return h, nil
}

// stride returns the length of one row padded to a 4-byte boundary
func stride(width, bpp int) int {
	return ((width*bpp + 31) / 32) * 4
}

// DecodeDIB decodes an icon bitmap of 4, 8, 24 or 32 bits per pixel.
// width and height are used when the header leaves them at zero.
//
// For 4, 8 and 24-bit images the mask comes from the AND plane that
// follows the pixel data (opaque when absent). For 32-bit images the
// mask is the alpha byte of every pixel.
func DecodeDIB(data []byte, width, height int) (*Image, error) {
	h, err := parseDIBHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Width == 0 {
		h.Width = width
	}
	if h.Height == 0 {
		h.Height = height
	}

	if h.Compression != biRGB {
		return nil, fmt.Errorf("%w: compressed bitmap (compression=%d)", ErrUnsupported, h.Compression)
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width > maxDimension || h.Height > maxDimension {
		return nil, fmt.Errorf("%w: bitmap size %dx%d", ErrUnsupported, h.Width, h.Height)
	}

	pixelOffset := int(h.Size)

	// Handle color palette for indexed images
	var palette []byte
	switch h.BitCount {
	case 4, 8:
		paletteSize := 1 << h.BitCount
		if h.ColorsUsed > 0 && int(h.ColorsUsed) < paletteSize {
			paletteSize = int(h.ColorsUsed)
		}
		paletteBytes := paletteSize * 4 // BGRX
		if len(data) < pixelOffset+paletteBytes {
			return nil, fmt.Errorf("%w: too short for a %d colour palette", ErrTruncated, paletteSize)
		}
		palette = data[pixelOffset : pixelOffset+paletteBytes]
		pixelOffset += paletteBytes
	case 24, 32:
	default:
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupported, h.BitCount)
	}

	rowSize := stride(h.Width, h.BitCount)
	if len(data)-pixelOffset < rowSize*h.Height {
		return nil, fmt.Errorf("%w: %d bytes of pixel data, need %d", ErrTruncated, len(data)-pixelOffset, rowSize*h.Height)
	}
	pixels := data[pixelOffset : pixelOffset+rowSize*h.Height]

	maskRowSize := stride(h.Width, 1)
	maskOffset := pixelOffset + rowSize*h.Height
	var mask []byte
	if len(data)-maskOffset >= maskRowSize*h.Height {
		mask = data[maskOffset : maskOffset+maskRowSize*h.Height]
	}

	img := NewImage(h.Width, h.Height)
	img.BitCount = h.BitCount
	for y := 0; y < h.Height; y++ {
		srcY := h.Height - 1 - y // DIBs are bottom-up unless the height is negative
		if h.TopDown {
			srcY = y
		}
		row := pixels[srcY*rowSize : (srcY+1)*rowSize]

		switch h.BitCount {
		case 4:
			decodeRow4(img, y, row, palette)
		case 8:
			decodeRow8(img, y, row, palette)
		case 24:
			decodeRow24(img, y, row)
		case 32:
			decodeRow32(img, y, row)
		}

		if h.BitCount != 32 {
			var maskRow []byte
			if mask != nil {
				maskRow = mask[srcY*maskRowSize : (srcY+1)*maskRowSize]
			}
			applyMaskRow(img, y, maskRow)
		}
	}

	img.HasSeparateMask = h.BitCount == 32 && mask != nil
	return img, nil
}

// paletteColor returns the RGB of palette index i, black when out of range
func paletteColor(palette []byte, i int) (r, g, b uint8) {
	if i*4+3 >= len(palette) {
		return 0, 0, 0
	}
	return palette[i*4+2], palette[i*4+1], palette[i*4]
}

// decodeRow4 decodes 4-bit (16 color) pixels, high nibble first
func decodeRow4(img *Image, y int, row, palette []byte) {
	for x := 0; x < img.Width; x++ {
		v := row[x/2]
		if x%2 == 0 {
			v >>= 4
		}
		r, g, b := paletteColor(palette, int(v&0x0F))
		img.Set(x, y, r, g, b, 0xFF)
	}
}

// decodeRow8 decodes 8-bit (256 color) pixels
func decodeRow8(img *Image, y int, row, palette []byte) {
	for x := 0; x < img.Width; x++ {
		r, g, b := paletteColor(palette, int(row[x]))
		img.Set(x, y, r, g, b, 0xFF)
	}
}

// decodeRow24 decodes 24-bit BGR pixels
func decodeRow24(img *Image, y int, row []byte) {
	for x := 0; x < img.Width; x++ {
		p := row[x*3:]
		img.Set(x, y, p[2], p[1], p[0], 0xFF)
	}
}

// decodeRow32 decodes 32-bit BGRA pixels, alpha becomes the mask
func decodeRow32(img *Image, y int, row []byte) {
	for x := 0; x < img.Width; x++ {
		p := row[x*4:]
		img.Set(x, y, p[2], p[1], p[0], p[3])
	}
}

// applyMaskRow applies one row of the 1-bit AND mask, MSB first. A set bit
// is transparent. A nil row leaves the row opaque.
func applyMaskRow(img *Image, y int, row []byte) {
	if row == nil {
		return
	}
	for x := 0; x < img.Width; x++ {
		if row[x/8]&(0x80>>uint(x%8)) != 0 {
			img.Mask[y*img.Width+x] = 0
		}
	}
}
