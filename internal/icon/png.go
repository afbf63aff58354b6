package icon

import (
	"bytes"
	"fmt"
	"image/png"
)

// DecodePNG decodes an embedded PNG icon. The original bytes are kept on the
// returned image so they can be stored without recompression.
func DecodePNG(data []byte) (*Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode PNG header: %w", ErrUnsupported, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxDimension || cfg.Height > maxDimension {
		return nil, fmt.Errorf("%w: PNG dimensions %dx%d", ErrUnsupported, cfg.Width, cfg.Height)
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode PNG: %w", ErrUnsupported, err)
	}
	img := FromImage(src)
	img.PNG = data
	return img, nil
}

// EncodePNG encodes the canonical image as an RGBA PNG with the mask as alpha
func EncodePNG(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img.NRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes an RT_ICON payload described by entry, picking the decoder
// from the payload's leading bytes.
func Decode(data []byte, entry GroupEntry) (*Image, error) {
	switch DetectFormat(data) {
	case FormatPNG:
		return DecodePNG(data)
	case FormatDIB:
		return DecodeDIB(data, entry.Width, entry.Height)
	default:
		if len(data) < 4 {
			return nil, fmt.Errorf("%w: %d byte payload", ErrTruncated, len(data))
		}
		return nil, fmt.Errorf("%w: unrecognised payload format", ErrUnsupported)
	}
}
