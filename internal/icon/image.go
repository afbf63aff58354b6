// Package icon decodes the images of a Windows icon group into one canonical
// pixel layout shared by every encoder.
package icon

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Image is the canonical decoded icon. RGB holds 4 bytes per pixel laid out
// as [0, R, G, B], rows top to bottom. Mask holds one alpha byte per pixel.
type Image struct {
	Width  int
	Height int
	RGB    []byte
	Mask   []byte

	// BitCount is the source depth (32 for PNG sources)
	BitCount int
	// PNG keeps the original bytes of a PNG source for passthrough
	PNG []byte
	// HasSeparateMask is set for 32-bit DIBs that also carry an AND plane,
	// which is ignored in favour of the alpha channel
	HasSeparateMask bool
}

// NewImage allocates a zeroed (black, transparent) canonical image
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		RGB:    make([]byte, width*height*4),
		Mask:   make([]byte, width*height),
	}
}

// Set stores one pixel
func (m *Image) Set(x, y int, r, g, b, a uint8) {
	i := y*m.Width + x
	m.RGB[i*4+1], m.RGB[i*4+2], m.RGB[i*4+3] = r, g, b
	m.Mask[i] = a
}

// NRGBA converts the canonical layout into a standard library image, with
// the mask as non-premultiplied alpha.
func (m *Image) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i := 0; i < m.Width*m.Height; i++ {
		img.Pix[i*4+0] = m.RGB[i*4+1]
		img.Pix[i*4+1] = m.RGB[i*4+2]
		img.Pix[i*4+2] = m.RGB[i*4+3]
		img.Pix[i*4+3] = m.Mask[i]
	}
	return img
}

// FromImage converts any image into the canonical layout. Colour models other
// than NRGBA are converted first.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	nrgba, ok := src.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Copy(nrgba, image.Point{}, src, b, draw.Src, nil)
	}

	m := NewImage(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < m.Width; x++ {
			m.Set(x, y, row[x*4], row[x*4+1], row[x*4+2], row[x*4+3])
		}
	}
	m.BitCount = 32
	return m
}

// Resize returns a copy scaled to size×size with Catmull-Rom interpolation.
// The PNG passthrough bytes are dropped since they no longer match.
func (m *Image) Resize(size int) *Image {
	if m.Width == size && m.Height == size {
		return m
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m.NRGBA(), image.Rect(0, 0, m.Width, m.Height), draw.Src, nil)

	out := FromImage(dst)
	out.BitCount = m.BitCount
	return out
}

// At returns the pixel at (x, y) with the mask as alpha
func (m *Image) At(x, y int) color.NRGBA {
	i := y*m.Width + x
	return color.NRGBA{R: m.RGB[i*4+1], G: m.RGB[i*4+2], B: m.RGB[i*4+3], A: m.Mask[i]}
}
