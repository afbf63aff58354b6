package convert

import (
	"exe2icns/internal/icns"
)

// Slot is an output resolution class and the records that carry it
type Slot struct {
	Size     int
	ImageTag icns.OSType
	MaskTag  icns.OSType // zero for PNG slots, the mask is the PNG alpha channel
}

// PNG reports whether the slot stores a PNG record
func (s Slot) PNG() bool {
	return icns.IsPNGTag(s.ImageTag)
}

// Slots lists the recognised slots, largest first
var Slots = []Slot{
	{Size: 256, ImageTag: icns.TagPNG256},
	{Size: 128, ImageTag: icns.TagRGB128, MaskTag: icns.TagMask128},
	{Size: 48, ImageTag: icns.TagRGB48, MaskTag: icns.TagMask48},
	{Size: 32, ImageTag: icns.TagRGB32, MaskTag: icns.TagMask32},
	{Size: 16, ImageTag: icns.TagRGB16, MaskTag: icns.TagMask16},
}

// SlotFor returns the slot of a square icon of the given size
func SlotFor(width, height int) (Slot, bool) {
	if width != height {
		return Slot{}, false
	}
	for _, s := range Slots {
		if s.Size == width {
			return s, true
		}
	}
	return Slot{}, false
}

// supportedDepth reports whether a declared bit depth can be decoded. Zero is
// accepted because PNG entries often leave the field empty.
func supportedDepth(bpp uint16) bool {
	switch bpp {
	case 0, 4, 8, 24, 32:
		return true
	}
	return false
}
