package mockexe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

// GroupIconDirectory is the data structure pointed to by ResourceGroupIcon
// resource data entries. It is followed by Count instances of
// GroupIconDirectoryEntry.
type GroupIconDirectory struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// GroupIconDirectoryEntry are entries of the GroupIconDirectory structure.
type GroupIconDirectoryEntry struct {
	Width      uint8 // 0 if >=256
	Height     uint8 // 0 if >=256
	ColorCount uint8
	Reserved   uint8
	NumPlanes  uint16
	BPP        uint16
	ImageSize  uint32
	ResourceID uint16
}

type BitmapInfoHeaderV3 struct {
	Size            uint32
	Width           int32
	Height          int32
	Planes          int16
	BPP             int16
	Compression     uint32
	ImageSize       uint32
	XPixelsPerMeter int32
	YPixelsPerMeter int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

const SizeOfBitmapInfoHeaderV3 = 40

// Icon is one image of an icon group
type Icon struct {
	ID       uint16
	Width    int // 256 is written as 0
	Height   int
	BPP      uint16
	Data     []byte // DIB or PNG payload
	Language uint16 // defaults to LanguageEnglishUS
}

// GroupIcon encodes a GRPICONDIR payload for icons
func GroupIcon(icons []Icon) []byte {
	var w bytes.Buffer
	binary.Write(&w, binary.LittleEndian, GroupIconDirectory{Type: 1, Count: uint16(len(icons))})
	for _, ic := range icons {
		binary.Write(&w, binary.LittleEndian, GroupIconDirectoryEntry{
			Width:      groupDimension(ic.Width),
			Height:     groupDimension(ic.Height),
			NumPlanes:  1,
			BPP:        ic.BPP,
			ImageSize:  uint32(len(ic.Data)),
			ResourceID: ic.ID,
		})
	}
	return w.Bytes()
}

// IconResources returns the RT_GROUP_ICON resource (with groupID) and one
// RT_ICON resource per icon.
func IconResources(groupID uint16, icons []Icon) []Resource {
	res := []Resource{{
		Type:     ResourceGroupIcon,
		ID:       groupID,
		Language: LanguageEnglishUS,
		Data:     GroupIcon(icons),
	}}
	for _, ic := range icons {
		lang := ic.Language
		if lang == 0 {
			lang = LanguageEnglishUS
		}
		res = append(res, Resource{Type: ResourceIcon, ID: ic.ID, Language: lang, Data: ic.Data})
	}
	return res
}

// BuildIconExe is a shortcut for an executable with a single icon group
func BuildIconExe(icons []Icon) []byte {
	return Build(IconResources(1, icons), Options{})
}

func groupDimension(n int) uint8 {
	if n >= 256 {
		return 0
	}
	return uint8(n)
}

// EncodeDIB writes img as an icon DIB: BITMAPINFOHEADER with doubled height,
// palette, bottom-up colour rows, then the AND mask. Mask pixels with alpha
// below 128 are marked transparent. For 4 and 8 bpp img must be an
// *image.Paletted. A nil mask writes an all-opaque AND plane.
func EncodeDIB(img image.Image, mask *image.Alpha, bpp int) ([]byte, error) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	var palette color.Palette
	if bpp <= 8 {
		p, ok := img.(*image.Paletted)
		if !ok {
			return nil, fmt.Errorf("%d bpp needs a paletted image", bpp)
		}
		palette = p.Palette
	}

	var w bytes.Buffer
	binary.Write(&w, binary.LittleEndian, BitmapInfoHeaderV3{
		Size:            SizeOfBitmapInfoHeaderV3,
		Width:           int32(width),
		Height:          int32(height * 2),
		Planes:          1,
		BPP:             int16(bpp),
		XPixelsPerMeter: 2835,
		YPixelsPerMeter: 2835,
		ColorsUsed:      uint32(len(palette)),
	})
	for _, c := range palette {
		r, g, b, _ := c.RGBA()
		w.Write([]byte{byte(b >> 8), byte(g >> 8), byte(r >> 8), 0})
	}

	scanline := make([]byte, bppstride(width, bpp))
	for y := height - 1; y >= 0; y-- {
		clear(scanline)
		for x := 0; x < width; x++ {
			switch bpp {
			case 4:
				idx := img.(*image.Paletted).ColorIndexAt(x, y)
				scanline[x/2] |= idx << (4 * uint(1-x%2))
			case 8:
				scanline[x] = img.(*image.Paletted).ColorIndexAt(x, y)
			case 24:
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				scanline[x*3+0], scanline[x*3+1], scanline[x*3+2] = c.B, c.G, c.R
			case 32:
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				scanline[x*4+0], scanline[x*4+1], scanline[x*4+2], scanline[x*4+3] = c.B, c.G, c.R, c.A
			default:
				return nil, fmt.Errorf("unsupported bit depth %d", bpp)
			}
		}
		w.Write(scanline)
	}

	maskline := make([]byte, bppstride(width, 1))
	for y := height - 1; y >= 0; y-- {
		clear(maskline)
		for x := 0; mask != nil && x < width; x++ {
			if mask.AlphaAt(x, y).A < 128 {
				maskline[x/8] |= 0x80 >> uint(x%8)
			}
		}
		w.Write(maskline)
	}
	return w.Bytes(), nil
}

func bppstride(w, bpp int) int {
	return (((w * bpp) + 31) &^ 31) / 8
}
