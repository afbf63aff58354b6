package icon

import (
	"encoding/binary"
)

const (
	sizeOfGroupHeader = 6
	sizeOfGroupEntry  = 14
)

// GroupEntry is one member of an RT_GROUP_ICON directory (GRPICONDIRENTRY).
// It mirrors the ICO directory entry except that the trailing field is a
// resource ID instead of a file offset.
type GroupEntry struct {
	Width      int    // Width in pixels (0 in the file means 256)
	Height     int    // Height in pixels (0 in the file means 256)
	ColorCount uint8  // Number of colors in palette (0 if >= 256 colors)
	Planes     uint16 // Color planes
	BitCount   uint16 // Declared bits per pixel
	Size       uint32 // Size of the RT_ICON payload in bytes
	ID         uint16 // RT_ICON resource ID
}

// ParseGroup parses an icon group payload into its entries, in file order.
// A zero count or a buffer too short for the declared count yields no entries.
func ParseGroup(data []byte) []GroupEntry {
	if len(data) < sizeOfGroupHeader {
		return nil
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 || len(data) < sizeOfGroupHeader+count*sizeOfGroupEntry {
		return nil
	}

	entries := make([]GroupEntry, count)
	for i := range entries {
		entries[i] = parseGroupEntry(data[sizeOfGroupHeader+i*sizeOfGroupEntry:])
	}
	return entries
}

// parseGroupEntry parses a 14-byte GRPICONDIRENTRY
func parseGroupEntry(data []byte) GroupEntry {
	return GroupEntry{
		Width:      dimension(data[0]),
		Height:     dimension(data[1]),
		ColorCount: data[2],
		Planes:     binary.LittleEndian.Uint16(data[4:6]),
		BitCount:   binary.LittleEndian.Uint16(data[6:8]),
		Size:       binary.LittleEndian.Uint32(data[8:12]),
		ID:         binary.LittleEndian.Uint16(data[12:14]),
	}
}

// dimension converts the single-byte size field, where 0 stands for 256
func dimension(b uint8) int {
	if b == 0 {
		return 256
	}
	return int(b)
}
