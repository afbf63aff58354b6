// Package icns writes and reads Apple icon archives.
//
// An archive is an 8-byte header ('icns' + big-endian total length) followed
// by records, each a 4-byte type, a big-endian length that includes the 8
// byte record header, and the payload.
package icns

// OSType is a four character code packed big-endian into a uint32
type OSType uint32

// String returns the four characters of the code
func (t OSType) String() string {
	return string([]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)})
}

func fourCC(s string) OSType {
	return OSType(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
}

var (
	TagFile = fourCC("icns")

	TagPNG512 = fourCC("ic09")
	TagPNG256 = fourCC("ic08")
	TagPNG128 = fourCC("ic07")

	TagRGB128  = fourCC("it32")
	TagMask128 = fourCC("t8mk")
	TagRGB48   = fourCC("ih32")
	TagMask48  = fourCC("h8mk")
	TagRGB32   = fourCC("il32")
	TagMask32  = fourCC("l8mk")
	TagRGB16   = fourCC("is32")
	TagMask16  = fourCC("s8mk")
)

// IsPNGTag reports whether records of type t hold PNG data
func IsPNGTag(t OSType) bool {
	return t == TagPNG128 || t == TagPNG256 || t == TagPNG512
}

// PadSize is the number of zero bytes that precede the compressed channels
// of an RLE record of type t
func PadSize(t OSType) int {
	if t == TagRGB128 {
		return 4
	}
	return 0
}
