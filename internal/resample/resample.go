// Package resample derives a smaller icon from a larger one with a
// gamma-correct 2×2 box filter.
package resample

import (
	"math"
	"sync"

	"exe2icns/internal/icon"
)

// Gamma is the fixed encoding gamma assumed for icon colour data
const Gamma = 2.2

// linear maps an 8-bit channel value to linear light in [0, 1]
var linear = sync.OnceValue(func() [256]float64 {
	var table [256]float64
	for i := range table {
		table[i] = math.Pow(float64(i)/255, Gamma)
	}
	return table
})

// GammaAverage averages four channel samples in linear light and converts
// the result back to 8 bits, rounding half up.
func GammaAverage(samples [4]uint8) uint8 {
	lut := linear()
	sum := lut[samples[0]] + lut[samples[1]] + lut[samples[2]] + lut[samples[3]]
	v := math.Floor(255*math.Pow(sum/4, 1/Gamma) + 0.5)
	return uint8(min(v, 255))
}

// MaskAverage is the rounded arithmetic mean of four mask samples
func MaskAverage(samples [4]uint8) uint8 {
	sum := int(samples[0]) + int(samples[1]) + int(samples[2]) + int(samples[3])
	return uint8((sum + 2) / 4)
}

// Downsample2x halves src in both dimensions. Each output pixel is the
// gamma-correct average of the 2×2 source block for colour and the linear
// average for the mask. An odd last row or column is dropped.
func Downsample2x(src *icon.Image) *icon.Image {
	dst := icon.NewImage(src.Width/2, src.Height/2)
	dst.BitCount = src.BitCount

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			block := [4]int{
				(2*y)*src.Width + 2*x,
				(2*y)*src.Width + 2*x + 1,
				(2*y+1)*src.Width + 2*x,
				(2*y+1)*src.Width + 2*x + 1,
			}
			out := y*dst.Width + x
			for c := 1; c <= 3; c++ {
				dst.RGB[out*4+c] = GammaAverage([4]uint8{
					src.RGB[block[0]*4+c],
					src.RGB[block[1]*4+c],
					src.RGB[block[2]*4+c],
					src.RGB[block[3]*4+c],
				})
			}
			dst.Mask[out] = MaskAverage([4]uint8{
				src.Mask[block[0]],
				src.Mask[block[1]],
				src.Mask[block[2]],
				src.Mask[block[3]],
			})
		}
	}
	return dst
}
