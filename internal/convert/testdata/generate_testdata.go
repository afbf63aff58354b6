//go:build ignore

// This file generates sample executables for trying out exe2icns and
// icon-inspect by hand.
// Run with: go run generate_testdata.go
package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/bmp"

	"exe2icns/internal/mockexe"
)

func main() {
	img16 := createTestImage(16, 16, color.RGBA{R: 0, G: 255, B: 0, A: 255})
	img32 := createTestImage(32, 32, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img48 := createTestImage(48, 48, color.RGBA{R: 0, G: 0, B: 255, A: 255})
	img256 := createDisc(256)

	// 24-bit icon produced by the BMP encoder
	dib24, err := bmpToDIB(img48)
	if err != nil {
		fmt.Printf("Failed to encode 48x48 bitmap: %v\n", err)
		os.Exit(1)
	}
	dib32, err := mockexe.EncodeDIB(img32, nil, 32)
	if err != nil {
		fmt.Printf("Failed to encode 32x32 bitmap: %v\n", err)
		os.Exit(1)
	}
	pal16 := image.NewPaletted(img16.Bounds(), color.Palette{color.Black, color.RGBA{G: 255, A: 255}})
	for i := range pal16.Pix {
		pal16.Pix[i] = uint8(i % 2)
	}
	dib4, err := mockexe.EncodeDIB(pal16, nil, 4)
	if err != nil {
		fmt.Printf("Failed to encode 16x16 bitmap: %v\n", err)
		os.Exit(1)
	}
	png256, err := encodePNG(img256)
	if err != nil {
		fmt.Printf("Failed to encode 256x256 PNG: %v\n", err)
		os.Exit(1)
	}

	files := []struct {
		name string
		data []byte
	}{
		{"multi.exe", mockexe.BuildIconExe([]mockexe.Icon{
			{ID: 1, Width: 16, Height: 16, BPP: 4, Data: dib4},
			{ID: 2, Width: 32, Height: 32, BPP: 32, Data: dib32},
			{ID: 3, Width: 48, Height: 48, BPP: 24, Data: dib24},
			{ID: 4, Width: 256, Height: 256, BPP: 32, Data: png256},
		})},
		{"png256.exe", mockexe.BuildIconExe([]mockexe.Icon{
			{ID: 1, Width: 256, Height: 256, BPP: 32, Data: png256},
		})},
		{"noicon.exe", mockexe.Build(nil, mockexe.Options{SectionName: ".text"})},
		{"invalid.bin", []byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0}},
	}
	for _, f := range files {
		if err := os.WriteFile(f.name, f.data, 0644); err != nil {
			fmt.Printf("Failed to create %s: %v\n", f.name, err)
			os.Exit(1)
		}
		fmt.Printf("Created %s\n", f.name)
	}

	fmt.Println("\nAll test data files created successfully!")
}

func createTestImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// createDisc draws a white disc with a hard edge on a transparent background,
// which shows halos clearly when the icon is downsampled
func createDisc(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	r := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-r, y-r
			if dx*dx+dy*dy < (r-4)*(r-4) {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return img
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bmpToDIB turns a .bmp file into an icon DIB: drop the 14 byte file header,
// double the height and append an all-opaque AND mask
func bmpToDIB(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	dib := append([]byte(nil), buf.Bytes()[14:]...)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	binary.LittleEndian.PutUint32(dib[8:], uint32(h*2))
	maskStride := ((w + 31) / 32) * 4
	return append(dib, make([]byte, maskStride*h)...), nil
}
