package icns

import (
	"bytes"
	"testing"
	"testing/quick"
)

// decodeHeaders walks a compressed channel and returns the source length
// of every run (positive) and literal (negative)
func decodeHeaders(t *testing.T, data []byte) []int {
	t.Helper()
	var spans []int
	for pos := 0; pos < len(data); {
		h := int(data[pos])
		if h >= 128 {
			spans = append(spans, h-125)
			pos += 2
		} else {
			spans = append(spans, -(h + 1))
			pos += h + 2
		}
	}
	return spans
}

// TestCompressChannel_RoundTrip checks decompression restores any input
func TestCompressChannel_RoundTrip(t *testing.T) {
	f := func(data []byte) bool {
		compressed := CompressChannel(nil, data, 0, 1, len(data))
		out := make([]byte, len(data))
		used, err := DecompressChannel(out, compressed, 0, 1, len(data))
		if err != nil {
			t.Logf("DecompressChannel failed: %v", err)
			return false
		}
		return used == len(compressed) && bytes.Equal(out, data)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Errorf("Property test failed: %v", err)
	}
}

// TestCompressChannel_RoundTripRuns uses a small alphabet so runs are common
func TestCompressChannel_RoundTripRuns(t *testing.T) {
	f := func(raw []byte, repeat uint8) bool {
		var data []byte
		for _, b := range raw {
			for k := 0; k <= int(repeat%8); k++ {
				data = append(data, b%3)
			}
		}
		compressed := CompressChannel(nil, data, 0, 1, len(data))
		out := make([]byte, len(data))
		if _, err := DecompressChannel(out, compressed, 0, 1, len(data)); err != nil {
			return false
		}
		return bytes.Equal(out, data)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Errorf("Property test failed: %v", err)
	}
}

// TestCompressChannel_Bounds checks no run exceeds 130 bytes, no literal
// exceeds 128 bytes and runs are never shorter than 3
func TestCompressChannel_Bounds(t *testing.T) {
	f := func(raw []byte, repeat uint8) bool {
		var data []byte
		for _, b := range raw {
			for k := 0; k <= int(repeat); k++ {
				data = append(data, b%2)
			}
		}
		for _, span := range decodeHeaders(t, CompressChannel(nil, data, 0, 1, len(data))) {
			if span > 130 || (span > 0 && span < 3) || span < -128 || span == 0 {
				t.Logf("span %d out of bounds", span)
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 300}); err != nil {
		t.Errorf("Property test failed: %v", err)
	}
}

// TestCompressChannel_IdenticalBytes checks N equal bytes split into 130
// byte runs plus a shorter tail
func TestCompressChannel_IdenticalBytes(t *testing.T) {
	for _, n := range []int{3, 4, 129, 130, 131, 132, 133, 260, 261, 1000} {
		data := bytes.Repeat([]byte{0x5A}, n)
		spans := decodeHeaders(t, CompressChannel(nil, data, 0, 1, n))

		rest := n
		for i, span := range spans {
			if i < len(spans)-1 && span != 130 {
				t.Errorf("n=%d: chunk %d has length %d, want 130", n, i, span)
			}
			if span < 0 {
				rest += span
			} else {
				rest -= span
			}
		}
		if rest != 0 {
			t.Errorf("n=%d: chunks cover %d bytes", n, n-rest)
		}
	}
}

func TestCompressChannel_Encoding(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", nil, nil},
		{"single", []byte{7}, []byte{0, 7}},
		{"pair is literal", []byte{7, 7}, []byte{1, 7, 7}},
		{"run of three", []byte{7, 7, 7}, []byte{128, 7}},
		{"literal then run", []byte{1, 2, 9, 9, 9, 9}, []byte{1, 1, 2, 129, 9}},
		{"run then literal", []byte{9, 9, 9, 1, 2}, []byte{128, 9, 1, 1, 2}},
		{"max run", bytes.Repeat([]byte{4}, 130), []byte{255, 4}},
		{"run of 131 leaves a literal", bytes.Repeat([]byte{4}, 131), []byte{255, 4, 0, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompressChannel(nil, tt.in, 0, 1, len(tt.in)); !bytes.Equal(got, tt.want) {
				t.Errorf("CompressChannel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompressChannel_LongLiteralSplits(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i % 2)
	}
	spans := decodeHeaders(t, CompressChannel(nil, data, 0, 1, len(data)))
	want := []int{-128, -128, -44}
	if len(spans) != len(want) {
		t.Fatalf("spans = %v, want %v", spans, want)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("spans = %v, want %v", spans, want)
		}
	}
}

func TestCompressImage(t *testing.T) {
	// 4 pixels [0, R, G, B]
	rgb := []byte{
		0, 1, 5, 9,
		0, 1, 6, 9,
		0, 1, 7, 9,
		0, 1, 8, 9,
	}
	want := []byte{129, 1, 3, 5, 6, 7, 8, 129, 9}

	if got := CompressImage(TagRGB32, rgb); !bytes.Equal(got, want) {
		t.Errorf("CompressImage(il32) = %v, want %v", got, want)
	}
	got := CompressImage(TagRGB128, rgb)
	if !bytes.Equal(got, append([]byte{0, 0, 0, 0}, want...)) {
		t.Errorf("CompressImage(it32) = %v, want a 4 byte pad before %v", got, want)
	}

	out, err := DecompressImage(TagRGB128, got, 4)
	if err != nil {
		t.Fatalf("DecompressImage failed: %v", err)
	}
	if !bytes.Equal(out, rgb) {
		t.Errorf("DecompressImage() = %v, want %v", out, rgb)
	}
}

func TestDecompressChannel_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		n    int
	}{
		{"empty", nil, 1},
		{"run without value", []byte{128}, 3},
		{"run overflows", []byte{130, 1}, 3},
		{"literal overflows", []byte{3, 1, 2}, 4},
		{"literal past channel", []byte{3, 1, 2, 3, 4}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]byte, tt.n)
			if _, err := DecompressChannel(out, tt.data, 0, 1, tt.n); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
