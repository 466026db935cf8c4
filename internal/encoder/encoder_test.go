package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testCanvas() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 99, A: 255})
		}
	}
	return img
}

func TestPNGRoundtrip(t *testing.T) {
	enc := &PNGEncoder{}
	data, err := enc.Encode(testCanvas(), 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 16 || decoded.Bounds().Dy() != 16 {
		t.Errorf("bounds: %v", decoded.Bounds())
	}
}

func TestJPEGQuality(t *testing.T) {
	enc := &JPEGEncoder{}
	low, err := enc.Encode(testCanvas(), 10)
	if err != nil {
		t.Fatalf("encode low: %v", err)
	}
	high, err := enc.Encode(testCanvas(), 95)
	if err != nil {
		t.Fatalf("encode high: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(high)); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(low) >= len(high) {
		t.Errorf("quality 10 (%dB) not smaller than quality 95 (%dB)", len(low), len(high))
	}
}

func TestQualityScale(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{-1, 0},
		{0.005, 1},
		{0.8, 80},
		{1, 100},
		{2, 100},
	}
	for _, tc := range cases {
		if got := QualityScale(tc.in); got != tc.want {
			t.Errorf("QualityScale(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()

	enc, err := r.Resolve("PNG")
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if enc.MIME() != "image/png" {
		t.Errorf("mime: %q", enc.MIME())
	}

	enc, err = r.Resolve("jpg")
	if err != nil {
		t.Fatalf("jpg alias: %v", err)
	}
	if enc.Format() != "jpeg" {
		t.Errorf("jpg alias resolved to %q", enc.Format())
	}

	if _, err := r.Resolve("tiff"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRegistryAvailableAlwaysHasNativeFormats(t *testing.T) {
	avail := NewRegistry().Available()
	seen := map[string]bool{}
	for _, f := range avail {
		seen[f] = true
	}
	if !seen["png"] || !seen["jpeg"] {
		t.Errorf("native formats missing from %v", avail)
	}
}
