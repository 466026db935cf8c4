package source

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"
)

// storedPattern builds a 4x3 test image with a unique color per pixel so
// transforms can be verified pixel-exact.
func storedPattern() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 7, A: 255})
		}
	}
	return img
}

func TestNormalize_AllCodes(t *testing.T) {
	stored := storedPattern()
	const sw, sh = 4, 3

	// For each orientation code, the normalized pixel (x, y) must equal the
	// stored pixel (sx, sy) per the EXIF display transform.
	cases := []struct {
		code Orientation
		w, h int
		src  func(x, y int) (sx, sy int)
	}{
		{OrientationNormal, sw, sh, func(x, y int) (int, int) { return x, y }},
		{OrientationFlipH, sw, sh, func(x, y int) (int, int) { return sw - 1 - x, y }},
		{OrientationRotate180, sw, sh, func(x, y int) (int, int) { return sw - 1 - x, sh - 1 - y }},
		{OrientationFlipV, sw, sh, func(x, y int) (int, int) { return x, sh - 1 - y }},
		{OrientationTranspose, sh, sw, func(x, y int) (int, int) { return y, x }},
		{OrientationRotate270, sh, sw, func(x, y int) (int, int) { return y, sh - 1 - x }},
		{OrientationTransverse, sh, sw, func(x, y int) (int, int) { return sw - 1 - y, sh - 1 - x }},
		{OrientationRotate90, sh, sw, func(x, y int) (int, int) { return sw - 1 - y, x }},
	}

	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			got := Normalize(stored, tc.code)
			bounds := got.Bounds()
			if bounds.Dx() != tc.w || bounds.Dy() != tc.h {
				t.Fatalf("dimensions: got %dx%d, want %dx%d",
					bounds.Dx(), bounds.Dy(), tc.w, tc.h)
			}
			if tc.code.SwapsDimensions() != (tc.w != sw) {
				t.Errorf("SwapsDimensions() = %v for %dx%d result",
					tc.code.SwapsDimensions(), tc.w, tc.h)
			}
			for y := 0; y < tc.h; y++ {
				for x := 0; x < tc.w; x++ {
					sx, sy := tc.src(x, y)
					want := stored.NRGBAAt(sx, sy)
					r, g, b, a := got.At(x, y).RGBA()
					if uint8(r>>8) != want.R || uint8(g>>8) != want.G ||
						uint8(b>>8) != want.B || uint8(a>>8) != want.A {
						t.Fatalf("pixel (%d,%d): got %v %v %v %v, want %v",
							x, y, r>>8, g>>8, b>>8, a>>8, want)
					}
				}
			}
		})
	}
}

func TestNormalize_UnspecifiedIsIdentity(t *testing.T) {
	stored := storedPattern()
	got := Normalize(stored, OrientationUnspecified)
	if got != image.Image(stored) {
		t.Error("unspecified orientation should return the image unchanged")
	}
}

// exifJPEG assembles the minimal byte stream ReadOrientation needs: SOI,
// one APP1 segment with a TIFF header and a single-entry IFD holding the
// orientation tag.
func exifJPEG(t *testing.T, byteOrder binary.ByteOrder, orientValue uint16) []byte {
	t.Helper()
	var buf bytes.Buffer

	write := func(v any) {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	writeOrd := func(v any) {
		if err := binary.Write(&buf, byteOrder, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write(uint16(0xffd8)) // SOI
	write(uint16(0xffe1)) // APP1
	write(uint16(0x2a))   // segment size (unchecked beyond >= 2)
	write(uint32(0x45786966)) // "Exif"
	write(uint16(0))          // padding

	if byteOrder == binary.BigEndian {
		write(uint16(0x4d4d)) // "MM"
	} else {
		write(uint16(0x4949)) // "II"
	}
	writeOrd(uint16(0x002a))
	writeOrd(uint32(8)) // IFD0 offset, relative to TIFF header

	writeOrd(uint16(1))      // tag count
	writeOrd(uint16(0x0112)) // orientation tag
	writeOrd(uint16(3))      // type SHORT
	writeOrd(uint32(1))      // count
	writeOrd(orientValue)
	writeOrd(uint16(0)) // value padding

	return buf.Bytes()
}

func TestReadOrientation(t *testing.T) {
	for code := uint16(1); code <= 8; code++ {
		got := ReadOrientation(bytes.NewReader(exifJPEG(t, binary.BigEndian, code)))
		if got != Orientation(code) {
			t.Errorf("big endian code %d: got %v", code, got)
		}
		got = ReadOrientation(bytes.NewReader(exifJPEG(t, binary.LittleEndian, code)))
		if got != Orientation(code) {
			t.Errorf("little endian code %d: got %v", code, got)
		}
	}
}

func TestReadOrientation_Soft(t *testing.T) {
	// Non-JPEG data, truncated data and out-of-range values all degrade to
	// unspecified instead of failing.
	if got := ReadOrientation(bytes.NewReader([]byte("\x89PNG\r\n\x1a\n"))); got != OrientationUnspecified {
		t.Errorf("png header: got %v", got)
	}
	if got := ReadOrientation(bytes.NewReader([]byte{0xff, 0xd8, 0xff})); got != OrientationUnspecified {
		t.Errorf("truncated jpeg: got %v", got)
	}
	if got := ReadOrientation(bytes.NewReader(exifJPEG(t, binary.BigEndian, 9))); got != OrientationUnspecified {
		t.Errorf("invalid code: got %v", got)
	}
}
