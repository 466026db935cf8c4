package source

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 80, B: 30, A: 255})
		}
	}

	src, err := FromBytes("banner.png", encodePNG(t, img))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if src.Width != 20 || src.Height != 10 {
		t.Errorf("dimensions: got %dx%d", src.Width, src.Height)
	}
	if src.Format != "png" {
		t.Errorf("format: got %q", src.Format)
	}
	if src.DisplayName != "banner.png" {
		t.Errorf("display name: got %q", src.DisplayName)
	}
	if src.ID == "" {
		t.Error("missing id")
	}
	if src.Orientation != OrientationUnspecified {
		t.Errorf("orientation: got %v", src.Orientation)
	}
}

func TestFromBytes_UniqueIDs(t *testing.T) {
	raw := encodePNG(t, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	a, err := FromBytes("a.png", raw)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromBytes("b.png", raw)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Errorf("ids collide: %q", a.ID)
	}
}

func TestFromBytes_DecodeFailure(t *testing.T) {
	if _, err := FromBytes("broken.png", []byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFromImage(t *testing.T) {
	src := FromImage("handle", image.NewNRGBA(image.Rect(0, 0, 7, 5)))
	if src.Width != 7 || src.Height != 5 {
		t.Errorf("dimensions: got %dx%d", src.Width, src.Height)
	}
	if src.ID == "" {
		t.Error("missing id")
	}
}
