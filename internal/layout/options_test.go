package layout

import (
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ffffff", color.NRGBA{255, 255, 255, 255}},
		{"000000", color.NRGBA{0, 0, 0, 255}},
		{"#1a2b3c", color.NRGBA{0x1a, 0x2b, 0x3c, 255}},
		{"#1a2b3c80", color.NRGBA{0x1a, 0x2b, 0x3c, 0x80}},
		{"#f0a", color.NRGBA{0xff, 0x00, 0xaa, 255}},
	}
	for _, tc := range cases {
		got, err := ParseHexColor(tc.in)
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseHexColor("#12345"); err == nil {
		t.Error("expected error for odd-length hex")
	}
}

func TestFormatHexColor_RoundTrip(t *testing.T) {
	for _, c := range []color.NRGBA{
		{255, 0, 128, 255},
		{1, 2, 3, 4},
	} {
		got, err := ParseHexColor(FormatHexColor(c))
		if err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		if got != c {
			t.Errorf("round trip: got %v, want %v", got, c)
		}
	}
}

func TestParseAxisAlign(t *testing.T) {
	if ParseAxis("side-by-side") != AxisSideBySide || ParseAxis("horizontal") != AxisSideBySide {
		t.Error("side-by-side spellings")
	}
	if ParseAxis("stacked") != AxisStacked || ParseAxis("nonsense") != AxisStacked {
		t.Error("stacked fallback")
	}
	if ParseAlign("start") != AlignStart || ParseAlign("end") != AlignEnd || ParseAlign("") != AlignCenter {
		t.Error("align spellings")
	}
}
