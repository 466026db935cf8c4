package layout

import (
	"fmt"
	"image/color"
	"strings"
)

// Axis is the direction along which images are concatenated.
type Axis int

const (
	// AxisStacked lays images out top to bottom.
	AxisStacked Axis = iota
	// AxisSideBySide lays images out left to right.
	AxisSideBySide
)

func (a Axis) String() string {
	if a == AxisSideBySide {
		return "side-by-side"
	}
	return "stacked"
}

// ParseAxis maps the wire/flag spelling to an Axis. Unknown values fall
// back to stacked.
func ParseAxis(s string) Axis {
	switch strings.ToLower(s) {
	case "side-by-side", "horizontal", "row":
		return AxisSideBySide
	}
	return AxisStacked
}

// Align positions each image on the cross axis.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

func (a Align) String() string {
	switch a {
	case AlignStart:
		return "start"
	case AlignEnd:
		return "end"
	}
	return "center"
}

// ParseAlign maps the wire/flag spelling to an Align. Unknown values fall
// back to center.
func ParseAlign(s string) Align {
	switch strings.ToLower(s) {
	case "start", "left", "top":
		return AlignStart
	case "end", "right", "bottom":
		return AlignEnd
	}
	return AlignCenter
}

// Options is the per-job layout configuration. A zero Options value is a
// valid plain vertical stack. Optional pixel values (uniform sizes, max
// bounds) use 0 as "disabled"; 0 is never a legal dimension, the same
// convention imaging.Resize uses for its derive-from-aspect arguments.
type Options struct {
	Axis         Axis
	Align        Align
	Gap          int
	GapColor     color.NRGBA
	OuterPadding int

	// UniformWidth/UniformHeight force every image to a common size on one
	// side before global scaling, preserving aspect ratio.
	UniformWidth  int
	UniformHeight int

	// MaxOutputWidth/MaxOutputHeight cap the composite content size. The
	// planner only ever shrinks to satisfy them, never enlarges.
	MaxOutputWidth  int
	MaxOutputHeight int
}

// Validate clamps senseless values instead of failing; invalid option
// combinations degrade, they do not abort a job.
func (o Options) Validate() Options {
	if o.Gap < 0 {
		o.Gap = 0
	}
	if o.OuterPadding < 0 {
		o.OuterPadding = 0
	}
	for _, v := range []*int{&o.UniformWidth, &o.UniformHeight, &o.MaxOutputWidth, &o.MaxOutputHeight} {
		if *v < 0 {
			*v = 0
		}
	}
	return o
}

// ParseHexColor parses "#rgb", "#rrggbb" or "#rrggbbaa" (leading '#'
// optional) into an NRGBA color.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	c := color.NRGBA{A: 0xff}
	var err error
	switch len(s) {
	case 3:
		_, err = fmt.Sscanf(s, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 0x11
		c.G *= 0x11
		c.B *= 0x11
	case 6:
		_, err = fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(s, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		return c, fmt.Errorf("hex color %q: unsupported length", s)
	}
	if err != nil {
		return c, fmt.Errorf("hex color %q: %w", s, err)
	}
	return c, nil
}

// FormatHexColor renders a color in the "#rrggbbaa" form ParseHexColor
// accepts, dropping the alpha component when fully opaque.
func FormatHexColor(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
