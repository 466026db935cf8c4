package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
)

// Kind selects the watermark payload.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindImage
)

// Position anchors a non-tiled watermark instance.
type Position int

const (
	PositionBottomRight Position = iota
	PositionBottomLeft
	PositionTopRight
	PositionTopLeft
	PositionCenter
)

// ParsePosition maps the wire/flag spelling to a Position. Unknown values
// fall back to bottom-right.
func ParsePosition(s string) Position {
	switch strings.ToLower(s) {
	case "top-left":
		return PositionTopLeft
	case "top-right":
		return PositionTopRight
	case "bottom-left":
		return PositionBottomLeft
	case "center":
		return PositionCenter
	}
	return PositionBottomRight
}

func (p Position) String() string {
	switch p {
	case PositionTopLeft:
		return "top-left"
	case PositionTopRight:
		return "top-right"
	case PositionBottomLeft:
		return "bottom-left"
	case PositionCenter:
		return "center"
	}
	return "bottom-right"
}

// cornerMargin is how far a corner-anchored watermark's bounding box sits
// from the canvas edge.
const cornerMargin = 24.0

// Tiling strides relative to one stamp's bounding box.
const (
	textTileStride  = 3.0
	imageTileStride = 2.5
)

// Watermark is one overlay stamped onto a finished canvas. Each instance is
// centered on its anchor point; rotation happens around that anchor.
type Watermark struct {
	Kind Kind

	// Text payload. Empty text makes a text watermark a no-op.
	Text string
	// Color is the text color; the zero value means white.
	Color color.NRGBA
	// FontSize in pixels; <= 0 means DefaultFontSize. Font overrides the
	// embedded default face.
	FontSize float64
	Font     *text.FontSource

	// Image payload. Scale is the stamp width as a fraction of the canvas
	// width; <= 0 means DefaultImageScale.
	Image image.Image
	Scale float64

	// Opacity in [0, 1] composites the stamp source-over the canvas.
	Opacity float64
	// RotationDegrees rotates each instance around its anchor.
	RotationDegrees float64

	// Position picks the anchor; Tiled ignores it and repeats the stamp on
	// a grid instead.
	Position Position
	Tiled    bool

	// OffsetX/OffsetY shift an image watermark after anchor placement.
	OffsetX float64
	OffsetY float64
}

const (
	DefaultFontSize   = 36.0
	DefaultImageScale = 0.2
)

// Apply stamps the watermark onto dc. A None kind, empty text or nil image
// is a no-op, as is zero opacity.
func (m Watermark) Apply(dc *gg.Context) error {
	opacity := math.Min(math.Max(m.Opacity, 0), 1)
	if opacity == 0 {
		return nil
	}
	switch m.Kind {
	case KindText:
		if strings.TrimSpace(m.Text) == "" {
			return nil
		}
		return m.applyText(dc, opacity)
	case KindImage:
		if m.Image == nil {
			return nil
		}
		return m.applyImage(dc, opacity)
	}
	return nil
}

func (m Watermark) applyText(dc *gg.Context, opacity float64) error {
	face, err := m.resolveFace()
	if err != nil {
		return err
	}
	dc.SetFont(face)

	col := m.Color
	if col == (color.NRGBA{}) {
		col = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	// Opacity folds into the text color's alpha.
	col.A = uint8(math.Round(float64(col.A) * opacity))
	dc.SetColor(col)

	w, h := dc.MeasureString(m.Text)
	angle := m.RotationDegrees * math.Pi / 180

	stamp := func(ax, ay float64) {
		dc.Push()
		if angle != 0 {
			dc.RotateAbout(angle, ax, ay)
		}
		dc.DrawStringAnchored(m.Text, ax, ay, 0.5, 0.5)
		dc.Pop()
	}

	if m.Tiled {
		forEachTile(dc, textTileStride*math.Max(w, h), stamp)
		return nil
	}
	ax, ay := anchorPoint(dc, m.Position, w, h)
	stamp(ax, ay)
	return nil
}

func (m Watermark) applyImage(dc *gg.Context, opacity float64) error {
	scale := m.Scale
	if scale <= 0 {
		scale = DefaultImageScale
	}
	targetW := int(math.Round(scale * float64(dc.Width())))
	if targetW < 1 {
		targetW = 1
	}

	// Height 0 derives from the watermark's aspect ratio.
	resized := imaging.Resize(m.Image, targetW, 0, imaging.Lanczos)
	buf := gg.ImageBufFromImage(resized)
	w := float64(resized.Bounds().Dx())
	h := float64(resized.Bounds().Dy())
	angle := m.RotationDegrees * math.Pi / 180

	stamp := func(ax, ay float64) {
		dc.Push()
		if angle != 0 {
			dc.RotateAbout(angle, ax, ay)
		}
		dc.DrawImageEx(buf, gg.DrawImageOptions{
			X:             ax - w/2,
			Y:             ay - h/2,
			Interpolation: gg.InterpBilinear,
			Opacity:       opacity,
			BlendMode:     gg.BlendNormal,
		})
		dc.Pop()
	}

	if m.Tiled {
		forEachTile(dc, imageTileStride*math.Max(w, h), stamp)
		return nil
	}
	ax, ay := anchorPoint(dc, m.Position, w, h)
	stamp(ax+m.OffsetX, ay+m.OffsetY)
	return nil
}

func (m Watermark) resolveFace() (text.Face, error) {
	size := m.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	if m.Font != nil {
		return m.Font.Face(size), nil
	}
	src, err := defaultFontSource()
	if err != nil {
		return nil, fmt.Errorf("load embedded font: %w", err)
	}
	return src.Face(size), nil
}

// anchorPoint returns the center of a stamp with bounding box w x h for the
// requested position: corners keep the box cornerMargin px inside the
// canvas, center is the exact canvas center.
func anchorPoint(dc *gg.Context, pos Position, w, h float64) (float64, float64) {
	cw, ch := float64(dc.Width()), float64(dc.Height())
	switch pos {
	case PositionTopLeft:
		return cornerMargin + w/2, cornerMargin + h/2
	case PositionTopRight:
		return cw - cornerMargin - w/2, cornerMargin + h/2
	case PositionBottomLeft:
		return cornerMargin + w/2, ch - cornerMargin - h/2
	case PositionCenter:
		return cw / 2, ch / 2
	}
	return cw - cornerMargin - w/2, ch - cornerMargin - h/2
}

// forEachTile repeats a stamp on a square grid covering the canvas plus one
// extra stride past each far edge, so corner regions are never starved.
func forEachTile(dc *gg.Context, stride float64, stamp func(x, y float64)) {
	if stride < 1 {
		stride = 1
	}
	maxX := float64(dc.Width()) + stride
	maxY := float64(dc.Height()) + stride
	for y := 0.0; y < maxY; y += stride {
		for x := 0.0; x < maxX; x += stride {
			stamp(x, y)
		}
	}
}

// TileStride exposes the grid step used for a bounding box of the given
// size, for tests and for the inspect report.
func TileStride(kind Kind, w, h float64) float64 {
	if kind == KindImage {
		return imageTileStride * math.Max(w, h)
	}
	return textTileStride * math.Max(w, h)
}
