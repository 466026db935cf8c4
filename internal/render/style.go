package render

import "image/color"

// Style controls the decoration of the composite canvas.
type Style struct {
	// Background fills the whole canvas, padding included, unless
	// Transparent is set.
	Background  color.NRGBA
	Transparent bool

	// BorderRadius rounds the content-area corners; content drawing is
	// clipped to the rounded rectangle. The radius is clamped to half the
	// shorter content side.
	BorderRadius int

	// BorderWidth strokes the content boundary with BorderColor after all
	// images are drawn. The stroke itself is not clipped by the rounded
	// mask.
	BorderWidth int
	BorderColor color.NRGBA
}

// clampRadius keeps the corner radius drawable for a content area of the
// given size.
func clampRadius(radius, w, h int) float64 {
	if radius <= 0 {
		return 0
	}
	shorter := w
	if h < shorter {
		shorter = h
	}
	if radius > shorter/2 {
		radius = shorter / 2
	}
	return float64(radius)
}
