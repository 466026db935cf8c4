package render

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"

	"github.com/AnyUserName/stitch-cli/internal/layout"
	"github.com/AnyUserName/stitch-cli/internal/source"
)

// ErrNoImages is returned when a composite is requested over an empty
// image list.
var ErrNoImages = errors.New("no images to composite")

// Composite renders the planned placements onto a fresh canvas and returns
// it. onDrawn, when non-nil, is invoked once per image with (drawn, total).
//
// Cancellation is cooperative: ctx is consulted after each image draw and
// once more after the watermark pass, never mid-draw. A cancelled context
// aborts with ctx.Err() and no canvas is returned.
func Composite(
	ctx context.Context,
	plan layout.Plan,
	images []*source.Image,
	opts layout.Options,
	style Style,
	marks []Watermark,
	onDrawn func(drawn, total int),
) (image.Image, error) {
	if len(plan.Placements) == 0 || len(images) == 0 {
		return nil, ErrNoImages
	}

	opts = opts.Validate()
	pad := opts.OuterPadding
	cw, ch := plan.ContentWidth, plan.ContentHeight

	dc := gg.NewContext(cw+2*pad, ch+2*pad)
	if !style.Transparent {
		dc.ClearWithColor(gg.FromColor(style.Background))
	}

	radius := clampRadius(style.BorderRadius, cw, ch)

	// Content pass: translate into the content area and clip to the
	// rounded rectangle. Push/Pop scopes both so the border stroke and
	// watermarks later draw unclipped.
	dc.Push()
	dc.Translate(float64(pad), float64(pad))
	if radius > 0 {
		dc.DrawRoundedRectangle(0, 0, float64(cw), float64(ch), radius)
		dc.Clip()
	}

	total := len(plan.Placements)
	var prev layout.Placement
	for i, p := range plan.Placements {
		if i > 0 && plan.ScaledGap > 0 {
			if err := fillGapBand(dc, prev, p, opts, cw, ch); err != nil {
				return nil, err
			}
		}

		img := images[p.Index]
		resized := imaging.Resize(img.Pixels, p.Width, p.Height, imaging.Lanczos)
		dc.DrawImage(gg.ImageBufFromImage(resized), float64(p.X), float64(p.Y))

		if onDrawn != nil {
			onDrawn(i+1, total)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev = p
	}
	dc.Pop()

	if style.BorderWidth > 0 {
		dc.Push()
		dc.Translate(float64(pad), float64(pad))
		dc.DrawRoundedRectangle(0, 0, float64(cw), float64(ch), radius)
		dc.SetColor(style.BorderColor)
		dc.SetLineWidth(float64(style.BorderWidth))
		if err := dc.Stroke(); err != nil {
			dc.Pop()
			return nil, fmt.Errorf("stroke border: %w", err)
		}
		dc.Pop()
	}

	for _, m := range marks {
		if err := m.Apply(dc); err != nil {
			return nil, fmt.Errorf("watermark: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return dc.Image(), nil
}

// fillGapBand paints the gap between two consecutive placements across the
// full cross-axis extent of the content area.
func fillGapBand(dc *gg.Context, prev, cur layout.Placement, opts layout.Options, cw, ch int) error {
	if opts.GapColor.A == 0 {
		return nil
	}
	var x, y, w, h float64
	if opts.Axis == layout.AxisSideBySide {
		x = float64(prev.X + prev.Width)
		w = float64(cur.X) - x
		h = float64(ch)
	} else {
		y = float64(prev.Y + prev.Height)
		h = float64(cur.Y) - y
		w = float64(cw)
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	dc.SetColor(opts.GapColor)
	dc.DrawRectangle(x, y, w, h)
	return dc.Fill()
}
