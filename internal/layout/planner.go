package layout

import "math"

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Placement is the final draw rectangle for one image, in content
// coordinates (outer padding excluded).
type Placement struct {
	// Index into the job's image list.
	Index int
	X, Y  int
	// Width and Height are the post-global-scale draw dimensions.
	Width  int
	Height int
}

// Plan is the computed geometry of one composite.
type Plan struct {
	// ContentWidth and ContentHeight are the final composite dimensions
	// excluding outer padding. They never exceed the max-output bounds.
	ContentWidth  int
	ContentHeight int
	// Scale is the single global downscale factor in (0, 1] applied to the
	// raw extent to satisfy the max-output bounds.
	Scale float64
	// ScaledGap is the inter-image gap after global scaling.
	ScaledGap int
	// Placements holds one draw rectangle per input, in input order.
	Placements []Placement
}

// Compute turns the input dimensions plus options into exact pixel
// placements. The zero-image case yields an empty plan with Scale 1.
func Compute(sizes []Size, opts Options) Plan {
	opts = opts.Validate()
	if len(sizes) == 0 {
		return Plan{Scale: 1}
	}

	// Step 1: per-image target sizes under the uniform-size constraint.
	targets := make([]Size, len(sizes))
	for i, s := range sizes {
		targets[i] = targetSize(s, opts)
	}

	// Step 2: raw composite extent. Along the stacking axis the images and
	// gaps add up; across it the widest/tallest image wins.
	var rawMain, rawCross int
	for _, t := range targets {
		m, c := axisSplit(t, opts.Axis)
		rawMain += m
		if c > rawCross {
			rawCross = c
		}
	}
	rawMain += opts.Gap * (len(targets) - 1)

	rawW, rawH := axisJoin(rawMain, rawCross, opts.Axis)

	// Step 3: one global downscale factor; unset bounds act as +inf and the
	// plan never upscales to fill a bound.
	scale := 1.0
	if opts.MaxOutputWidth > 0 {
		scale = math.Min(scale, float64(opts.MaxOutputWidth)/float64(rawW))
	}
	if opts.MaxOutputHeight > 0 {
		scale = math.Min(scale, float64(opts.MaxOutputHeight)/float64(rawH))
	}

	// Step 4: final content extent and scaled gap.
	contentW := atLeast(int(float64(rawW)*scale), 1)
	contentH := atLeast(int(float64(rawH)*scale), 1)
	scaledGap := int(math.Round(float64(opts.Gap) * scale))

	mainExtent, crossExtent := axisSplit(Size{contentW, contentH}, opts.Axis)

	// Step 5: walk the images, accumulating the main-axis offset and
	// aligning each image on the cross axis.
	plan := Plan{
		ContentWidth:  contentW,
		ContentHeight: contentH,
		Scale:         scale,
		ScaledGap:     scaledGap,
		Placements:    make([]Placement, len(targets)),
	}

	offset := 0
	for i, t := range targets {
		drawW := atLeast(int(math.Round(float64(t.Width)*scale)), 1)
		drawH := atLeast(int(math.Round(float64(t.Height)*scale)), 1)
		main, cross := axisSplit(Size{drawW, drawH}, opts.Axis)

		// Rounding each draw size independently can drift past the floored
		// content extent. The cross axis clamps per image; the last image
		// absorbs the main-axis drift so placements tile the content
		// exactly.
		if cross > crossExtent {
			cross = crossExtent
		}
		if i == len(targets)-1 {
			main = atLeast(mainExtent-offset, 1)
		}
		drawW, drawH = axisJoin(main, cross, opts.Axis)

		crossPos := 0
		switch opts.Align {
		case AlignCenter:
			crossPos = int(math.Round(float64(crossExtent-cross) / 2))
		case AlignEnd:
			crossPos = crossExtent - cross
		}

		x, y := axisJoin(offset, crossPos, opts.Axis)
		plan.Placements[i] = Placement{Index: i, X: x, Y: y, Width: drawW, Height: drawH}

		offset += main
		if i < len(targets)-1 {
			offset += scaledGap
		}
	}

	return plan
}

// targetSize applies the uniform-size constraint for the active axis: the
// stacked axis prefers a uniform width, side-by-side a uniform height, with
// the orthogonal value as fallback when only it is set.
func targetSize(s Size, opts Options) Size {
	w, h := s.Width, s.Height
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	uniformW, uniformH := opts.UniformWidth, opts.UniformHeight
	if opts.Axis == AxisSideBySide {
		// Height leads, width is the fallback.
		if uniformH > 0 {
			return scaleToHeight(w, h, uniformH)
		}
		if uniformW > 0 {
			return scaleToWidth(w, h, uniformW)
		}
		return Size{w, h}
	}
	if uniformW > 0 {
		return scaleToWidth(w, h, uniformW)
	}
	if uniformH > 0 {
		return scaleToHeight(w, h, uniformH)
	}
	return Size{w, h}
}

func scaleToWidth(w, h, target int) Size {
	scaled := int(math.Round(float64(h) * float64(target) / float64(w)))
	return Size{atLeast(target, 1), atLeast(scaled, 1)}
}

func scaleToHeight(w, h, target int) Size {
	scaled := int(math.Round(float64(w) * float64(target) / float64(h)))
	return Size{atLeast(scaled, 1), atLeast(target, 1)}
}

// axisSplit returns the (main, cross) components of a size for the axis.
func axisSplit(s Size, axis Axis) (main, cross int) {
	if axis == AxisSideBySide {
		return s.Width, s.Height
	}
	return s.Height, s.Width
}

// axisJoin is the inverse of axisSplit: (main, cross) back to (x-ish, y-ish)
// pairs, i.e. (width, height) or (x, y) depending on what was split.
func axisJoin(main, cross int, axis Axis) (x, y int) {
	if axis == AxisSideBySide {
		return main, cross
	}
	return cross, main
}

func atLeast(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
