package settings

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/AnyUserName/stitch-cli/internal/job"
	"github.com/AnyUserName/stitch-cli/internal/layout"
	"github.com/AnyUserName/stitch-cli/internal/render"
)

// Settings is the flat, serializable form of a stitch configuration. It is
// the shape stored in settings files and accepted as the "options" part of
// a job submission. Zero values mean "use the engine default".
type Settings struct {
	Name string `json:"name,omitempty"`

	Axis         string `json:"axis,omitempty"`          // stacked | side-by-side
	Align        string `json:"align,omitempty"`         // start | center | end
	Gap          int    `json:"gap,omitempty"`           // pixels between images
	GapColor     string `json:"gap_color,omitempty"`     // hex; empty leaves gaps as background
	OuterPadding int    `json:"outer_padding,omitempty"` // pixels around the content

	TransparentBackground bool   `json:"transparent_background,omitempty"`
	BackgroundColor       string `json:"background_color,omitempty"` // hex; empty means white

	UniformWidth    int `json:"uniform_width,omitempty"`
	UniformHeight   int `json:"uniform_height,omitempty"`
	MaxOutputWidth  int `json:"max_output_width,omitempty"`
	MaxOutputHeight int `json:"max_output_height,omitempty"`

	BorderRadius int    `json:"border_radius,omitempty"`
	BorderWidth  int    `json:"border_width,omitempty"`
	BorderColor  string `json:"border_color,omitempty"`

	Format  string  `json:"format,omitempty"`  // png | jpeg | webp | avif
	Quality float64 `json:"quality,omitempty"` // 0..1; 0 picks the encoder default

	WatermarkText     string  `json:"watermark_text,omitempty"`
	WatermarkColor    string  `json:"watermark_color,omitempty"`
	WatermarkFontSize float64 `json:"watermark_font_size,omitempty"`
	WatermarkOpacity  float64 `json:"watermark_opacity,omitempty"`
	WatermarkRotation float64 `json:"watermark_rotation,omitempty"` // degrees
	WatermarkPosition string  `json:"watermark_position,omitempty"`
	WatermarkTiled    bool    `json:"watermark_tiled,omitempty"`

	// Image watermark parameters. The stamp bitmap itself travels out of
	// band (a file path on the CLI, a multipart part over HTTP).
	WatermarkImageScale   float64 `json:"watermark_image_scale,omitempty"`
	WatermarkImageOpacity float64 `json:"watermark_image_opacity,omitempty"`
	WatermarkOffsetX      float64 `json:"watermark_offset_x,omitempty"`
	WatermarkOffsetY      float64 `json:"watermark_offset_y,omitempty"`
}

// DefaultWatermarkOpacity applies when a watermark is requested without an
// explicit opacity. Zero would render the requested mark invisible.
const DefaultWatermarkOpacity = 0.35

// Built-in presets.
var presets = map[string]Settings{
	"default": {
		Name:            "default",
		Axis:            "stacked",
		Align:           "center",
		Gap:             8,
		BackgroundColor: "#ffffff",
		Format:          "png",
	},
	"strip": {
		Name:    "strip",
		Axis:    "stacked",
		Align:   "center",
		Format:  "jpeg",
		Quality: 0.85,
	},
	"side-by-side": {
		Name:            "side-by-side",
		Axis:            "side-by-side",
		Align:           "center",
		Gap:             8,
		BackgroundColor: "#ffffff",
		Format:          "png",
	},
	"watermarked": {
		Name:              "watermarked",
		Axis:              "stacked",
		Align:             "center",
		Gap:               8,
		BackgroundColor:   "#ffffff",
		Format:            "jpeg",
		Quality:           0.85,
		WatermarkText:     "PREVIEW",
		WatermarkOpacity:  0.35,
		WatermarkRotation: -30,
		WatermarkTiled:    true,
	},
}

// Get returns a preset by name. Falls back to default if unknown.
func Get(name string) Settings {
	if s, ok := presets[name]; ok {
		return s
	}
	s := presets["default"]
	s.Name = name // preserve requested name
	return s
}

// Presets lists the built-in preset names.
func Presets() []string {
	return []string{"default", "strip", "side-by-side", "watermarked"}
}

// Load reads a settings file. Unknown fields are ignored so files written
// by newer builds still load.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Save serializes the settings to a JSON file with stable ordering.
func Save(s Settings, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// parseColor resolves an optional hex field, substituting def when empty.
func parseColor(s string, def color.NRGBA) (color.NRGBA, error) {
	if s == "" {
		return def, nil
	}
	return layout.ParseHexColor(s)
}

// Layout builds the planner options. Color fields must be valid hex.
func (s Settings) Layout() (layout.Options, error) {
	gapColor, err := parseColor(s.GapColor, color.NRGBA{})
	if err != nil {
		return layout.Options{}, fmt.Errorf("gap_color: %w", err)
	}
	return layout.Options{
		Axis:            layout.ParseAxis(s.Axis),
		Align:           layout.ParseAlign(s.Align),
		Gap:             s.Gap,
		GapColor:        gapColor,
		OuterPadding:    s.OuterPadding,
		UniformWidth:    s.UniformWidth,
		UniformHeight:   s.UniformHeight,
		MaxOutputWidth:  s.MaxOutputWidth,
		MaxOutputHeight: s.MaxOutputHeight,
	}.Validate(), nil
}

// Style builds the canvas decoration.
func (s Settings) Style() (render.Style, error) {
	bg, err := parseColor(s.BackgroundColor, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	if err != nil {
		return render.Style{}, fmt.Errorf("background_color: %w", err)
	}
	borderColor, err := parseColor(s.BorderColor, color.NRGBA{A: 255})
	if err != nil {
		return render.Style{}, fmt.Errorf("border_color: %w", err)
	}
	return render.Style{
		Background:   bg,
		Transparent:  s.TransparentBackground,
		BorderRadius: s.BorderRadius,
		BorderWidth:  s.BorderWidth,
		BorderColor:  borderColor,
	}, nil
}

// Watermarks builds the overlay list. A text mark is present when
// watermark_text is non-empty; an image mark when a stamp bitmap was
// supplied alongside the settings.
func (s Settings) Watermarks(stamp image.Image) ([]render.Watermark, error) {
	var marks []render.Watermark

	opacity := s.WatermarkOpacity
	if opacity == 0 {
		opacity = DefaultWatermarkOpacity
	}

	if s.WatermarkText != "" {
		c, err := parseColor(s.WatermarkColor, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		if err != nil {
			return nil, fmt.Errorf("watermark_color: %w", err)
		}
		marks = append(marks, render.Watermark{
			Kind:            render.KindText,
			Text:            s.WatermarkText,
			Color:           c,
			FontSize:        s.WatermarkFontSize,
			Opacity:         opacity,
			RotationDegrees: s.WatermarkRotation,
			Position:        render.ParsePosition(s.WatermarkPosition),
			Tiled:           s.WatermarkTiled,
		})
	}

	if stamp != nil {
		imageOpacity := s.WatermarkImageOpacity
		if imageOpacity == 0 {
			imageOpacity = opacity
		}
		marks = append(marks, render.Watermark{
			Kind:            render.KindImage,
			Image:           stamp,
			Scale:           s.WatermarkImageScale,
			Opacity:         imageOpacity,
			RotationDegrees: s.WatermarkRotation,
			Position:        render.ParsePosition(s.WatermarkPosition),
			Tiled:           s.WatermarkTiled,
			OffsetX:         s.WatermarkOffsetX,
			OffsetY:         s.WatermarkOffsetY,
		})
	}

	return marks, nil
}

// Output names the encoded result.
func (s Settings) Output() job.Output {
	format := s.Format
	if format == "" {
		format = "png"
	}
	return job.Output{Format: format, Quality: s.Quality}
}

// Request assembles a full job request from decoded inputs, the settings
// and an optional watermark stamp.
func (s Settings) Request(images []job.InputImage, stamp image.Image) (job.Request, error) {
	opts, err := s.Layout()
	if err != nil {
		return job.Request{}, err
	}
	style, err := s.Style()
	if err != nil {
		return job.Request{}, err
	}
	marks, err := s.Watermarks(stamp)
	if err != nil {
		return job.Request{}, err
	}
	return job.Request{
		Images: images,
		Layout: opts,
		Style:  style,
		Marks:  marks,
		Output: s.Output(),
	}, nil
}
