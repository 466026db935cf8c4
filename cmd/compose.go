package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/stitch-cli/internal/job"
	"github.com/AnyUserName/stitch-cli/internal/render"
	"github.com/AnyUserName/stitch-cli/internal/settings"
	"github.com/AnyUserName/stitch-cli/internal/source"
)

var (
	composeOut          string
	composePreset       string
	composeSettings     string
	composeSaveSettings string

	composeAxis        string
	composeAlign       string
	composeGap         int
	composeGapColor    string
	composePadding     int
	composeBackground  string
	composeTransparent bool

	composeUniformWidth  int
	composeUniformHeight int
	composeMaxWidth      int
	composeMaxHeight     int

	composeRadius      int
	composeBorderWidth int
	composeBorderColor string

	composeFormat  string
	composeQuality float64

	composeMarkText     string
	composeMarkColor    string
	composeMarkSize     float64
	composeMarkFont     string
	composeMarkImage    string
	composeMarkScale    float64
	composeMarkOpacity  float64
	composeMarkRotation float64
	composeMarkPosition string
	composeMarkTiled    bool
	composeMarkOffsetX  float64
	composeMarkOffsetY  float64
)

var composeCmd = &cobra.Command{
	Use:   "compose <image> [image...]",
	Short: "Stitch images into a single composite",
	Long: `Joins the given images, in argument order, into one output image.

Defaults come from a preset or a settings file; flags override both.
Without --out the result is written next to the first input with a
content-addressed name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompose,
}

func init() {
	f := composeCmd.Flags()
	f.StringVarP(&composeOut, "out", "o", "", "output path (default: content-addressed name)")
	f.StringVarP(&composePreset, "preset", "p", "default", "settings preset")
	f.StringVar(&composeSettings, "settings", "", "settings file to load")
	f.StringVar(&composeSaveSettings, "save-settings", "", "write the effective settings to a file")

	f.StringVar(&composeAxis, "axis", "stacked", "stacked or side-by-side")
	f.StringVar(&composeAlign, "align", "center", "cross-axis alignment: start, center, end")
	f.IntVar(&composeGap, "gap", 0, "pixels between images")
	f.StringVar(&composeGapColor, "gap-color", "", "gap fill color (hex)")
	f.IntVar(&composePadding, "padding", 0, "outer padding in pixels")
	f.StringVar(&composeBackground, "background", "", "background color (hex)")
	f.BoolVar(&composeTransparent, "transparent", false, "transparent background")

	f.IntVar(&composeUniformWidth, "uniform-width", 0, "resize every image to this width")
	f.IntVar(&composeUniformHeight, "uniform-height", 0, "resize every image to this height")
	f.IntVar(&composeMaxWidth, "max-width", 0, "cap the output content width")
	f.IntVar(&composeMaxHeight, "max-height", 0, "cap the output content height")

	f.IntVar(&composeRadius, "radius", 0, "rounded corner radius")
	f.IntVar(&composeBorderWidth, "border-width", 0, "border stroke width")
	f.StringVar(&composeBorderColor, "border-color", "", "border color (hex)")

	f.StringVarP(&composeFormat, "format", "f", "", "output format: png, jpeg, webp, avif")
	f.Float64VarP(&composeQuality, "quality", "q", 0, "quality 0..1 (0 = encoder default)")

	f.StringVar(&composeMarkText, "watermark-text", "", "text watermark")
	f.StringVar(&composeMarkColor, "watermark-color", "", "text watermark color (hex)")
	f.Float64Var(&composeMarkSize, "watermark-size", 0, "text watermark font size")
	f.StringVar(&composeMarkFont, "watermark-font", "", "TTF/OTF font file for the text watermark")
	f.StringVar(&composeMarkImage, "watermark-image", "", "image watermark file")
	f.Float64Var(&composeMarkScale, "watermark-scale", 0, "image watermark width as a fraction of the canvas")
	f.Float64Var(&composeMarkOpacity, "watermark-opacity", 0, "watermark opacity 0..1")
	f.Float64Var(&composeMarkRotation, "watermark-rotation", 0, "watermark rotation in degrees")
	f.StringVar(&composeMarkPosition, "watermark-position", "", "anchor: bottom-right, bottom-left, top-right, top-left, center")
	f.BoolVar(&composeMarkTiled, "watermark-tiled", false, "repeat the watermark on a grid")
	f.Float64Var(&composeMarkOffsetX, "watermark-offset-x", 0, "image watermark x offset")
	f.Float64Var(&composeMarkOffsetY, "watermark-offset-y", 0, "image watermark y offset")

	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	start := time.Now()

	st, err := effectiveSettings(cmd)
	if err != nil {
		return err
	}
	if composeSaveSettings != "" {
		if err := settings.Save(st, composeSaveSettings); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		logVerbose("settings: wrote %s", composeSaveSettings)
	}

	logVerbose("settings: axis=%s align=%s gap=%d format=%s",
		st.Axis, st.Align, st.Gap, st.Format)

	// Read inputs in argument order; order is stitch order.
	images := make([]job.InputImage, len(args))
	for i, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		images[i] = job.InputImage{Name: filepath.Base(path), Raw: raw}
	}

	var stamp image.Image
	if composeMarkImage != "" {
		raw, err := os.ReadFile(composeMarkImage)
		if err != nil {
			return fmt.Errorf("read watermark image: %w", err)
		}
		img, err := source.FromBytes(filepath.Base(composeMarkImage), raw)
		if err != nil {
			return fmt.Errorf("watermark image: %w", err)
		}
		stamp = img.Pixels
	}

	req, err := st.Request(images, stamp)
	if err != nil {
		return err
	}
	if composeMarkFont != "" {
		font, err := render.LoadFontSource(composeMarkFont)
		if err != nil {
			return fmt.Errorf("watermark font: %w", err)
		}
		for i := range req.Marks {
			if req.Marks[i].Kind == render.KindText {
				req.Marks[i].Font = font
			}
		}
	}
	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	}
	runner := job.NewRunner(1, logger)
	defer runner.Close()

	j, err := runner.Submit(req)
	if err != nil {
		return err
	}

	// Ctrl-C cancels at the next per-image boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		j.Cancel()
	}()

	var blob []byte
	var mime string
	for e := range j.Events() {
		switch e.Type {
		case job.EventProgress:
			logVerbose("progress: %3.0f%%", e.Progress*100)
		case job.EventResult:
			blob, mime = e.Blob, e.MIME
		case job.EventCancelled:
			return fmt.Errorf("cancelled")
		case job.EventError:
			return fmt.Errorf("compose: %s", e.Message)
		}
	}

	outPath := composeOut
	if outPath == "" {
		outPath = contentAddressedName(args[0], blob, mime)
	}
	if err := os.WriteFile(outPath, blob, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printComposeReport(outPath, len(args), blob, time.Since(start))
	return nil
}

// effectiveSettings layers preset, settings file and changed flags.
func effectiveSettings(cmd *cobra.Command) (settings.Settings, error) {
	st := settings.Get(composePreset)
	if composeSettings != "" {
		loaded, err := settings.Load(composeSettings)
		if err != nil {
			return settings.Settings{}, fmt.Errorf("load settings: %w", err)
		}
		st = loaded
	}

	f := cmd.Flags()
	if f.Changed("axis") {
		st.Axis = composeAxis
	}
	if f.Changed("align") {
		st.Align = composeAlign
	}
	if f.Changed("gap") {
		st.Gap = composeGap
	}
	if f.Changed("gap-color") {
		st.GapColor = composeGapColor
	}
	if f.Changed("padding") {
		st.OuterPadding = composePadding
	}
	if f.Changed("background") {
		st.BackgroundColor = composeBackground
	}
	if f.Changed("transparent") {
		st.TransparentBackground = composeTransparent
	}
	if f.Changed("uniform-width") {
		st.UniformWidth = composeUniformWidth
	}
	if f.Changed("uniform-height") {
		st.UniformHeight = composeUniformHeight
	}
	if f.Changed("max-width") {
		st.MaxOutputWidth = composeMaxWidth
	}
	if f.Changed("max-height") {
		st.MaxOutputHeight = composeMaxHeight
	}
	if f.Changed("radius") {
		st.BorderRadius = composeRadius
	}
	if f.Changed("border-width") {
		st.BorderWidth = composeBorderWidth
	}
	if f.Changed("border-color") {
		st.BorderColor = composeBorderColor
	}
	if f.Changed("format") {
		st.Format = composeFormat
	}
	if f.Changed("quality") {
		st.Quality = composeQuality
	}
	if f.Changed("watermark-text") {
		st.WatermarkText = composeMarkText
	}
	if f.Changed("watermark-color") {
		st.WatermarkColor = composeMarkColor
	}
	if f.Changed("watermark-size") {
		st.WatermarkFontSize = composeMarkSize
	}
	if f.Changed("watermark-scale") {
		st.WatermarkImageScale = composeMarkScale
	}
	if f.Changed("watermark-opacity") {
		st.WatermarkOpacity = composeMarkOpacity
		st.WatermarkImageOpacity = composeMarkOpacity
	}
	if f.Changed("watermark-rotation") {
		st.WatermarkRotation = composeMarkRotation
	}
	if f.Changed("watermark-position") {
		st.WatermarkPosition = composeMarkPosition
	}
	if f.Changed("watermark-tiled") {
		st.WatermarkTiled = composeMarkTiled
	}
	if f.Changed("watermark-offset-x") {
		st.WatermarkOffsetX = composeMarkOffsetX
	}
	if f.Changed("watermark-offset-y") {
		st.WatermarkOffsetY = composeMarkOffsetY
	}
	return st, nil
}

// contentAddressedName derives <stem>.<w>.<h>.<hash>.<ext> next to the
// first input. Dimensions are dropped when the encoded blob cannot be
// re-read for its config (avif).
func contentAddressedName(firstInput string, blob []byte, mime string) string {
	dir := filepath.Dir(firstInput)
	stem := strings.TrimSuffix(filepath.Base(firstInput), filepath.Ext(firstInput))
	hash := contentHash(blob)
	ext := extensionFor(mime)

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(blob)); err == nil {
		return filepath.Join(dir, fmt.Sprintf("%s.stitch.%d.%d.%s%s", stem, cfg.Width, cfg.Height, hash, ext))
	}
	return filepath.Join(dir, fmt.Sprintf("%s.stitch.%s%s", stem, hash, ext))
}

// contentHash is the xxHash64 of data as 16 hex chars, collision-safe for
// practical output counts.
func contentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	}
	return ".png"
}

func printComposeReport(outPath string, inputs int, blob []byte, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║              stitch compose complete             ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Inputs:  %d\n", inputs)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(blob)); err == nil {
		fmt.Printf("  Canvas:  %dx%d\n", cfg.Width, cfg.Height)
	}
	fmt.Printf("  Size:    %s\n", formatBytes(int64(len(blob))))
	fmt.Printf("  Time:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Output:  %s\n", outPath)
	fmt.Println()
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
