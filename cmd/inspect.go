package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/stitch-cli/internal/encoder"
	"github.com/AnyUserName/stitch-cli/internal/layout"
	"github.com/AnyUserName/stitch-cli/internal/source"
)

var (
	inspectAxis      string
	inspectGap       int
	inspectMaxWidth  int
	inspectMaxHeight int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image> [image...]",
	Short: "Report input dimensions, formats, EXIF orientation and the planned layout",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectAxis, "axis", "stacked", "stacked or side-by-side")
	inspectCmd.Flags().IntVar(&inspectGap, "gap", 0, "pixels between images")
	inspectCmd.Flags().IntVar(&inspectMaxWidth, "max-width", 0, "cap the output content width")
	inspectCmd.Flags().IntVar(&inspectMaxHeight, "max-height", 0, "cap the output content height")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	var sizes []layout.Size
	failed := 0

	fmt.Println()
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  ✗ %-32s %v\n", filepath.Base(path), err)
			failed++
			continue
		}
		img, err := source.FromBytes(filepath.Base(path), raw)
		if err != nil {
			fmt.Printf("  ✗ %-32s undecodable: %v\n", filepath.Base(path), err)
			failed++
			continue
		}

		orient := ""
		if img.Orientation > source.OrientationNormal {
			orient = fmt.Sprintf("  (exif %s)", img.Orientation)
		}
		fmt.Printf("  ✓ %-32s %5dx%-5d %-5s%s\n",
			img.DisplayName, img.Width, img.Height, img.Format, orient)
		sizes = append(sizes, layout.Size{Width: img.Width, Height: img.Height})
	}
	fmt.Println()

	if len(sizes) > 0 {
		opts := layout.Options{
			Axis:            layout.ParseAxis(inspectAxis),
			Gap:             inspectGap,
			MaxOutputWidth:  inspectMaxWidth,
			MaxOutputHeight: inspectMaxHeight,
		}.Validate()
		plan := layout.Compute(sizes, opts)

		fmt.Printf("  Plan (%s, gap %d):\n", opts.Axis, plan.ScaledGap)
		for _, p := range plan.Placements {
			fmt.Printf("    [%d] %dx%d at (%d, %d)\n", p.Index, p.Width, p.Height, p.X, p.Y)
		}
		fmt.Printf("  Canvas:  %dx%d", plan.ContentWidth, plan.ContentHeight)
		if plan.Scale < 1 {
			fmt.Printf("  (scaled to %.2f)", plan.Scale)
		}
		fmt.Println()
	}

	fmt.Printf("  Formats: %s\n", strings.Join(encoder.NewRegistry().Available(), ", "))
	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d input(s) failed inspection", failed)
	}
	return nil
}
