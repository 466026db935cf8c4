package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Composite ordered images into a single stitched output",
	Long: `stitch — joins a sequence of images into one canvas, stacked or
side by side, with gaps, padding, alignment, rounded corners, borders
and watermarks.

Inputs are EXIF-normalized before placement; output filenames are
content-addressed: <stem>.<w>.<h>.<hash>.<ext>`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"stitch %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[stitch] "+format+"\n", args...)
	}
}
