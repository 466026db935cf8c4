package encoder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Atomic counter for unique temp file names across goroutines.
var tempCounter atomic.Int64

// viaTempFiles writes img as a temporary PNG, runs the encoder command on
// it and reads the produced file back. Both cwebp and avifenc only operate
// on files, not pipes.
func viaTempFiles(img image.Image, dstExt string, run func(srcPath, dstPath string) *exec.Cmd) ([]byte, error) {
	id := tempCounter.Add(1)
	srcFile, err := os.CreateTemp("", fmt.Sprintf("stitch_src_%d_*.png", id))
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	srcPath := srcFile.Name()
	defer os.Remove(srcPath)

	dstFile, err := os.CreateTemp("", fmt.Sprintf("stitch_dst_%d_*.%s", id, dstExt))
	if err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("create temp: %w", err)
	}
	dstPath := dstFile.Name()
	dstFile.Close()
	defer os.Remove(dstPath)

	if err := png.Encode(srcFile, img); err != nil {
		srcFile.Close()
		return nil, fmt.Errorf("encode temp png: %w", err)
	}
	srcFile.Close()

	cmd := run(srcPath, dstPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", cmd.Args[0], err, string(out))
	}
	return os.ReadFile(dstPath)
}

// WebPEncoder encodes canvases to WebP by shelling out to cwebp.
// This avoids CGO while still producing optimized WebP.
// Install: brew install webp / apt install webp
type WebPEncoder struct {
	once      sync.Once
	available bool
	cwebpPath string
}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) MIME() string      { return "image/webp" }

func (e *WebPEncoder) Available() bool {
	e.once.Do(func() {
		if path, err := exec.LookPath("cwebp"); err == nil {
			e.available = true
			e.cwebpPath = path
		}
	})
	return e.available
}

func (e *WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("cwebp not found in PATH; install with: brew install webp")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	return viaTempFiles(img, "webp", func(srcPath, dstPath string) *exec.Cmd {
		return exec.Command(e.cwebpPath,
			"-q", fmt.Sprintf("%d", quality),
			"-m", "6", // compression method (0=fast, 6=best)
			"-mt",
			"-quiet",
			srcPath,
			"-o", dstPath,
		)
	})
}

// AVIFEncoder encodes canvases to AVIF by shelling out to avifenc.
// Install: brew install libavif / apt install libavif-bin
type AVIFEncoder struct {
	once        sync.Once
	available   bool
	avifencPath string
}

func (e *AVIFEncoder) Format() string    { return "avif" }
func (e *AVIFEncoder) Extension() string { return "avif" }
func (e *AVIFEncoder) MIME() string      { return "image/avif" }

func (e *AVIFEncoder) Available() bool {
	e.once.Do(func() {
		if path, err := exec.LookPath("avifenc"); err == nil {
			e.available = true
			e.avifencPath = path
		}
	})
	return e.available
}

func (e *AVIFEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if !e.Available() {
		return nil, fmt.Errorf("avifenc not found in PATH; install with: brew install libavif")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	// avifenc uses an inverted 0-63 scale: lower is better.
	avifQ := 63 - (quality * 63 / 100)

	return viaTempFiles(img, "avif", func(srcPath, dstPath string) *exec.Cmd {
		return exec.Command(e.avifencPath,
			"--min", fmt.Sprintf("%d", avifQ),
			"--max", fmt.Sprintf("%d", avifQ),
			"--speed", "6",
			"-j", "all",
			srcPath,
			dstPath,
		)
	})
}
