package encoder

import (
	"image"
	"math"
)

// Encoder encodes a finished canvas to one output format.
type Encoder interface {
	// Format returns the output format name (e.g. "png", "jpeg", "webp").
	Format() string

	// Encode converts the image to bytes at the given quality (1-100).
	// Lossless formats ignore the quality argument.
	Encode(img image.Image, quality int) ([]byte, error)

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp, avifenc) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string

	// MIME returns the media type for the encoded bytes.
	MIME() string
}

// QualityScale maps the wire-level quality fraction [0, 1] onto the 1-100
// encoder scale. Out-of-range input clamps; <= 0 means "encoder default".
func QualityScale(q float64) int {
	if q <= 0 {
		return 0
	}
	if q > 1 {
		q = 1
	}
	v := int(math.Round(q * 100))
	if v < 1 {
		v = 1
	}
	return v
}
