package source

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is one decoded, orientation-normalized input of a stitch job.
// Immutable once created; the pixel data may be shared read-only between
// concurrently running jobs.
type Image struct {
	// ID is an opaque unique token assigned at ingestion.
	ID string
	// DisplayName is the caller-supplied name (usually the file name).
	DisplayName string
	// Pixels is the decoded bitmap, already normalized to a top-left
	// origin (EXIF orientation applied).
	Pixels image.Image
	// Width and Height are the normalized pixel dimensions.
	Width  int
	Height int
	// Format is the detected source format (png, jpeg, ...).
	Format string
	// Orientation is the EXIF orientation flag found in the raw bytes,
	// OrientationUnspecified when none was present.
	Orientation Orientation
}

// FromBytes decodes raw image bytes into a normalized Image.
// A missing or unparsable EXIF block is not an error: the image proceeds
// unrotated and Orientation stays OrientationUnspecified.
func FromBytes(displayName string, raw []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", displayName, err)
	}

	orient := ReadOrientation(bytes.NewReader(raw))
	img = Normalize(img, orient)

	bounds := img.Bounds()
	return &Image{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Pixels:      img,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Format:      format,
		Orientation: orient,
	}, nil
}

// FromImage wraps an already-decoded bitmap handle supplied by a
// collaborator. No orientation handling is applied.
func FromImage(displayName string, img image.Image) *Image {
	bounds := img.Bounds()
	return &Image{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Pixels:      img,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Orientation: OrientationUnspecified,
	}
}
