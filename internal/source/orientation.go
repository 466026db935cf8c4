package source

import (
	"encoding/binary"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Orientation is the EXIF orientation flag (tag 0x0112). Values 1-8 describe
// the transform a viewer must apply to display the stored pixels upright.
type Orientation int

const (
	OrientationUnspecified Orientation = 0
	OrientationNormal      Orientation = 1
	OrientationFlipH       Orientation = 2
	OrientationRotate180   Orientation = 3
	OrientationFlipV       Orientation = 4
	OrientationTranspose   Orientation = 5
	OrientationRotate270   Orientation = 6
	OrientationTransverse  Orientation = 7
	OrientationRotate90    Orientation = 8
)

// SwapsDimensions reports whether the orientation involves a 90-degree
// rotation, i.e. the normalized canvas swaps width and height.
func (o Orientation) SwapsDimensions() bool {
	return o >= OrientationTranspose && o <= OrientationRotate90
}

func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationFlipH:
		return "flip-h"
	case OrientationRotate180:
		return "rotate-180"
	case OrientationFlipV:
		return "flip-v"
	case OrientationTranspose:
		return "transpose"
	case OrientationRotate270:
		return "rotate-270"
	case OrientationTransverse:
		return "transverse"
	case OrientationRotate90:
		return "rotate-90"
	}
	return "unspecified"
}

// Normalize applies the inverse of the stored orientation so the result is a
// plain top-left-origin bitmap. Unspecified and normal orientations return
// the image unchanged.
func Normalize(img image.Image, o Orientation) image.Image {
	switch o {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate270:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate90:
		return imaging.Rotate90(img)
	}
	return img
}

// ReadOrientation scans JPEG bytes for the EXIF orientation tag. Any parse
// failure, a non-JPEG stream, or a missing tag yields
// OrientationUnspecified; the caller treats that as "leave the image alone".
func ReadOrientation(r io.Reader) Orientation {
	const (
		markerSOI      = 0xffd8
		markerAPP1     = 0xffe1
		exifHeader     = 0x45786966
		byteOrderBE    = 0x4d4d
		byteOrderLE    = 0x4949
		orientationTag = 0x0112
	)

	var soi uint16
	if err := binary.Read(r, binary.BigEndian, &soi); err != nil {
		return OrientationUnspecified
	}
	if soi != markerSOI {
		return OrientationUnspecified // not a JPEG stream
	}

	// Walk segment markers until APP1 (where EXIF lives).
	for {
		var marker, size uint16
		if err := binary.Read(r, binary.BigEndian, &marker); err != nil {
			return OrientationUnspecified
		}
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return OrientationUnspecified
		}
		if marker>>8 != 0xff {
			return OrientationUnspecified // invalid marker
		}
		if marker == markerAPP1 {
			break
		}
		if size < 2 {
			return OrientationUnspecified
		}
		if _, err := io.CopyN(io.Discard, r, int64(size-2)); err != nil {
			return OrientationUnspecified
		}
	}

	var header uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return OrientationUnspecified
	}
	if header != exifHeader {
		return OrientationUnspecified
	}
	if _, err := io.CopyN(io.Discard, r, 2); err != nil {
		return OrientationUnspecified
	}

	var (
		byteOrderTag uint16
		byteOrder    binary.ByteOrder
	)
	if err := binary.Read(r, binary.BigEndian, &byteOrderTag); err != nil {
		return OrientationUnspecified
	}
	switch byteOrderTag {
	case byteOrderBE:
		byteOrder = binary.BigEndian
	case byteOrderLE:
		byteOrder = binary.LittleEndian
	default:
		return OrientationUnspecified
	}
	if _, err := io.CopyN(io.Discard, r, 2); err != nil {
		return OrientationUnspecified
	}

	var offset uint32
	if err := binary.Read(r, byteOrder, &offset); err != nil {
		return OrientationUnspecified
	}
	if offset < 8 {
		return OrientationUnspecified
	}
	if _, err := io.CopyN(io.Discard, r, int64(offset-8)); err != nil {
		return OrientationUnspecified
	}

	var numTags uint16
	if err := binary.Read(r, byteOrder, &numTags); err != nil {
		return OrientationUnspecified
	}

	for i := 0; i < int(numTags); i++ {
		var tag uint16
		if err := binary.Read(r, byteOrder, &tag); err != nil {
			return OrientationUnspecified
		}
		if tag != orientationTag {
			// Each IFD entry is 12 bytes; skip the remaining 10.
			if _, err := io.CopyN(io.Discard, r, 10); err != nil {
				return OrientationUnspecified
			}
			continue
		}
		if _, err := io.CopyN(io.Discard, r, 6); err != nil {
			return OrientationUnspecified
		}
		var val uint16
		if err := binary.Read(r, byteOrder, &val); err != nil {
			return OrientationUnspecified
		}
		if val < 1 || val > 8 {
			return OrientationUnspecified
		}
		return Orientation(val)
	}
	return OrientationUnspecified // no orientation tag in IFD0
}
