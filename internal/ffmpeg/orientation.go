package ffmpeg

import (
	"errors"
	"fmt"
	"io"

	"github.com/dsoprea/go-exif/v3"
)

// exifOrientation returns the EXIF Orientation tag of r, or 1 when r carries
// no EXIF block or no orientation.
func exifOrientation(r io.Reader) (int, error) {
	rawExif, err := exif.SearchAndExtractExifWithReader(r)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return 1, nil
		}
		return 1, fmt.Errorf("read exif: %w", err)
	}

	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return 1, fmt.Errorf("parse exif: %w", err)
	}

	for _, tag := range tags {
		if tag.TagName != "Orientation" {
			continue
		}
		var orientation uint16
		switch v := tag.Value.(type) {
		case []uint16:
			if len(v) > 0 {
				orientation = v[0]
			}
		case uint16:
			orientation = v
		}
		// Some devices write 0 to mean "no orientation".
		if orientation < 1 || orientation > 8 {
			return 1, nil
		}
		return int(orientation), nil
	}
	return 1, nil
}

// swapsAxes reports whether orientation turns the picture by 90 or 270 degrees.
func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}
