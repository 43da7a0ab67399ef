package fingerprint

import (
	"errors"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifTags are the EXIF tags worth reporting: location, device, software,
// authorship and time.
var exifTags = map[string]bool{
	"GPSLatitude":        true,
	"GPSLatitudeRef":     true,
	"GPSLongitude":       true,
	"GPSLongitudeRef":    true,
	"GPSAltitude":        true,
	"Make":               true,
	"Model":              true,
	"LensModel":          true,
	"SerialNumber":       true,
	"CameraSerialNumber": true,
	"BodySerialNumber":   true,
	"LensSerialNumber":   true,
	"Software":           true,
	"ProcessingSoftware": true,
	"HostComputer":       true,
	"Artist":             true,
	"Copyright":          true,
	"XPAuthor":           true,
	"DateTime":           true,
	"DateTimeOriginal":   true,
	"DateTimeDigitized":  true,
}

// EXIFExtractor reads EXIF tags from JPEG and TIFF images.
type EXIFExtractor struct {
	maxFileSize int64
}

// NewEXIFExtractor creates an EXIFExtractor that skips files above maxFileSize.
func NewEXIFExtractor(maxFileSize int64) *EXIFExtractor {
	return &EXIFExtractor{maxFileSize: maxFileSize}
}

// Name returns "exif".
func (e *EXIFExtractor) Name() string { return "exif" }

// Extensions returns the image formats that carry EXIF blocks.
func (e *EXIFExtractor) Extensions() []string {
	return []string{".jpg", ".jpeg", ".tif", ".tiff"}
}

// Extract returns the interesting EXIF tags keyed by tag name.
// An image without an EXIF block yields an empty map.
func (e *EXIFExtractor) Extract(path string) (map[string]string, error) {
	data, err := readLimited(path, e.maxFileSize)
	if err != nil {
		return nil, err
	}
	return extractEXIF(data)
}

func extractEXIF(data []byte) (map[string]string, error) {
	metadata := make(map[string]string)

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return metadata, nil
		}
		return nil, err
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !exifTags[entry.TagName] || entry.Formatted == "" {
			continue
		}
		// The first IFD wins; thumbnails repeat some tags.
		if _, seen := metadata[entry.TagName]; seen {
			continue
		}
		metadata[entry.TagName] = entry.Formatted
	}
	return metadata, nil
}
