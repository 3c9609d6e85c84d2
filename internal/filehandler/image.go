package filehandler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata is the subset of EXIF shown next to the selected photo.
type ImageMetadata struct {
	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractImageMetadata reads EXIF metadata from an image file using the
// imagemeta library. Only metadata bytes are read, not the whole image.
// Formats without EXIF (most PNGs) return an error the caller may ignore.
func ExtractImageMetadata(filePath string) (*ImageMetadata, error) {
	log.Debug().Str("path", filePath).Msg("Extracting EXIF metadata using imagemeta library")

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	metadata := &ImageMetadata{}

	// Priority: DateTimeOriginal > CreateDate > ModifyDate
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		metadata.DateTaken, metadata.HasDate = t, true
	} else if t := exifData.CreateDate(); !t.IsZero() {
		metadata.DateTaken, metadata.HasDate = t, true
	} else if t := exifData.ModifyDate(); !t.IsZero() {
		metadata.DateTaken, metadata.HasDate = t, true
	}

	metadata.CameraMake = strings.TrimSpace(exifData.Make)
	metadata.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Str("path", filePath).
		Bool("has_date", metadata.HasDate).
		Str("camera", metadata.Camera()).
		Msg("Image metadata extraction complete")

	return metadata, nil
}

// Camera returns "Make Model" without duplicating a make that the model
// already starts with (e.g. "Apple" / "Apple iPhone 15").
func (m *ImageMetadata) Camera() string {
	switch {
	case m.CameraModel == "":
		return m.CameraMake
	case m.CameraMake == "" || strings.HasPrefix(m.CameraModel, m.CameraMake):
		return m.CameraModel
	default:
		return m.CameraMake + " " + m.CameraModel
	}
}

// Summary formats the metadata as a single display line, or "" if nothing
// useful was found.
func (m *ImageMetadata) Summary() string {
	if m == nil {
		return ""
	}
	var parts []string
	if cam := m.Camera(); cam != "" {
		parts = append(parts, cam)
	}
	if m.HasDate {
		parts = append(parts, "taken "+m.DateTaken.Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, ", ")
}
