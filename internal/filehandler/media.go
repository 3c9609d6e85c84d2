// Package filehandler turns a photo chosen by the user into the image part
// of a measurement request.
//
// A Selection is only a reference (location plus optional content type and
// file name hints). Prepare reads the referenced file at submission time and
// produces the Payload that is uploaded. Formats the measurement server does
// not accept are transcoded to JPEG; accepted formats are sent byte for byte.
package filehandler

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions defines the file extensions a user may pick.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// UploadExtensions are the extensions the measurement server accepts as-is.
var UploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Selection identifies a locally accessible image chosen by the user.
// ContentType and FileName are hints and may be empty.
type Selection struct {
	Path        string
	ContentType string
	FileName    string
}

var (
	// ErrUnsupportedType is returned for files whose extension is not an image.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrCanceled is returned by image pickers when the user dismissed the dialog.
	ErrCanceled = errors.New("image selection canceled")
)

// FromPath builds a Selection from a filesystem path or file:// URI.
// The file must exist and carry one of SupportedImageExtensions.
func FromPath(location string) (Selection, error) {
	path, err := resolveLocation(location)
	if err != nil {
		return Selection{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Selection{}, fmt.Errorf("file not found: %s", path)
		}
		return Selection{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return Selection{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return Selection{}, err
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	log.Debug().
		Str("path", path).
		Str("mime_type", mimeType).
		Int64("size_bytes", info.Size()).
		Msg("Image selected")

	return Selection{
		Path:        path,
		ContentType: mimeType,
		FileName:    filepath.Base(path),
	}, nil
}

// resolveLocation accepts plain paths and file:// URIs.
func resolveLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("empty image location")
	}
	if !strings.HasPrefix(location, "file://") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid file URI: %w", err)
	}
	if u.Path == "" {
		return "", fmt.Errorf("file URI has no path: %s", location)
	}
	return filepath.FromSlash(u.Path), nil
}

// GetMIMEType returns the MIME type for a given image file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
}

// IsImage returns true if the file extension corresponds to a supported image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// PickerPatterns returns glob patterns for SupportedImageExtensions, suitable
// for a native file dialog filter.
func PickerPatterns() []string {
	patterns := make([]string, 0, len(SupportedImageExtensions))
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"} {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}
