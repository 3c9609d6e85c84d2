package filehandler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	// Decoders for formats the server does not accept; transcoded to JPEG.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultContentType is used when the selection carries no content type.
	DefaultContentType = "image/jpeg"
	// DefaultFileName is used when the selection carries no file name.
	DefaultFileName = "image.jpg"

	// DefaultMaxUploadBytes is the largest body the reference server accepts.
	DefaultMaxUploadBytes = 16 * 1024 * 1024

	transcodeQuality = 92
)

// Payload is the image part of a measurement request.
type Payload struct {
	FileName    string
	ContentType string
	Data        []byte
	Transcoded  bool
	// Oversized is set when Data exceeds the upload limit given to Prepare.
	Oversized bool
}

// Size returns the payload length in bytes.
func (p *Payload) Size() int {
	return len(p.Data)
}

// Prepare reads the selected file and returns the bytes to upload. Missing
// hints fall back to DefaultContentType and DefaultFileName. Images in a
// format the server rejects are decoded and re-encoded as JPEG. An image
// larger than maxBytes (DefaultMaxUploadBytes when not positive) is still
// returned, flagged Oversized.
func Prepare(sel Selection, maxBytes int64) (*Payload, error) {
	if sel.Path == "" {
		return nil, fmt.Errorf("selection has no location")
	}

	data, err := os.ReadFile(sel.Path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	p := &Payload{
		FileName:    sel.FileName,
		ContentType: sel.ContentType,
		Data:        data,
	}
	if p.ContentType == "" {
		p.ContentType = DefaultContentType
	}
	if p.FileName == "" {
		p.FileName = DefaultFileName
	}

	if needsTranscode(sel) {
		if err := p.transcode(); err != nil {
			return nil, err
		}
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(p.Size()) > maxBytes {
		p.Oversized = true
		log.Warn().
			Str("path", sel.Path).
			Int("size_bytes", p.Size()).
			Int64("limit_bytes", maxBytes).
			Msg("Image exceeds the server upload limit, the server will likely reject it")
	}

	return p, nil
}

// needsTranscode reports whether the selection is an image the server
// would refuse by extension.
func needsTranscode(sel Selection) bool {
	ext := strings.ToLower(filepath.Ext(sel.Path))
	if UploadExtensions[ext] {
		return false
	}
	if IsImage(ext) {
		return true
	}
	switch sel.ContentType {
	case "image/webp", "image/bmp", "image/tiff", "image/gif":
		return true
	}
	return false
}

func (p *Payload) transcode() error {
	img, err := imaging.Decode(bytes.NewReader(p.Data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image for transcoding: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(transcodeQuality)); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	name := strings.TrimSuffix(p.FileName, filepath.Ext(p.FileName)) + ".jpg"
	log.Debug().
		Str("from", p.FileName).
		Str("to", name).
		Int("original_bytes", len(p.Data)).
		Int("jpeg_bytes", buf.Len()).
		Msg("Transcoded image to JPEG")

	p.Data = buf.Bytes()
	p.FileName = name
	p.ContentType = "image/jpeg"
	p.Transcoded = true
	return nil
}
