package filehandler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 2; x < 6; x++ {
		for y := 2; y < 6; y++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func TestPrepare_AcceptedFormatUntouched(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	path := filepath.Join(t.TempDir(), "square.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	p, err := Prepare(Selection{Path: path, ContentType: "image/png", FileName: "square.png"}, 0)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), p.Data)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, "square.png", p.FileName)
	assert.False(t, p.Transcoded)
}

func TestPrepare_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0o644))

	p, err := Prepare(Selection{Path: path}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultContentType, p.ContentType)
	assert.Equal(t, DefaultFileName, p.FileName)
	assert.Equal(t, 3, p.Size())
}

func TestPrepare_TranscodesBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))
	path := filepath.Join(t.TempDir(), "square.bmp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	p, err := Prepare(Selection{Path: path, ContentType: "image/bmp", FileName: "square.bmp"}, 0)
	require.NoError(t, err)
	assert.True(t, p.Transcoded)
	assert.Equal(t, "image/jpeg", p.ContentType)
	assert.Equal(t, "square.jpg", p.FileName)
	require.GreaterOrEqual(t, len(p.Data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, p.Data[:2])
}

func TestPrepare_TranscodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.webp")
	require.NoError(t, os.WriteFile(path, []byte("not webp"), 0o644))

	_, err := Prepare(Selection{Path: path}, 0)
	assert.ErrorContains(t, err, "decode image for transcoding")
}

func TestPrepare_MissingFile(t *testing.T) {
	_, err := Prepare(Selection{Path: filepath.Join(t.TempDir(), "gone.jpg")}, 0)
	assert.ErrorContains(t, err, "read image")

	_, err = Prepare(Selection{}, 0)
	assert.Error(t, err)
}

func TestPrepare_OversizedIsFlagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.jpg")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 64), 0o644))

	p, err := Prepare(Selection{Path: path}, 32)
	require.NoError(t, err)
	assert.True(t, p.Oversized)
	assert.Equal(t, 64, p.Size())

	p, err = Prepare(Selection{Path: path}, 0)
	require.NoError(t, err)
	assert.False(t, p.Oversized)
}
