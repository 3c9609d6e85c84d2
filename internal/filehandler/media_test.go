package filehandler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		ext      string
		expected bool
	}{
		{".jpg", true},
		{".JPEG", true},
		{".png", true},
		{".webp", true},
		{".bmp", true},
		{".tiff", true},
		{".heic", false},
		{".mp4", false},
		{".txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsImage(tt.ext))
		})
	}
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shape.PNG")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	sel, err := FromPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, sel.Path)
	assert.Equal(t, "image/png", sel.ContentType)
	assert.Equal(t, "shape.PNG", sel.FileName)
}

func TestFromPath_FileURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shape.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o644))

	sel, err := FromPath("file://" + filepath.ToSlash(path))
	require.NoError(t, err)
	assert.Equal(t, path, sel.Path)
	assert.Equal(t, "image/jpeg", sel.ContentType)
}

func TestFromPath_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hi"), 0o644))

	_, err := FromPath(txt)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromPath(filepath.Join(dir, "missing.jpg"))
	assert.ErrorContains(t, err, "file not found")

	_, err = FromPath(dir)
	assert.ErrorContains(t, err, "is a directory")

	_, err = FromPath("   ")
	assert.Error(t, err)
}

func TestPickerPatterns(t *testing.T) {
	patterns := PickerPatterns()
	assert.Len(t, patterns, len(SupportedImageExtensions))
	assert.Contains(t, patterns, "*.jpg")
	assert.Contains(t, patterns, "*.webp")
}
