package utils

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("x.png"))
	assert.True(t, IsSupportedImage("x.JPG"))
	assert.True(t, IsSupportedImage("x.bmp"))
	assert.False(t, IsSupportedImage("x.gif"))
	assert.False(t, IsSupportedImage("x"))
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	f, err := os.Create(path) //nolint:gosec // G304: test fixture path
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 12, 5))))
	require.NoError(t, f.Close())

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.NotNil(t, img)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 12, meta.Width)
	assert.Equal(t, 5, meta.Height)
	assert.Positive(t, meta.SizeBytes)
}

func TestLoadImage_Errors(t *testing.T) {
	_, _, err := LoadImage("")
	assert.Error(t, err)

	_, _, err = LoadImage("missing.png")
	assert.Error(t, err)

	_, _, err = LoadImage("readme.txt")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("junk"), 0o644))
	_, _, err = LoadImage(bad)
	require.Error(t, err)
	var ipe *ImageProcessingError
	assert.ErrorAs(t, err, &ipe)
	assert.Equal(t, "decode", ipe.Operation)
}
