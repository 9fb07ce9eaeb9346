package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 1, color.Black)
	}
	return img
}

func TestPrepareImage(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer) error
		format string
	}{
		{"png", func(b *bytes.Buffer) error { return png.Encode(b, testImage()) }, "png"},
		{"bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, testImage()) }, "bmp"},
		{"jpeg", func(b *bytes.Buffer) error { return jpeg.Encode(b, testImage(), nil) }, "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.encode(&buf))

			out, format, err := PrepareImage(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)

			img, err := jpeg.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, 8, img.Bounds().Dx())
			assert.Equal(t, 4, img.Bounds().Dy())
		})
	}
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	_, _, err := PrepareImage(bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	data, err := LoadImage(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsImagePath(t *testing.T) {
	assert.True(t, IsImagePath("a/b/Receipt.JPG"))
	assert.True(t, IsImagePath("scan.webp"))
	assert.False(t, IsImagePath("notes.txt"))
}

type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }
func (stubEngine) Recognize(context.Context, []byte, string) (string, error) {
	return "text", nil
}

func TestRegistry(t *testing.T) {
	Register("stub", func() Engine { return stubEngine{} })

	f, ok := Lookup("stub")
	require.True(t, ok)
	assert.Equal(t, "stub", f().Name())
	assert.Contains(t, Registered(), "stub")

	_, ok = Lookup("absent")
	assert.False(t, ok)
}
