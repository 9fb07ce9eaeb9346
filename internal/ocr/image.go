package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality is the quality used when re-encoding images for recognition.
const JPEGQuality = 90

// ErrUnsupportedImage is returned when the input cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported image")

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImagePath reports whether path has one of the decodable image extensions.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// PrepareImage decodes r in any registered format and re-encodes it as JPEG.
// The detected source format is returned alongside the bytes.
func PrepareImage(r io.Reader) ([]byte, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, format, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), format, nil
}

// LoadImage reads the image file at path and returns it as JPEG bytes.
func LoadImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, _, err := PrepareImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
