//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/blagoySimandov/rowenrich/internal/ocr"
)

func init() {
	ocr.Register("tesseract", func() ocr.Engine { return NewEngine() })
}

// Engine recognizes text with a fresh gosseract client per image.
type Engine struct {
	clientFactory func() *gosseract.Client
}

func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if language != "" {
		// "eng+deu" selects several languages
		if err := c.SetLanguage(strings.Split(language, "+")...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
