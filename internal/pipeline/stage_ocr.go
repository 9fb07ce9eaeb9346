package pipeline

import (
	"context"

	"github.com/blagoySimandov/rowenrich/internal/ocr"
	"github.com/blagoySimandov/rowenrich/internal/source"
)

// OCRStage treats the rendered template as the path of an image or a PDF and
// returns the recognized text. PDF pages are separated by a blank line.
type OCRStage struct {
	engine   ocr.Engine
	language string
	root     string
	load     func(path string) ([]ocr.Page, error)
}

func NewOCRStage(engine ocr.Engine, language string) *OCRStage {
	if language == "" {
		language = "eng"
	}
	return &OCRStage{
		engine:   engine,
		language: language,
		load:     ocr.LoadPages,
	}
}

// WithRoot confines document paths to dir. Relative paths resolve against it.
func (s *OCRStage) WithRoot(dir string) *OCRStage {
	s.root = dir
	return s
}

func (s *OCRStage) Name() string {
	return "OCR"
}

func (s *OCRStage) Apply(ctx context.Context, in StageInput) (string, error) {
	path := in.Params.Render(in.Entity)
	if s.root != "" {
		confined, err := source.Confine(s.root, path)
		if err != nil {
			return "", err
		}
		path = confined
	}

	pages, err := s.load(path)
	if err != nil {
		return "", err
	}
	texts, err := ocr.RecognizePages(ctx, s.engine, pages, s.language)
	if err != nil {
		return "", err
	}
	return ocr.JoinPages(texts), nil
}
