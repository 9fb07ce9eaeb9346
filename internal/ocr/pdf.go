package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoPageImages is returned when a PDF carries no embedded raster images,
// i.e. it has nothing to recognize.
var ErrNoPageImages = errors.New("pdf has no page images")

// Page is one recognizable unit of a document: a single image file, or one
// page of a PDF with its embedded images as JPEG bytes.
type Page struct {
	Number int
	Images [][]byte
}

// IsPDFPath reports whether path names a PDF document.
func IsPDFPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// IsDocumentPath reports whether path can be loaded by LoadPages.
func IsDocumentPath(path string) bool {
	return IsImagePath(path) || IsPDFPath(path)
}

// LoadPages loads an image or a PDF. Images yield a single page.
func LoadPages(path string) ([]Page, error) {
	if !IsPDFPath(path) {
		data, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		return []Page{{Number: 1, Images: [][]byte{data}}}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages, err := ExtractPDFPages(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pages, nil
}

// ExtractPDFPages pulls the embedded images of every page and re-encodes them
// as JPEG. Pages without images are skipped; page numbers are 1-based.
func ExtractPDFPages(rs io.ReadSeeker) ([]Page, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	raw, err := api.ExtractImagesRaw(rs, nil, conf)
	if err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}

	byPage := make(map[int][]model.Image)
	for _, images := range raw {
		for _, img := range images {
			byPage[img.PageNr] = append(byPage[img.PageNr], img)
		}
	}
	if len(byPage) == 0 {
		return nil, ErrNoPageImages
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]Page, 0, len(numbers))
	for _, n := range numbers {
		images := byPage[n]
		sort.Slice(images, func(i, j int) bool { return images[i].ObjNr < images[j].ObjNr })

		page := Page{Number: n}
		for _, img := range images {
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("page %d: read image %s: %w", n, img.Name, err)
			}
			jpegData, _, err := PrepareImage(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("page %d: image %s (%s): %w", n, img.Name, img.FileType, err)
			}
			page.Images = append(page.Images, jpegData)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// RecognizePages runs engine over every image of every page and returns one
// text per page, in page order.
func RecognizePages(ctx context.Context, engine Engine, pages []Page, language string) ([]string, error) {
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts := make([]string, 0, len(page.Images))
		for _, img := range page.Images {
			text, err := engine.Recognize(ctx, img, language)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page.Number, err)
			}
			if text = strings.TrimSpace(text); text != "" {
				parts = append(parts, text)
			}
		}
		texts = append(texts, strings.Join(parts, "\n"))
	}
	return texts, nil
}

// JoinPages concatenates page texts with a blank line between pages.
func JoinPages(texts []string) string {
	return strings.Join(texts, "\n\n")
}
