// Command ocr prints the text recognized in an image or PDF, or in every such
// document of a directory. PDFs are recognized page by page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blagoySimandov/rowenrich/internal/app"
	"github.com/blagoySimandov/rowenrich/internal/config"
	"github.com/blagoySimandov/rowenrich/internal/logger"
	"github.com/blagoySimandov/rowenrich/internal/ocr"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	provider := flag.String("provider", "", "OCR engine, overrides the configured one")
	language := flag.String("lang", "", "recognition language, e.g. eng or eng+deu")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: ocr [flags] <image, pdf or directory>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.OCRProvider = *provider
	}
	if *language != "" {
		cfg.OCRLanguage = *language
	}
	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	engine, err := app.NewOCREngine(cfg, services.NewUsageTracker())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create OCR engine")
	}
	if engine == nil {
		log.Fatal().Msg("OCR is disabled")
	}

	paths, err := documentPaths(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list documents")
	}

	failed := 0
	for _, path := range paths {
		texts, err := recognizeDocument(context.Background(), engine, path, cfg.OCRLanguage, cfg.StageTimeout)
		if err != nil {
			failed++
			log.Error().Err(err).Str("document", path).Str("engine", engine.Name()).Msg("ocr failed")
			continue
		}
		log.Info().Str("document", path).Str("engine", engine.Name()).Int("pages", len(texts)).Msg("ocr done")
		fmt.Print(render(path, texts, len(paths) > 1))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// recognizeDocument loads path and recognizes each of its pages, allowing
// perPage for every page.
func recognizeDocument(ctx context.Context, engine ocr.Engine, path, language string, perPage time.Duration) ([]string, error) {
	pages, err := ocr.LoadPages(path)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, perPage*time.Duration(len(pages)))
	defer cancel()
	return ocr.RecognizePages(ctx, engine, pages, language)
}

// render prints a document's text, with a header per document when several
// are listed and a marker per page when it has more than one.
func render(path string, texts []string, withHeader bool) string {
	var b strings.Builder
	if withHeader {
		fmt.Fprintf(&b, "==> %s <==\n", path)
	}
	for i, text := range texts {
		if len(texts) > 1 {
			fmt.Fprintf(&b, "--- page %d ---\n", i+1)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

// documentPaths expands a directory into its images and PDFs, sorted by name.
func documentPaths(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && ocr.IsDocumentPath(e.Name()) {
			paths = append(paths, filepath.Join(target, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no images or PDFs in " + target)
	}
	sort.Strings(paths)
	return paths, nil
}
