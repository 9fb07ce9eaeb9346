package enricher

import (
	"fmt"

	"github.com/blagoySimandov/rowenrich/internal/cache"
	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/ocr"
	"github.com/blagoySimandov/rowenrich/internal/pipeline"
	"github.com/blagoySimandov/rowenrich/internal/services"
)

type BuilderConfig struct {
	NumResults    int
	SystemPrompt  string
	OCRLanguage   string
	CacheSearches bool
	// DocumentRoot confines OCR document paths when set.
	DocumentRoot string
}

// StageBuilder turns stage specs from a request into pipeline bindings over
// the configured backends. A nil backend makes its stage kind unavailable.
type StageBuilder struct {
	searcher  services.WebSearcher
	completer services.Completer
	ocrEngine ocr.Engine
	config    BuilderConfig
}

func NewStageBuilder(searcher services.WebSearcher, completer services.Completer, ocrEngine ocr.Engine, config BuilderConfig) *StageBuilder {
	return &StageBuilder{
		searcher:  searcher,
		completer: completer,
		ocrEngine: ocrEngine,
		config:    config,
	}
}

// Build returns one binding per spec, in order. Searches share one cache per
// call when caching is enabled.
func (b *StageBuilder) Build(specs []models.StageSpec) ([]pipeline.Binding, error) {
	var searchCache cache.SearchCache
	if b.config.CacheSearches {
		searchCache = cache.NewInMemorySearchCache()
	}

	bindings := make([]pipeline.Binding, 0, len(specs))
	for i, spec := range specs {
		binding := pipeline.Binding{Params: spec.Params, Field: spec.Field}

		switch spec.Kind {
		case models.StageKindSearch:
			if b.searcher == nil {
				return nil, unavailable(i, spec.Kind)
			}
			opts := []pipeline.SearchStageOption{pipeline.WithNumResults(b.config.NumResults)}
			if searchCache != nil {
				opts = append(opts, pipeline.WithSearchCache(searchCache))
			}
			binding.Stage = pipeline.NewSearchStage(b.searcher, opts...)
			binding.Field = orDefault(binding.Field, models.FieldSearchResults)

		case models.StageKindExtract:
			if b.completer == nil {
				return nil, unavailable(i, spec.Kind)
			}
			binding.Stage = pipeline.NewExtractionStage(b.completer, b.config.SystemPrompt)
			binding.Field = orDefault(binding.Field, models.FieldExtractedInfo)

		case models.StageKindOCR:
			if b.ocrEngine == nil {
				return nil, unavailable(i, spec.Kind)
			}
			binding.Stage = pipeline.NewOCRStage(b.ocrEngine, orDefault(spec.Language, b.config.OCRLanguage)).WithRoot(b.config.DocumentRoot)
			binding.Field = orDefault(binding.Field, models.FieldOCRText)
			// the entity itself is the image path unless a template says otherwise
			binding.Params.Template = orDefault(binding.Params.Template, models.DefaultPlaceholder)

		default:
			return nil, &models.Error{Kind: models.ErrStageConfig, Op: fmt.Sprintf("build stage %d", i), Err: fmt.Errorf("unknown stage kind %q", spec.Kind)}
		}

		bindings = append(bindings, binding)
	}
	return bindings, nil
}

// SpecsFromProcessRequest returns the explicit stages of req, or the
// search+extract chain described by its templates. An empty extraction
// template reuses the search template.
func SpecsFromProcessRequest(req *models.ProcessRequest) []models.StageSpec {
	if len(req.Stages) > 0 {
		return req.Stages
	}
	search := orDefault(req.PromptTemplate, models.DefaultSearchTemplate)
	extract := orDefault(req.ExtractTemplate, search)
	return []models.StageSpec{
		{Kind: models.StageKindSearch, Params: models.StageParams{Template: search}},
		{Kind: models.StageKindExtract, Params: models.StageParams{Template: extract}},
	}
}

func unavailable(i int, kind string) error {
	return &models.Error{Kind: models.ErrStageConfig, Op: fmt.Sprintf("build stage %d", i), Err: fmt.Errorf("no backend configured for %s", kind)}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
