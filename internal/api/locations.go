package api

import (
	"errors"

	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/source"
)

var errLocalDisabled = errors.New("local paths need API_JWT_SECRET and DATA_DIR to be set")

// localAllowed reports whether clients may name files on this host at all.
func (h *EnrichHandler) localAllowed() bool {
	return h.authenticated && h.dataDir != ""
}

// resolveLocation passes remote locations through and confines local paths
// to the data directory.
func (h *EnrichHandler) resolveLocation(spec string) (string, error) {
	loc, err := source.ParseLocation(spec)
	if err != nil || loc.Scheme != "file" {
		// malformed remote specs are reported by the loader or exporter
		return spec, nil
	}
	if !h.localAllowed() {
		return "", &models.Error{Kind: models.ErrPathForbidden, Op: "access " + spec, Err: errLocalDisabled}
	}
	return source.Confine(h.dataDir, loc.Path)
}

// checkStages refuses stages that read local files when local access is off.
func (h *EnrichHandler) checkStages(specs []models.StageSpec) error {
	if h.localAllowed() {
		return nil
	}
	for _, spec := range specs {
		if spec.Kind == models.StageKindOCR {
			return &models.Error{Kind: models.ErrPathForbidden, Op: "ocr stage", Err: errLocalDisabled}
		}
	}
	return nil
}
