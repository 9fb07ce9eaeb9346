package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/blagoySimandov/rowenrich/internal/enricher"
	"github.com/blagoySimandov/rowenrich/internal/logging"
	"github.com/blagoySimandov/rowenrich/internal/models"
	"github.com/blagoySimandov/rowenrich/internal/sink"
)

const defaultPreviewRows = 10

// Enricher is the part of the enricher the handlers drive.
type Enricher interface {
	enricher.IEnricher
	Preview(ctx context.Context, spec string, limit int) (*models.PreviewResponse, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.RunSummary, error)
}

type EnrichHandler struct {
	enricher Enricher
	// dataDir is the only directory requests may read or write. Empty, only
	// remote locations are accepted.
	dataDir string
	// authenticated is set by SetupRoutes when a verifier guards the API.
	authenticated bool
}

func NewEnrichHandler(enr Enricher, dataDir string) *EnrichHandler {
	return &EnrichHandler{
		enricher: enr,
		dataDir:  dataDir,
	}
}

func (h *EnrichHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EnrichHandler) PreviewSource(w http.ResponseWriter, r *http.Request) {
	var req models.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Source == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "source is required")
		return
	}
	h.preview(w, r, req.Source, req.Limit)
}

// ConnectSheet previews a spreadsheet by ID.
func (h *EnrichHandler) ConnectSheet(w http.ResponseWriter, r *http.Request) {
	var req models.SheetsConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.SpreadsheetID == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "spreadsheetId is required")
		return
	}
	spec := "sheets://" + req.SpreadsheetID
	if req.Range != "" {
		spec += "/" + req.Range
	}
	h.preview(w, r, spec, 0)
}

func (h *EnrichHandler) preview(w http.ResponseWriter, r *http.Request, spec string, limit int) {
	if limit <= 0 {
		limit = defaultPreviewRows
	}
	spec, err := h.resolveLocation(spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	preview, err := h.enricher.Preview(r.Context(), spec, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.EnrichSource(r.Context(), preview.Origin, preview.TotalRows)
	writeJSON(w, http.StatusOK, preview)
}

func (h *EnrichHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Source == "" || req.MainColumn == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "source and mainColumn are required")
		return
	}

	stages := enricher.SpecsFromProcessRequest(&req)
	if err := h.checkStages(stages); err != nil {
		writeError(w, r, err)
		return
	}
	src, err := h.resolveLocation(req.Source)
	if err != nil {
		writeError(w, r, err)
		return
	}

	table, err := h.enricher.Load(r.Context(), src)
	if err != nil {
		writeError(w, r, err)
		return
	}

	runID, err := h.enricher.Start(r.Context(), table, enricher.StartRequest{
		Options: models.RunOptions{
			KeyColumn: req.MainColumn,
			Offset:    req.Offset,
			Limit:     req.Limit,
		},
		Stages: stages,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	total := 0
	if summary, err := h.enricher.Progress(r.Context(), runID); err == nil {
		total = summary.Total
	}
	logging.EnrichRun(r.Context(), runID, string(models.RunStatusRunning))
	logging.EnrichSource(r.Context(), table.Origin, total)
	logging.EnrichMetadata(r.Context(), "key_column", req.MainColumn)

	writeJSON(w, http.StatusAccepted, models.ProcessResponse{
		RunID:   runID,
		Total:   total,
		Message: "Processing started",
	})
}

func (h *EnrichHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "start")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	runs, err := h.enricher.ListRuns(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*models.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *EnrichHandler) GetRunProgress(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	progress, err := h.enricher.Progress(r.Context(), runID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *EnrichHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	if err := h.enricher.Cancel(r.Context(), runID); err != nil {
		writeError(w, r, err)
		return
	}
	logging.EnrichRun(r.Context(), runID, string(models.RunStatusCancelled))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Run cancelled"})
}

func (h *EnrichHandler) GetRunResults(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	offset, err := queryInt(r, "start")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	results, err := h.enricher.Results(r.Context(), runID, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []models.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, models.ResultsResponse{RunID: runID, Results: results})
}

func (h *EnrichHandler) DownloadRunResults(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	results, err := h.enricher.Results(r.Context(), runID, 0, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, runID))
	if _, err := sink.WriteCSV(w, results, ','); err != nil {
		logging.EnrichError(r.Context(), err)
	}
}

// ExportRun writes the results to a gs:// object, a sheet, or a new CSV file
// inside the data directory. Existing files are never replaced.
func (h *EnrichHandler) ExportRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runID"]

	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Destination == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "destination is required")
		return
	}

	dest, err := h.resolveLocation(req.Destination)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.enricher.Export(r.Context(), runID, dest, sink.Exclusive())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ExportResponse{Destination: req.Destination, Written: n})
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return v, nil
}
