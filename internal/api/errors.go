package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/blagoySimandov/rowenrich/internal/logging"
	"github.com/blagoySimandov/rowenrich/internal/models"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorStatuses = []struct {
	target error
	status int
	code   string
}{
	{models.ErrRunNotFound, http.StatusNotFound, "run_not_found"},
	{models.ErrRunActive, http.StatusConflict, "run_active"},
	{models.ErrUnknownColumn, http.StatusBadRequest, "unknown_column"},
	{models.ErrStageConfig, http.StatusBadRequest, "stage_config"},
	{models.ErrSourceEmpty, http.StatusUnprocessableEntity, "source_empty"},
	{models.ErrSourceMalformed, http.StatusUnprocessableEntity, "source_malformed"},
	{models.ErrSourceUnreadable, http.StatusUnprocessableEntity, "source_unreadable"},
	{models.ErrPathForbidden, http.StatusForbidden, "path_forbidden"},
	{models.ErrResultsIncomplete, http.StatusConflict, "results_incomplete"},
	{fs.ErrExist, http.StatusConflict, "destination_exists"},
	{models.ErrDestinationUnwritable, http.StatusBadGateway, "destination_unwritable"},
}

func statusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.target) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	logging.EnrichError(r.Context(), err)
	writeJSONError(w, status, code, err.Error())
}

func writeJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, APIError{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}
