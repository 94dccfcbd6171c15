package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"discovery/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeHTML(w http.ResponseWriter, filename, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// writeServiceError maps service errors onto HTTP statuses. Storage and
// other unexpected failures are logged and reported generically.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrMissingIdentity):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, service.ErrUnknownSection):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrResponseNotFound):
		writeError(w, http.StatusNotFound, "response not found")
	case errors.Is(err, service.ErrIncomplete):
		writeError(w, http.StatusConflict, "all sections must be completed first")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
