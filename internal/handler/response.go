package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"camclassify/internal/logger"
	"camclassify/internal/service/camera"
	"camclassify/internal/service/capture"
	"camclassify/internal/service/storage"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, camera.ErrNoDeviceSelected):
		return http.StatusBadRequest
	case errors.Is(err, camera.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, capture.ErrCaptureActive):
		return http.StatusConflict
	case errors.Is(err, camera.ErrDeviceUnavailable), errors.Is(err, storage.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	writeJSON(w, logger, statusFor(err), map[string]string{"error": err.Error()})
}
