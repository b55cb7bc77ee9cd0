package handler

import (
	"context"
	"net/http"

	"camclassify/internal/dto"
	"camclassify/internal/logger"
	"camclassify/internal/service/camera"
	"camclassify/internal/service/capture"
)

// CaptureController is the part of the capture loop exposed over HTTP.
type CaptureController interface {
	Toggle(ctx context.Context) (capture.State, error)
	SelectDevice(id string) error
	Status() dto.CaptureStatus
}

// DevicesHandler lists the selectable cameras.
func DevicesHandler(source camera.Source, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devices, err := source.Devices(r.Context())
		if err != nil {
			logger.Warning("Error listing cameras: %v", err)
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, devices)
	}
}

// SelectDeviceHandler selects the camera given by the "id" query parameter.
func SelectDeviceHandler(loop CaptureController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if err := loop.SelectDevice(id); err != nil {
			writeError(w, logger, err)
			return
		}

		logger.Info("Selected camera %s", id)
		writeJSON(w, logger, http.StatusOK, loop.Status())
	}
}

// ToggleHandler starts or stops capturing and returns the new status.
func ToggleHandler(loop CaptureController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := loop.Toggle(r.Context()); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, loop.Status())
	}
}

// StatusHandler returns the capture status.
func StatusHandler(loop CaptureController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, loop.Status())
	}
}
