package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"camclassify/internal/dto"
	"camclassify/internal/logger"
	"camclassify/internal/models"
	"camclassify/internal/service/export"
)

// PredictionStore is the part of the prediction log exposed over HTTP.
type PredictionStore interface {
	ListAll(ctx context.Context) ([]models.Prediction, error)
	ClearAll(ctx context.Context) error
}

// PredictionsHandler returns every stored prediction in insertion order.
func PredictionsHandler(store PredictionStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		predictions, err := store.ListAll(r.Context())
		if err != nil {
			logger.Error("Error listing predictions: %v", err)
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, predictions)
	}
}

// ExportHandler serves the prediction log as a predictions.json download.
func ExportHandler(exporter *export.Exporter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// buffered so a failed export does not leave a partial download
		var buf bytes.Buffer
		if err := exporter.ExportAll(r.Context(), &buf); err != nil {
			logger.Error("Error exporting predictions: %v", err)
			writeError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
		if _, err := w.Write(buf.Bytes()); err != nil {
			logger.Error("Error writing export: %v", err)
		}
	}
}

// ClearPredictionsHandler deletes every stored prediction. The request must
// carry confirm=true.
func ClearPredictionsHandler(store PredictionStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") != "true" {
			writeJSON(w, logger, http.StatusPreconditionRequired, map[string]string{
				"error": "clearing all predictions requires confirm=true",
			})
			return
		}

		if err := store.ClearAll(r.Context()); err != nil {
			logger.Error("Error clearing predictions: %v", err)
			writeError(w, logger, err)
			return
		}

		logger.Info("All predictions cleared")
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

// StatsHandler summarizes the stored predictions.
func StatsHandler(store PredictionStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		predictions, err := store.ListAll(r.Context())
		if err != nil {
			logger.Error("Error listing predictions: %v", err)
			writeError(w, logger, err)
			return
		}

		stats := dto.PredictionStats{Total: len(predictions)}
		for _, p := range predictions {
			if p.PredictedClass == models.ClassOne {
				stats.Class1++
			} else {
				stats.Class2++
			}
		}
		if len(predictions) > 0 {
			stats.First = predictions[0].Time
			stats.Last = predictions[len(predictions)-1].Time
		}

		writeJSON(w, logger, http.StatusOK, stats)
	}
}
