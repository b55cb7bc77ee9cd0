package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"camclassify/internal/models"
)

// FileName is the name offered for the downloaded export.
const FileName = "predictions.json"

// Lister provides the full ordered prediction log.
type Lister interface {
	ListAll(ctx context.Context) ([]models.Prediction, error)
}

// Exporter serializes the prediction log as a JSON document.
type Exporter struct {
	store Lister
}

// NewExporter creates an exporter over store.
func NewExporter(store Lister) *Exporter {
	return &Exporter{store: store}
}

// ExportAll writes every stored prediction to w as a pretty-printed JSON
// array in insertion order. An empty store yields "[]".
func (e *Exporter) ExportAll(ctx context.Context, w io.Writer) error {
	predictions, err := e.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list predictions: %w", err)
	}
	if predictions == nil {
		predictions = []models.Prediction{}
	}

	data, err := json.MarshalIndent(predictions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
