package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"camclassify/internal/models"
)

type staticLister struct {
	records []models.Prediction
	err     error
}

func (l staticLister) ListAll(ctx context.Context) ([]models.Prediction, error) {
	return l.records, l.err
}

func TestExporter_ExportAll_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(staticLister{}).ExportAll(context.Background(), &buf); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("Expected [], got %q", buf.String())
	}
}

func TestExporter_ExportAll_KeepsOrderAndFields(t *testing.T) {
	records := []models.Prediction{
		{ID: 1, Time: "2025-06-15T14:30:00.000Z", PredictedClass: models.ClassOne, Probabilities: &models.Probabilities{Class1: 0.8, Class2: 0.2}},
		{ID: 2, Time: "2025-06-15T14:30:02.000Z", PredictedClass: models.ClassTwo, Probabilities: &models.Probabilities{Class1: 0.3, Class2: 0.7}},
		{ID: 3, Time: "2025-06-15T14:30:04.000Z", PredictedClass: models.ClassTwo},
	}

	var buf bytes.Buffer
	if err := NewExporter(staticLister{records: records}).ExportAll(context.Background(), &buf); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	var decoded []models.Prediction
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(decoded))
	}
	for i := range records {
		if decoded[i].Time != records[i].Time || decoded[i].PredictedClass != records[i].PredictedClass {
			t.Errorf("record %d: expected %+v, got %+v", i, records[i], decoded[i])
		}
	}
	if decoded[1].Probabilities == nil || decoded[1].Probabilities.Class2 != 0.7 {
		t.Errorf("Expected probabilities to survive, got %+v", decoded[1].Probabilities)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("[\n  {\n    \"time\"")) {
		t.Errorf("Expected two-space indentation, got %q", buf.String()[:20])
	}
}

func TestExporter_ExportAll_StoreError(t *testing.T) {
	boom := errors.New("boom")

	var buf bytes.Buffer
	err := NewExporter(staticLister{err: boom}).ExportAll(context.Background(), &buf)
	if !errors.Is(err, boom) {
		t.Errorf("Expected store error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected nothing written on error, got %q", buf.String())
	}
}
