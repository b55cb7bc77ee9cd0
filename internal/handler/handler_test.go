package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camclassify/internal/config"
	"camclassify/internal/dto"
	"camclassify/internal/logger"
	"camclassify/internal/models"
	"camclassify/internal/service/camera"
	"camclassify/internal/service/capture"
	"camclassify/internal/service/export"
	"camclassify/internal/service/storage"
)

// ========================================
// Fakes
// ========================================

type fakeController struct {
	state     capture.State
	toggleErr error
	selectErr error
	selected  string
}

func (c *fakeController) Toggle(ctx context.Context) (capture.State, error) {
	if c.toggleErr != nil {
		return capture.Idle, c.toggleErr
	}
	if c.state == capture.Running {
		c.state = capture.Idle
	} else {
		c.state = capture.Running
	}
	return c.state, nil
}

func (c *fakeController) SelectDevice(id string) error {
	if c.selectErr != nil {
		return c.selectErr
	}
	c.selected = id
	return nil
}

func (c *fakeController) Status() dto.CaptureStatus {
	return dto.CaptureStatus{State: c.state.String(), ButtonLabel: c.state.ButtonLabel(), DeviceID: c.selected}
}

type fakeStore struct {
	records []models.Prediction
	err     error
	cleared bool
}

func (s *fakeStore) ListAll(ctx context.Context) ([]models.Prediction, error) {
	return s.records, s.err
}

func (s *fakeStore) ClearAll(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.cleared = true
	s.records = nil
	return nil
}

type fakeSource struct {
	camera.Source
	devices []camera.DeviceInfo
	err     error
}

func (s fakeSource) Devices(ctx context.Context) ([]camera.DeviceInfo, error) {
	return s.devices, s.err
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir(), LogMaxSizeMB: 1})
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleRecords() []models.Prediction {
	return []models.Prediction{
		{ID: 1, Time: "2025-06-15T14:30:00.000Z", PredictedClass: models.ClassOne, Probabilities: &models.Probabilities{Class1: 0.9, Class2: 0.1}},
		{ID: 2, Time: "2025-06-15T14:30:02.000Z", PredictedClass: models.ClassTwo, Probabilities: &models.Probabilities{Class1: 0.4, Class2: 0.6}},
		{ID: 3, Time: "2025-06-15T14:30:04.000Z", PredictedClass: models.ClassTwo},
	}
}

// ========================================
// Camera Handler Tests
// ========================================

func TestToggleHandler(t *testing.T) {
	l := newTestLogger(t)
	ctrl := &fakeController{selected: "cam0"}

	w := httptest.NewRecorder()
	ToggleHandler(ctrl, l)(w, httptest.NewRequest(http.MethodPost, "/api/camera/toggle", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var status dto.CaptureStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if status.State != "running" || status.ButtonLabel != "Stop Camera" {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestToggleHandler_ErrorMapping(t *testing.T) {
	l := newTestLogger(t)

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"no device", camera.ErrNoDeviceSelected, http.StatusBadRequest},
		{"permission", fmt.Errorf("failed to start capture: %w", camera.ErrPermissionDenied), http.StatusForbidden},
		{"unavailable", fmt.Errorf("failed to start capture: %w", camera.ErrDeviceUnavailable), http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ToggleHandler(&fakeController{toggleErr: tt.err}, l)(w, httptest.NewRequest(http.MethodPost, "/api/camera/toggle", nil))

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
			if !strings.Contains(w.Body.String(), "error") {
				t.Errorf("Expected error body, got %s", w.Body.String())
			}
		})
	}
}

func TestSelectDeviceHandler(t *testing.T) {
	l := newTestLogger(t)
	ctrl := &fakeController{}

	w := httptest.NewRecorder()
	SelectDeviceHandler(ctrl, l)(w, httptest.NewRequest(http.MethodPost, "/api/devices/select?id=cam1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ctrl.selected != "cam1" {
		t.Errorf("Expected cam1 to be selected, got %q", ctrl.selected)
	}
}

func TestSelectDeviceHandler_WhileCapturing(t *testing.T) {
	l := newTestLogger(t)

	w := httptest.NewRecorder()
	SelectDeviceHandler(&fakeController{selectErr: capture.ErrCaptureActive}, l)(w, httptest.NewRequest(http.MethodPost, "/api/devices/select?id=cam1", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestDevicesHandler(t *testing.T) {
	l := newTestLogger(t)
	source := fakeSource{devices: []camera.DeviceInfo{{ID: "0", Label: "Camera 1"}}}

	w := httptest.NewRecorder()
	DevicesHandler(source, l)(w, httptest.NewRequest(http.MethodGet, "/api/devices", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var devices []camera.DeviceInfo
	if err := json.NewDecoder(w.Body).Decode(&devices); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(devices) != 1 || devices[0].Label != "Camera 1" {
		t.Errorf("Unexpected devices: %+v", devices)
	}
}

func TestDevicesHandler_NoCamera(t *testing.T) {
	l := newTestLogger(t)

	w := httptest.NewRecorder()
	DevicesHandler(fakeSource{err: camera.ErrDeviceUnavailable}, l)(w, httptest.NewRequest(http.MethodGet, "/api/devices", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

// ========================================
// Prediction Handler Tests
// ========================================

func TestPredictionsHandler(t *testing.T) {
	l := newTestLogger(t)

	w := httptest.NewRecorder()
	PredictionsHandler(&fakeStore{records: sampleRecords()}, l)(w, httptest.NewRequest(http.MethodGet, "/api/predictions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var records []models.Prediction
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(records) != 3 || records[0].PredictedClass != models.ClassOne {
		t.Errorf("Unexpected records: %+v", records)
	}
}

func TestPredictionsHandler_StorageUnavailable(t *testing.T) {
	l := newTestLogger(t)
	store := &fakeStore{err: fmt.Errorf("%w: locked", storage.ErrStorageUnavailable)}

	w := httptest.NewRecorder()
	PredictionsHandler(store, l)(w, httptest.NewRequest(http.MethodGet, "/api/predictions", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestExportHandler(t *testing.T) {
	l := newTestLogger(t)
	exporter := export.NewExporter(&fakeStore{records: sampleRecords()})

	w := httptest.NewRecorder()
	ExportHandler(exporter, l)(w, httptest.NewRequest(http.MethodGet, "/api/predictions/export", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="predictions.json"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	var records []models.Prediction
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}
}

func TestExportHandler_Empty(t *testing.T) {
	l := newTestLogger(t)

	w := httptest.NewRecorder()
	ExportHandler(export.NewExporter(&fakeStore{}), l)(w, httptest.NewRequest(http.MethodGet, "/api/predictions/export", nil))

	if w.Body.String() != "[]" {
		t.Errorf("Expected [], got %q", w.Body.String())
	}
}

func TestClearPredictionsHandler_RequiresConfirmation(t *testing.T) {
	l := newTestLogger(t)
	store := &fakeStore{records: sampleRecords()}

	w := httptest.NewRecorder()
	ClearPredictionsHandler(store, l)(w, httptest.NewRequest(http.MethodPost, "/api/predictions/clear", nil))

	if w.Code != http.StatusPreconditionRequired {
		t.Errorf("Expected status 428, got %d", w.Code)
	}
	if store.cleared {
		t.Error("Store should not be cleared without confirmation")
	}
}

func TestClearPredictionsHandler(t *testing.T) {
	l := newTestLogger(t)
	store := &fakeStore{records: sampleRecords()}

	w := httptest.NewRecorder()
	ClearPredictionsHandler(store, l)(w, httptest.NewRequest(http.MethodPost, "/api/predictions/clear?confirm=true", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !store.cleared {
		t.Error("Expected store to be cleared")
	}
}

func TestStatsHandler(t *testing.T) {
	l := newTestLogger(t)

	w := httptest.NewRecorder()
	StatsHandler(&fakeStore{records: sampleRecords()}, l)(w, httptest.NewRequest(http.MethodGet, "/api/predictions/stats", nil))

	var stats dto.PredictionStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if stats.Total != 3 || stats.Class1 != 1 || stats.Class2 != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.First != "2025-06-15T14:30:00.000Z" || stats.Last != "2025-06-15T14:30:04.000Z" {
		t.Errorf("Unexpected time range: %+v", stats)
	}
}

// ========================================
// Log Handler Tests
// ========================================

func TestLogsHandlers(t *testing.T) {
	l := newTestLogger(t)
	l.Warning("camera unplugged")

	w := httptest.NewRecorder()
	ShowLogsHandler(l, logger.WarningFile)(w, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "camera unplugged") {
		t.Fatalf("Unexpected log response %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	ClearLogsHandler(l, logger.WarningFile)(w, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	data, err := os.ReadFile(filepath.Join(l.Directory(), logger.WarningFile))
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty log, got %q", data)
	}
}

func TestLogsHandler_Missing(t *testing.T) {
	l := newTestLogger(t)

	w := httptest.NewRecorder()
	ShowLogsHandler(l, logger.ErrorFile)(w, httptest.NewRequest(http.MethodGet, "/logs/error", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
