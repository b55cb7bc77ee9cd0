package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSessionInfo_MarshalJSON(t *testing.T) {
	info := SessionInfo{
		ID:        "abc",
		DeviceID:  "0",
		StartedAt: time.Date(2025, 6, 15, 16, 30, 0, 0, time.FixedZone("CEST", 2*60*60)),
		Ticks:     3,
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	jsonStr := string(data)
	if !strings.Contains(jsonStr, `"startedAt":"2025-06-15T14:30:00.000Z"`) {
		t.Errorf("Expected UTC start time, got: %s", jsonStr)
	}
	if !strings.Contains(jsonStr, `"ticks":3`) {
		t.Errorf("Expected counters, got: %s", jsonStr)
	}
}

func TestCaptureStatus_OmitsEmptySession(t *testing.T) {
	data, err := json.Marshal(CaptureStatus{State: "idle", ButtonLabel: "Start Camera"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "session") || strings.Contains(string(data), "error") {
		t.Errorf("Expected session and error to be omitted, got: %s", data)
	}
}
