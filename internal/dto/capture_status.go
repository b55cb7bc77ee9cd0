package dto

import (
	"encoding/json"
	"time"
)

// SessionInfo summarizes the running capture session.
type SessionInfo struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId"`
	StartedAt time.Time `json:"startedAt"`
	Ticks     int64     `json:"ticks"`
	Skipped   int64     `json:"skipped"` // ticks dropped while a classification was in flight
	Recorded  int64     `json:"recorded"`
	Failures  int64     `json:"failures"`
}

// MarshalJSON renders StartedAt in UTC with millisecond precision.
func (s SessionInfo) MarshalJSON() ([]byte, error) {
	type Alias SessionInfo
	return json.Marshal(&struct {
		StartedAt string `json:"startedAt"`
		Alias
	}{
		StartedAt: s.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Alias:     (Alias)(s),
	})
}

// CaptureStatus is the externally visible state of the capture loop.
type CaptureStatus struct {
	State       string       `json:"state"`
	ButtonLabel string       `json:"buttonLabel"`
	DeviceID    string       `json:"deviceId"`
	Session     *SessionInfo `json:"session,omitempty"`
	Error       string       `json:"error,omitempty"`
}
