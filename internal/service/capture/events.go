package capture

import (
	"time"

	"camclassify/internal/models"
)

// EventType identifies a loop event.
type EventType string

const (
	EventState          EventType = "state"
	EventPrediction     EventType = "prediction"
	EventTickFailed     EventType = "tick_failed"
	EventStorageWarning EventType = "storage_warning"
)

// Event is published for every state change and tick outcome.
type Event struct {
	Type       EventType          `json:"type"`
	Time       time.Time          `json:"time"`
	State      string             `json:"state,omitempty"`
	SessionID  string             `json:"sessionId,omitempty"`
	Prediction *models.Prediction `json:"prediction,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Notifier receives loop events. Notify must not block.
type Notifier interface {
	Notify(e Event)
}

type noopNotifier struct{}

func (noopNotifier) Notify(Event) {}
