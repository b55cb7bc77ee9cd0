package capture

import (
	"context"
	"sync/atomic"
	"time"

	"camclassify/internal/dto"

	"github.com/google/uuid"
)

// Session is one Running period of the loop. It exclusively owns its ticker.
type Session struct {
	ID        string
	DeviceID  string
	StartedAt time.Time

	ctx    context.Context
	ticker *time.Ticker
	done   chan struct{}
	exited chan struct{}

	busy          atomic.Bool
	storageWarned atomic.Bool

	ticks    atomic.Int64
	skipped  atomic.Int64
	recorded atomic.Int64
	failures atomic.Int64
}

func newSession(ctx context.Context, deviceID string, startedAt time.Time, interval time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		StartedAt: startedAt,
		ctx:       ctx,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
}

// Info returns a snapshot of the session counters.
func (s *Session) Info() dto.SessionInfo {
	return dto.SessionInfo{
		ID:        s.ID,
		DeviceID:  s.DeviceID,
		StartedAt: s.StartedAt,
		Ticks:     s.ticks.Load(),
		Skipped:   s.skipped.Load(),
		Recorded:  s.recorded.Load(),
		Failures:  s.failures.Load(),
	}
}
