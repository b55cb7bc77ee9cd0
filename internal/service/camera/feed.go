package camera

import (
	"image"
	"sync"
	"time"
)

// Feed holds the latest frame of a running source and its fault signal.
// Every driver publishes through one.
type Feed struct {
	mu    sync.RWMutex
	frame Frame
	ready bool
	fault chan error
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{fault: make(chan error, 1)}
}

// Publish replaces the current frame.
func (f *Feed) Publish(img image.Image, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = Frame{Image: img, Timestamp: ts}
	f.ready = true
}

// Latest returns the current frame or ErrNoFrameYet.
func (f *Feed) Latest() (Frame, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.ready {
		return Frame{}, ErrNoFrameYet
	}
	return f.frame, nil
}

// Reset drops the current frame and any pending fault.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = Frame{}
	f.ready = false

	select {
	case <-f.fault:
	default:
	}
}

// Fail reports a lost device. Only the first fault is kept.
func (f *Feed) Fail(err error) {
	select {
	case f.fault <- err:
	default:
	}
}

// Fault returns the channel on which device loss is reported.
func (f *Feed) Fault() <-chan error {
	return f.fault
}
