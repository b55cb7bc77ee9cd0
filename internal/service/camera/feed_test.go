package camera

import (
	"errors"
	"image"
	"testing"
	"time"
)

func TestFeed_NoFrameUntilPublished(t *testing.T) {
	f := NewFeed()

	if _, err := f.Latest(); !errors.Is(err, ErrNoFrameYet) {
		t.Fatalf("Expected ErrNoFrameYet, got %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	ts := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	f.Publish(img, ts)

	frame, err := f.Latest()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if frame.Image != img || !frame.Timestamp.Equal(ts) {
		t.Errorf("Unexpected frame: %+v", frame)
	}
}

func TestFeed_Reset(t *testing.T) {
	f := NewFeed()
	f.Publish(image.NewRGBA(image.Rect(0, 0, 1, 1)), time.Now())
	f.Fail(ErrDeviceUnavailable)

	f.Reset()

	if _, err := f.Latest(); !errors.Is(err, ErrNoFrameYet) {
		t.Errorf("Expected ErrNoFrameYet after reset, got %v", err)
	}
	select {
	case err := <-f.Fault():
		t.Errorf("Expected pending fault to be dropped, got %v", err)
	default:
	}
}

func TestFeed_FailKeepsFirst(t *testing.T) {
	f := NewFeed()
	first := errors.New("first")
	f.Fail(first)
	f.Fail(errors.New("second"))

	if err := <-f.Fault(); err != first {
		t.Errorf("Expected first fault, got %v", err)
	}
}

func TestFallbackLabel(t *testing.T) {
	if got := FallbackLabel(0); got != "Camera 1" {
		t.Errorf("Expected Camera 1, got %q", got)
	}
	if got := FallbackLabel(2); got != "Camera 3" {
		t.Errorf("Expected Camera 3, got %q", got)
	}
}
