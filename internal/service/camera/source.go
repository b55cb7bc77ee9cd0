package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

var (
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrNoDeviceSelected  = errors.New("no camera selected")
	ErrNoFrameYet        = errors.New("no frame available yet")
)

// DeviceInfo describes one enumerable video input.
type DeviceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Frame is a decoded image together with the time it was received.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
}

// Source is a live video input.
type Source interface {
	// Devices lists the inputs that can be selected.
	Devices(ctx context.Context) ([]DeviceInfo, error)
	// SelectDevice picks the input used by the next Start.
	SelectDevice(id string) error
	// Selected returns the selected device id, or "" when none is selected.
	Selected() string
	// Start acquires the selected input. Frames become available once the
	// first one arrives.
	Start(ctx context.Context) error
	// CurrentFrame returns the most recent frame or ErrNoFrameYet.
	CurrentFrame() (Frame, error)
	// Stop releases the input.
	Stop() error
}

// Faulter is implemented by sources that can lose their device while
// streaming. A value is sent at most once per Start.
type Faulter interface {
	Fault() <-chan error
}

// FallbackLabel is the label shown for a device that reports none.
func FallbackLabel(index int) string {
	return fmt.Sprintf("Camera %d", index+1)
}
