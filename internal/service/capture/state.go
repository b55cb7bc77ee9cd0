package capture

import "errors"

// ErrCaptureActive is returned when the device is changed while capturing.
var ErrCaptureActive = errors.New("capture is active")

// State is the lifecycle state of the capture loop.
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ButtonLabel is the caption of the control that toggles capture.
func (s State) ButtonLabel() string {
	if s == Starting || s == Running {
		return "Stop Camera"
	}
	return "Start Camera"
}
