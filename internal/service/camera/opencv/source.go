package opencv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/service/camera"

	"gocv.io/x/gocv"
)

// maxReadFailures is the number of consecutive failed reads after which the
// device is considered lost.
const maxReadFailures = 30

// Source captures frames from a local video device or a stream URL.
type Source struct {
	maxProbe int
	logger   *logger.Logger
	feed     *camera.Feed

	mu       sync.Mutex
	selected string
	capture  *gocv.VideoCapture
	done     chan struct{}
	exited   chan struct{}
}

// NewSource creates an OpenCV source. cfg.DefaultDevice, when set, is
// preselected.
func NewSource(cfg *config.Config, logger *logger.Logger) *Source {
	return &Source{
		maxProbe: cfg.MaxProbeDevices,
		logger:   logger,
		feed:     camera.NewFeed(),
		selected: cfg.DefaultDevice,
	}
}

// Devices probes device indices 0..maxProbe-1. OpenCV exposes no device
// names, so every entry carries the fallback label.
func (s *Source) Devices(ctx context.Context) ([]camera.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices := make([]camera.DeviceInfo, 0)
	for i := 0; i < s.maxProbe; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := strconv.Itoa(i)
		if s.capture != nil && s.selected == id {
			devices = append(devices, camera.DeviceInfo{ID: id, Label: camera.FallbackLabel(i)})
			continue
		}

		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		opened := vc.IsOpened()
		vc.Close()
		if opened {
			devices = append(devices, camera.DeviceInfo{ID: id, Label: camera.FallbackLabel(i)})
		}
	}

	if len(devices) == 0 {
		return devices, fmt.Errorf("%w: no video devices found", camera.ErrDeviceUnavailable)
	}
	return devices, nil
}

// SelectDevice accepts a device index or a stream URL.
func (s *Source) SelectDevice(id string) error {
	if id == "" {
		return camera.ErrNoDeviceSelected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
	return nil
}

// Selected returns the selected device.
func (s *Source) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Start opens the selected device and starts the reader.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return camera.ErrNoDeviceSelected
	}
	if s.capture != nil {
		return nil
	}

	var device interface{} = s.selected
	if index, err := strconv.Atoi(s.selected); err == nil {
		device = index
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrDeviceUnavailable, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: failed to open %s", camera.ErrDeviceUnavailable, s.selected)
	}

	s.feed.Reset()
	s.capture = vc
	s.done = make(chan struct{})
	s.exited = make(chan struct{})
	go s.read(vc, s.done, s.exited)

	s.logger.Info("Camera %s opened", s.selected)
	return nil
}

// read grabs frames until done is closed or the device stops delivering.
func (s *Source) read(vc *gocv.VideoCapture, done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)

	mat := gocv.NewMat()
	defer mat.Close()

	failures := 0
	for {
		select {
		case <-done:
			return
		default:
		}

		if ok := vc.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures >= maxReadFailures {
				s.logger.Error("Camera stopped delivering frames")
				s.feed.Fail(fmt.Errorf("%w: device stopped delivering frames", camera.ErrDeviceUnavailable))
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		failures = 0

		img, err := mat.ToImage()
		if err != nil {
			s.logger.Warning("Failed to convert frame: %v", err)
			continue
		}
		s.feed.Publish(img, time.Now())
	}
}

// CurrentFrame returns the most recent frame.
func (s *Source) CurrentFrame() (camera.Frame, error) {
	return s.feed.Latest()
}

// Fault reports device loss.
func (s *Source) Fault() <-chan error {
	return s.feed.Fault()
}

// Stop joins the reader and releases the device.
func (s *Source) Stop() error {
	s.mu.Lock()
	vc, done, exited := s.capture, s.done, s.exited
	s.capture, s.done, s.exited = nil, nil, nil
	s.mu.Unlock()

	if vc == nil {
		return nil
	}

	close(done)
	<-exited
	s.feed.Reset()

	if err := vc.Close(); err != nil {
		return fmt.Errorf("failed to release camera: %w", err)
	}
	s.logger.Info("Camera released")
	return nil
}
