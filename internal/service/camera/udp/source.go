package udp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/service/camera"
)

const maxPacketSize = 65507

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Source receives JPEG frames split over UDP packets from network cameras.
// A frame starts with a packet beginning with the JPEG SOI marker and ends
// with a packet ending with the EOI marker.
type Source struct {
	cameras []config.Camera
	port    int
	logger  *logger.Logger
	feed    *camera.Feed

	mu       sync.Mutex
	selected string
	conn     *net.UDPConn
	done     chan struct{}
}

// NewSource creates a UDP source for the cameras listed in the cameras file.
func NewSource(cfg *config.Config, cameras []config.Camera, logger *logger.Logger) *Source {
	return &Source{
		cameras: cameras,
		port:    cfg.CamerasPort,
		logger:  logger,
		feed:    camera.NewFeed(),
	}
}

// Devices lists the configured cameras.
func (s *Source) Devices(ctx context.Context) ([]camera.DeviceInfo, error) {
	devices := make([]camera.DeviceInfo, 0, len(s.cameras))
	for i, c := range s.cameras {
		label := c.Label
		if label == "" {
			label = camera.FallbackLabel(i)
		}
		devices = append(devices, camera.DeviceInfo{ID: c.ID, Label: label})
	}
	return devices, nil
}

// SelectDevice picks a configured camera by id.
func (s *Source) SelectDevice(id string) error {
	if id == "" {
		return camera.ErrNoDeviceSelected
	}
	if _, ok := s.lookup(id); !ok {
		return fmt.Errorf("%w: unknown camera %q", camera.ErrDeviceUnavailable, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
	return nil
}

// Selected returns the selected camera id.
func (s *Source) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Source) lookup(id string) (config.Camera, bool) {
	for _, c := range s.cameras {
		if c.ID == id {
			return c, true
		}
	}
	return config.Camera{}, false
}

// Start binds the UDP port and begins reassembling frames sent by the
// selected camera.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return camera.ErrNoDeviceSelected
	}
	if s.conn != nil {
		return nil
	}
	cam, _ := s.lookup(s.selected)

	addr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return fmt.Errorf("%w: failed to resolve UDP address: %v", camera.ErrDeviceUnavailable, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %v", camera.ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: failed to listen on UDP port %d: %v", camera.ErrDeviceUnavailable, s.port, err)
	}

	s.feed.Reset()
	s.conn = conn
	s.done = make(chan struct{})
	go s.receive(conn, cam, s.done)

	s.logger.Info("UDP camera %s listening on %s", cam.ID, conn.LocalAddr())
	return nil
}

// Addr returns the bound address while the source is running.
func (s *Source) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// receive reads packets until the connection is closed.
func (s *Source) receive(conn *net.UDPConn, cam config.Camera, done chan<- struct{}) {
	defer close(done)

	packet := make([]byte, maxPacketSize)
	frame := new(bytes.Buffer)

	for {
		n, remoteAddr, err := conn.ReadFromUDP(packet)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			s.feed.Fail(fmt.Errorf("%w: %v", camera.ErrDeviceUnavailable, err))
			return
		}

		if remoteAddr.IP.String() != cam.Address {
			continue
		}

		data := packet[:n]
		if bytes.HasPrefix(data, jpegHeader) {
			frame.Reset()
		}
		frame.Write(data)

		if bytes.HasSuffix(data, jpegFooter) {
			img, err := jpeg.Decode(bytes.NewReader(frame.Bytes()))
			frame.Reset()
			if err != nil {
				s.logger.Warning("Dropping undecodable frame from %s: %v", cam.ID, err)
				continue
			}
			s.feed.Publish(img, time.Now())
		}
	}
}

// CurrentFrame returns the most recent decoded frame.
func (s *Source) CurrentFrame() (camera.Frame, error) {
	return s.feed.Latest()
}

// Fault reports a receive failure.
func (s *Source) Fault() <-chan error {
	return s.feed.Fault()
}

// Stop closes the socket and waits for the receiver to exit.
func (s *Source) Stop() error {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	<-done
	s.feed.Reset()

	if err != nil {
		return fmt.Errorf("failed to close UDP socket: %w", err)
	}
	s.logger.Info("UDP camera stopped")
	return nil
}
