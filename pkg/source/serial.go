package source

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/goppg/pkg/sample"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the baud rate of the simulation link.
	DefaultBaudRate = 115200

	// CmdStart tells the peer a session is starting.
	CmdStart byte = 'C'
	// CmdRequest asks the peer for the next sample.
	CmdRequest byte = 'R'
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial receives simulated samples over a serial link. Every sampling
// period, while the sink is running, it sends a request byte; the peer answers
// with a 2-byte little-endian frame.
type Serial struct {
	port   io.ReadWriteCloser
	period time.Duration
	log    *zap.Logger

	writeMu sync.Mutex
	closed  atomic.Bool

	requests atomic.Uint64
	frames   atomic.Uint64
}

// OpenSerial opens the named serial port.
func OpenSerial(name string, baudRate int, period time.Duration, log *zap.Logger) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	log.Info("Serial port opened", zap.String("port", name), zap.Int("baudRate", baudRate))

	return NewSerial(port, period, log), nil
}

// NewSerial creates a serial source on an already open port.
func NewSerial(port io.ReadWriteCloser, period time.Duration, log *zap.Logger) *Serial {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Serial{
		port:   port,
		period: period,
		log:    log.Named("serial"),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Arm notifies the peer that a session is starting.
func (s *Serial) Arm() error {
	return s.write(CmdStart)
}

// Run requests and receives samples until ctx is done or the link fails.
// The port is closed when Run returns.
func (s *Serial) Run(ctx context.Context, sink Sink) error {
	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readFrames(sink)
	}()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closePort()
			<-readErr
			return nil

		case err := <-readErr:
			s.closePort()
			if err != nil {
				s.log.Error("Serial link lost", zap.Error(err))
			}
			return err

		case <-ticker.C:
			if !sink.IsRunning() {
				continue
			}
			if err := s.write(CmdRequest); err != nil {
				sink.ReportFault(err)
				continue
			}
			s.requests.Add(1)
		}
	}
}

// readFrames decodes 2-byte frames and pushes them to the sink, re-arming
// for the next frame right after each push.
func (s *Serial) readFrames(sink Sink) error {
	var frame [sample.FrameSize]byte
	for {
		if _, err := io.ReadFull(s.port, frame[:]); err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("failed to read sample frame: %w", err)
		}

		s.frames.Add(1)
		if !sink.PushSample(sample.Decode(frame)) {
			s.log.Debug("Sample queue full, dropping sample")
		}
	}
}

func (s *Serial) write(b byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.port.Write([]byte{b}); err != nil {
		return fmt.Errorf("failed to send %q: %w", b, err)
	}
	return nil
}

// Close closes the port. It is safe to call more than once.
func (s *Serial) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// closePort closes the port from Run, where there is no caller to return
// the error to.
func (s *Serial) closePort() {
	if err := s.Close(); err != nil {
		s.log.Warn("Error closing serial port", zap.Error(err))
	}
}

// Requests returns the number of sample requests sent.
func (s *Serial) Requests() uint64 {
	return s.requests.Load()
}

// Frames returns the number of frames received.
func (s *Serial) Frames() uint64 {
	return s.frames.Load()
}
