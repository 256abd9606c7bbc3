// Package sim answers sample requests from a PPG acquisition host over a
// serial link, standing in for the sensor front end.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/itohio/goppg/pkg/config"
	"github.com/itohio/goppg/pkg/sample"
	"github.com/itohio/goppg/pkg/source"
	"go.uber.org/zap"
)

// Generator produces the simulated conversions.
type Generator interface {
	Read() (uint16, error)
	Reset()
}

// Responder is the peer of source.Serial. A start byte arms it; every request
// byte received while armed is answered with the next sample frame until all
// windows have been sent.
type Responder struct {
	port io.ReadWriter
	gen  Generator
	log  *zap.Logger
	now  func() time.Time

	perWindow  int
	numWindows int
	settling   time.Duration

	mu        sync.Mutex
	armed     bool
	window    int
	index     int
	started   time.Time
	windowEnd time.Time
	sent      uint64
	ignored   uint64
	completed uint64
}

// NewResponder creates a responder for the acquisition layout in cfg.
func NewResponder(port io.ReadWriter, gen Generator, cfg *config.Config, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{
		port:       port,
		gen:        gen,
		log:        log.Named("sim"),
		now:        time.Now,
		perWindow:  cfg.Acquisition.SamplesPerWindow(),
		numWindows: cfg.Acquisition.NumWindows,
		settling:   cfg.Simulator.Settling,
	}
}

// Serve handles commands until ctx is done or the port fails. If the port is
// an io.Closer it is closed when ctx is done so that a pending read returns.
func (r *Responder) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if c, ok := r.port.(io.Closer); ok {
			c.Close()
		}
	})
	defer stop()

	r.log.Info("Waiting for start command")

	buf := make([]byte, 1)
	for {
		if _, err := r.port.Read(buf); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				r.log.Info("Link closed by host")
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		if err := r.Handle(buf[0]); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Handle processes a single command byte.
func (r *Responder) Handle(cmd byte) error {
	switch cmd {
	case source.CmdStart:
		r.arm()
		return nil
	case source.CmdRequest:
		return r.request()
	default:
		r.log.Debug("Unknown command", zap.Uint8("cmd", cmd))
		return nil
	}
}

func (r *Responder) arm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.armed {
		return
	}

	r.armed = true
	r.window = 0
	r.index = 0
	r.started = r.now()
	r.windowEnd = time.Time{}
	r.gen.Reset()

	r.log.Info("Start received, simulation armed",
		zap.Int("windows", r.numWindows),
		zap.Int("samplesPerWindow", r.perWindow))
}

func (r *Responder) request() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.armed {
		r.ignored++
		return nil
	}

	if r.window >= r.numWindows {
		r.armed = false
		r.completed++
		r.log.Info("Simulation completed", zap.Duration("elapsed", r.now().Sub(r.started)))
		return nil
	}

	if r.index == 0 && !r.windowEnd.IsZero() && r.now().Sub(r.windowEnd) < r.settling {
		r.ignored++
		return nil
	}

	v, err := r.gen.Read()
	if err != nil {
		r.log.Debug("Conversion failed, request ignored", zap.Error(err))
		r.ignored++
		return nil
	}

	frame := sample.Encode(v)
	if _, err := r.port.Write(frame[:]); err != nil {
		return fmt.Errorf("failed to send sample: %w", err)
	}
	r.sent++

	r.index++
	if r.index >= r.perWindow {
		r.index = 0
		r.window++
		r.windowEnd = r.now()
		r.log.Debug("Window sent", zap.Int("window", r.window))
	}

	return nil
}

// Armed reports whether the responder is answering requests.
func (r *Responder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Sent returns the number of frames sent.
func (r *Responder) Sent() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

// Ignored returns the number of requests left unanswered.
func (r *Responder) Ignored() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ignored
}

// Completed returns the number of full simulations sent.
func (r *Responder) Completed() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}
