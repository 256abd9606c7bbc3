package ppg

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/goppg/pkg/config"
	"github.com/itohio/goppg/pkg/sample"
	"go.uber.org/zap"
)

// run is one Start..Stop interval. done is closed exactly once when the
// interval ends, waking a consumer blocked in Queue.Pop.
type run struct {
	id   uuid.UUID
	done chan struct{}
}

// Session is the acquisition session controller.
//
// The producer side (PushSample, ReportFault) may be called from any
// goroutine. Filter windows, the sample counter, the session record and the
// published values are only written by the goroutine calling ProcessStep,
// while it holds stepMu. Start takes stepMu too, so a reset never overlaps a
// step.
type Session struct {
	cfg       config.AcquisitionConfig
	log       *zap.Logger
	queue     *Queue
	target    uint32
	perWindow uint32

	ctlMu  sync.Mutex // serializes Start
	stepMu sync.Mutex // consumer ownership of session state
	cur    atomic.Pointer[run]
	last   atomic.Pointer[run]

	// Consumer state
	filters [sample.NumChannels]*sample.MovingAverage
	record  [sample.NumChannels][]uint16

	estMu     sync.RWMutex
	estimator Estimator

	// Published state
	count    atomic.Uint32
	latest   [sample.NumChannels]atomic.Uint32
	estimate atomic.Pointer[Estimate]
	errMu    sync.Mutex
	err      error

	processed atomic.Uint64
	cancelled atomic.Uint64
	discarded atomic.Uint64
	faults    atomic.Uint64
	flushed   atomic.Uint64

	callbacks []func(Update)
	cbMu      sync.RWMutex
}

// New creates an idle session sized from the acquisition configuration.
// A nil configuration yields ErrNotInitialized; an invalid one is rejected
// with the validation error.
func New(cfg *config.Config, log *zap.Logger) (*Session, error) {
	if cfg == nil {
		return nil, ErrNotInitialized
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	a := cfg.Acquisition
	if a.PollInterval <= 0 {
		a.PollInterval = time.Millisecond
	}
	target := max(a.TargetSamples(), 0)

	s := &Session{
		cfg:       a,
		log:       log.Named("ppg"),
		queue:     NewQueue(a.QueueCapacity),
		target:    uint32(target),
		perWindow: uint32(max(a.SamplesPerWindow(), 0)),
		callbacks: make([]func(Update), 0),
	}
	for i := range s.filters {
		s.filters[i] = sample.NewMovingAverage(a.FilterWindow)
		s.record[i] = make([]uint16, 0, target)
	}

	return s, nil
}

func (s *Session) initialized() bool {
	return s != nil && s.queue != nil
}

// SetEstimator installs the estimator run after each completed session.
// It may be called at any time; a session that completes afterwards uses it.
func (s *Session) SetEstimator(e Estimator) {
	if !s.initialized() {
		return
	}
	s.estMu.Lock()
	defer s.estMu.Unlock()
	s.estimator = e
}

// Start begins a new session. It resets the filters and the sample counter
// and, unless stale samples are kept, flushes the queue. Calling Start while
// a session runs has no effect and returns ErrAlreadyRunning.
func (s *Session) Start() error {
	if !s.initialized() {
		return ErrNotInitialized
	}

	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	if r := s.cur.Load(); r != nil {
		s.log.Warn("Start ignored, session already running",
			zap.String("session", r.id.String()),
			zap.Uint32("samples", s.count.Load()))
		return ErrAlreadyRunning
	}

	// A consumer still inside ProcessStep holds a stopped run and returns promptly.
	s.stepMu.Lock()
	for i := range s.filters {
		s.filters[i].Reset()
		s.record[i] = s.record[i][:0]
	}
	s.count.Store(0)
	flushed := 0
	if !s.cfg.KeepStaleSamples {
		flushed = s.queue.Flush()
		s.flushed.Add(uint64(flushed))
	}
	s.estimate.Store(nil)
	s.setErr(nil)

	r := &run{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
	s.last.Store(r)
	s.cur.Store(r)
	s.stepMu.Unlock()

	s.log.Info("Acquisition started",
		zap.String("session", r.id.String()),
		zap.Uint32("target", s.target),
		zap.Int("flushed", flushed))

	return nil
}

// Stop ends the running session. It is idempotent and wakes a consumer
// blocked waiting for a sample.
func (s *Session) Stop() {
	if s == nil {
		return
	}
	if r := s.cur.Swap(nil); r != nil {
		close(r.done)
		s.log.Info("Acquisition stopped",
			zap.String("session", r.id.String()),
			zap.Uint32("samples", s.count.Load()))
	}
}

// finish is the automatic Running to Idle transition. It only ends r, so a
// late call can never stop a newer session.
func (s *Session) finish(r *run) bool {
	if !s.cur.CompareAndSwap(r, nil) {
		return false
	}
	close(r.done)
	s.log.Info("Acquisition completed",
		zap.String("session", r.id.String()),
		zap.Uint32("samples", s.count.Load()))
	return true
}

// Abort drives the session to its safe state after a fatal condition:
// acquisition stops and the published outputs are cleared.
func (s *Session) Abort(err error) {
	if !s.initialized() {
		return
	}
	// The error is recorded before the run ends so that anyone woken by
	// the stop already sees it.
	s.setErr(err)
	s.Stop()

	s.stepMu.Lock()
	for i := range s.latest {
		s.latest[i].Store(0)
	}
	s.estimate.Store(nil)
	s.stepMu.Unlock()

	s.log.Error("Acquisition aborted", zap.Error(err))
}

// IsRunning reports whether a session is in progress.
func (s *Session) IsRunning() bool {
	return s != nil && s.cur.Load() != nil
}

// WaitUntilDone blocks until the session is no longer running. It polls
// once per scheduling tick, so completion is observed at most one tick late.
func (s *Session) WaitUntilDone(ctx context.Context) error {
	if !s.initialized() {
		return ErrNotInitialized
	}
	if !s.IsRunning() {
		return nil
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.IsRunning() {
				return nil
			}
		}
	}
}

// PushSample hands one raw conversion to the session. It never blocks and
// is safe to call from the producer goroutine. Only the low 12 bits are kept.
func (s *Session) PushSample(raw uint16) bool {
	if !s.initialized() {
		return false
	}
	return s.queue.Push(raw & sample.Mask)
}

// ReportFault records a sampling period that produced no sample.
func (s *Session) ReportFault(err error) {
	if !s.initialized() {
		return
	}
	n := s.faults.Add(1)
	s.log.Debug("Sample source fault", zap.Error(err), zap.Uint64("faults", n))
}

// Queue returns the handoff queue.
func (s *Session) Queue() *Queue {
	return s.queue
}

// ID returns the identifier of the current or most recent session.
func (s *Session) ID() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	if r := s.last.Load(); r != nil {
		return r.id
	}
	return uuid.Nil
}

// SampleCount returns the number of samples processed in this session.
func (s *Session) SampleCount() uint32 {
	if s == nil {
		return 0
	}
	return s.count.Load()
}

// Target returns the number of samples after which a session stops itself.
func (s *Session) Target() uint32 {
	if s == nil {
		return 0
	}
	return s.target
}

// Err returns the error passed to the last Abort, cleared by Start.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// channelFor returns the channel of the n-th sample of a session.
func (s *Session) channelFor(n uint32) sample.Channel {
	if !s.cfg.AlternateChannels || s.perWindow == 0 {
		return sample.Red
	}
	if (n/s.perWindow)%2 == 0 {
		return sample.Red
	}
	return sample.Infrared
}
