package source

import (
	"sync"
	"sync/atomic"

	"github.com/itohio/goppg/pkg/ppg"
)

var _ Sink = (*ppg.Session)(nil)

// fakeSink records everything a source hands it.
type fakeSink struct {
	running atomic.Bool
	reject  atomic.Bool

	mu      sync.Mutex
	samples []uint16
	faults  []error
}

func newFakeSink(running bool) *fakeSink {
	s := &fakeSink{}
	s.running.Store(running)
	return s
}

func (s *fakeSink) PushSample(raw uint16) bool {
	if s.reject.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, raw)
	return true
}

func (s *fakeSink) ReportFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, err)
}

func (s *fakeSink) IsRunning() bool {
	return s.running.Load()
}

func (s *fakeSink) Samples() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint16(nil), s.samples...)
}

func (s *fakeSink) Faults() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.faults...)
}
