package ppg

import (
	"github.com/google/uuid"
	"github.com/itohio/goppg/pkg/sample"
)

// Stats holds the observable counters of a session.
type Stats struct {
	Pushed    uint64 // samples accepted by the queue
	Overflows uint64 // samples dropped because the queue was full
	Processed uint64 // samples filtered, over all sessions
	Cancelled uint64 // steps that ended without a sample
	Discarded uint64 // samples popped after the session had stopped
	Faults    uint64 // sampling periods that produced no sample
	Flushed   uint64 // stale samples dropped on Start
	Pending   int    // samples waiting in the queue
}

// Snapshot is a read-only view of the published session state.
type Snapshot struct {
	ID          uuid.UUID
	Running     bool
	SampleCount uint32
	Target      uint32
	Red         uint16
	Infrared    uint16
	Estimate    *Estimate
	Err         error
	Stats       Stats
}

// Latest returns the most recent filtered value of channel ch.
func (s *Session) Latest(ch sample.Channel) uint16 {
	if !s.initialized() || int(ch) >= len(s.latest) {
		return 0
	}
	return uint16(s.latest[ch].Load())
}

// Estimate returns the estimate of the last completed session, or nil.
func (s *Session) Estimate() *Estimate {
	if !s.initialized() {
		return nil
	}
	if est := s.estimate.Load(); est != nil {
		cp := *est
		return &cp
	}
	return nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	if !s.initialized() {
		return Stats{}
	}
	return Stats{
		Pushed:    s.queue.Pushed(),
		Overflows: s.queue.Overflows(),
		Processed: s.processed.Load(),
		Cancelled: s.cancelled.Load(),
		Discarded: s.discarded.Load(),
		Faults:    s.faults.Load(),
		Flushed:   s.flushed.Load(),
		Pending:   s.queue.Len(),
	}
}

// Snapshot returns the published state. Fields are read individually and
// may be from slightly different instants.
func (s *Session) Snapshot() Snapshot {
	if !s.initialized() {
		return Snapshot{}
	}
	return Snapshot{
		ID:          s.ID(),
		Running:     s.IsRunning(),
		SampleCount: s.SampleCount(),
		Target:      s.target,
		Red:         s.Latest(sample.Red),
		Infrared:    s.Latest(sample.Infrared),
		Estimate:    s.Estimate(),
		Err:         s.Err(),
		Stats:       s.Stats(),
	}
}
