package ppg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/goppg/pkg/sample"
	"go.uber.org/zap"
)

// Step reports what a ProcessStep call did.
type Step int

const (
	StepIdle      Step = iota // no session running, nothing done
	StepProcessed             // one sample filtered and published
	StepCancelled             // the session stopped before a sample arrived
	StepCompleted             // the last sample of the session was processed
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepProcessed:
		return "processed"
	case StepCancelled:
		return "cancelled"
	case StepCompleted:
		return "completed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Update describes one processed sample. It is passed to OnUpdate callbacks.
type Update struct {
	Session  uuid.UUID
	Index    uint32 // 1-based position within the session
	Channel  sample.Channel
	Raw      uint16
	Filtered uint16
}

// ProcessStep drains one sample from the queue, filters it, publishes the
// result and advances the session. It suspends while the queue is empty.
// When the session is idle it returns StepIdle immediately. When the session
// stops while waiting it returns StepCancelled without touching the counter
// or the filters.
func (s *Session) ProcessStep(ctx context.Context) (Step, error) {
	if !s.initialized() {
		return StepIdle, ErrNotInitialized
	}
	if s.cur.Load() == nil {
		return StepIdle, nil
	}

	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	r := s.cur.Load()
	if r == nil {
		return StepIdle, nil
	}

	raw, err := s.queue.Pop(ctx, r.done)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			s.cancelled.Add(1)
			return StepCancelled, nil
		}
		return StepCancelled, err
	}

	if s.cur.Load() != r {
		// Stopped while the sample was being handed over.
		s.discarded.Add(1)
		return StepCancelled, nil
	}

	n := s.count.Load()
	ch := s.channelFor(n)
	filtered := s.filters[ch].Filter(raw)
	s.latest[ch].Store(uint32(filtered))
	s.record[ch] = append(s.record[ch], filtered)

	n++
	s.count.Store(n)
	s.processed.Add(1)

	s.notifyCallbacks(Update{
		Session:  r.id,
		Index:    n,
		Channel:  ch,
		Raw:      raw,
		Filtered: filtered,
	})

	if n >= s.target {
		if s.finish(r) {
			s.runEstimator(r)
		}
		return StepCompleted, nil
	}

	return StepProcessed, nil
}

// Run is the periodic processing driver. It calls ProcessStep back to back
// while a session runs, so the processing rate follows the sampling rate,
// and sleeps one tick at a time while idle. It returns nil when ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if !s.initialized() {
		return ErrNotInitialized
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		step, err := s.ProcessStep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if step == StepIdle {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// runEstimator runs the estimator on the record of the completed run r.
// Called by the consumer while holding stepMu.
func (s *Session) runEstimator(r *run) {
	s.estMu.RLock()
	estimator := s.estimator
	s.estMu.RUnlock()
	if estimator == nil {
		return
	}

	est, err := estimator.Estimate(Record{
		SampleRate: s.cfg.SampleRate,
		Red:        s.record[sample.Red],
		Infrared:   s.record[sample.Infrared],
	})
	if err != nil {
		s.log.Warn("Estimation failed", zap.String("session", r.id.String()), zap.Error(err))
		return
	}

	s.estimate.Store(&est)
	s.log.Info("Estimation done",
		zap.String("session", r.id.String()),
		zap.Float32("bpm", est.HeartRateBPM),
		zap.Float32("spo2", est.SpO2Percent))
}

// OnUpdate registers a callback invoked on the processing goroutine after
// every processed sample. Callbacks must return quickly and must not call
// Start, Abort or SetEstimator.
func (s *Session) OnUpdate(callback func(Update)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

func (s *Session) notifyCallbacks(u Update) {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()

	for _, cb := range s.callbacks {
		if cb != nil {
			cb(u)
		}
	}
}
