package source

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ADC samples a Converter on a fixed period while the sink is running.
type ADC struct {
	conv   Converter
	period time.Duration
	log    *zap.Logger

	conversions atomic.Uint64
	faults      atomic.Uint64
}

// NewADC creates a periodic source around conv.
func NewADC(conv Converter, period time.Duration, log *zap.Logger) *ADC {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ADC{
		conv:   conv,
		period: period,
		log:    log.Named("adc"),
	}
}

// Run converts one sample per period until ctx is done. A converter that
// reports ErrClosed ends the run with that error; every other conversion
// error is reported to the sink and sampling continues.
func (a *ADC) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if !sink.IsRunning() {
				continue
			}

			raw, err := a.conv.Read()
			if errors.Is(err, ErrClosed) {
				a.log.Error("Converter closed", zap.Error(err))
				return err
			}
			if err != nil {
				a.faults.Add(1)
				sink.ReportFault(err)
				continue
			}

			a.conversions.Add(1)
			if !sink.PushSample(raw) {
				a.log.Debug("Sample queue full, dropping sample")
			}
		}
	}
}

// Arm rewinds the converter, if it supports that, so every session starts
// at the beginning of its first window.
func (a *ADC) Arm() error {
	if r, ok := a.conv.(interface{ Reset() }); ok {
		r.Reset()
		a.log.Debug("Converter rewound")
	}
	return nil
}

// Close closes the converter if it can be closed.
func (a *ADC) Close() error {
	if c, ok := a.conv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Conversions returns the number of successful conversions.
func (a *ADC) Conversions() uint64 {
	return a.conversions.Load()
}

// Faults returns the number of failed conversions.
func (a *ADC) Faults() uint64 {
	return a.faults.Load()
}
