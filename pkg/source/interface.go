package source

import (
	"context"
	"errors"
)

// ErrClosed is returned once a source or converter has been closed.
var ErrClosed = errors.New("source: closed")

// Sink receives samples from a Source. PushSample and ReportFault are called
// from the source's own goroutine and must never block.
type Sink interface {
	PushSample(raw uint16) bool
	ReportFault(err error)
	IsRunning() bool
}

// Source produces one raw sample per sampling period while the sink runs.
// Run returns nil when ctx is done and an error on a fatal fault.
type Source interface {
	Run(ctx context.Context, sink Sink) error
	Close() error
}

// Armer is implemented by sources that must be told a session is about to start.
type Armer interface {
	Arm() error
}

// Converter performs one analog to digital conversion.
type Converter interface {
	Read() (uint16, error)
}

var (
	_ Source    = (*Serial)(nil)
	_ Armer     = (*Serial)(nil)
	_ Source    = (*ADC)(nil)
	_ Armer     = (*ADC)(nil)
	_ Converter = (*Waveform)(nil)
)
