package source

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/chewxy/math32"
	"github.com/itohio/goppg/pkg/config"
	"github.com/itohio/goppg/pkg/sample"
)

// Waveform is a Converter that synthesizes a pulsatile PPG signal. Windows
// alternate between the red and infrared amplitudes; the phase restarts at
// the beginning of every window.
type Waveform struct {
	cfg       config.MockConfig
	rate      float32
	perWindow int

	mu       sync.Mutex
	rng      *rand.Rand
	n        int // delivered conversions
	attempts int
	closed   bool
}

// NewWaveform creates a synthetic converter for the given acquisition layout.
func NewWaveform(cfg config.MockConfig, acq config.AcquisitionConfig) *Waveform {
	perWindow := acq.SamplesPerWindow()
	if perWindow <= 0 {
		perWindow = 1
	}
	rate := float32(acq.SampleRate)
	if rate <= 0 {
		rate = 1
	}

	return &Waveform{
		cfg:       cfg,
		rate:      rate,
		perWindow: perWindow,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Read returns the next synthetic conversion.
func (w *Waveform) Read() (uint16, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	w.attempts++
	if w.cfg.DropEvery > 0 && w.attempts%w.cfg.DropEvery == 0 {
		return 0, fmt.Errorf("conversion attempt %d failed", w.attempts)
	}

	// Only delivered conversions advance the waveform, so its windows stay
	// aligned with the consumer's sample count.
	v := w.value(w.n)
	w.n++
	return v, nil
}

// value computes conversion n. Must be called with mu held.
func (w *Waveform) value(n int) uint16 {
	amplitude := w.cfg.RedAmplitude
	if (n/w.perWindow)%2 == 1 {
		amplitude = w.cfg.InfraredAmplitude
	}

	t := float32(n%w.perWindow) / w.rate
	v := float32(w.cfg.Baseline) +
		float32(amplitude)*math32.Sin(2*math32.Pi*float32(w.cfg.Frequency)*t)
	if w.cfg.Noise > 0 {
		v += float32(w.cfg.Noise * w.rng.NormFloat64())
	}

	switch {
	case v < 0:
		return 0
	case v > sample.Max:
		return sample.Max
	}
	return uint16(v)
}

// Reset rewinds the waveform to the beginning of the first window and
// reseeds the noise generator.
func (w *Waveform) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.n = 0
	w.attempts = 0
	w.rng = rand.New(rand.NewSource(w.cfg.Seed))
}

// Count returns the number of conversions delivered since the last Reset.
func (w *Waveform) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close makes every further Read fail with ErrClosed.
func (w *Waveform) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
