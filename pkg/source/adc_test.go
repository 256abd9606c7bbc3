package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type counter struct {
	n atomic.Uint32
}

func (c *counter) Read() (uint16, error) {
	return uint16(c.n.Add(1)), nil
}

func runADC(t *testing.T, a *ADC, sink Sink) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, sink) }()
	return cancel, done
}

func TestADC_Samples(t *testing.T) {
	a := NewADC(&counter{}, time.Millisecond, zaptest.NewLogger(t))
	sink := newFakeSink(true)

	cancel, done := runADC(t, a, sink)
	require.Eventually(t, func() bool {
		return len(sink.Samples()) >= 10
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got := sink.Samples()
	for i, v := range got {
		assert.Equal(t, uint16(i+1), v)
	}
	assert.Equal(t, uint64(len(got)), a.Conversions())
}

func TestADC_IdleWhileStopped(t *testing.T) {
	conv := &counter{}
	a := NewADC(conv, time.Millisecond, zaptest.NewLogger(t))
	sink := newFakeSink(false)

	cancel, done := runADC(t, a, sink)
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, uint32(0), conv.n.Load())
	assert.Empty(t, sink.Samples())
}

func TestADC_FaultsAreReported(t *testing.T) {
	mock, acq := quietWaveform()
	mock.DropEvery = 2
	a := NewADC(NewWaveform(mock, acq), time.Millisecond, zaptest.NewLogger(t))
	sink := newFakeSink(true)

	cancel, done := runADC(t, a, sink)
	require.Eventually(t, func() bool {
		return len(sink.Samples()) >= 5
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.NotEmpty(t, sink.Faults())
	assert.Equal(t, uint64(len(sink.Faults())), a.Faults())
}

func TestADC_ClosedConverterEndsRun(t *testing.T) {
	mock, acq := quietWaveform()
	w := NewWaveform(mock, acq)
	a := NewADC(w, time.Millisecond, zaptest.NewLogger(t))
	sink := newFakeSink(true)

	require.NoError(t, a.Close())

	cancel, done := runADC(t, a, sink)
	defer cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on a closed converter")
	}
	assert.Empty(t, sink.Samples())
}

func TestADC_CloseWithoutCloser(t *testing.T) {
	assert.NoError(t, NewADC(&counter{}, 0, nil).Close())
}

func TestADC_ArmRewindsConverter(t *testing.T) {
	mock, acq := quietWaveform()
	w := NewWaveform(mock, acq)
	a := NewADC(w, time.Millisecond, zaptest.NewLogger(t))

	first := readN(t, w, 30)
	require.Equal(t, 30, w.Count())

	require.NoError(t, a.Arm())
	assert.Equal(t, 0, w.Count())
	assert.Equal(t, first[:5], readN(t, w, 5))

	assert.NoError(t, NewADC(&counter{}, 0, nil).Arm())
}
