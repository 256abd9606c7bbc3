package main

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/goppg/pkg/config"
	"github.com/itohio/goppg/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Source.Kind = config.SourceMock
	cfg.Acquisition.SampleRate = 20
	cfg.Acquisition.WindowSeconds = 1
	cfg.Acquisition.NumWindows = 1
	cfg.Mock.Noise = 0
	return cfg
}

func runWithTimeout(t *testing.T, cfg *config.Config, src source.Source) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, src, zaptest.NewLogger(t), true, 1) }()

	select {
	case err := <-done:
		require.NoError(t, ctx.Err(), "run only returned on timeout")
		return err
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return")
		return nil
	}
}

func TestRun_CompletesSession(t *testing.T) {
	cfg := testConfig()
	src := source.NewADC(source.NewWaveform(cfg.Mock, cfg.Acquisition), time.Millisecond, zaptest.NewLogger(t))

	assert.NoError(t, runWithTimeout(t, cfg, src))
}

func TestRun_SourceFailureIsReturned(t *testing.T) {
	cfg := testConfig()
	w := source.NewWaveform(cfg.Mock, cfg.Acquisition)
	require.NoError(t, w.Close())
	src := source.NewADC(w, time.Millisecond, zaptest.NewLogger(t))

	err := runWithTimeout(t, cfg, src)
	assert.ErrorIs(t, err, source.ErrClosed)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Acquisition.QueueCapacity = -1
	src := source.NewADC(source.NewWaveform(cfg.Mock, cfg.Acquisition), time.Millisecond, nil)

	assert.Error(t, run(context.Background(), cfg, src, zaptest.NewLogger(t), true, 1))
}
