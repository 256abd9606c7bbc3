package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/itohio/goppg/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{level: "debug", want: zapcore.DebugLevel},
		{level: "info", want: zapcore.InfoLevel},
		{level: "warn", want: zapcore.WarnLevel},
		{level: "error", want: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(config.LogConfig{Level: tt.level})
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
	assert.Nil(t, log)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ppg.log")

	log, err := New(config.LogConfig{Level: "info", File: path})
	require.NoError(t, err)

	log.Info("session started")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
}
