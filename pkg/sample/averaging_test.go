package sample

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naiveMean recomputes the truncated mean of the last min(window, len(history)) values.
func naiveMean(history []uint16, window int) uint16 {
	n := min(window, len(history))
	var sum uint32
	for _, v := range history[len(history)-n:] {
		sum += uint32(v)
	}
	return uint16(sum / uint32(n))
}

func TestMovingAverage_Ramp(t *testing.T) {
	m := NewMovingAverage(16)

	assert.Equal(t, uint16(100), m.Filter(100))
	assert.Equal(t, uint16(150), m.Filter(200))
	assert.Equal(t, uint16(133), m.Filter(100)) // 400/3 truncated
	assert.Equal(t, 3, m.Count())
}

func TestMovingAverage_FullWindow(t *testing.T) {
	m := NewMovingAverage(16)

	for i := 0; i < 16; i++ {
		assert.Equal(t, uint16(0), m.Filter(0))
	}
	assert.Equal(t, 16, m.Count())

	// floor((15*0 + 160) / 16)
	assert.Equal(t, uint16(10), m.Filter(160))
	assert.Equal(t, 16, m.Count())
}

func TestMovingAverage_Truncates(t *testing.T) {
	m := NewMovingAverage(4)

	m.Filter(1)
	assert.Equal(t, uint16(1), m.Filter(2)) // 3/2
	assert.Equal(t, uint16(2), m.Filter(4)) // 7/3
	assert.Equal(t, uint16(1), m.Filter(0)) // 7/4
}

func TestMovingAverage_MatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, window := range []int{1, 2, 5, 16, 33} {
		m := NewMovingAverage(window)
		var history []uint16

		for i := 0; i < 500; i++ {
			v := uint16(rng.Intn(Max + 1))
			history = append(history, v)
			require.Equal(t, naiveMean(history, window), m.Filter(v), "window %d, sample %d", window, i)
			require.Equal(t, min(window, len(history)), m.Count())
		}
	}
}

func TestMovingAverage_MaxValuesDoNotOverflow(t *testing.T) {
	m := NewMovingAverage(1024)

	for i := 0; i < 2048; i++ {
		assert.Equal(t, uint16(Max), m.Filter(Max))
	}
}

func TestMovingAverage_Reset(t *testing.T) {
	m := NewMovingAverage(16)

	for i := 0; i < 40; i++ {
		m.Filter(uint16(i * 10))
	}
	m.Reset()

	assert.Equal(t, 0, m.Count())
	assert.Equal(t, uint16(0), m.Value())
	assert.Equal(t, uint16(7), m.Filter(7))
	assert.Equal(t, uint16(8), m.Filter(9))
}

func TestNewMovingAverage_InvalidSize(t *testing.T) {
	m := NewMovingAverage(0)

	assert.Equal(t, 1, m.Size())
	assert.Equal(t, uint16(5), m.Filter(5))
	assert.Equal(t, uint16(9), m.Filter(9))
}
