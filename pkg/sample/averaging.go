package sample

// MovingAverage is a fixed-size circular history of raw samples.
// While fewer than Size samples have been seen, the mean covers only the
// samples seen so far. The result is truncated toward zero.
//
// MovingAverage is not safe for concurrent use; it belongs to the consumer.
type MovingAverage struct {
	buffer []uint16
	index  int
	count  int
	sum    uint32
}

// NewMovingAverage creates a moving average over windowSize samples.
func NewMovingAverage(windowSize int) *MovingAverage {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	return &MovingAverage{
		buffer: make([]uint16, windowSize),
	}
}

// Filter overwrites the oldest slot with v and returns the current mean.
func (m *MovingAverage) Filter(v uint16) uint16 {
	// Slots not yet written since Reset hold zero, so the running sum
	// stays equal to the sum over the first count slots.
	m.sum -= uint32(m.buffer[m.index])
	m.buffer[m.index] = v
	m.sum += uint32(v)

	m.index = (m.index + 1) % len(m.buffer)
	if m.count < len(m.buffer) {
		m.count++
	}

	return uint16(m.sum / uint32(m.count))
}

// Value returns the current mean without adding a sample, or 0 if empty.
func (m *MovingAverage) Value() uint16 {
	if m.count == 0 {
		return 0
	}
	return uint16(m.sum / uint32(m.count))
}

// Reset empties the window.
func (m *MovingAverage) Reset() {
	clear(m.buffer)
	m.index = 0
	m.count = 0
	m.sum = 0
}

// Count returns how many slots hold samples (saturates at Size).
func (m *MovingAverage) Count() int {
	return m.count
}

// Size returns the window length.
func (m *MovingAverage) Size() int {
	return len(m.buffer)
}
