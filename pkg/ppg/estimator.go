package ppg

// Record holds the filtered streams of one completed session.
// The slices are reused by the next session and must not be retained.
type Record struct {
	SampleRate int
	Red        []uint16
	Infrared   []uint16
}

// Estimate is the outcome of heart rate and oxygen saturation estimation.
type Estimate struct {
	HeartRateBPM float32
	SpO2Percent  float32
}

// Estimator derives heart rate and SpO2 from the filtered red and infrared
// streams. It runs once per completed session on the processing goroutine.
type Estimator interface {
	Estimate(rec Record) (Estimate, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(rec Record) (Estimate, error)

// Estimate calls f(rec).
func (f EstimatorFunc) Estimate(rec Record) (Estimate, error) {
	return f(rec)
}
