package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds selectable at configuration time.
const (
	SourceSerial = "serial" // samples arrive as 2-byte frames over a serial link
	SourceMock   = "mock"   // samples are converted from a synthetic waveform
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Source      SourceConfig      `yaml:"source"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	ADC         ADCConfig         `yaml:"adc"`
	Mock        MockConfig        `yaml:"mock"`
	Simulator   SimulatorConfig   `yaml:"simulator"`
	Log         LogConfig         `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SourceConfig selects the sample source implementation.
type SourceConfig struct {
	Kind string `yaml:"kind"`
}

// AcquisitionConfig contains acquisition session parameters.
type AcquisitionConfig struct {
	SampleRate        int           `yaml:"sample_rate"`        // Hz
	WindowSeconds     int           `yaml:"window_seconds"`     // Length of one window
	NumWindows        int           `yaml:"num_windows"`        // Windows per session
	FilterWindow      int           `yaml:"filter_window"`      // Moving average length
	QueueCapacity     int           `yaml:"queue_capacity"`     // Producer/consumer buffer
	KeepStaleSamples  bool          `yaml:"keep_stale_samples"` // Do not flush the queue on Start
	AlternateChannels bool          `yaml:"alternate_channels"` // Windows alternate red/infrared
	PollInterval      time.Duration `yaml:"poll_interval"`      // Scheduling tick
}

// ADCConfig describes the converter front end.
type ADCConfig struct {
	VRef float64 `yaml:"vref"`
}

// MockConfig contains synthetic waveform configuration.
type MockConfig struct {
	Baseline          float64 `yaml:"baseline"`           // ADC counts
	RedAmplitude      float64 `yaml:"red_amplitude"`      // ADC counts
	InfraredAmplitude float64 `yaml:"infrared_amplitude"` // ADC counts
	Frequency         float64 `yaml:"frequency"`          // Pulse frequency (Hz)
	Noise             float64 `yaml:"noise"`              // Gaussian noise sigma (ADC counts)
	Seed              int64   `yaml:"seed"`               // Noise generator seed
	DropEvery         int     `yaml:"drop_every"`         // Fail every Nth conversion (0 = never)
}

// SimulatorConfig contains host-side simulator parameters.
type SimulatorConfig struct {
	Settling time.Duration `yaml:"settling"` // Pause between windows
}

// LogConfig contains logger configuration.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// TargetSamples returns the number of samples in one full session.
func (a AcquisitionConfig) TargetSamples() int {
	return a.SampleRate * a.WindowSeconds * a.NumWindows
}

// SamplesPerWindow returns the number of samples in one window.
func (a AcquisitionConfig) SamplesPerWindow() int {
	return a.SampleRate * a.WindowSeconds
}

// Period returns the sampling period.
func (a AcquisitionConfig) Period() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(a.SampleRate)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "COM7", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
		},
		Source: SourceConfig{
			Kind: SourceSerial,
		},
		Acquisition: AcquisitionConfig{
			SampleRate:    100,
			WindowSeconds: 5,
			NumWindows:    6,
			FilterWindow:  16,
			QueueCapacity: 30, // ~0.3 s @ 100 Hz
			PollInterval:  time.Millisecond,
		},
		ADC: ADCConfig{
			VRef: 3.3,
		},
		Mock: MockConfig{
			Baseline:          2048,
			RedAmplitude:      900,
			InfraredAmplitude: 1100,
			Frequency:         1.2, // 72 bpm
			Noise:             150,
			Seed:              1,
		},
		Simulator: SimulatorConfig{
			Settling: 150 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first configuration value that cannot drive a session.
func (c *Config) Validate() error {
	a := c.Acquisition
	switch {
	case a.SampleRate <= 0:
		return fmt.Errorf("invalid acquisition.sample_rate: %d", a.SampleRate)
	case a.WindowSeconds <= 0:
		return fmt.Errorf("invalid acquisition.window_seconds: %d", a.WindowSeconds)
	case a.NumWindows <= 0:
		return fmt.Errorf("invalid acquisition.num_windows: %d", a.NumWindows)
	case a.FilterWindow <= 0 || a.FilterWindow > 1024:
		return fmt.Errorf("invalid acquisition.filter_window: %d (1..1024)", a.FilterWindow)
	case a.QueueCapacity <= 0:
		return fmt.Errorf("invalid acquisition.queue_capacity: %d", a.QueueCapacity)
	}

	switch c.Source.Kind {
	case SourceSerial, SourceMock:
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Source.Kind == "" {
		c.Source.Kind = def.Source.Kind
	}

	if c.Acquisition.SampleRate == 0 {
		c.Acquisition.SampleRate = def.Acquisition.SampleRate
	}
	if c.Acquisition.WindowSeconds == 0 {
		c.Acquisition.WindowSeconds = def.Acquisition.WindowSeconds
	}
	if c.Acquisition.NumWindows == 0 {
		c.Acquisition.NumWindows = def.Acquisition.NumWindows
	}
	if c.Acquisition.FilterWindow == 0 {
		c.Acquisition.FilterWindow = def.Acquisition.FilterWindow
	}
	if c.Acquisition.QueueCapacity == 0 {
		c.Acquisition.QueueCapacity = def.Acquisition.QueueCapacity
	}
	if c.Acquisition.PollInterval == 0 {
		c.Acquisition.PollInterval = def.Acquisition.PollInterval
	}

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}

	if c.Mock.Frequency == 0 {
		c.Mock.Frequency = def.Mock.Frequency
	}
	if c.Mock.Baseline == 0 {
		c.Mock.Baseline = def.Mock.Baseline
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
