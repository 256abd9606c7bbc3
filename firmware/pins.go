//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_RATE_HZ     = 100 // Must match acquisition.sample_rate on the host
	WINDOW_SECONDS     = 5   // Must match acquisition.window_seconds on the host
	SAMPLES_PER_WINDOW = SAMPLE_RATE_HZ * WINDOW_SECONDS

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// LED pins
	PIN_LED_RED = machine.D7
	PIN_LED_IR  = machine.D8

	// Photodiode amplifier output
	PIN_ADC = machine.A1

	// Serial configuration
	// One 2-byte frame per request at 100 Hz = 200 bytes/sec.
	// UART 8N1: 10 bits/byte = 2,000 baud minimum; 115200 leaves ample headroom
	// for the request bytes travelling the other way.
	UART_BAUD_RATE = 115200

	// Protocol
	CMD_START   = 'C'
	CMD_REQUEST = 'R'
)
