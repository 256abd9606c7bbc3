//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adc  machine.ADC
	uart = machine.UART0

	// Window state
	sampleIndex int
	infrared    bool

	frame [2]byte
)

func main() {
	// Configure LED pins as outputs, both off until the host starts a session
	PIN_LED_RED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED_IR.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED_RED.Low()
	PIN_LED_IR.Low()

	// Configure ADC pin and set up ADC with highest resolution
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	adc = machine.ADC{Pin: PIN_ADC}
	adc.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for {
		processSerial()
		time.Sleep(100 * time.Microsecond)
	}
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		switch data {
		case CMD_START:
			startSession()
		case CMD_REQUEST:
			sendSample()
		}
	}
}

func startSession() {
	sampleIndex = 0
	infrared = false
	selectLED()
}

// sendSample converts once and answers with a little-endian 12-bit frame.
func sendSample() {
	// machine.ADC.Get returns a left-aligned 16-bit value
	value := adc.Get() >> (16 - ADC_RESOLUTION)

	frame[0] = byte(value)
	frame[1] = byte(value>>8) & 0x0F
	uart.Write(frame[:])

	sampleIndex++
	if sampleIndex >= SAMPLES_PER_WINDOW {
		sampleIndex = 0
		infrared = !infrared
		selectLED()
	}
}

func selectLED() {
	if infrared {
		PIN_LED_RED.Low()
		PIN_LED_IR.High()
	} else {
		PIN_LED_IR.Low()
		PIN_LED_RED.High()
	}
}
