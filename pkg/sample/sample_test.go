package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame [FrameSize]byte
		want  uint16
	}{
		{
			name:  "zero",
			frame: [FrameSize]byte{0x00, 0x00},
			want:  0,
		},
		{
			name:  "low byte first",
			frame: [FrameSize]byte{0x34, 0x02},
			want:  0x0234,
		},
		{
			name:  "max 12-bit",
			frame: [FrameSize]byte{0xFF, 0x0F},
			want:  Max,
		},
		{
			name:  "upper nibble masked",
			frame: [FrameSize]byte{0x00, 0xF8},
			want:  0x0800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.frame))
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, [FrameSize]byte{0x00, 0x08}, Encode(2048))
	assert.Equal(t, [FrameSize]byte{0xFF, 0x0F}, Encode(0xFFFF))

	for _, v := range []uint16{0, 1, 255, 256, 2048, Max} {
		assert.Equal(t, v, Decode(Encode(v)))
	}
}

func TestToVoltage(t *testing.T) {
	tests := []struct {
		name string
		adc  uint16
		vref float64
		want float64
	}{
		{name: "zero ADC", adc: 0, vref: 3.3, want: 0.0},
		{name: "max ADC", adc: Max, vref: 3.3, want: 3.3},
		{name: "half ADC", adc: 2047, vref: 3.3, want: 1.65},
		{name: "different VRef", adc: 2047, vref: 5.0, want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ToVoltage(tt.adc, tt.vref), 0.01)
		})
	}
}

func TestChannel_String(t *testing.T) {
	assert.Equal(t, "red", Red.String())
	assert.Equal(t, "ir", Infrared.String())
	assert.Equal(t, "channel(7)", Channel(7).String())
}
