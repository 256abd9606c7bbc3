package sample

import "fmt"

const (
	// Max is the largest 12-bit ADC reading.
	Max = 4095
	// Mask keeps the 12 significant bits of a conversion.
	Mask = 0x0FFF
	// FrameSize is the number of bytes carrying one sample on the serial link.
	FrameSize = 2
)

// Channel identifies the LED wavelength a sample was taken under.
type Channel uint8

const (
	Red Channel = iota
	Infrared

	// NumChannels is the number of supported channels.
	NumChannels = 2
)

func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Infrared:
		return "ir"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// RawSample represents one raw conversion tagged with its channel.
type RawSample struct {
	Value   uint16 // 12-bit ADC reading (0-4095)
	Channel Channel
}

// Decode converts a little-endian frame (low byte first) into a 12-bit sample.
// Bits above the 12th are discarded.
func Decode(frame [FrameSize]byte) uint16 {
	return (uint16(frame[1])<<8 | uint16(frame[0])) & Mask
}

// Encode is the inverse of Decode. Values above Max are truncated to 12 bits.
func Encode(v uint16) [FrameSize]byte {
	v &= Mask
	return [FrameSize]byte{byte(v & 0xFF), byte(v >> 8)}
}

// ToVoltage converts a 12-bit ADC reading to voltage.
func ToVoltage(adc uint16, vref float64) float64 {
	return (float64(adc) / Max) * vref
}
