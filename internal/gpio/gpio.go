// Package gpio drives the relay output pins with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Driver drives the relay output pins.
type Driver interface {
	// Set drives the output for channel to the electrical level implied
	// by on and the configured polarity.
	Set(channel int, on bool) error

	// Close drives both channels OFF and releases GPIO resources.
	Close() error
}

// NumChannels is the number of relay output pins.
const NumChannels = 2

// Default pin assignments (BCM numbering).
const (
	DefaultPinR1 = 17 // Relay 1
	DefaultPinR2 = 27 // Relay 2
)
