// Package relay contains the relay state machine: the authoritative on/off
// bitmask for the two relay channels plus their auto-off deadlines.
// This package has NO hardware dependencies — physical outputs and the BLE
// characteristic are reached through narrow interfaces, and time is always
// an injected monotonic millisecond reading.
package relay

// NumChannels is the number of independently controlled relay channels.
const NumChannels = 2

// BitsMask keeps only the low bits that map to real channels. Any value
// written by a client is masked before acceptance.
const BitsMask = byte(1<<NumChannels) - 1

// AutoOffMs is the fixed safety timeout: a channel switched ON is forced
// OFF this many milliseconds later unless it was commanded OFF first.
const AutoOffMs uint32 = 15 * 60 * 1000

// State represents the logical state of a relay channel.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Cause says why a state change happened.
type Cause string

const (
	// CauseCommand: a client wrote the control characteristic.
	CauseCommand Cause = "COMMAND"
	// CauseExpiry: the auto-off deadline of at least one channel passed.
	CauseExpiry Cause = "EXPIRY"
)

// Change describes one committed state transition, for telemetry and
// status consumers. A Change is emitted for every accepted command (even a
// no-op rewrite of the same bits) and for every tick that expired a channel.
type Change struct {
	Bits  byte
	Prev  byte
	Cause Cause
}

// On reports whether channel i is ON in the new state.
func (c Change) On(i int) bool {
	return c.Bits&(1<<i) != 0
}

// ChannelState returns the logical state of channel i in the new state.
func (c Change) ChannelState(i int) State {
	if c.On(i) {
		return StateOn
	}
	return StateOff
}

// EventCounts tracks the number of channel transitions since startup.
type EventCounts struct {
	R1On    int
	R1Off   int
	R2On    int
	R2Off   int
	Expired int // channels forced OFF by the auto-off timer
}
