package gpio

import "fmt"

var _ Driver = (*FakeDriver)(nil)

// SetCall records a single Set invocation.
type SetCall struct {
	Channel int
	On      bool
}

// FakeDriver is a test double that records driven output states.
type FakeDriver struct {
	// Levels holds the last driven logical state per channel.
	Levels [NumChannels]bool

	// History records every Set call in order.
	History []SetCall

	// SetError, if set, will be returned by Set().
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver with both channels OFF.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Set records the driven state.
func (f *FakeDriver) Set(channel int, on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	if channel < 0 || channel >= NumChannels {
		return fmt.Errorf("channel %d out of range", channel)
	}
	f.Levels[channel] = on
	f.History = append(f.History, SetCall{Channel: channel, On: on})
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded history.
func (f *FakeDriver) Reset() {
	f.Levels = [NumChannels]bool{}
	f.History = nil
	f.Closed = false
	f.SetError = nil
}
