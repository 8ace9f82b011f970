package relay

import (
	"errors"
	"testing"
)

type setCall struct {
	channel int
	on      bool
}

// fakeOutputs records driven levels and the full Set history.
type fakeOutputs struct {
	levels  [NumChannels]bool
	history []setCall
	err     error
}

func (f *fakeOutputs) Set(channel int, on bool) error {
	if f.err != nil {
		return f.err
	}
	f.levels[channel] = on
	f.history = append(f.history, setCall{channel, on})
	return nil
}

// fakeNotifier records published values and notification pushes.
type fakeNotifier struct {
	values   []byte
	notifies int
}

func (f *fakeNotifier) PublishValue(bits byte) error {
	f.values = append(f.values, bits)
	return nil
}

func (f *fakeNotifier) NotifySubscribers() error {
	f.notifies++
	return nil
}

func newTestController() (*Controller, *fakeOutputs, *fakeNotifier) {
	out := &fakeOutputs{}
	not := &fakeNotifier{}
	return New(out, not), out, not
}

func TestApplyCommandMasksToTwoBits(t *testing.T) {
	for b := 0; b <= 0xFF; b++ {
		c, out, _ := newTestController()
		change := c.ApplyCommand([]byte{byte(b)}, 0)
		if change == nil {
			t.Fatalf("byte 0x%02X: expected a change, got nil", b)
		}
		want := byte(b) & BitsMask
		if c.Bits() != want {
			t.Errorf("byte 0x%02X: bits = 0x%02X, want 0x%02X", b, c.Bits(), want)
		}
		if out.levels[0] != (want&0x01 != 0) {
			t.Errorf("byte 0x%02X: channel 0 level = %v", b, out.levels[0])
		}
		if out.levels[1] != (want&0x02 != 0) {
			t.Errorf("byte 0x%02X: channel 1 level = %v", b, out.levels[1])
		}
	}
}

func TestEmptyPayloadIsNoOp(t *testing.T) {
	c, out, not := newTestController()
	c.ApplyCommand([]byte{0x03}, 0)
	out.history = nil
	notifies := not.notifies

	change := c.ApplyCommand(nil, 100)
	if change != nil {
		t.Errorf("empty payload: expected nil change, got %+v", change)
	}
	change = c.ApplyCommand([]byte{}, 100)
	if change != nil {
		t.Errorf("zero-length payload: expected nil change, got %+v", change)
	}
	if c.Bits() != 0x03 {
		t.Errorf("bits changed to 0x%02X", c.Bits())
	}
	if len(out.history) != 0 {
		t.Errorf("outputs driven %d times on empty payload", len(out.history))
	}
	if not.notifies != notifies {
		t.Errorf("notification fired on empty payload")
	}
}

func TestRisingEdgeArmsDeadline(t *testing.T) {
	c, _, _ := newTestController()

	c.ApplyCommand([]byte{0x01}, 1000)
	if c.deadline[0] != 1000+AutoOffMs {
		t.Errorf("deadline[0] = %d, want %d", c.deadline[0], 1000+AutoOffMs)
	}

	// ON→ON must not rearm.
	c.ApplyCommand([]byte{0x01}, 5000)
	if c.deadline[0] != 1000+AutoOffMs {
		t.Errorf("ON→ON rearmed deadline[0] to %d", c.deadline[0])
	}

	// OFF then ON again rearms from the new time.
	c.ApplyCommand([]byte{0x00}, 6000)
	c.ApplyCommand([]byte{0x01}, 7000)
	if c.deadline[0] != 7000+AutoOffMs {
		t.Errorf("re-entry deadline[0] = %d, want %d", c.deadline[0], 7000+AutoOffMs)
	}
}

func TestCommandAlwaysRepublishes(t *testing.T) {
	c, _, not := newTestController()

	c.ApplyCommand([]byte{0x02}, 0)
	c.ApplyCommand([]byte{0x02}, 10) // same bits
	c.ApplyCommand([]byte{0x02}, 20) // same bits again

	if not.notifies != 3 {
		t.Errorf("notifies = %d, want 3 (every accepted write republishes)", not.notifies)
	}
	if len(not.values) != 3 {
		t.Fatalf("published values = %d, want 3", len(not.values))
	}
	for i, v := range not.values {
		if v != 0x02 {
			t.Errorf("value %d = 0x%02X, want 0x02", i, v)
		}
	}
}

func TestTickExpiresChannel(t *testing.T) {
	c, out, not := newTestController()
	c.ApplyCommand([]byte{0x01}, 0)
	notifies := not.notifies

	// Just before the deadline: nothing happens.
	if change := c.Tick(AutoOffMs - 1); change != nil {
		t.Errorf("tick before deadline expired a channel: %+v", change)
	}
	if not.notifies != notifies {
		t.Error("quiet tick fired a notification")
	}

	// At the deadline: channel 0 goes OFF.
	change := c.Tick(AutoOffMs)
	if change == nil {
		t.Fatal("tick at deadline did not expire the channel")
	}
	if change.Bits != 0x00 || change.Prev != 0x01 || change.Cause != CauseExpiry {
		t.Errorf("change = %+v", change)
	}
	if not.notifies != notifies+1 {
		t.Errorf("notifies = %d, want %d", not.notifies, notifies+1)
	}
	if out.levels[0] {
		t.Error("channel 0 output still ON after expiry")
	}
}

func TestTickIdempotent(t *testing.T) {
	c, _, not := newTestController()
	c.ApplyCommand([]byte{0x03}, 0)

	c.Tick(AutoOffMs + 500)
	notifies := not.notifies

	// Same tick again: state is already quiescent.
	if change := c.Tick(AutoOffMs + 500); change != nil {
		t.Errorf("second tick produced a change: %+v", change)
	}
	if not.notifies != notifies {
		t.Error("second tick fired a notification")
	}
}

func TestTickNeverArms(t *testing.T) {
	c, _, _ := newTestController()
	c.ApplyCommand([]byte{0x01}, 0)
	before := c.deadline[0]

	c.Tick(100)
	c.Tick(200)
	if c.deadline[0] != before {
		t.Errorf("tick moved deadline[0] from %d to %d", before, c.deadline[0])
	}
}

func TestClockWraparound(t *testing.T) {
	c, _, _ := newTestController()

	// Arm close to the top of the 32-bit range; the deadline wraps.
	armAt := uint32(0xFFFF8AD0) // 30000 ms before wrap
	c.ApplyCommand([]byte{0x01}, armAt)
	wantDeadline := armAt + AutoOffMs // wraps past zero
	if c.deadline[0] != wantDeadline {
		t.Fatalf("deadline[0] = %d, want %d", c.deadline[0], wantDeadline)
	}

	// Clock has wrapped but the timeout has not elapsed yet.
	if change := c.Tick(wantDeadline - 1000); change != nil {
		t.Errorf("expired %d ms early across wraparound", 1000)
	}

	// Full timeout elapsed (clock well past zero again).
	change := c.Tick(wantDeadline)
	if change == nil {
		t.Fatal("missed expiry across wraparound")
	}
	if change.Bits != 0 {
		t.Errorf("bits = 0x%02X after wraparound expiry, want 0", change.Bits)
	}
}

// TestScenarioSequence walks the four-step scenario: both off, relay 1 on,
// both on without rearming relay 1, then relay 2 auto-expires alone.
func TestScenarioSequence(t *testing.T) {
	c, out, not := newTestController()

	// Command 0x00 at t=0: nothing on, nothing armed.
	change := c.ApplyCommand([]byte{0x00}, 0)
	if change.Bits != 0 {
		t.Fatalf("step 1: bits = 0x%02X", change.Bits)
	}
	if out.levels[0] || out.levels[1] {
		t.Fatal("step 1: outputs not both OFF")
	}

	// Command 0x01 at t=0.
	change = c.ApplyCommand([]byte{0x01}, 0)
	if change.Bits != 0x01 {
		t.Fatalf("step 2: bits = 0x%02X", change.Bits)
	}
	if c.deadline[0] != 900000 {
		t.Errorf("step 2: deadline[0] = %d, want 900000", c.deadline[0])
	}
	if !out.levels[0] || out.levels[1] {
		t.Errorf("step 2: outputs = %v/%v, want ON/OFF", out.levels[0], out.levels[1])
	}
	if got := not.values[len(not.values)-1]; got != 0x01 {
		t.Errorf("step 2: published 0x%02X, want 0x01", got)
	}

	// Command 0x03 at t=1000: only channel 1's OFF→ON edge arms.
	change = c.ApplyCommand([]byte{0x03}, 1000)
	if change.Bits != 0x03 {
		t.Fatalf("step 3: bits = 0x%02X", change.Bits)
	}
	if c.deadline[0] != 900000 {
		t.Errorf("step 3: deadline[0] rearmed to %d", c.deadline[0])
	}
	if c.deadline[1] != 901000 {
		t.Errorf("step 3: deadline[1] = %d, want 901000", c.deadline[1])
	}

	// Tick at t=900500: channel 0 expired (900500-900000 >= 0),
	// channel 1 not yet (900500-901000 < 0).
	notifies := not.notifies
	change = c.Tick(900500)
	if change == nil {
		t.Fatal("step 4: no expiry")
	}
	if change.Bits != 0x02 || change.Prev != 0x03 {
		t.Errorf("step 4: change = %+v, want 0x03→0x02", change)
	}
	if out.levels[0] {
		t.Error("step 4: channel 0 output still ON")
	}
	if !out.levels[1] {
		t.Error("step 4: channel 1 output went OFF early")
	}
	if not.notifies != notifies+1 {
		t.Errorf("step 4: notifies = %d, want exactly one more", not.notifies)
	}
	if got := not.values[len(not.values)-1]; got != 0x02 {
		t.Errorf("step 4: published 0x%02X, want 0x02", got)
	}

	// Tick at t=901000: channel 1 follows.
	change = c.Tick(901000)
	if change == nil || change.Bits != 0 {
		t.Fatalf("step 5: change = %+v, want bits 0", change)
	}
}

func TestBothChannelsExpireInOneTick(t *testing.T) {
	c, _, not := newTestController()
	c.ApplyCommand([]byte{0x03}, 0)
	notifies := not.notifies

	change := c.Tick(AutoOffMs)
	if change == nil || change.Bits != 0 {
		t.Fatalf("change = %+v, want both channels off", change)
	}
	if not.notifies != notifies+1 {
		t.Errorf("notifies = %d, want a single combined notification", not.notifies)
	}
}

func TestRemaining(t *testing.T) {
	c, _, _ := newTestController()
	c.ApplyCommand([]byte{0x01}, 0)

	rem := c.Remaining(100000)
	if rem[0] != int64(AutoOffMs)-100000 {
		t.Errorf("remaining[0] = %d, want %d", rem[0], int64(AutoOffMs)-100000)
	}
	if rem[1] != 0 {
		t.Errorf("remaining[1] = %d for an OFF channel", rem[1])
	}

	// Past the deadline but before the collecting tick: clamps to zero.
	rem = c.Remaining(AutoOffMs + 5)
	if rem[0] != 0 {
		t.Errorf("remaining[0] = %d past deadline, want 0", rem[0])
	}
}

func TestEventCounts(t *testing.T) {
	c, _, _ := newTestController()

	c.ApplyCommand([]byte{0x03}, 0) // both on
	c.ApplyCommand([]byte{0x02}, 1) // relay 1 commanded off
	c.Tick(1 + AutoOffMs)           // relay 2 expires

	counts := c.Counts()
	want := EventCounts{R1On: 1, R1Off: 1, R2On: 1, R2Off: 1, Expired: 1}
	if counts != want {
		t.Errorf("counts = %+v, want %+v", counts, want)
	}
}

func TestOutputErrorDoesNotBlockCommit(t *testing.T) {
	out := &fakeOutputs{err: errors.New("set failed")}
	not := &fakeNotifier{}
	c := New(out, not)

	change := c.ApplyCommand([]byte{0x01}, 0)
	if change == nil || change.Bits != 0x01 {
		t.Fatalf("change = %+v, want committed bits 0x01", change)
	}
	if not.notifies != 1 {
		t.Errorf("notifies = %d, want 1 despite output error", not.notifies)
	}
}
