// Package status provides a thread-safe status tracker for the garden-relay
// daemon. It is read by the HTTP handlers and feeds the system event
// payloads published over MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/garden-relay/internal/relay"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	AutoOffMs   int64
	Broker      string
	HTTPAddr    string
	DeviceName  string
	ActiveLow   bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	R1            relay.State
	R2            relay.State
	Bits          byte
	Counts        relay.EventCounts
	RemainingMs   [relay.NumChannels]int64 // ms until auto-off, 0 when OFF
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	BLECentral    bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// Both relays start OFF; the daemon drives that state at boot.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			R1:        relay.StateOff,
			R2:        relay.StateOff,
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
	}
}

// Update sets the bitmask, event counts and remaining auto-off times.
// Called from the main loop on every tick and on every command change.
func (t *Tracker) Update(bits byte, counts relay.EventCounts, remaining [relay.NumChannels]int64) {
	t.mu.Lock()
	t.snap.Bits = bits
	t.snap.R1 = bitState(bits, 0)
	t.snap.R2 = bitState(bits, 1)
	t.snap.Counts = counts
	t.snap.RemainingMs = remaining
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetBLECentral records whether a BLE central is connected.
func (t *Tracker) SetBLECentral(connected bool) {
	t.mu.Lock()
	t.snap.BLECentral = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// CheckHeartbeat reports whether a heartbeat is due and, if so, marks it
// sent. Returns false when interval is <= 0 (disabled) or the interval has
// not elapsed since the last heartbeat (or startup).
func (t *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

func bitState(bits byte, i int) relay.State {
	if bits&(1<<i) != 0 {
		return relay.StateOn
	}
	return relay.StateOff
}
