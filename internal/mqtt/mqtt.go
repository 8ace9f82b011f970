// Package mqtt publishes relay telemetry with abstraction for testing.
// Telemetry is an optional side channel: the relay core never depends on
// it, and publish failures must never affect relay state.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/garden-relay/internal/relay"
)

// Topic is the MQTT topic for relay state-change events.
const Topic = "garden/relay/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "garden/relay/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a relay state-change event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event represents one committed relay state change.
type Event struct {
	Timestamp time.Time
	Cause     relay.Cause
	Bits      byte
	R1        relay.State
	R2        relay.State
}

// NewEvent builds an Event from a committed change at wall-clock time ts.
func NewEvent(ts time.Time, change relay.Change) Event {
	return Event{
		Timestamp: ts,
		Cause:     change.Cause,
		Bits:      change.Bits,
		R1:        change.ChannelState(0),
		R2:        change.ChannelState(1),
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Relay RelayPayload `json:"relay"`
}

// RelayPayload contains the relay event details.
type RelayPayload struct {
	Timestamp string       `json:"timestamp"`
	Cause     string       `json:"cause"`
	Bits      int          `json:"bits"`
	R1        ChannelState `json:"relay1"`
	R2        ChannelState `json:"relay2"`
}

// ChannelState represents a single relay's state.
type ChannelState struct {
	State string `json:"state"`
}

// FormatPayload creates the JSON payload for a relay event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Relay: RelayPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Cause:     string(event.Cause),
			Bits:      int(event.Bits),
			R1:        ChannelState{State: string(event.R1)},
			R2:        ChannelState{State: string(event.R2)},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
