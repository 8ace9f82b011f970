package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Relay1        RelayJSON  `json:"relay1"`
	Relay2        RelayJSON  `json:"relay2"`
	Bits          int        `json:"bits"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	BLE           BLEStatus  `json:"ble"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// RelayJSON is the JSON representation of one relay channel.
type RelayJSON struct {
	State       string `json:"state"`
	RemainingMs int64  `json:"auto_off_remaining_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// BLEStatus reports the wireless service state.
type BLEStatus struct {
	DeviceName       string `json:"device_name"`
	CentralConnected bool   `json:"central_connected"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	R1On    int `json:"relay1_on"`
	R1Off   int `json:"relay1_off"`
	R2On    int `json:"relay2_on"`
	R2Off   int `json:"relay2_off"`
	Expired int `json:"expired"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	AutoOffMs   int64  `json:"auto_off_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	ActiveLow   bool   `json:"active_low"`
}

// FormatStatus renders the snapshot as JSON for the HTTP endpoint.
func FormatStatus(snap Snapshot) []byte {
	return FormatStatusEvent(snap, "", "")
}

// FormatStatusEvent renders the snapshot as JSON with an optional system
// event name and reason, used as the payload of STARTUP / SHUTDOWN /
// HEARTBEAT messages.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	sj := StatusJSON{
		Status: StatusInner{
			Event:  event,
			Reason: reason,
			Relay1: RelayJSON{
				State:       string(snap.R1),
				RemainingMs: snap.RemainingMs[0],
			},
			Relay2: RelayJSON{
				State:       string(snap.R2),
				RemainingMs: snap.RemainingMs[1],
			},
			Bits:          int(snap.Bits),
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
			Timestamp:     snap.Now.UTC().Format(time.RFC3339),
			MQTT: MQTTStatus{
				Connected: snap.MQTTConnected,
				Broker:    snap.Config.Broker,
			},
			BLE: BLEStatus{
				DeviceName:       snap.Config.DeviceName,
				CentralConnected: snap.BLECentral,
			},
			Counts: CountsJSON{
				R1On:    snap.Counts.R1On,
				R1Off:   snap.Counts.R1Off,
				R2On:    snap.Counts.R2On,
				R2Off:   snap.Counts.R2Off,
				Expired: snap.Counts.Expired,
			},
			Config: ConfigJSON{
				PollMs:      snap.Config.PollMs,
				HeartbeatMs: snap.Config.HeartbeatMs,
				AutoOffMs:   snap.Config.AutoOffMs,
				Broker:      snap.Config.Broker,
				HTTPAddr:    snap.Config.HTTPAddr,
				ActiveLow:   snap.Config.ActiveLow,
			},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
