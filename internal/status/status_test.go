package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/garden-relay/internal/relay"
)

func testConfig() Config {
	return Config{
		PollMs:      10,
		HeartbeatMs: 900000,
		AutoOffMs:   int64(relay.AutoOffMs),
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
		DeviceName:  "ESP32 Garden",
		ActiveLow:   true,
	}
}

func TestNewTrackerStartsOff(t *testing.T) {
	start := time.Date(2026, 5, 14, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if snap.R1 != relay.StateOff || snap.R2 != relay.StateOff {
		t.Errorf("initial states = %s/%s, want OFF/OFF", snap.R1, snap.R2)
	}
	if snap.Bits != 0 {
		t.Errorf("initial bits = 0x%02X", snap.Bits)
	}
	if !snap.StartTime.Equal(start) {
		t.Errorf("start time = %v", snap.StartTime)
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	counts := relay.EventCounts{R1On: 2, R2On: 1, R2Off: 1, Expired: 1}
	tr.Update(0x01, counts, [relay.NumChannels]int64{123456, 0})

	snap := tr.Snapshot()
	if snap.R1 != relay.StateOn || snap.R2 != relay.StateOff {
		t.Errorf("states = %s/%s, want ON/OFF", snap.R1, snap.R2)
	}
	if snap.Bits != 0x01 {
		t.Errorf("bits = 0x%02X", snap.Bits)
	}
	if snap.Counts != counts {
		t.Errorf("counts = %+v", snap.Counts)
	}
	if snap.RemainingMs[0] != 123456 || snap.RemainingMs[1] != 0 {
		t.Errorf("remaining = %v", snap.RemainingMs)
	}
}

func TestTrackerConnectivityFlags(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	tr.SetMQTTConnected(true)
	tr.SetBLECentral(true)
	snap := tr.Snapshot()
	if !snap.MQTTConnected || !snap.BLECentral {
		t.Errorf("flags = mqtt:%v ble:%v, want both true", snap.MQTTConnected, snap.BLECentral)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	start := time.Date(2026, 5, 14, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())
	interval := 15 * time.Minute

	if tr.CheckHeartbeat(start.Add(14*time.Minute), interval) {
		t.Error("heartbeat fired before interval elapsed")
	}
	if !tr.CheckHeartbeat(start.Add(15*time.Minute), interval) {
		t.Error("heartbeat did not fire at interval")
	}
	// Immediately after firing, the clock restarts.
	if tr.CheckHeartbeat(start.Add(16*time.Minute), interval) {
		t.Error("heartbeat fired again within the new interval")
	}
	if !tr.CheckHeartbeat(start.Add(30*time.Minute), interval) {
		t.Error("heartbeat did not fire after a full new interval")
	}
}

func TestCheckHeartbeatDisabled(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())
	if tr.CheckHeartbeat(time.Now().Add(24*time.Hour), 0) {
		t.Error("disabled heartbeat fired")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 5, 14, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())
	tr.Update(0x03, relay.EventCounts{R1On: 1, R2On: 1}, [relay.NumChannels]int64{900000, 899000})
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("event = %q", parsed.Status.Event)
	}
	if parsed.Status.Relay1.State != "ON" || parsed.Status.Relay2.State != "ON" {
		t.Errorf("states = %s/%s", parsed.Status.Relay1.State, parsed.Status.Relay2.State)
	}
	if parsed.Status.Relay1.RemainingMs != 900000 {
		t.Errorf("relay1 remaining = %d", parsed.Status.Relay1.RemainingMs)
	}
	if parsed.Status.Bits != 3 {
		t.Errorf("bits = %d", parsed.Status.Bits)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("mqtt not connected in JSON")
	}
	if parsed.Status.BLE.DeviceName != "ESP32 Garden" {
		t.Errorf("device name = %q", parsed.Status.BLE.DeviceName)
	}
	if parsed.Status.Config.AutoOffMs != int64(relay.AutoOffMs) {
		t.Errorf("auto_off_ms = %d", parsed.Status.Config.AutoOffMs)
	}
	if parsed.Status.StartTime != "2026-05-14T08:00:00Z" {
		t.Errorf("start_time = %q", parsed.Status.StartTime)
	}
}

func TestFormatStatusOmitsEmptyEvent(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())
	data := FormatStatus(tr.Snapshot())

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["event"]; ok {
		t.Error("empty event field not omitted")
	}
}
