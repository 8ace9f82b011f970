// Package ble exposes the relay control service as a BLE GATT peripheral.
// One characteristic carries the 1-byte relay bitmask: readable, writable
// and notifying. The real implementation runs on the host adapter (BlueZ on
// Linux); the fake allows testing without a radio.
package ble

import "tinygo.org/x/bluetooth"

// DefaultDeviceName is the advertised local name. It matches the original
// ESP32 firmware so existing client tooling finds the device by scan.
const DefaultDeviceName = "ESP32 Garden"

var (
	// ServiceUUID identifies the garden relay service.
	ServiceUUID = bluetooth.NewUUID([16]byte{
		0x7e, 0x6b, 0x2f, 0x20, 0x5f, 0x7a, 0x4d, 0x7c,
		0x8c, 0x2a, 0x5d, 0x9e, 0x2b, 0x1a, 0x00, 0x00,
	})

	// ControlCharUUID identifies the bitmask control characteristic.
	ControlCharUUID = bluetooth.NewUUID([16]byte{
		0x7e, 0x6b, 0x2f, 0x20, 0x5f, 0x7a, 0x4d, 0x7c,
		0x8c, 0x2a, 0x5d, 0x9e, 0x2b, 0x1a, 0x00, 0x01,
	})
)

// WriteHandler receives raw write payloads from connected centrals.
type WriteHandler func(payload []byte)

// Service is the outbound surface the relay core needs from the wireless
// layer: update the readable value, then push it to subscribers.
type Service interface {
	PublishValue(bits byte) error
	NotifySubscribers() error
}
