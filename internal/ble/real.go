package ble

import (
	"fmt"
	"log"
	"sync"

	"tinygo.org/x/bluetooth"
)

var _ Service = (*RealService)(nil)

// RealService advertises the relay service over the host's BLE adapter and
// owns the control characteristic. Construction registers the GATT service;
// SetWriteHandler wires the write callback; StartAdvertising makes the
// device visible. Writes arriving before a handler is set are dropped.
type RealService struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	char    bluetooth.Characteristic

	mu        sync.Mutex
	handler   WriteHandler
	value     [1]byte
	connected bool
}

// NewRealService enables the BLE stack and registers the relay service with
// its control characteristic. Writes at a non-zero offset are ignored since
// the value is a single byte.
func NewRealService(name string) (*RealService, error) {
	s := &RealService{adapter: bluetooth.DefaultAdapter}

	if err := s.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable ble stack: %w", err)
	}

	s.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		s.mu.Lock()
		s.connected = connected
		s.mu.Unlock()
		if connected {
			log.Printf("ble: central connected: %s", device.Address)
		} else {
			log.Printf("ble: central disconnected: %s", device.Address)
		}
	})

	err := s.adapter.AddService(&bluetooth.Service{
		UUID: ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{{
			Handle: &s.char,
			UUID:   ControlCharUUID,
			Value:  []byte{0x00},
			Flags: bluetooth.CharacteristicReadPermission |
				bluetooth.CharacteristicWritePermission |
				bluetooth.CharacteristicWriteWithoutResponsePermission |
				bluetooth.CharacteristicNotifyPermission,
			WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
				if offset != 0 {
					return
				}
				s.dispatchWrite(value)
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("add relay service: %w", err)
	}

	s.adv = s.adapter.DefaultAdvertisement()
	if err := s.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{ServiceUUID},
	}); err != nil {
		return nil, fmt.Errorf("configure advertisement: %w", err)
	}

	return s, nil
}

// SetWriteHandler registers the callback for incoming characteristic writes.
func (s *RealService) SetWriteHandler(h WriteHandler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// StartAdvertising makes the device discoverable.
func (s *RealService) StartAdvertising() error {
	if err := s.adv.Start(); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	return nil
}

func (s *RealService) dispatchWrite(value []byte) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(value)
	}
}

// PublishValue stages bits as the characteristic's readable value.
func (s *RealService) PublishValue(bits byte) error {
	s.mu.Lock()
	s.value[0] = bits
	s.mu.Unlock()
	return nil
}

// NotifySubscribers writes the staged value to the characteristic, which
// updates the stored value and notifies subscribed centrals in one step.
func (s *RealService) NotifySubscribers() error {
	s.mu.Lock()
	v := s.value[0]
	s.mu.Unlock()

	if _, err := s.char.Write([]byte{v}); err != nil {
		return fmt.Errorf("characteristic write: %w", err)
	}
	return nil
}

// Connected reports whether a central is currently connected.
func (s *RealService) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Stop stops advertising. The GATT service stays registered; BlueZ drops
// it when the process exits.
func (s *RealService) Stop() error {
	return s.adv.Stop()
}
