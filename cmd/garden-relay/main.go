// Command garden-relay exposes two relay outputs over a BLE control
// characteristic with a fixed 15-minute auto-off per channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/garden-relay/internal/ble"
	"github.com/sweeney/garden-relay/internal/gpio"
	"github.com/sweeney/garden-relay/internal/mqtt"
	"github.com/sweeney/garden-relay/internal/relay"
	"github.com/sweeney/garden-relay/internal/status"
	"github.com/sweeney/garden-relay/internal/web"
)

func main() {
	poll := flag.Duration("poll", 10*time.Millisecond, "Auto-off polling interval")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable telemetry)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pinR1 := flag.Int("pin-r1", gpio.DefaultPinR1, "BCM pin number for Relay 1")
	pinR2 := flag.Int("pin-r2", gpio.DefaultPinR2, "BCM pin number for Relay 2")
	activeLow := flag.Bool("active-low", true, "Relay board energizes on LOW")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	name := flag.String("name", ble.DefaultDeviceName, "Advertised BLE device name")

	flag.Parse()

	if err := run(*poll, *broker, *heartbeat, *pinR1, *pinR2, *activeLow, *httpAddr, *name); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll time.Duration, broker string, heartbeat time.Duration, pinR1, pinR2 int, activeLow bool, httpAddr, name string) error {
	// Initialize GPIO outputs; both relays come up electrically OFF.
	driver, err := gpio.NewRealDriver(pinR1, pinR2, activeLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer driver.Close()

	// Initialize BLE service
	svc, err := ble.NewRealService(name)
	if err != nil {
		return fmt.Errorf("init ble: %w", err)
	}

	clock := monoClock()
	ctrl := relay.New(driver, svc)

	// Command changes are committed inside the write callback (the core
	// serializes on its own mutex); the channel only carries the resulting
	// telemetry into the main loop.
	changes := make(chan relay.Change, 16)
	svc.SetWriteHandler(func(payload []byte) {
		change := ctrl.ApplyCommand(payload, clock())
		if change == nil {
			return
		}
		select {
		case changes <- *change:
		default:
			// Relay state and BLE notification are already committed.
			log.Printf("telemetry queue full, dropping change event")
		}
	})

	if err := svc.StartAdvertising(); err != nil {
		return err
	}
	defer svc.Stop()

	// Initialize MQTT (optional)
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if broker != "" {
		real, err := mqtt.NewRealPublisher(broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer real.Close()
		publisher = real
		mqttStatus = real
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      poll.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		AutoOffMs:   int64(relay.AutoOffMs),
		Broker:      broker,
		HTTPAddr:    httpAddr,
		DeviceName:  name,
		ActiveLow:   activeLow,
	})

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: name=%q poll=%v broker=%s heartbeat=%v pins=%d/%d active-low=%v",
		name, poll, broker, heartbeat, pinR1, pinR2, activeLow)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, svc, publisher, mqttStatus, tracker, heartbeat, clock, time.Now, ticker.C, changes, sigCh)
}

// centralStatus reports whether a BLE central is connected. Implemented by
// both the real and fake BLE services.
type centralStatus interface {
	Connected() bool
}

func runLoop(ctrl *relay.Controller, svc centralStatus, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, clock func() uint32, now func() time.Time, tick <-chan time.Time, changes <-chan relay.Change, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)

			// Force both relays OFF before exiting; the auto-off safety
			// cannot run once the daemon is gone.
			if change := ctrl.ApplyCommand([]byte{0x00}, clock()); change != nil {
				updateTracker(ctrl, svc, mqttStatus, tracker, clock)
			}

			if publisher != nil {
				event := mqtt.SystemEvent{
					Timestamp: now(),
					Event:     "SHUTDOWN",
					Reason:    signalName(s),
					Retained:  true,
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName(s))
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				} else {
					log.Printf("published shutdown event")
				}
			}
			return nil

		case change := <-changes:
			handleChange(change, publisher, now)
			updateTracker(ctrl, svc, mqttStatus, tracker, clock)

		case <-tick:
			if change := ctrl.Tick(clock()); change != nil {
				handleChange(*change, publisher, now)
			}

			if tracker.CheckHeartbeat(now(), heartbeat) {
				updateTracker(ctrl, svc, mqttStatus, tracker, clock)
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v bits=0x%02X", snap.Uptime().Truncate(time.Second), snap.Bits)
				if publisher != nil {
					hbEvent := mqtt.SystemEvent{
						Timestamp:  snap.Now,
						Event:      "HEARTBEAT",
						RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
					}
					if err := publisher.PublishSystem(hbEvent); err != nil {
						log.Printf("heartbeat publish error: %v", err)
					}
				}
			}

			updateTracker(ctrl, svc, mqttStatus, tracker, clock)
		}
	}
}

func handleChange(change relay.Change, publisher mqtt.Publisher, now func() time.Time) {
	log.Printf("state change: cause=%s bits=0x%02X (r1=%s r2=%s)",
		change.Cause, change.Bits, change.ChannelState(0), change.ChannelState(1))

	if publisher == nil {
		return
	}
	if err := publisher.Publish(mqtt.NewEvent(now(), change)); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

func updateTracker(ctrl *relay.Controller, svc centralStatus, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, clock func() uint32) {
	tracker.Update(ctrl.Bits(), ctrl.Counts(), ctrl.Remaining(clock()))
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	if svc != nil {
		tracker.SetBLECentral(svc.Connected())
	}
}

// monoClock returns a monotonic millisecond counter that wraps at 2^32,
// matching the relay core's deadline arithmetic.
func monoClock() func() uint32 {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
