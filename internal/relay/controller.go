package relay

import (
	"log"
	"sync"
)

// Outputs drives the physical relay pins. Implementations must be bounded
// and non-blocking; errors are logged by the controller, never fatal.
type Outputs interface {
	// Set drives channel to the electrical level implied by on and the
	// configured polarity.
	Set(channel int, on bool) error
}

// Notifier publishes the current bitmask to wireless observers.
type Notifier interface {
	// PublishValue updates the readable characteristic value.
	PublishValue(bits byte) error
	// NotifySubscribers pushes the updated value to subscribed clients.
	NotifySubscribers() error
}

// Controller is the single source of truth for relay state. Both entry
// points (ApplyCommand from the BLE write callback, Tick from the main
// loop) serialize on an internal mutex: the write callback arrives on the
// D-Bus event goroutine, not the loop goroutine.
type Controller struct {
	mu       sync.Mutex
	bits     byte
	deadline [NumChannels]uint32 // valid only while the matching bit is set
	outputs  Outputs
	notifier Notifier
	counts   EventCounts
}

// New creates a Controller with all channels OFF. It does not touch the
// outputs; the daemon drives the initial OFF state explicitly at startup.
func New(outputs Outputs, notifier Notifier) *Controller {
	return &Controller{
		outputs:  outputs,
		notifier: notifier,
	}
}

// ApplyCommand applies one raw write payload at monotonic time now.
// An empty payload is a no-op. The first byte is masked to the two channel
// bits; every OFF→ON edge arms that channel's auto-off deadline at
// now+AutoOffMs. The new bitmask is always committed, driven to the
// outputs, and republished — even when it equals the previous one.
func (c *Controller) ApplyCommand(payload []byte, now uint32) *Change {
	if len(payload) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	newBits := payload[0] & BitsMask
	for i := 0; i < NumChannels; i++ {
		bit := byte(1) << i
		if newBits&bit != 0 && c.bits&bit == 0 {
			// OFF→ON edge: (re)arm. ON→ON keeps the original deadline.
			c.deadline[i] = now + AutoOffMs
		}
	}

	prev := c.bits
	c.bits = newBits
	c.countTransitions(prev, newBits, false)
	c.drive()
	c.publish()

	return &Change{Bits: newBits, Prev: prev, Cause: CauseCommand}
}

// Tick checks every ON channel against its deadline at monotonic time now.
// Elapsed time is computed as a signed 32-bit difference so expiry is
// detected correctly across the 2^32 ms clock wraparound. Expired channels
// are forced OFF in a single commit with one republish; a tick that expires
// nothing is a silent no-op. Tick never arms a deadline.
func (c *Controller) Tick(now uint32) *Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.bits
	for i := 0; i < NumChannels; i++ {
		bit := byte(1) << i
		if c.bits&bit == 0 {
			continue
		}
		if int32(now-c.deadline[i]) >= 0 {
			next &^= bit
		}
	}
	if next == c.bits {
		return nil
	}

	prev := c.bits
	c.bits = next
	c.countTransitions(prev, next, true)
	c.drive()
	c.publish()

	return &Change{Bits: next, Prev: prev, Cause: CauseExpiry}
}

// Bits returns the current committed bitmask.
func (c *Controller) Bits() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bits
}

// Counts returns a snapshot of the transition counters.
func (c *Controller) Counts() EventCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Remaining returns, per channel, the milliseconds left until auto-off at
// monotonic time now. OFF channels report zero, as do ON channels whose
// deadline has already passed but not yet been collected by Tick.
func (c *Controller) Remaining(now uint32) [NumChannels]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rem [NumChannels]int64
	for i := 0; i < NumChannels; i++ {
		if c.bits&(byte(1)<<i) == 0 {
			continue
		}
		if left := int32(c.deadline[i] - now); left > 0 {
			rem[i] = int64(left)
		}
	}
	return rem
}

// drive pushes the committed bitmask to both physical outputs.
func (c *Controller) drive() {
	for i := 0; i < NumChannels; i++ {
		on := c.bits&(byte(1)<<i) != 0
		if err := c.outputs.Set(i, on); err != nil {
			log.Printf("relay: drive channel %d: %v", i, err)
		}
	}
}

// publish updates the characteristic value and notifies subscribers.
func (c *Controller) publish() {
	if err := c.notifier.PublishValue(c.bits); err != nil {
		log.Printf("relay: publish value: %v", err)
	}
	if err := c.notifier.NotifySubscribers(); err != nil {
		log.Printf("relay: notify: %v", err)
	}
}

func (c *Controller) countTransitions(prev, next byte, expiry bool) {
	for i := 0; i < NumChannels; i++ {
		bit := byte(1) << i
		was := prev&bit != 0
		is := next&bit != 0
		switch {
		case !was && is:
			if i == 0 {
				c.counts.R1On++
			} else {
				c.counts.R2On++
			}
		case was && !is:
			if i == 0 {
				c.counts.R1Off++
			} else {
				c.counts.R2Off++
			}
			if expiry {
				c.counts.Expired++
			}
		}
	}
}
