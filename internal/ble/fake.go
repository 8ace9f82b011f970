package ble

var _ Service = (*FakeService)(nil)

// FakeService records published values and notification pushes, and lets
// tests inject client writes.
type FakeService struct {
	// Values contains every PublishValue argument in order.
	Values []byte

	// Notifies counts NotifySubscribers calls.
	Notifies int

	// PublishError, if set, will be returned by PublishValue.
	PublishError error

	// NotifyError, if set, will be returned by NotifySubscribers.
	NotifyError error

	// Central controls the return value of Connected.
	Central bool

	onWrite WriteHandler
}

// NewFakeService creates a FakeService delivering injected writes to onWrite.
// A nil handler may be set later with SetWriteHandler.
func NewFakeService(onWrite WriteHandler) *FakeService {
	return &FakeService{onWrite: onWrite}
}

// SetWriteHandler registers the callback for injected writes, mirroring the
// real service's two-phase wiring.
func (f *FakeService) SetWriteHandler(h WriteHandler) {
	f.onWrite = h
}

// InjectWrite delivers payload as if a central wrote the characteristic.
func (f *FakeService) InjectWrite(payload []byte) {
	if f.onWrite != nil {
		f.onWrite(payload)
	}
}

// PublishValue records the value.
func (f *FakeService) PublishValue(bits byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Values = append(f.Values, bits)
	return nil
}

// NotifySubscribers counts the push.
func (f *FakeService) NotifySubscribers() error {
	if f.NotifyError != nil {
		return f.NotifyError
	}
	f.Notifies++
	return nil
}

// Connected reports the scripted central connection state.
func (f *FakeService) Connected() bool {
	return f.Central
}

// LastValue returns the most recently published value, or zero.
func (f *FakeService) LastValue() byte {
	if len(f.Values) == 0 {
		return 0
	}
	return f.Values[len(f.Values)-1]
}

// Reset clears recorded state.
func (f *FakeService) Reset() {
	f.Values = nil
	f.Notifies = 0
	f.PublishError = nil
	f.NotifyError = nil
	f.Central = false
}
