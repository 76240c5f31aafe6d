package mqtt

import (
	"fmt"
	"time"

	"github.com/sweeney/test-input/internal/logic"
)

// AxisEvent is a recorded EmitAxisEvent call.
type AxisEvent struct {
	Handle logic.DeviceHandle
	Axis   logic.Axis
	Value  int16
}

// ButtonEvent is a recorded EmitButtonEvent call.
type ButtonEvent struct {
	Handle  logic.DeviceHandle
	Button  logic.Button
	Pressed bool
}

// FakeBus records bus traffic for test assertions.
type FakeBus struct {
	// Registered contains handles in registration order.
	Registered []logic.DeviceHandle

	// Descriptors contains the descriptor of each registration.
	Descriptors []logic.DeviceDescriptor

	// Unregistered contains handles in unregistration order.
	Unregistered []logic.DeviceHandle

	// AxisEvents contains all axis events that were emitted.
	AxisEvents []AxisEvent

	// ButtonEvents contains all button events that were emitted.
	ButtonEvents []ButtonEvent

	// Payloads contains the JSON payloads of device traffic, in order.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Now stamps payloads; the zero time is used when nil.
	Now func() time.Time

	nextID int
}

// NewFakeBus creates a FakeBus for testing.
func NewFakeBus() *FakeBus {
	return &FakeBus{}
}

func (f *FakeBus) now() time.Time {
	if f.Now == nil {
		return time.Time{}
	}
	return f.Now()
}

// RegisterDevice records the registration and returns "fake-1", "fake-2", ...
func (f *FakeBus) RegisterDevice(desc logic.DeviceDescriptor) logic.DeviceHandle {
	f.nextID++
	h := logic.DeviceHandle(fmt.Sprintf("fake-%d", f.nextID))
	f.Registered = append(f.Registered, h)
	f.Descriptors = append(f.Descriptors, desc)
	if payload, err := FormatDevicePayload(h, desc, DeviceAdded, f.now()); err == nil {
		f.Payloads = append(f.Payloads, payload)
	}
	return h
}

// UnregisterDevice records the removal.
func (f *FakeBus) UnregisterDevice(h logic.DeviceHandle) {
	f.Unregistered = append(f.Unregistered, h)
	if payload, err := FormatDevicePayload(h, logic.DeviceDescriptor{}, DeviceRemoved, f.now()); err == nil {
		f.Payloads = append(f.Payloads, payload)
	}
}

// EmitAxisEvent records the axis event.
func (f *FakeBus) EmitAxisEvent(h logic.DeviceHandle, axis logic.Axis, value int16) {
	f.AxisEvents = append(f.AxisEvents, AxisEvent{Handle: h, Axis: axis, Value: value})
	if payload, err := FormatAxisPayload(axis, value, f.now()); err == nil {
		f.Payloads = append(f.Payloads, payload)
	}
}

// EmitButtonEvent records the button event.
func (f *FakeBus) EmitButtonEvent(h logic.DeviceHandle, button logic.Button, pressed bool) {
	f.ButtonEvents = append(f.ButtonEvents, ButtonEvent{Handle: h, Button: button, Pressed: pressed})
	if payload, err := FormatButtonPayload(button, pressed, f.now()); err == nil {
		f.Payloads = append(f.Payloads, payload)
	}
}

// PublishSystem records the system event.
func (f *FakeBus) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake bus is "connected".
func (f *FakeBus) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded traffic. Handle numbering continues.
func (f *FakeBus) Reset() {
	f.Registered = nil
	f.Descriptors = nil
	f.Unregistered = nil
	f.AxisEvents = nil
	f.ButtonEvents = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.PublishSystemError = nil
	f.Closed = false
	f.Connected = false
}
