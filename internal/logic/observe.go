package logic

// Observer sees everything that reaches a bus, after the bus has it.
type Observer interface {
	ObserveDevice(h DeviceHandle, desc DeviceDescriptor, added bool)
	ObserveAxis(h DeviceHandle, axis Axis, value int16)
	ObserveButton(h DeviceHandle, button Button, pressed bool)
}

type observedBus struct {
	bus       Bus
	observers []Observer
}

// ObservedBus wraps bus so that every call is also reported to observers.
func ObservedBus(bus Bus, observers ...Observer) Bus {
	return &observedBus{bus: bus, observers: observers}
}

func (o *observedBus) RegisterDevice(desc DeviceDescriptor) DeviceHandle {
	h := o.bus.RegisterDevice(desc)
	for _, obs := range o.observers {
		obs.ObserveDevice(h, desc, true)
	}
	return h
}

func (o *observedBus) UnregisterDevice(h DeviceHandle) {
	o.bus.UnregisterDevice(h)
	for _, obs := range o.observers {
		obs.ObserveDevice(h, DeviceDescriptor{}, false)
	}
}

func (o *observedBus) EmitAxisEvent(h DeviceHandle, axis Axis, value int16) {
	o.bus.EmitAxisEvent(h, axis, value)
	for _, obs := range o.observers {
		obs.ObserveAxis(h, axis, value)
	}
}

func (o *observedBus) EmitButtonEvent(h DeviceHandle, button Button, pressed bool) {
	o.bus.EmitButtonEvent(h, button, pressed)
	for _, obs := range o.observers {
		obs.ObserveButton(h, button, pressed)
	}
}
