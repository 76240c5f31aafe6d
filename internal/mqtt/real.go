package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sweeney/test-input/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealBus.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	BufferSize  int // messages held while disconnected
}

// RealBus is an input bus backed by an MQTT broker. Device registrations
// are retained so late subscribers see which test devices exist; stick and
// button events are QoS 0. Messages sent while disconnected are buffered
// and replayed on reconnect.
type RealBus struct {
	client paho.Client
	prefix string
	now    func() time.Time

	mu        sync.Mutex
	pending   *ringBuffer
	replaying bool // OnConnect is draining pending
	devices   map[logic.DeviceHandle]logic.DeviceDescriptor
}

func newRealBus(opts Options) *RealBus {
	prefix := opts.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &RealBus{
		prefix:  prefix,
		now:     time.Now,
		pending: newRingBuffer(opts.BufferSize),
		devices: make(map[logic.DeviceHandle]logic.DeviceDescriptor),
	}
}

// NewRealBus connects to the broker and returns a bus ready for devices.
func NewRealBus(opts Options) (*RealBus, error) {
	b := newRealBus(opts)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: b.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(SystemTopic(b.prefix), string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { b.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	b.client = paho.NewClient(clientOpts)
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// The client keeps retrying; traffic is buffered until OnConnect replays it.
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", opts.Broker)
		return b, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return b, nil
}

// RegisterDevice mints a handle and announces the device (retained).
func (b *RealBus) RegisterDevice(desc logic.DeviceDescriptor) logic.DeviceHandle {
	h := logic.DeviceHandle(uuid.NewString())

	b.mu.Lock()
	b.devices[h] = desc
	b.mu.Unlock()

	payload, err := FormatDevicePayload(h, desc, DeviceAdded, b.now())
	if err != nil {
		log.Printf("mqtt: format device %s: %v", h, err)
		return h
	}
	b.send(outbound{topic: DeviceTopic(b.prefix, h), payload: payload, qos: 1, retained: true})
	return h
}

// UnregisterDevice announces the device's removal (retained).
func (b *RealBus) UnregisterDevice(h logic.DeviceHandle) {
	b.mu.Lock()
	desc, ok := b.devices[h]
	delete(b.devices, h)
	b.mu.Unlock()
	if !ok {
		log.Printf("mqtt: unregister of unknown device %s", h)
	}

	payload, err := FormatDevicePayload(h, desc, DeviceRemoved, b.now())
	if err != nil {
		log.Printf("mqtt: format device %s: %v", h, err)
		return
	}
	b.send(outbound{topic: DeviceTopic(b.prefix, h), payload: payload, qos: 1, retained: true})
}

// EmitAxisEvent publishes a stick axis value.
func (b *RealBus) EmitAxisEvent(h logic.DeviceHandle, axis logic.Axis, value int16) {
	payload, err := FormatAxisPayload(axis, value, b.now())
	if err != nil {
		log.Printf("mqtt: format axis event: %v", err)
		return
	}
	b.send(outbound{topic: AxisTopic(b.prefix, h), payload: payload})
}

// EmitButtonEvent publishes a button transition.
func (b *RealBus) EmitButtonEvent(h logic.DeviceHandle, button logic.Button, pressed bool) {
	payload, err := FormatButtonPayload(button, pressed, b.now())
	if err != nil {
		log.Printf("mqtt: format button event: %v", err)
		return
	}
	b.send(outbound{topic: ButtonTopic(b.prefix, h), payload: payload})
}

// PublishSystem sends a system lifecycle event and waits for the broker.
// While disconnected the event is buffered instead.
func (b *RealBus) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	msg := outbound{topic: SystemTopic(b.prefix), payload: payload, qos: 1, retained: event.Retained}
	if b.bufferIfOffline(msg) {
		return nil
	}

	token := b.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (b *RealBus) IsConnected() bool {
	return b.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (b *RealBus) Close() error {
	b.mu.Lock()
	lost := b.pending.len()
	b.mu.Unlock()
	if lost > 0 {
		log.Printf("mqtt: closing with %d unsent messages", lost)
	}

	b.client.Disconnect(1000) // 1 second timeout
	return nil
}

// send publishes without blocking the caller.
func (b *RealBus) send(msg outbound) {
	if b.bufferIfOffline(msg) {
		return
	}

	token := b.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if msg.qos == 0 {
		return
	}
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			log.Printf("mqtt: publish to %s timed out", msg.topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: publish to %s: %v", msg.topic, err)
		}
	}()
}

// bufferIfOffline queues msg behind anything not yet replayed, so live
// traffic never overtakes a buffered registration.
func (b *RealBus) bufferIfOffline(msg outbound) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client.IsConnectionOpen() && !b.replaying && b.pending.len() == 0 {
		return false
	}
	b.pending.push(msg)
	return true
}

// replay runs on every (re)connect. It drains until the buffer stays empty,
// picking up whatever was queued while it was publishing.
func (b *RealBus) replay() {
	b.mu.Lock()
	if b.replaying {
		b.mu.Unlock()
		return
	}
	b.replaying = true
	b.mu.Unlock()

	total := 0
	for {
		b.mu.Lock()
		msgs := b.pending.drainAll()
		if len(msgs) == 0 {
			b.replaying = false
			b.mu.Unlock()
			break
		}
		b.mu.Unlock()

		total += len(msgs)
		for _, msg := range msgs {
			b.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		}
	}
	if total > 0 {
		log.Printf("mqtt: connected, replayed %d messages", total)
	}
}
