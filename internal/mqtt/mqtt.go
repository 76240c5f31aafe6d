// Package mqtt provides an MQTT-backed input bus with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/test-input/internal/logic"
)

// DefaultTopicPrefix is the root of every topic the bus publishes to.
const DefaultTopicPrefix = "testinput"

// Device registration states carried in device payloads.
const (
	DeviceAdded   = "ADDED"
	DeviceRemoved = "REMOVED"
)

// eventLayout keeps millisecond precision; input events arrive many per second.
const eventLayout = "2006-01-02T15:04:05.000Z07:00"

// Publisher publishes daemon lifecycle events.
type Publisher interface {
	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// DeviceTopic is where a device's registration state is retained.
func DeviceTopic(prefix string, h logic.DeviceHandle) string {
	return prefix + "/devices/" + string(h)
}

// AxisTopic carries a device's stick events.
func AxisTopic(prefix string, h logic.DeviceHandle) string {
	return DeviceTopic(prefix, h) + "/axis"
}

// ButtonTopic carries a device's button events.
func ButtonTopic(prefix string, h logic.DeviceHandle) string {
	return DeviceTopic(prefix, h) + "/button"
}

// SystemTopic carries daemon lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// DevicePayload is published when a device is added or removed.
type DevicePayload struct {
	Device DeviceInner `json:"device"`
}

// DeviceInner contains the device registration details.
type DeviceInner struct {
	Handle       string `json:"handle"`
	Name         string `json:"name,omitempty"`
	Configurable bool   `json:"configurable"`
	Calibrate    bool   `json:"calibrate"`
	State        string `json:"state"`
	Timestamp    string `json:"timestamp"`
}

// AxisPayload is published for each stick axis change.
type AxisPayload struct {
	Axis AxisInner `json:"axis"`
}

// AxisInner contains the axis event details.
type AxisInner struct {
	ID        int    `json:"id"`
	Value     int16  `json:"value"`
	Timestamp string `json:"timestamp"`
}

// ButtonPayload is published for each button transition.
type ButtonPayload struct {
	Button ButtonInner `json:"button"`
}

// ButtonInner contains the button event details.
type ButtonInner struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Pressed   bool   `json:"pressed"`
	Timestamp string `json:"timestamp"`
}

// FormatDevicePayload creates the JSON payload for a device add or remove.
func FormatDevicePayload(h logic.DeviceHandle, desc logic.DeviceDescriptor, state string, ts time.Time) ([]byte, error) {
	return json.Marshal(DevicePayload{
		Device: DeviceInner{
			Handle:       string(h),
			Name:         desc.Name,
			Configurable: desc.Configurable,
			Calibrate:    desc.Calibrate,
			State:        state,
			Timestamp:    ts.UTC().Format(eventLayout),
		},
	})
}

// FormatAxisPayload creates the JSON payload for an axis event.
func FormatAxisPayload(axis logic.Axis, value int16, ts time.Time) ([]byte, error) {
	return json.Marshal(AxisPayload{
		Axis: AxisInner{
			ID:        int(axis),
			Value:     value,
			Timestamp: ts.UTC().Format(eventLayout),
		},
	})
}

// FormatButtonPayload creates the JSON payload for a button event.
func FormatButtonPayload(b logic.Button, pressed bool, ts time.Time) ([]byte, error) {
	return json.Marshal(ButtonPayload{
		Button: ButtonInner{
			ID:        int(b),
			Name:      b.String(),
			Pressed:   pressed,
			Timestamp: ts.UTC().Format(eventLayout),
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
