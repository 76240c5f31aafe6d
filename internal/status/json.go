package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/test-input/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	TriggerPresses int          `json:"trigger_presses"`
	Counts         CountsJSON   `json:"event_counts"`
	Devices        []DeviceJSON `json:"devices"`
	Config         ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of simulator counters.
type CountsJSON struct {
	Axis        int `json:"axis"`
	ButtonDowns int `json:"button_down"`
	ButtonUps   int `json:"button_up"`
	Suppressed  int `json:"suppressed"`
	Resets      int `json:"resets"`
}

// DeviceJSON is the JSON representation of one simulated controller.
type DeviceJSON struct {
	Handle      string          `json:"handle"`
	Phase       string          `json:"phase"`
	TimeMs      uint64          `json:"time_ms"`
	JoinWindow  WindowJSON      `json:"join_window"`
	JoinPresses int             `json:"join_presses"`
	Stick       StickJSON       `json:"stick"`
	Buttons     map[string]bool `json:"buttons"`
	Counts      CountsJSON      `json:"event_counts"`
}

// WindowJSON is a join window in simulator milliseconds.
type WindowJSON struct {
	StartMs uint64 `json:"start_ms"`
	EndMs   uint64 `json:"end_ms"`
}

// StickJSON holds the last emitted stick deflection.
type StickJSON struct {
	LR int `json:"lr"`
	UD int `json:"ud"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs       int64  `json:"tick_ms"`
	ResetEveryMs int64  `json:"reset_every_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Devices      int    `json:"devices"`
	Broker       string `json:"broker"`
	TopicPrefix  string `json:"topic_prefix"`
	HTTPAddr     string `json:"http_addr"`
	ResetPin     int    `json:"reset_pin,omitempty"`
}

func countsJSON(s logic.Stats) CountsJSON {
	return CountsJSON{
		Axis:        s.AxisEvents,
		ButtonDowns: s.ButtonDowns,
		ButtonUps:   s.ButtonUps,
		Suppressed:  s.Suppressed,
		Resets:      s.Resets,
	}
}

func deviceJSON(d logic.Snapshot) DeviceJSON {
	buttons := make(map[string]bool, len(logic.Buttons))
	for _, b := range logic.Buttons {
		buttons[b.String()] = d.State.Buttons[b]
	}
	return DeviceJSON{
		Handle:      string(d.Handle),
		Phase:       string(d.Phase),
		TimeMs:      d.Now,
		JoinWindow:  WindowJSON{StartMs: d.State.JoinWindowStart, EndMs: d.State.JoinWindowEnd},
		JoinPresses: d.State.JoinPressCount,
		Stick:       StickJSON{LR: d.State.AxisLR, UD: d.State.AxisUD},
		Buttons:     buttons,
		Counts:      countsJSON(d.Stats),
	}
}

func buildInner(snap Snapshot) StatusInner {
	devices := make([]DeviceJSON, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		devices = append(devices, deviceJSON(d))
	}

	return StatusInner{
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		TriggerPresses: snap.TriggerPresses,
		Counts:         countsJSON(snap.Totals()),
		Devices:        devices,
		Config: ConfigJSON{
			TickMs:       snap.Config.TickMs,
			ResetEveryMs: snap.Config.ResetEveryMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Devices:      snap.Config.Devices,
			Broker:       snap.Config.Broker,
			TopicPrefix:  snap.Config.TopicPrefix,
			HTTPAddr:     snap.Config.HTTPAddr,
			ResetPin:     snap.Config.ResetPin,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
