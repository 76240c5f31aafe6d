package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/test-input/internal/logic"
)

func testDevice(handle string) logic.Snapshot {
	var st logic.State
	st.JoinWindowStart = 1000
	st.JoinWindowEnd = 7000
	st.JoinPressCount = 2
	st.AxisLR = -32767
	st.AxisUD = 1200
	st.Buttons[logic.ButtonBomb] = true
	return logic.Snapshot{
		Handle: logic.DeviceHandle(handle),
		Now:    1500,
		Phase:  logic.PhaseJoining,
		State:  st,
		Stats:  logic.Stats{AxisEvents: 4, ButtonDowns: 3, ButtonUps: 1, Suppressed: 2, Resets: 1},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 16, Devices: 2, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 16 {
		t.Errorf("Config.TickMs: got %d, want 16", snap.Config.TickMs)
	}
	if snap.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q, want :8080", snap.Config.HTTPAddr)
	}
	if len(snap.Devices) != 0 {
		t.Errorf("expected no devices initially, got %d", len(snap.Devices))
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update([]logic.Snapshot{testDevice("a"), testDevice("b")})
	tr.SetTriggerPresses(3)

	snap := tr.Snapshot()
	if len(snap.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(snap.Devices))
	}
	if snap.Devices[1].Handle != "b" {
		t.Errorf("expected handle b, got %q", snap.Devices[1].Handle)
	}
	if snap.TriggerPresses != 3 {
		t.Errorf("TriggerPresses: got %d, want 3", snap.TriggerPresses)
	}

	totals := snap.Totals()
	want := logic.Stats{AxisEvents: 8, ButtonDowns: 6, ButtonUps: 2, Suppressed: 4, Resets: 2}
	if totals != want {
		t.Errorf("Totals: got %+v, want %+v", totals, want)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Now().Add(-5 * time.Minute)
	tr := NewTracker(start, Config{})

	up := tr.Snapshot().Uptime()
	if up < 5*time.Minute || up > 5*time.Minute+5*time.Second {
		t.Errorf("Uptime: got %v, want ~5m", up)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	devices := []logic.Snapshot{testDevice("a")}
	tr.Update(devices)

	// Mutating the caller's slice must not leak into the tracker.
	devices[0].Handle = "mutated"

	snap := tr.Snapshot()
	snap.Devices[0].Stats.Resets = 99

	again := tr.Snapshot()
	if again.Devices[0].Handle != "a" {
		t.Errorf("Update should copy: got handle %q", again.Devices[0].Handle)
	}
	if again.Devices[0].Stats.Resets != 1 {
		t.Errorf("Snapshot should copy: got resets %d", again.Devices[0].Stats.Resets)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Devices:        []logic.Snapshot{testDevice("dev-1")},
		TriggerPresses: 1,
		StartTime:      start,
		Now:            start.Add(90*time.Second + 500*time.Millisecond),
		MQTTConnected:  true,
		Config:         Config{TickMs: 16, Devices: 1, Broker: "tcp://b:1883", TopicPrefix: "testinput", ResetPin: 17},
	}

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := sj.Status
	if s.Event != "" || s.Reason != "" {
		t.Errorf("web JSON should have no event/reason, got %q/%q", s.Event, s.Reason)
	}
	if s.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds: got %d, want 90", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("StartTime: got %q", s.StartTime)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://b:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.TriggerPresses != 1 {
		t.Errorf("TriggerPresses: got %d", s.TriggerPresses)
	}
	if s.Counts.Suppressed != 2 {
		t.Errorf("Counts.Suppressed: got %d, want 2", s.Counts.Suppressed)
	}
	if len(s.Devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(s.Devices))
	}

	d := s.Devices[0]
	if d.Handle != "dev-1" || d.Phase != "JOINING" || d.TimeMs != 1500 {
		t.Errorf("device: got %+v", d)
	}
	if d.JoinWindow.StartMs != 1000 || d.JoinWindow.EndMs != 7000 {
		t.Errorf("join window: got %+v", d.JoinWindow)
	}
	if d.JoinPresses != 2 {
		t.Errorf("join presses: got %d", d.JoinPresses)
	}
	if d.Stick.LR != -32767 || d.Stick.UD != 1200 {
		t.Errorf("stick: got %+v", d.Stick)
	}
	if len(d.Buttons) != 4 || !d.Buttons["bomb"] || d.Buttons["jump"] {
		t.Errorf("buttons: got %v", d.Buttons)
	}
	if s.Config.ResetPin != 17 || s.Config.TopicPrefix != "testinput" {
		t.Errorf("config: got %+v", s.Config)
	}
}

func TestFormatJSONNoDevicesIsEmptyArray(t *testing.T) {
	data := FormatJSON(Snapshot{})
	if !strings.Contains(string(data), `"devices": []`) {
		t.Errorf("expected empty devices array, got %s", data)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{Devices: []logic.Snapshot{testDevice("d")}, Config: Config{Broker: "tcp://b:1883"}}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("MQTT status event should be compact JSON")
	}

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", sj.Status.Event, sj.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(Snapshot{}, "HEARTBEAT", "")

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["reason"]; ok {
		t.Error("expected reason to be omitted")
	}
	if raw["status"]["event"] != "HEARTBEAT" {
		t.Errorf("expected HEARTBEAT, got %v", raw["status"]["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Update([]logic.Snapshot{testDevice("a")})
				tr.SetMQTTConnected(j%2 == 0)
				tr.SetTriggerPresses(j)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := tr.Snapshot()
				_ = FormatJSON(snap)
			}
		}()
	}

	wg.Wait()
}
