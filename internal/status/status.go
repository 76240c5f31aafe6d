// Package status provides a thread-safe status tracker for the test-input daemon.
// It is read by HTTP handlers and heartbeat events while the run loop writes it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/test-input/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs       int64
	ResetEveryMs int64
	HeartbeatMs  int64
	Devices      int
	Broker       string
	TopicPrefix  string
	HTTPAddr     string
	ResetPin     int // 0 = no GPIO trigger
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Devices        []logic.Snapshot
	TriggerPresses int
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Totals sums the counters of every device.
func (s Snapshot) Totals() logic.Stats {
	var total logic.Stats
	for _, d := range s.Devices {
		total.AxisEvents += d.Stats.AxisEvents
		total.ButtonDowns += d.Stats.ButtonDowns
		total.ButtonUps += d.Stats.ButtonUps
		total.Suppressed += d.Stats.Suppressed
		total.Resets += d.Stats.Resets
	}
	return total
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the per-device snapshots. Called from runLoop on every tick.
func (t *Tracker) Update(devices []logic.Snapshot) {
	cp := make([]logic.Snapshot, len(devices))
	copy(cp, devices)

	t.mu.Lock()
	t.snap.Devices = cp
	t.mu.Unlock()
}

// SetTriggerPresses records how many debounced reset presses were seen.
func (t *Tracker) SetTriggerPresses(n int) {
	t.mu.Lock()
	t.snap.TriggerPresses = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Devices = make([]logic.Snapshot, len(t.snap.Devices))
	copy(s.Devices, t.snap.Devices)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
