package logic

import "time"

// Trigger debounces a push button and reports each debounced press.
type Trigger struct {
	debounce     time.Duration
	stable       bool
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
	presses      int
}

// NewTrigger creates a trigger that needs a level to hold for debounce
// before it is believed.
func NewTrigger(debounce time.Duration) *Trigger {
	return &Trigger{debounce: debounce}
}

// Process takes one sample of the button and returns true when a debounced
// released-to-pressed transition completes. The first stable level only
// establishes a baseline, so a button held at startup never fires.
func (t *Trigger) Process(pressed bool, now time.Time) bool {
	if !t.baselined {
		if !t.hasPending || t.pending != pressed {
			t.observe(pressed, now)
			return false
		}
		if now.Sub(t.pendingSince) >= t.debounce {
			t.stable = pressed
			t.baselined = true
			t.hasPending = false
		}
		return false
	}

	if pressed == t.stable {
		t.hasPending = false
		return false
	}

	if !t.hasPending || t.pending != pressed {
		t.observe(pressed, now)
		return false
	}

	if now.Sub(t.pendingSince) < t.debounce {
		return false
	}

	t.stable = pressed
	t.hasPending = false
	if pressed {
		t.presses++
	}
	return pressed
}

func (t *Trigger) observe(pressed bool, now time.Time) {
	t.pending = pressed
	t.pendingSince = now
	t.hasPending = true
}

// IsBaselined returns whether the trigger has settled on an initial level.
func (t *Trigger) IsBaselined() bool {
	return t.baselined
}

// Presses returns the number of debounced presses seen.
func (t *Trigger) Presses() int {
	return t.presses
}
