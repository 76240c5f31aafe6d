package logic

import (
	"testing"
	"time"
)

func TestTriggerBaselineDoesNotFire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTrigger(50 * time.Millisecond)

	// Button held at startup.
	for i := 0; i < 5; i++ {
		if tr.Process(true, now.Add(time.Duration(i)*20*time.Millisecond)) {
			t.Fatalf("sample %d: held button must not fire during baseline", i)
		}
	}
	if !tr.IsBaselined() {
		t.Fatal("expected baseline after 80ms of stable input")
	}
	if tr.Presses() != 0 {
		t.Errorf("expected 0 presses, got %d", tr.Presses())
	}
}

func TestTriggerFiresOnDebouncedPress(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTrigger(50 * time.Millisecond)

	tr.Process(false, now)
	tr.Process(false, now.Add(50*time.Millisecond))
	if !tr.IsBaselined() {
		t.Fatal("expected baseline")
	}

	if tr.Process(true, now.Add(100*time.Millisecond)) {
		t.Error("should not fire before debounce")
	}
	if tr.Process(true, now.Add(140*time.Millisecond)) {
		t.Error("should not fire before debounce")
	}
	if !tr.Process(true, now.Add(150*time.Millisecond)) {
		t.Error("expected fire after debounce")
	}
	if tr.Process(true, now.Add(200*time.Millisecond)) {
		t.Error("held button must fire only once")
	}

	// Release does not fire, next press does.
	tr.Process(false, now.Add(300*time.Millisecond))
	if tr.Process(false, now.Add(350*time.Millisecond)) {
		t.Error("release must not fire")
	}
	tr.Process(true, now.Add(400*time.Millisecond))
	if !tr.Process(true, now.Add(450*time.Millisecond)) {
		t.Error("expected second press to fire")
	}
	if tr.Presses() != 2 {
		t.Errorf("expected 2 presses, got %d", tr.Presses())
	}
}

func TestTriggerRejectsBounce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTrigger(50 * time.Millisecond)

	tr.Process(false, now)
	tr.Process(false, now.Add(50*time.Millisecond))

	// 30ms blip then back to released.
	tr.Process(true, now.Add(100*time.Millisecond))
	tr.Process(false, now.Add(130*time.Millisecond))
	for i := 0; i < 5; i++ {
		if tr.Process(false, now.Add(time.Duration(150+i*50)*time.Millisecond)) {
			t.Fatalf("sample %d: bounce must not fire", i)
		}
	}

	// A new press restarts the debounce timer from its own first sample.
	tr.Process(true, now.Add(500*time.Millisecond))
	tr.Process(false, now.Add(520*time.Millisecond))
	tr.Process(true, now.Add(540*time.Millisecond))
	if tr.Process(true, now.Add(560*time.Millisecond)) {
		t.Error("debounce should restart after the level flipped back")
	}
	if !tr.Process(true, now.Add(590*time.Millisecond)) {
		t.Error("expected fire 50ms after the last flip")
	}
}

func TestTriggerZeroDebounce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTrigger(0)

	tr.Process(false, now)
	tr.Process(false, now)
	if tr.Process(true, now.Add(time.Millisecond)) {
		t.Error("first pressed sample only starts the pending state")
	}
	if !tr.Process(true, now.Add(2*time.Millisecond)) {
		t.Error("expected fire on second pressed sample")
	}
}
