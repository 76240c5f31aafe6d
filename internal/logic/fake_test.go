package logic

import "testing"

func TestFakeSourceReplaysThenRepeats(t *testing.T) {
	f := NewFakeSource(0.1, 0.2)

	want := []float64{0.1, 0.2, 0.2, 0.2}
	for i, w := range want {
		if got := f.Float64(); got != w {
			t.Errorf("draw %d: got %v, want %v", i, got, w)
		}
	}
	if f.Draws != 4 {
		t.Errorf("expected 4 draws, got %d", f.Draws)
	}

	f.Push(0.7)
	if got := f.Float64(); got != 0.7 {
		t.Errorf("after push: got %v, want 0.7", got)
	}
}

func TestFakeSourceEmpty(t *testing.T) {
	f := NewFakeSource()
	if got := f.Float64(); got != 0 {
		t.Errorf("expected 0 from empty source, got %v", got)
	}
}
