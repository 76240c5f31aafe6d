package logic

import "math"

// Join window timing and event pacing, in milliseconds.
const (
	JoinStartDelay   = 1000
	JoinWindowLength = 7000
	MaxEventInterval = 300
)

const (
	moveChance   = 0.5 // below: stick movement, otherwise a button
	centerChance = 0.3 // below: stick snaps back to center
	// presses counted beyond this are suppressed while the window is open
	maxJoinPresses = 1
)

// Simulator impersonates one game controller. It owns a single device
// registration on the bus and feeds it random stick and button events,
// holding back presses while a join window is open so that a simulated
// player joins with at most two presses.
//
// Not safe for concurrent use: RequestReset and Tick must be called from
// the goroutine that owns the simulator.
type Simulator struct {
	bus    Bus
	rng    Source
	handle DeviceHandle
	hooks  Hooks

	state  State
	stats  Stats
	now    uint64
	closed bool
}

// NewSimulator registers a TestDevice on bus and returns a quiescent simulator.
func NewSimulator(bus Bus, rng Source) *Simulator {
	s := &Simulator{bus: bus, rng: rng}
	s.handle = bus.RegisterDevice(TestDevice)
	return s
}

// SetHooks installs notification callbacks.
func (s *Simulator) SetHooks(h Hooks) {
	s.hooks = h
}

// Handle returns the device handle assigned by the bus.
func (s *Simulator) Handle() DeviceHandle {
	return s.handle
}

// Close unregisters the device. Further calls, and any Tick after it, do nothing.
func (s *Simulator) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.bus.UnregisterDevice(s.handle)
}

// RequestReset restarts the join window on the next Tick.
// Requests made before that tick collapse into one.
func (s *Simulator) RequestReset() {
	if s.state.Reset == ResetIdle {
		s.state.Reset = ResetRequested
	}
}

// Tick advances the simulator to now (milliseconds, non-decreasing) and
// emits at most one movement or button change.
func (s *Simulator) Tick(now uint64) {
	if s.closed {
		return
	}
	s.now = now

	if s.state.Reset == ResetRequested {
		s.reset(now)
	}

	if s.state.JoinClosed == NoticeOwed && now >= s.state.JoinWindowEnd {
		s.state.JoinClosed = NoticeIdle
		if s.hooks.JoinWindowClosed != nil {
			s.hooks.JoinWindowClosed(now)
		}
	}

	if now <= s.state.NextEventTime {
		return
	}
	s.state.NextEventTime = now + uint64(s.rng.Float64()*MaxEventInterval)

	// Nothing at all before the window starts accepting presses.
	if now < s.state.JoinWindowStart {
		return
	}

	if s.rng.Float64() < moveChance {
		s.move()
	} else {
		s.press(now)
	}
}

// reset restarts the join window relative to now. Button and stick state
// are left alone so a held button is never released behind the bus's back.
func (s *Simulator) reset(now uint64) {
	s.state.Reset = Resetting
	s.state.JoinWindowEnd = now + JoinWindowLength
	s.state.JoinWindowStart = now + JoinStartDelay
	s.state.JoinPressCount = 0
	s.state.JoinClosed = NoticeOwed
	s.state.Suppression = NoticeOwed
	s.stats.Resets++

	// The hook sees Resetting; a RequestReset from inside it is dropped.
	if s.hooks.Reset != nil {
		s.hooks.Reset(now)
	}
	s.state.Reset = ResetIdle
}

func (s *Simulator) move() {
	if s.rng.Float64() < centerChance {
		s.state.AxisLR = 0
		s.state.AxisUD = 0
	} else {
		s.state.AxisLR = axisValue(s.rng.Float64())
		s.state.AxisUD = axisValue(s.rng.Float64())
	}

	s.bus.EmitAxisEvent(s.handle, AxisVertical, int16(clampAxis(s.state.AxisUD)))
	s.bus.EmitAxisEvent(s.handle, AxisHorizontal, int16(clampAxis(s.state.AxisLR)))
	s.stats.AxisEvents += 2
}

func (s *Simulator) press(now uint64) {
	b := pickButton(s.rng.Float64())
	pressed := s.state.Buttons[b]

	if !pressed && now < s.state.JoinWindowEnd && s.state.JoinPressCount > maxJoinPresses {
		s.suppress(now, b)
		return
	}

	pressed = !pressed
	s.state.Buttons[b] = pressed

	// Bomb only counts toward joining as the first press; after that it
	// just cycles the character.
	if pressed && (b != ButtonBomb || s.state.JoinPressCount == 0) {
		s.state.JoinPressCount++
	}

	if pressed {
		s.stats.ButtonDowns++
	} else {
		s.stats.ButtonUps++
	}
	s.bus.EmitButtonEvent(s.handle, b, pressed)
}

func (s *Simulator) suppress(now uint64, b Button) {
	s.stats.Suppressed++
	first := s.state.Suppression == NoticeOwed
	s.state.Suppression = NoticeIdle
	if s.hooks.PressSuppressed != nil {
		s.hooks.PressSuppressed(now, b, first)
	}
}

// Phase reports where now falls relative to the current join window.
func (s *Simulator) Phase(now uint64) Phase {
	switch {
	case now < s.state.JoinWindowStart:
		return PhaseQuiet
	case now < s.state.JoinWindowEnd:
		return PhaseJoining
	}
	return PhaseFree
}

// Snapshot returns a copy of the state as of the last Tick.
func (s *Simulator) Snapshot() Snapshot {
	return Snapshot{
		Handle: s.handle,
		Now:    s.now,
		Phase:  s.Phase(s.now),
		State:  s.state,
		Stats:  s.stats,
	}
}

// pickButton maps a uniform draw onto one of four equal ranges.
func pickButton(r float64) Button {
	switch {
	case r > 0.75:
		return ButtonJump
	case r > 0.5:
		return ButtonBomb
	case r > 0.25:
		return ButtonPickup
	}
	return ButtonPunch
}

// axisValue spreads a uniform draw over [-50000, 50000] so that roughly a
// third of deflections saturate, then clamps to the axis range.
func axisValue(r float64) int {
	return clampAxis(int(math.Round(-50000 + 100000*r)))
}

func clampAxis(v int) int {
	if v < AxisMin {
		return AxisMin
	}
	if v > AxisMax {
		return AxisMax
	}
	return v
}
