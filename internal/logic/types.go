// Package logic contains the synthetic controller simulator.
// This package has NO external dependencies (no MQTT, GPIO, OS, or wall clock).
// Time is always injected: milliseconds for Tick, time.Time for the helpers.
package logic

// Button identifies a controller button by its wire id.
type Button uint8

const (
	ButtonJump   Button = 0
	ButtonPunch  Button = 1
	ButtonBomb   Button = 2
	ButtonPickup Button = 3
)

// Buttons lists every button in id order.
var Buttons = [...]Button{ButtonJump, ButtonPunch, ButtonBomb, ButtonPickup}

func (b Button) String() string {
	switch b {
	case ButtonJump:
		return "jump"
	case ButtonPunch:
		return "punch"
	case ButtonBomb:
		return "bomb"
	case ButtonPickup:
		return "pickup"
	}
	return "unknown"
}

// Axis identifies an analog stick channel.
type Axis uint8

const (
	AxisVertical   Axis = 0
	AxisHorizontal Axis = 1
)

func (a Axis) String() string {
	switch a {
	case AxisVertical:
		return "vertical"
	case AxisHorizontal:
		return "horizontal"
	}
	return "unknown"
}

// Axis values are clamped to the symmetric 16-bit range.
const (
	AxisMin = -32767
	AxisMax = 32767
)

// DeviceHandle is the opaque identity the bus assigns to a registered device.
type DeviceHandle string

// DeviceDescriptor describes a device at registration time.
type DeviceDescriptor struct {
	Name         string
	Configurable bool // whether the user may remap it
	Calibrate    bool // whether it needs calibration
}

// TestDevice is the descriptor every simulator registers with.
var TestDevice = DeviceDescriptor{Name: "TestInput"}

// Bus is the input pipeline the simulator feeds.
// Emission is fire-and-forget: implementations handle their own failures.
type Bus interface {
	RegisterDevice(desc DeviceDescriptor) DeviceHandle
	UnregisterDevice(h DeviceHandle)
	EmitAxisEvent(h DeviceHandle, axis Axis, value int16)
	EmitButtonEvent(h DeviceHandle, button Button, pressed bool)
}

// ResetState tracks a deferred reset request.
type ResetState uint8

const (
	ResetIdle ResetState = iota
	ResetRequested
	Resetting // while the Reset hook runs
)

// NoticeState tracks a one-shot notice that is owed after a reset.
type NoticeState uint8

const (
	NoticeIdle NoticeState = iota
	NoticeOwed
)

// Phase is the join-window phase at a given time.
type Phase string

const (
	PhaseFree    Phase = "FREE"    // no window, or window over
	PhaseQuiet   Phase = "QUIET"   // reset seen, join presses not yet accepted
	PhaseJoining Phase = "JOINING" // join presses accepted
)

// State is the simulator's mutable state. Times are milliseconds.
type State struct {
	Reset           ResetState
	JoinWindowStart uint64
	JoinWindowEnd   uint64
	JoinPressCount  int
	NextEventTime   uint64
	AxisLR          int
	AxisUD          int
	Buttons         [len(Buttons)]bool // indexed by Button
	JoinClosed      NoticeState        // owed when the window closes
	Suppression     NoticeState        // owed on the first suppressed press
}

// Stats counts simulator activity since construction.
type Stats struct {
	AxisEvents  int
	ButtonDowns int
	ButtonUps   int
	Suppressed  int
	Resets      int
}

// Snapshot is a copy of a simulator's state as of its last tick.
type Snapshot struct {
	Handle DeviceHandle
	Now    uint64
	Phase  Phase
	State  State
	Stats  Stats
}

// Hooks are optional callbacks invoked synchronously from Tick.
type Hooks struct {
	Reset            func(now uint64)
	JoinWindowClosed func(now uint64)
	// PressSuppressed fires on every suppressed press; first is true once per reset.
	PressSuppressed func(now uint64, b Button, first bool)
}
