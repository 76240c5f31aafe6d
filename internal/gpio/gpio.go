// Package gpio reads the reset trigger button with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the reset trigger line.
type Reader interface {
	// Read returns whether the button is pressed. The line is active low:
	// raw 0 = pressed.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPinReset is the BCM pin the reset button is wired to.
const DefaultPinReset = 17
