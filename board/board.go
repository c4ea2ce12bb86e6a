// Package board presents the logical control surface of one gate mainboard:
// chevron LEDs and motors addressed by chevron number, the shared stepper,
// the homing sensor, and the pixel ring. Implementations own all knowledge of
// physical wiring; callers never see chip addresses or channel indices.
package board

import (
	"context"

	"github.com/gatecrafters/gatehw/motor"
	"github.com/gatecrafters/gatehw/pixels"
)

// A Board is the public surface of a mainboard revision. Chevron numbers are
// logical (1..9) and resolve through the installed remap table, so the same
// caller code works across wiring harnesses.
type Board interface {
	// Name returns the human-readable board revision name.
	Name() string

	// ChevronLED returns the indicator LED for the given chevron number.
	ChevronLED(chevron int) (LED, error)

	// ChevronMotor returns the drive motor for the given chevron number,
	// constructing it on first access. Repeated calls return the same handle.
	ChevronMotor(ctx context.Context, chevron int) (motor.Motor, error)

	// Stepper returns the single ring stepper, constructing it on first
	// access. When stepper hardware is disabled by configuration this is a
	// simulated handle with the same contract.
	Stepper(ctx context.Context) (motor.Stepper, error)

	// DriveMode resolves a stepper drive-mode name. Unknown names fall back
	// to the default mode rather than failing; they select a motion-quality
	// tradeoff, not a safety parameter.
	DriveMode(name string) motor.DriveMode

	// HomingSupported reports whether the homing sensor is calibrated for
	// this installation. Callers must check it before HomingVoltage.
	HomingSupported() bool

	// HomingVoltage samples the homing sensor and returns a calibrated
	// voltage in [0, Vref].
	HomingVoltage(ctx context.Context) (float64, error)

	// Pixels returns the addressable pixel ring.
	Pixels() pixels.Ring

	Close(ctx context.Context) error
}
