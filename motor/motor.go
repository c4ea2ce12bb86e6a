// Package motor defines the control handles for the gate's chevron DC motors
// and the shared ring stepper, plus the PCA9685-backed implementations of
// both. Handles speak only in channel objects handed to them at construction;
// they hold no wiring knowledge of their own.
package motor

import (
	"context"

	"github.com/edaniels/golog"
)

// A PWMChannel is a single PWM-capable output on a driver chip.
type PWMChannel interface {
	// SetDutyCycle sets the channel's duty cycle, 0 (off) to 0xFFFF (fully on).
	SetDutyCycle(ctx context.Context, duty uint16) error
}

// Direction selects which way a motor turns.
type Direction int

// Motor directions.
const (
	DirectionUnspecified Direction = iota
	Forward
	Backward
)

// A Motor is one chevron's DC drive motor.
type Motor interface {
	// Go drives the motor in the given direction at the given fraction of
	// full power (0..1].
	Go(ctx context.Context, d Direction, powerPct float64) error

	// Stop cuts drive to both polarity channels.
	Stop(ctx context.Context) error

	// IsOn reports whether the motor is currently driven.
	IsOn(ctx context.Context) (bool, error)
}

// A Stepper is the shared ring stepper motor.
type Stepper interface {
	// OneStep advances the motor a single increment of the given drive mode.
	OneStep(ctx context.Context, d Direction, mode DriveMode) error

	// Step advances the motor the given number of increments, pausing the
	// configured inter-step delay between them.
	Step(ctx context.Context, steps int, d Direction, mode DriveMode) error

	// Release de-energizes all coils so the rotor spins freely.
	Release(ctx context.Context) error
}

// DriveMode is a stepper stepping strategy, trading torque for smoothness.
type DriveMode int

// Stepper drive modes.
const (
	Double DriveMode = iota + 1
	Single
	Interleave
	Microstep
)

func (m DriveMode) String() string {
	switch m {
	case Double:
		return "double"
	case Single:
		return "single"
	case Interleave:
		return "interleave"
	case Microstep:
		return "microstep"
	default:
		return "unknown"
	}
}

// DriveModeByName resolves a drive-mode name from configuration. Unknown
// names fall back to Double: the mode only selects motion quality, so a typo
// should degrade smoothness, not halt the gate.
func DriveModeByName(name string, logger golog.Logger) DriveMode {
	switch name {
	case "double":
		return Double
	case "single":
		return Single
	case "interleave":
		return Interleave
	case "microstep":
		return Microstep
	default:
		logger.Warnw("unsupported stepper drive mode, using double", "mode", name)
		return Double
	}
}
