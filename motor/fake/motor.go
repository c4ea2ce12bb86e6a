// Package fake implements simulated chevron motors and a simulated ring
// stepper. They satisfy the same contracts as the PCA9685-backed handles but
// never touch a bus, so the rest of the system behaves identically when the
// prop's motor hardware is disabled or absent.
package fake

import (
	"context"
	"sync"

	"github.com/edaniels/golog"

	"github.com/gatecrafters/gatehw/motor"
)

// Motor is a simulated chevron DC motor.
type Motor struct {
	mu        sync.Mutex
	Name      string
	Logger    golog.Logger
	direction motor.Direction
	powerPct  float64
	on        bool
	goCount   int
}

// NewMotor returns a simulated motor.
func NewMotor(name string, logger golog.Logger) *Motor {
	return &Motor{Name: name, Logger: logger}
}

// Go records the requested direction and power.
func (m *Motor) Go(ctx context.Context, d motor.Direction, powerPct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if powerPct <= 0 {
		m.on = false
		m.powerPct = 0
		return nil
	}
	if powerPct > 1 {
		powerPct = 1
	}
	m.direction = d
	m.powerPct = powerPct
	m.on = true
	m.goCount++
	return nil
}

// Stop marks the motor as off.
func (m *Motor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = false
	m.powerPct = 0
	return nil
}

// IsOn reports the simulated drive state.
func (m *Motor) IsOn(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on, nil
}

// Direction returns the last requested direction.
func (m *Motor) Direction() motor.Direction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.direction
}

// PowerPct returns the last requested power fraction.
func (m *Motor) PowerPct() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct
}

// GoCount returns how many times the motor has been driven.
func (m *Motor) GoCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goCount
}

// Stepper is a simulated ring stepper. It tracks a step position so callers
// exercising homing logic see consistent motion.
type Stepper struct {
	mu       sync.Mutex
	Logger   golog.Logger
	position int
	released bool
}

// NewStepper returns a simulated stepper.
func NewStepper(logger golog.Logger) *Stepper {
	return &Stepper{Logger: logger}
}

// OneStep advances the simulated position by one increment.
func (s *Stepper) OneStep(ctx context.Context, d motor.Direction, mode motor.DriveMode) error {
	return s.Step(ctx, 1, d, mode)
}

// Step advances the simulated position without delay.
func (s *Stepper) Step(ctx context.Context, steps int, d motor.Direction, mode motor.DriveMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = false
	if d == motor.Backward {
		s.position -= steps
	} else {
		s.position += steps
	}
	return nil
}

// Release marks the coils as de-energized.
func (s *Stepper) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	return nil
}

// Position returns the simulated step position.
func (s *Stepper) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Released reports whether the coils are de-energized.
func (s *Stepper) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
