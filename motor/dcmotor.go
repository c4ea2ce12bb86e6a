package motor

import (
	"context"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// dcMotor drives an H-bridge through two PCA9685 polarity channels. The
// bridge's enable line is forced fully on by the factory before construction,
// so speed and direction are controlled entirely through the polarity pair.
type dcMotor struct {
	mu       sync.Mutex
	pos, neg PWMChannel
	on       bool
	logger   golog.Logger
}

// NewDCMotor returns a motor bound to the given polarity channel pair.
func NewDCMotor(pos, neg PWMChannel, logger golog.Logger) Motor {
	return &dcMotor{pos: pos, neg: neg, logger: logger}
}

func (m *dcMotor) Go(ctx context.Context, d Direction, powerPct float64) error {
	if powerPct <= 0 {
		return m.Stop(ctx)
	}
	if powerPct > 1 {
		powerPct = 1
	}
	duty := uint16(powerPct * 0xFFFF)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch d {
	case Forward:
		if err := multierr.Combine(
			m.neg.SetDutyCycle(ctx, 0),
			m.pos.SetDutyCycle(ctx, duty),
		); err != nil {
			return err
		}
	case Backward:
		if err := multierr.Combine(
			m.pos.SetDutyCycle(ctx, 0),
			m.neg.SetDutyCycle(ctx, duty),
		); err != nil {
			return err
		}
	case DirectionUnspecified:
		return errors.New("can't drive motor with no direction set")
	default:
		return errors.Errorf("unknown direction %v", d)
	}

	m.on = true
	return nil
}

func (m *dcMotor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.on = false
	return multierr.Combine(
		m.pos.SetDutyCycle(ctx, 0),
		m.neg.SetDutyCycle(ctx, 0),
	)
}

func (m *dcMotor) IsOn(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.on, nil
}
