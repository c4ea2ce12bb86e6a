package motor

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const defaultStepDelay = 2 * time.Millisecond

// StepperConfig parameterizes the ring stepper.
type StepperConfig struct {
	// Microsteps is the number of microsteps per full step. Must be even.
	Microsteps int

	// StepDelay is the pause between increments in Step.
	StepDelay time.Duration

	// Clock drives the inter-step delay; nil uses the wall clock.
	Clock clock.Clock
}

// pcaStepper drives a bipolar stepper through four PCA9685 coil channels.
// Both H-bridge enable lines are forced fully on by the factory before
// construction; stepping only ever touches the coil channels.
type pcaStepper struct {
	mu sync.Mutex

	// Energize order AIN2, BIN1, AIN1, BIN2 puts adjacent phases next to
	// each other so currentMicrostep/microsteps indexes the leading coil.
	coils [4]PWMChannel

	microsteps       int
	curve            []uint16
	currentMicrostep int
	stepDelay        time.Duration
	clk              clock.Clock
	logger           golog.Logger
}

// NewStepper returns a stepper bound to the four coil channels of one chip.
func NewStepper(ain1, ain2, bin1, bin2 PWMChannel, cfg StepperConfig, logger golog.Logger) (Stepper, error) {
	if cfg.Microsteps <= 0 || cfg.Microsteps%2 != 0 {
		return nil, errors.Errorf("microsteps must be even and positive, got %d", cfg.Microsteps)
	}
	if cfg.StepDelay == 0 {
		cfg.StepDelay = defaultStepDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	s := &pcaStepper{
		coils:      [4]PWMChannel{ain2, bin1, ain1, bin2},
		microsteps: cfg.Microsteps,
		stepDelay:  cfg.StepDelay,
		clk:        cfg.Clock,
		logger:     logger,
	}

	// Quarter-sine torque curve, one entry per microstep position plus the
	// fully-on endpoint.
	s.curve = make([]uint16, cfg.Microsteps+1)
	for i := range s.curve {
		s.curve[i] = uint16(math.Round(0xFFFF * math.Sin(math.Pi/(2*float64(cfg.Microsteps))*float64(i))))
	}

	return s, nil
}

func (s *pcaStepper) OneStep(ctx context.Context, d Direction, mode DriveMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oneStepLocked(ctx, d, mode)
}

func (s *pcaStepper) Step(ctx context.Context, steps int, d Direction, mode DriveMode) error {
	for i := 0; i < steps; i++ {
		if err := s.OneStep(ctx, d, mode); err != nil {
			return errors.Wrapf(err, "stopped after %d of %d steps", i, steps)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clk.After(s.stepDelay):
		}
	}
	return nil
}

func (s *pcaStepper) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs error
	for _, c := range s.coils {
		errs = multierr.Combine(errs, c.SetDutyCycle(ctx, 0))
	}
	return errs
}

func (s *pcaStepper) oneStepLocked(ctx context.Context, d Direction, mode DriveMode) error {
	if d != Forward && d != Backward {
		return errors.New("stepper needs an explicit direction")
	}

	stepSize := 0
	if mode == Microstep {
		stepSize = 1
	} else {
		halfStep := s.microsteps / 2
		fullStep := s.microsteps

		// Snap to the nearest half-step boundary first; a prior microstep
		// sequence may have left us between detents.
		if extra := s.currentMicrostep % halfStep; extra != 0 {
			if d == Forward {
				s.currentMicrostep += halfStep - extra
			} else {
				s.currentMicrostep -= extra
			}
		} else if mode == Interleave {
			stepSize = halfStep
		}

		currentInterleave := s.currentMicrostep / halfStep
		if (mode == Single && currentInterleave%2 == 1) ||
			(mode == Double && currentInterleave%2 == 0) {
			stepSize = halfStep
		} else if mode == Single || mode == Double {
			stepSize = fullStep
		}
	}

	if d == Forward {
		s.currentMicrostep += stepSize
	} else {
		s.currentMicrostep -= stepSize
	}

	total := s.microsteps * 4
	s.currentMicrostep = ((s.currentMicrostep % total) + total) % total

	var duty [4]uint16
	trailing := s.currentMicrostep / s.microsteps
	leading := (trailing + 1) % 4
	progress := s.currentMicrostep % s.microsteps
	duty[leading] = s.curve[progress]
	duty[trailing] = s.curve[s.microsteps-progress]

	// On a half-step detent both coils sit at the same partial level; whole
	// and half stepping want full torque there.
	if mode != Microstep && duty[leading] == duty[trailing] && duty[leading] > 0 {
		duty[leading] = 0xFFFF
		duty[trailing] = 0xFFFF
	}

	var errs error
	for i, c := range s.coils {
		errs = multierr.Combine(errs, c.SetDutyCycle(ctx, duty[i]))
	}
	return errs
}
