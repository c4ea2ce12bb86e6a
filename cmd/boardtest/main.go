// Package main contains a command to exercise a gate mainboard: it walks the
// chevron LEDs and motors, nudges the ring stepper, and samples the homing
// sensor. With -sim it runs entirely against simulated hardware.
package main

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/gatecrafters/gatehw/board"
	"github.com/gatecrafters/gatehw/board/boardcfg"
	"github.com/gatecrafters/gatehw/board/buses"
	"github.com/gatecrafters/gatehw/board/mainboard"
	"github.com/gatecrafters/gatehw/motor"
	"github.com/gatecrafters/gatehw/pixels"
)

var logger = golog.NewDevelopmentLogger("boardtest")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Config string `flag:"config,usage=path to board remap config"`
	Sim    bool   `flag:"sim,usage=run against simulated hardware"`
	Steps  int    `flag:"steps,default=200,usage=stepper increments to run"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	b, err := newBoard(ctx, argsParsed, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, b.Close(ctx))
	}()

	return exercise(ctx, b, argsParsed.Steps, logger)
}

func newBoard(ctx context.Context, args Arguments, logger golog.Logger) (board.Board, error) {
	if !args.Sim {
		return mainboard.NewFromHost(ctx, args.Config, logger)
	}

	cfg := boardcfg.Default()
	if args.Config != "" {
		var err error
		cfg, err = boardcfg.Load(args.Config, logger)
		if err != nil {
			return nil, err
		}
	}
	cfg.Attributes["stepper_motor_enable"] = false
	cfg.Attributes["chevron_motors_enable"] = false

	periph := mainboard.Peripherals{
		I2C:    buses.NewFakeI2C(),
		SPI:    buses.NewFakeSPI(),
		Pixels: pixels.NewFakeRing(122),
		OpenPin: func(number int) (board.GPIOPin, error) {
			return board.NewFakePin(number), nil
		},
	}
	return mainboard.New(ctx, cfg, periph, logger)
}

func exercise(ctx context.Context, b board.Board, steps int, logger golog.Logger) error {
	logger.Infow("exercising board", "name", b.Name())

	for chevron := 1; chevron <= 9; chevron++ {
		led, err := b.ChevronLED(chevron)
		if err != nil {
			logger.Infow("no LED for chevron", "chevron", chevron, "error", err)
			continue
		}
		if err := led.On(ctx); err != nil {
			return err
		}
		if !utils.SelectContextOrWait(ctx, 250*time.Millisecond) {
			return ctx.Err()
		}
		if err := led.Off(ctx); err != nil {
			return err
		}
	}

	for chevron := 1; chevron <= 9; chevron++ {
		m, err := b.ChevronMotor(ctx, chevron)
		if err != nil {
			logger.Infow("no motor for chevron", "chevron", chevron, "error", err)
			continue
		}
		if err := m.Go(ctx, motor.Forward, 0.5); err != nil {
			return err
		}
		if !utils.SelectContextOrWait(ctx, 300*time.Millisecond) {
			return ctx.Err()
		}
		if err := m.Stop(ctx); err != nil {
			return err
		}
	}

	s, err := b.Stepper(ctx)
	if err != nil {
		return err
	}
	mode := b.DriveMode("double")
	if err := s.Step(ctx, steps, motor.Forward, mode); err != nil {
		return err
	}
	if err := s.Release(ctx); err != nil {
		return err
	}

	if b.HomingSupported() {
		v, err := b.HomingVoltage(ctx)
		if err != nil {
			return err
		}
		logger.Infow("homing sensor", "voltage", v)
	} else {
		logger.Info("homing sensor not calibrated on this install")
	}

	ring := b.Pixels()
	ring.Fill(0, 32, 64)
	if err := ring.Show(ctx); err != nil {
		return err
	}
	logger.Infow("pixel ring", "count", ring.Len())
	return ring.Off(ctx)
}
