// Package pca9685 drives the PCA9685 16-channel PWM controller over I2C.
// The board carries two of them for the chevron motor H-bridges and the ring
// stepper; both must run at the same switching frequency, since mixed
// frequencies produce audible beat artifacts in motors sharing supply rails.
package pca9685

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	goutils "go.viam.com/utils"

	"github.com/gatecrafters/gatehw/board"
	"github.com/gatecrafters/gatehw/board/buses"
)

const (
	mode1Reg    = 0x00
	prescaleReg = 0xFE
	led0OnLow   = 0x06

	mode1Restart = 0x80
	mode1AutoInc = 0x20
	mode1Sleep   = 0x10

	oscillatorHz = 25_000_000
	channelCount = 16
)

// A PCA9685 is one driver chip at a fixed bus address.
type PCA9685 struct {
	mu     sync.Mutex
	bus    buses.I2C
	addr   uint16
	chip   int // 1-based chip id, used in addressing errors
	logger golog.Logger
}

// New opens the chip at the given address and sets its switching frequency.
// Any bus failure here is fatal to board startup: there is no degraded mode
// in which motors can be driven without PWM.
func New(ctx context.Context, bus buses.I2C, chip int, addr uint16, freqHz float64, logger golog.Logger) (*PCA9685, error) {
	p := &PCA9685{bus: bus, addr: addr, chip: chip, logger: logger}

	if err := p.write(ctx, mode1Reg, 0x00); err != nil {
		return nil, board.NewBusError("pca9685 reset", err)
	}
	if err := p.setFrequency(ctx, freqHz); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PCA9685) setFrequency(ctx context.Context, freqHz float64) error {
	prescale := byte(math.Round(oscillatorHz/(4096*freqHz)) - 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	oldMode, err := p.read(ctx, mode1Reg)
	if err != nil {
		return board.NewBusError("pca9685 read mode", err)
	}

	// Prescale can only be written while the oscillator sleeps.
	if err := p.write(ctx, mode1Reg, (oldMode&^mode1Restart)|mode1Sleep); err != nil {
		return board.NewBusError("pca9685 sleep", err)
	}
	if err := p.write(ctx, prescaleReg, prescale); err != nil {
		return board.NewBusError("pca9685 set prescale", err)
	}
	if err := p.write(ctx, mode1Reg, oldMode); err != nil {
		return board.NewBusError("pca9685 wake", err)
	}
	if !goutils.SelectContextOrWait(ctx, 5*time.Millisecond) {
		return ctx.Err()
	}
	if err := p.write(ctx, mode1Reg, oldMode|mode1Restart|mode1AutoInc); err != nil {
		return board.NewBusError("pca9685 restart", err)
	}
	return nil
}

// Channel returns the output at the given index (0-15).
func (p *PCA9685) Channel(index int) (*Channel, error) {
	if index < 0 || index >= channelCount {
		return nil, board.NewAddressingError(p.chip, index)
	}
	return &Channel{pca: p, index: index}, nil
}

func (p *PCA9685) write(ctx context.Context, reg byte, values ...byte) error {
	return p.bus.Tx(ctx, p.addr, append([]byte{reg}, values...), nil)
}

func (p *PCA9685) read(ctx context.Context, reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := p.bus.Tx(ctx, p.addr, []byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// A Channel is one PWM output of a chip.
type Channel struct {
	pca   *PCA9685
	index int
}

// SetDutyCycle sets the channel's duty cycle. 0xFFFF engages the chip's
// full-on mode rather than a 4095/4096 window.
func (c *Channel) SetDutyCycle(ctx context.Context, duty uint16) error {
	base := byte(led0OnLow + 4*c.index)

	var on, off uint16
	switch duty {
	case 0xFFFF:
		on = 0x1000 // full on
	case 0:
		off = 0x1000 // full off
	default:
		off = duty >> 4
	}

	c.pca.mu.Lock()
	defer c.pca.mu.Unlock()
	err := c.pca.write(ctx, base,
		byte(on), byte(on>>8), byte(off), byte(off>>8))
	if err != nil {
		return board.NewBusError("pca9685 set duty cycle", err)
	}
	return nil
}

// A Pool owns the board's driver chips. All chips share one switching
// frequency and one bus connection, opened once at startup.
type Pool struct {
	chips []*PCA9685
}

// NewPool opens one chip per address, in order, at the shared frequency.
func NewPool(ctx context.Context, bus buses.I2C, freqHz float64, logger golog.Logger, addrs ...uint16) (*Pool, error) {
	pool := &Pool{}
	for i, addr := range addrs {
		chip, err := New(ctx, bus, i+1, addr, freqHz, logger)
		if err != nil {
			return nil, err
		}
		pool.chips = append(pool.chips, chip)
	}
	return pool, nil
}

// Chips returns the number of chips in the pool.
func (p *Pool) Chips() int { return len(p.chips) }

// Channel returns the output at the given 1-based chip id and 0-15 index.
func (p *Pool) Channel(chip, index int) (*Channel, error) {
	if chip < 1 || chip > len(p.chips) {
		return nil, board.NewAddressingError(chip, index)
	}
	return p.chips[chip-1].Channel(index)
}
