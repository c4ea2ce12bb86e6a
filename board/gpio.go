package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// A GPIOPin is one discrete output line on the host.
type GPIOPin interface {
	// Set sets the pin high or low.
	Set(ctx context.Context, high bool) error

	// Get returns the last driven state of the pin.
	Get(ctx context.Context) (bool, error)
}

// An LED is an indicator light on a discrete GPIO line.
type LED interface {
	On(ctx context.Context) error
	Off(ctx context.Context) error
	IsOn(ctx context.Context) (bool, error)
}

type periphPin struct {
	mu   sync.Mutex
	pin  gpio.PinIO
	high bool
}

// NewPeriphPin wraps a periph GPIO line by BCM pin number.
func NewPeriphPin(number int) (GPIOPin, error) {
	name := fmt.Sprintf("GPIO%d", number)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("no GPIO line named %s", name)
	}
	return &periphPin{pin: p}, nil
}

func (p *periphPin) Set(ctx context.Context, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := p.pin.Out(level); err != nil {
		return NewBusError("gpio write", err)
	}
	p.high = high
	return nil
}

func (p *periphPin) Get(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high, nil
}

type gpioLED struct {
	pin GPIOPin
}

// NewLED returns an LED driven by the given pin.
func NewLED(pin GPIOPin) LED {
	return &gpioLED{pin: pin}
}

func (l *gpioLED) On(ctx context.Context) error  { return l.pin.Set(ctx, true) }
func (l *gpioLED) Off(ctx context.Context) error { return l.pin.Set(ctx, false) }

func (l *gpioLED) IsOn(ctx context.Context) (bool, error) {
	return l.pin.Get(ctx)
}
