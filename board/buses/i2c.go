package buses

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	i2clib "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// I2C represents a shareable I2C bus. Like the SPI bus it is opened once at
// board initialization and never reopened.
type I2C interface {
	// Tx performs a write followed by an optional read to the device at addr
	// in a single transaction. Either buffer may be empty.
	Tx(ctx context.Context, addr uint16, w, r []byte) error
	Close(ctx context.Context) error
}

type i2cBus struct {
	mu  sync.Mutex
	bus i2clib.BusCloser
}

// NewI2CBus opens the named host I2C bus ("" selects the first available one).
func NewI2CBus(name string) (I2C, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open I2C bus %q", name)
	}
	return &i2cBus{bus: bus}, nil
}

func (b *i2cBus) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus.Tx(addr, w, r)
}

func (b *i2cBus) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus.Close()
}
