// Package buses wraps the host's shared I2C and SPI connections behind small
// interfaces so that chip drivers and tests never talk to periph directly.
package buses

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SPI represents a shareable SPI bus. The bus is single-owner: it is opened
// once at board initialization and handles serialize access to it.
type SPI interface {
	// OpenHandle locks the shared bus and returns a handle that must be
	// closed when done.
	OpenHandle() (SPIHandle, error)
	Close(ctx context.Context) error
}

// SPIHandle is a locked claim on the bus. It must be closed to release the lock.
type SPIHandle interface {
	// Xfer performs a single full-duplex SPI transaction from chip-select
	// assert to chip-select release. The number of bytes received equals the
	// number of bytes sent.
	Xfer(ctx context.Context, baud uint, chipSelect string, mode uint, tx []byte) ([]byte, error)

	// Close closes the handle and releases the lock on the bus.
	Close() error
}

type spiBus struct {
	mu         sync.Mutex
	openHandle *spiHandle
	bus        string
}

type spiHandle struct {
	bus      *spiBus
	isClosed bool
}

// NewSPIBus returns a shareable SPI bus for the given bus select ("0" or "1").
func NewSPIBus(busSelect string) SPI {
	return &spiBus{bus: busSelect}
}

func (sb *spiBus) OpenHandle() (SPIHandle, error) {
	sb.mu.Lock()
	sb.openHandle = &spiHandle{bus: sb, isClosed: false}
	return sb.openHandle, nil
}

func (sb *spiBus) Close(ctx context.Context) error {
	return nil
}

func (sh *spiHandle) Xfer(ctx context.Context, baud uint, chipSelect string, mode uint, tx []byte) (rx []byte, err error) {
	if sh.isClosed {
		return nil, errors.New("can't use Xfer() on an already closed SPIHandle")
	}

	port, err := spireg.Open(fmt.Sprintf("SPI%s.%s", sh.bus.bus, chipSelect))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, port.Close())
	}()
	conn, err := port.Connect(physic.Hertz*physic.Frequency(baud), spi.Mode(mode), 8)
	if err != nil {
		return nil, err
	}
	rx = make([]byte, len(tx))
	return rx, conn.Tx(tx, rx)
}

func (sh *spiHandle) Close() error {
	sh.isClosed = true
	sh.bus.mu.Unlock()
	return nil
}
