// Package mcp3002 reads the MCP3002 10-bit ADC used for the ring homing
// sensor. The chip pipelines conversion with clocking, so a single
// full-duplex SPI exchange both selects the input and clocks out the sample.
package mcp3002

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/gatecrafters/gatehw/board"
	"github.com/gatecrafters/gatehw/board/buses"
)

// Resolution is the ADC's sample width in bits.
const Resolution = 10

// A Sampler performs single-shot reads of one ADC input.
type Sampler struct {
	spi        buses.SPI
	chipSelect string
	baud       uint
	logger     golog.Logger
}

// New returns a sampler on the given SPI bus and chip-select line.
func New(spi buses.SPI, chipSelect string, baud uint, logger golog.Logger) *Sampler {
	return &Sampler{spi: spi, chipSelect: chipSelect, baud: baud, logger: logger}
}

// Read samples the given input (0 or 1) and returns the raw code. There are
// no retries: a malformed reply is surfaced, never papered over with a stale
// sample, because a false homing signal could trigger an unsafe move.
func (s *Sampler) Read(ctx context.Context, channel int) (raw int, err error) {
	// Reject bad selectors before anything reaches the bus; an out-of-range
	// channel bit pattern is undefined behavior on the chip.
	if channel != 0 && channel != 1 {
		return 0, board.NewInvalidChannelError(channel)
	}

	// Start bits, then the channel selector in single-ended mode, aligned to
	// the chip's expected clock timing; the second byte clocks the sample out.
	msg := byte(0b11)
	msg = ((msg << 1) | byte(channel)) << 5
	tx := []byte{msg, 0x00}

	handle, err := s.spi.OpenHandle()
	if err != nil {
		return 0, board.NewBusError("adc open", err)
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()

	reply, err := handle.Xfer(ctx, s.baud, s.chipSelect, 0, tx)
	if err != nil {
		return 0, board.NewBusError("adc exchange", err)
	}
	if len(reply) != len(tx) {
		return 0, board.NewBusError("adc exchange",
			errors.Errorf("short reply: got %d bytes, want %d", len(reply), len(tx)))
	}

	// Reassemble the two reply bytes, then drop the trailing bit the chip
	// appends while clocking out.
	value := 0
	for _, b := range reply {
		value = value<<8 + int(b)
	}
	return value >> 1, nil
}
