// Package pixels drives the addressable pixel ring used for the wormhole
// effect. Only the count and power contract matter to the board layer;
// drawing effects live upstream.
package pixels

import (
	"context"

	"github.com/pkg/errors"
)

// A Ring is a strip of individually addressable RGB pixels with a single
// shared frame buffer. Writes stage into the buffer; Show pushes it out.
type Ring interface {
	// Len returns the number of pixels on the ring.
	Len() int

	// SetRGB stages one pixel's color.
	SetRGB(i int, r, g, b uint8) error

	// Fill stages every pixel to the same color.
	Fill(r, g, b uint8)

	// Show pushes the staged buffer to the hardware.
	Show(ctx context.Context) error

	// Off clears the buffer and pushes it, powering the ring visually down.
	Off(ctx context.Context) error
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return errors.Errorf("pixel index %d out of range [0, %d)", i, n)
	}
	return nil
}
