package pixels

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/gatecrafters/gatehw/board/buses"
)

// WS281x strips sample their data line at 800 kHz. Running the SPI clock at
// three times that rate lets each data bit be expressed as three SPI bits:
// 0b110 for a one, 0b100 for a zero.
const (
	ws281xBaud = 2_400_000

	// Holding the line low for >50us latches the frame; at 2.4MHz each zero
	// byte is ~3.3us.
	latchBytes = 16
)

type ws281xRing struct {
	mu         sync.Mutex
	spi        buses.SPI
	chipSelect string
	brightness float64
	buf        []byte // GRB, one triplet per pixel
}

// NewWS281xRing returns a ring of n pixels on the given SPI bus. Brightness
// scales every channel at Show time, 0..1.
func NewWS281xRing(spi buses.SPI, chipSelect string, n int, brightness float64) Ring {
	if brightness <= 0 || brightness > 1 {
		brightness = 1
	}
	return &ws281xRing{
		spi:        spi,
		chipSelect: chipSelect,
		brightness: brightness,
		buf:        make([]byte, 3*n),
	}
}

func (w *ws281xRing) Len() int { return len(w.buf) / 3 }

func (w *ws281xRing) SetRGB(i int, r, g, b uint8) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := checkIndex(i, len(w.buf)/3); err != nil {
		return err
	}
	w.buf[3*i] = g
	w.buf[3*i+1] = r
	w.buf[3*i+2] = b
	return nil
}

func (w *ws281xRing) Fill(r, g, b uint8) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < len(w.buf); i += 3 {
		w.buf[i] = g
		w.buf[i+1] = r
		w.buf[i+2] = b
	}
}

func (w *ws281xRing) Show(ctx context.Context) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx := make([]byte, 0, 3*len(w.buf)+latchBytes)
	for _, b := range w.buf {
		scaled := uint8(float64(b) * w.brightness)
		enc := encodeByte(scaled)
		tx = append(tx, enc[:]...)
	}
	tx = append(tx, make([]byte, latchBytes)...)

	handle, err := w.spi.OpenHandle()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, handle.Close())
	}()
	_, err = handle.Xfer(ctx, ws281xBaud, w.chipSelect, 0, tx)
	return err
}

func (w *ws281xRing) Off(ctx context.Context) error {
	w.Fill(0, 0, 0)
	return w.Show(ctx)
}

// encodeByte expands one data byte into its 24-bit SPI representation,
// MSB first.
func encodeByte(b uint8) [3]byte {
	var out [3]byte
	pos := 0
	for bit := 7; bit >= 0; bit-- {
		var sym byte = 0b100
		if b&(1<<bit) != 0 {
			sym = 0b110
		}
		for s := 2; s >= 0; s-- {
			if sym&(1<<s) != 0 {
				out[pos/8] |= 1 << (7 - pos%8)
			}
			pos++
		}
	}
	return out
}
