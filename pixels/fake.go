package pixels

import (
	"context"
	"sync"
)

// FakeRing is an in-memory ring for tests and simulated hardware.
type FakeRing struct {
	mu        sync.Mutex
	buf       []byte // RGB triplets
	showCount int
}

// NewFakeRing returns a fake ring of n pixels.
func NewFakeRing(n int) *FakeRing {
	return &FakeRing{buf: make([]byte, 3*n)}
}

// Len returns the pixel count.
func (f *FakeRing) Len() int { return len(f.buf) / 3 }

// SetRGB stages one pixel.
func (f *FakeRing) SetRGB(i int, r, g, b uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := checkIndex(i, len(f.buf)/3); err != nil {
		return err
	}
	f.buf[3*i] = r
	f.buf[3*i+1] = g
	f.buf[3*i+2] = b
	return nil
}

// Fill stages every pixel.
func (f *FakeRing) Fill(r, g, b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < len(f.buf); i += 3 {
		f.buf[i] = r
		f.buf[i+1] = g
		f.buf[i+2] = b
	}
}

// Show counts the frame push.
func (f *FakeRing) Show(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showCount++
	return nil
}

// Off clears and pushes.
func (f *FakeRing) Off(ctx context.Context) error {
	f.Fill(0, 0, 0)
	return f.Show(ctx)
}

// ShowCount returns how many frames have been pushed.
func (f *FakeRing) ShowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.showCount
}

// RGB returns the staged color of one pixel.
func (f *FakeRing) RGB(i int) (r, g, b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf[3*i], f.buf[3*i+1], f.buf[3*i+2]
}
