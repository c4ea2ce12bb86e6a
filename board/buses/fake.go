package buses

import (
	"context"
	"sync"
)

// An I2CWrite is one recorded fake-bus write transaction.
type I2CWrite struct {
	Addr uint16
	Data []byte
}

// FakeI2C is an in-memory I2C bus recording every transaction, for tests and
// simulated installs.
type FakeI2C struct {
	mu     sync.Mutex
	writes []I2CWrite

	// ReadFunc, when set, fills the read buffer of a transaction.
	ReadFunc func(addr uint16, w, r []byte)
}

// NewFakeI2C returns an empty fake bus.
func NewFakeI2C() *FakeI2C {
	return &FakeI2C{}
}

// Tx records the write half and zero-fills (or scripts) the read half.
func (f *FakeI2C) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(w) > 0 {
		data := make([]byte, len(w))
		copy(data, w)
		f.writes = append(f.writes, I2CWrite{Addr: addr, Data: data})
	}
	for i := range r {
		r[i] = 0
	}
	if f.ReadFunc != nil {
		f.ReadFunc(addr, w, r)
	}
	return nil
}

// Close is a no-op.
func (f *FakeI2C) Close(ctx context.Context) error { return nil }

// Writes returns all recorded write transactions.
func (f *FakeI2C) Writes() []I2CWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]I2CWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

// WritesToRegister counts writes addressed to one register of one device.
func (f *FakeI2C) WritesToRegister(addr uint16, reg byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if w.Addr == addr && len(w.Data) > 0 && w.Data[0] == reg {
			n++
		}
	}
	return n
}

// WriteCount returns the total number of recorded writes.
func (f *FakeI2C) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// An SPITransfer is one recorded fake-bus exchange.
type SPITransfer struct {
	Baud       uint
	ChipSelect string
	Mode       uint
	Tx         []byte
}

// FakeSPI is an in-memory SPI bus recording every exchange.
type FakeSPI struct {
	mu        sync.Mutex
	transfers []SPITransfer

	// ReplyFunc, when set, produces the rx bytes for an exchange; otherwise
	// replies are zero-filled to the tx length.
	ReplyFunc func(tx []byte) []byte
}

// NewFakeSPI returns an empty fake bus.
func NewFakeSPI() *FakeSPI {
	return &FakeSPI{}
}

// OpenHandle locks the bus like the real implementation does.
func (f *FakeSPI) OpenHandle() (SPIHandle, error) {
	f.mu.Lock()
	return &fakeSPIHandle{bus: f}, nil
}

// Close is a no-op.
func (f *FakeSPI) Close(ctx context.Context) error { return nil }

// Transfers returns all recorded exchanges.
func (f *FakeSPI) Transfers() []SPITransfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SPITransfer, len(f.transfers))
	copy(out, f.transfers)
	return out
}

// TransferCount returns the number of recorded exchanges.
func (f *FakeSPI) TransferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

type fakeSPIHandle struct {
	bus      *FakeSPI
	isClosed bool
}

func (h *fakeSPIHandle) Xfer(ctx context.Context, baud uint, chipSelect string, mode uint, tx []byte) ([]byte, error) {
	txCopy := make([]byte, len(tx))
	copy(txCopy, tx)
	h.bus.transfers = append(h.bus.transfers, SPITransfer{
		Baud: baud, ChipSelect: chipSelect, Mode: mode, Tx: txCopy,
	})
	if h.bus.ReplyFunc != nil {
		return h.bus.ReplyFunc(tx), nil
	}
	return make([]byte, len(tx)), nil
}

func (h *fakeSPIHandle) Close() error {
	h.isClosed = true
	h.bus.mu.Unlock()
	return nil
}
