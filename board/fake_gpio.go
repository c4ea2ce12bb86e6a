package board

import (
	"context"
	"sync"
)

// FakePin is an in-memory GPIO line for tests and simulated installs.
type FakePin struct {
	mu       sync.Mutex
	Number   int
	high     bool
	setCount int
}

// NewFakePin returns a fake line with the given pin number.
func NewFakePin(number int) *FakePin {
	return &FakePin{Number: number}
}

// Set records the driven state.
func (p *FakePin) Set(ctx context.Context, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.high = high
	p.setCount++
	return nil
}

// Get returns the recorded state.
func (p *FakePin) Get(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high, nil
}

// SetCount returns how many times the line has been driven.
func (p *FakePin) SetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setCount
}
