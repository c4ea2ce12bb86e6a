package motor

import (
	"context"
	"sync"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

type fakeChannel struct {
	mu     sync.Mutex
	duties []uint16
}

func (c *fakeChannel) SetDutyCycle(ctx context.Context, duty uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duties = append(c.duties, duty)
	return nil
}

func (c *fakeChannel) last() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.duties) == 0 {
		return 0
	}
	return c.duties[len(c.duties)-1]
}

func (c *fakeChannel) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.duties)
}

func TestDriveModeByName(t *testing.T) {
	logger := golog.NewTestLogger(t)

	modes := map[string]DriveMode{
		"double":     Double,
		"single":     Single,
		"interleave": Interleave,
		"microstep":  Microstep,
	}
	seen := map[DriveMode]bool{}
	for name, want := range modes {
		got := DriveModeByName(name, logger)
		test.That(t, got, test.ShouldEqual, want)
		test.That(t, seen[got], test.ShouldBeFalse)
		seen[got] = true
	}

	// Unknown names degrade smoothness, not safety: fall back to double.
	test.That(t, DriveModeByName("bogus", logger), test.ShouldEqual, Double)
	test.That(t, DriveModeByName("", logger), test.ShouldEqual, Double)
}

func TestDCMotorGo(t *testing.T) {
	ctx := context.Background()
	logger := golog.NewTestLogger(t)
	pos := &fakeChannel{}
	neg := &fakeChannel{}
	m := NewDCMotor(pos, neg, logger)

	test.That(t, m.Go(ctx, Forward, 1.0), test.ShouldBeNil)
	test.That(t, pos.last(), test.ShouldEqual, uint16(0xFFFF))
	test.That(t, neg.last(), test.ShouldEqual, uint16(0))

	on, err := m.IsOn(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, on, test.ShouldBeTrue)

	test.That(t, m.Go(ctx, Backward, 0.5), test.ShouldBeNil)
	test.That(t, pos.last(), test.ShouldEqual, uint16(0))
	test.That(t, neg.last(), test.ShouldEqual, uint16(32767)) // 0.5 * 0xFFFF, truncated

	// Power above full scale clamps.
	test.That(t, m.Go(ctx, Forward, 2.0), test.ShouldBeNil)
	test.That(t, pos.last(), test.ShouldEqual, uint16(0xFFFF))

	test.That(t, m.Stop(ctx), test.ShouldBeNil)
	test.That(t, pos.last(), test.ShouldEqual, uint16(0))
	test.That(t, neg.last(), test.ShouldEqual, uint16(0))
	on, err = m.IsOn(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, on, test.ShouldBeFalse)
}

func TestDCMotorNeedsDirection(t *testing.T) {
	ctx := context.Background()
	logger := golog.NewTestLogger(t)
	pos := &fakeChannel{}
	neg := &fakeChannel{}
	m := NewDCMotor(pos, neg, logger)

	test.That(t, m.Go(ctx, DirectionUnspecified, 0.5), test.ShouldNotBeNil)

	// Zero power is a stop, not an error.
	test.That(t, m.Go(ctx, DirectionUnspecified, 0), test.ShouldBeNil)
}
