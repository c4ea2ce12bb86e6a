package mainboard

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/gatecrafters/gatehw/board"
	"github.com/gatecrafters/gatehw/board/boardcfg"
	"github.com/gatecrafters/gatehw/board/buses"
	"github.com/gatecrafters/gatehw/motor"
	"github.com/gatecrafters/gatehw/motor/fake"
	"github.com/gatecrafters/gatehw/pixels"
)

// PCA9685 channel N's first register is 0x06 + 4*N.
func channelReg(n int) byte { return byte(0x06 + 4*n) }

type testHarness struct {
	board *Mainboard
	i2c   *buses.FakeI2C
	spi   *buses.FakeSPI
	ring  *pixels.FakeRing
	pins  map[int]*board.FakePin
}

func newTestBoard(t *testing.T, cfg *boardcfg.Config) *testHarness {
	t.Helper()
	logger := golog.NewTestLogger(t)

	h := &testHarness{
		i2c:  buses.NewFakeI2C(),
		spi:  buses.NewFakeSPI(),
		ring: pixels.NewFakeRing(122),
		pins: map[int]*board.FakePin{},
	}
	periph := Peripherals{
		I2C:    h.i2c,
		SPI:    h.spi,
		Pixels: h.ring,
		OpenPin: func(number int) (board.GPIOPin, error) {
			p := board.NewFakePin(number)
			h.pins[number] = p
			return p, nil
		},
	}

	b, err := New(context.Background(), cfg, periph, logger)
	test.That(t, err, test.ShouldBeNil)
	h.board = b
	return h
}

func TestName(t *testing.T) {
	h := newTestBoard(t, nil)
	test.That(t, h.board.Name(), test.ShouldEqual, "Milky Way Main Board v1.1")
}

func TestChevronLED(t *testing.T) {
	ctx := context.Background()
	h := newTestBoard(t, nil)

	// Chevron 3 maps to LED channel 3 on GPIO5 in the stock layout.
	led, err := h.board.ChevronLED(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, led.On(ctx), test.ShouldBeNil)
	high, err := h.pins[5].Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)

	test.That(t, led.Off(ctx), test.ShouldBeNil)
	high, err = h.pins[5].Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeFalse)
}

func TestChevronLEDUnmapped(t *testing.T) {
	h := newTestBoard(t, nil)

	// Chevrons 8 and 9 have no indicator on this harness.
	for _, chevron := range []int{8, 9} {
		_, err := h.board.ChevronLED(chevron)
		var cfgErr *board.ConfigurationError
		test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
		test.That(t, cfgErr.Chevron, test.ShouldEqual, chevron)
		test.That(t, cfgErr.Role, test.ShouldEqual, "led")
	}
}

func TestChevronLEDDanglingRemap(t *testing.T) {
	cfg := boardcfg.Default()
	cfg.Attributes["chevron_1_led_channel"] = 99
	h := newTestBoard(t, cfg)

	_, err := h.board.ChevronLED(1)
	var cfgErr *board.ConfigurationError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
}

func TestChevronMotorCaching(t *testing.T) {
	ctx := context.Background()
	h := newTestBoard(t, nil)

	// Chevron 3 maps to motor channel 3: chip 2 (0x6F), enable channel 3.
	m1, err := h.board.ChevronMotor(ctx, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.i2c.WritesToRegister(0x6F, channelReg(3)), test.ShouldEqual, 1)

	m2, err := h.board.ChevronMotor(ctx, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m2, test.ShouldEqual, m1)
	test.That(t, h.i2c.WritesToRegister(0x6F, channelReg(3)), test.ShouldEqual, 1)

	// Driving the motor touches only the polarity pair (channels 5 and 4).
	test.That(t, m1.Go(ctx, motor.Forward, 1.0), test.ShouldBeNil)
	test.That(t, h.i2c.WritesToRegister(0x6F, channelReg(5)), test.ShouldEqual, 1)
	test.That(t, h.i2c.WritesToRegister(0x6F, channelReg(4)), test.ShouldEqual, 1)
	test.That(t, h.i2c.WritesToRegister(0x6F, channelReg(3)), test.ShouldEqual, 1)
}

func TestChevronMotorRemap(t *testing.T) {
	ctx := context.Background()
	cfg := boardcfg.Default()
	cfg.Attributes["chevron_1_motor_channel"] = 5
	h := newTestBoard(t, cfg)

	// Motor channel 5 lives on chip 1 (0x66) with enable channel 12.
	_, err := h.board.ChevronMotor(ctx, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.i2c.WritesToRegister(0x66, channelReg(12)), test.ShouldEqual, 1)
}

func TestChevronMotorSharedChannel(t *testing.T) {
	ctx := context.Background()
	cfg := boardcfg.Default()
	cfg.Attributes["chevron_2_motor_channel"] = 3
	h := newTestBoard(t, cfg)

	// Two chevrons remapped onto one channel share the cached handle.
	m1, err := h.board.ChevronMotor(ctx, 2)
	test.That(t, err, test.ShouldBeNil)
	m2, err := h.board.ChevronMotor(ctx, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m2, test.ShouldEqual, m1)
	test.That(t, h.i2c.WritesToRegister(0x6F, channelReg(3)), test.ShouldEqual, 1)
}

func TestChevronMotorErrors(t *testing.T) {
	ctx := context.Background()
	cfg := boardcfg.Default()
	cfg.Attributes["chevron_4_motor_channel"] = 42
	h := newTestBoard(t, cfg)
	baseline := h.i2c.WriteCount()

	// No remap entry.
	for _, chevron := range []int{8, 9} {
		_, err := h.board.ChevronMotor(ctx, chevron)
		var cfgErr *board.ConfigurationError
		test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
		test.That(t, cfgErr.Role, test.ShouldEqual, "motor")
	}

	// Remap points at a channel with no motor behind it.
	_, err := h.board.ChevronMotor(ctx, 4)
	var cfgErr *board.ConfigurationError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)

	// None of the failures may reach the bus.
	test.That(t, h.i2c.WriteCount(), test.ShouldEqual, baseline)
}

func TestChevronMotorsDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := boardcfg.Default()
	cfg.Attributes["chevron_motors_enable"] = false
	h := newTestBoard(t, cfg)
	baseline := h.i2c.WriteCount()

	m, err := h.board.ChevronMotor(ctx, 1)
	test.That(t, err, test.ShouldBeNil)
	_, isFake := m.(*fake.Motor)
	test.That(t, isFake, test.ShouldBeTrue)

	test.That(t, m.Go(ctx, motor.Forward, 1.0), test.ShouldBeNil)
	test.That(t, h.i2c.WriteCount(), test.ShouldEqual, baseline)
}

func TestStepper(t *testing.T) {
	ctx := context.Background()
	h := newTestBoard(t, nil)

	s1, err := h.board.Stepper(ctx)
	test.That(t, err, test.ShouldBeNil)

	// Both H-bridge enables on chip 1 (channels 6 and 11) forced on once.
	test.That(t, h.i2c.WritesToRegister(0x66, channelReg(6)), test.ShouldEqual, 1)
	test.That(t, h.i2c.WritesToRegister(0x66, channelReg(11)), test.ShouldEqual, 1)

	s2, err := h.board.Stepper(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s2, test.ShouldEqual, s1)
	test.That(t, h.i2c.WritesToRegister(0x66, channelReg(6)), test.ShouldEqual, 1)
	test.That(t, h.i2c.WritesToRegister(0x66, channelReg(11)), test.ShouldEqual, 1)

	// Stepping drives the four coil channels, never the enables.
	baseline6 := h.i2c.WritesToRegister(0x66, channelReg(6))
	test.That(t, s1.OneStep(ctx, motor.Forward, motor.Double), test.ShouldBeNil)
	for _, coil := range []int{7, 8, 9, 10} {
		test.That(t, h.i2c.WritesToRegister(0x66, channelReg(coil)), test.ShouldEqual, 1)
	}
	test.That(t, h.i2c.WritesToRegister(0x66, channelReg(6)), test.ShouldEqual, baseline6)
}

func TestStepperDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := boardcfg.Default()
	cfg.Attributes["stepper_motor_enable"] = false
	h := newTestBoard(t, cfg)
	baseline := h.i2c.WriteCount()

	s1, err := h.board.Stepper(ctx)
	test.That(t, err, test.ShouldBeNil)
	fs, isFake := s1.(*fake.Stepper)
	test.That(t, isFake, test.ShouldBeTrue)

	s2, err := h.board.Stepper(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s2, test.ShouldEqual, s1)

	// The simulated stepper tracks position but never reaches the bus.
	test.That(t, s1.Step(ctx, 100, motor.Forward, motor.Double), test.ShouldBeNil)
	test.That(t, fs.Position(), test.ShouldEqual, 100)
	test.That(t, h.i2c.WriteCount(), test.ShouldEqual, baseline)
}

func TestDriveMode(t *testing.T) {
	h := newTestBoard(t, nil)
	test.That(t, h.board.DriveMode("microstep"), test.ShouldEqual, motor.Microstep)
	test.That(t, h.board.DriveMode("interleave"), test.ShouldEqual, motor.Interleave)
	test.That(t, h.board.DriveMode("junk"), test.ShouldEqual, motor.Double)
}

func TestHomingSupported(t *testing.T) {
	h := newTestBoard(t, nil)
	test.That(t, h.board.HomingSupported(), test.ShouldBeFalse)

	cfg := boardcfg.Default()
	cfg.Attributes["homing_enable"] = true
	h = newTestBoard(t, cfg)
	test.That(t, h.board.HomingSupported(), test.ShouldBeTrue)
}

func TestHomingVoltage(t *testing.T) {
	ctx := context.Background()
	h := newTestBoard(t, nil)
	h.spi.ReplyFunc = func(tx []byte) []byte {
		return []byte{0x01, 0x80}
	}

	v, err := h.board.HomingVoltage(ctx)
	test.That(t, err, test.ShouldBeNil)

	// Raw code 192 of 1024 at a 3.3V reference.
	test.That(t, v, test.ShouldAlmostEqual, 3.3*192.0/1024.0)

	// The sampler reads sensor channel 0 on chip select 1.
	transfers := h.spi.Transfers()
	test.That(t, transfers, test.ShouldHaveLength, 1)
	test.That(t, transfers[0].ChipSelect, test.ShouldEqual, "1")
	test.That(t, transfers[0].Tx, test.ShouldResemble, []byte{0b11000000, 0x00})
}

func TestAuxAndCalibrationLED(t *testing.T) {
	ctx := context.Background()
	h := newTestBoard(t, nil)

	test.That(t, h.board.Aux().Set(ctx, true), test.ShouldBeNil)
	high, err := h.pins[17].Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)

	test.That(t, h.board.CalibrationLED().On(ctx), test.ShouldBeNil)
	high, err = h.pins[24].Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, high, test.ShouldBeTrue)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	h := newTestBoard(t, nil)

	_, err := h.board.Stepper(ctx)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, h.board.Close(ctx), test.ShouldBeNil)

	// The ring is blanked and the stepper coils released on the way down.
	test.That(t, h.ring.ShowCount(), test.ShouldBeGreaterThanOrEqualTo, 1)
	for _, coil := range []int{7, 8, 9, 10} {
		test.That(t, h.i2c.WritesToRegister(0x66, channelReg(coil)), test.ShouldEqual, 1)
	}
}
