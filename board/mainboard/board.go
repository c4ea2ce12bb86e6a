// Package mainboard implements the board facade for the Milky Way main board
// v1.1: two PCA9685 driver chips for the chevron motors and the ring stepper,
// discrete GPIO chevron LEDs, an MCP3002 homing ADC on SPI, and the WS281x
// pixel ring. All physical wiring knowledge lives in this package's tables
// and the installed remap config; callers speak only in chevron numbers.
package mainboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/host/v3"

	"github.com/gatecrafters/gatehw/board"
	"github.com/gatecrafters/gatehw/board/boardcfg"
	"github.com/gatecrafters/gatehw/board/buses"
	"github.com/gatecrafters/gatehw/board/mcp3002"
	"github.com/gatecrafters/gatehw/board/pca9685"
	"github.com/gatecrafters/gatehw/motor"
	"github.com/gatecrafters/gatehw/motor/fake"
	"github.com/gatecrafters/gatehw/pixels"
)

var _ = board.Board(&Mainboard{})

const boardName = "Milky Way Main Board v1.1"

// Fixed physical contract of the v1.1 board. These must match the hardware;
// per-installation differences are expressed in the remap config instead.
const (
	pca1Addr       = 0x66
	pca2Addr       = 0x6F
	pwmFrequencyHz = 1600.0

	stepperMicrosteps = 16

	adcVref       = 3.3
	adcBitRate    = 1_200_000
	adcChipSelect = "1"
	homingChannel = 0

	pixelCount      = 122
	pixelBrightness = 0.61
	pixelChipSelect = "0"

	auxPin            = 17
	calibrationLEDPin = 24
)

// maxCode is the denominator of the homing voltage calibration,
// voltage = Vref * raw / maxCode.
const maxCode = 1 << mcp3002.Resolution

// A motorDef is one chevron motor's wiring: the H-bridge enable channel plus
// the polarity pair, all on one chip.
type motorDef struct {
	chip, enable, pos, neg int
}

// Motor channel wiring for the v1.1 harness, keyed by canonical motor index.
var motorDefs = map[int]motorDef{
	1: {chip: 2, enable: 9, pos: 11, neg: 10},
	2: {chip: 2, enable: 6, pos: 8, neg: 7},
	3: {chip: 2, enable: 3, pos: 5, neg: 4},
	4: {chip: 2, enable: 0, pos: 2, neg: 1},
	5: {chip: 1, enable: 12, pos: 14, neg: 13},
	6: {chip: 1, enable: 5, pos: 3, neg: 4},
	7: {chip: 1, enable: 0, pos: 2, neg: 1},
}

// LED GPIO lines, keyed by LED channel. Chevrons 8 and 9 carry no indicator.
var ledPins = map[int]int{
	1: 22,
	2: 25,
	3: 5,
	4: 19,
	5: 26,
	6: 21,
	7: 20,
}

// Stepper wiring on chip 1.
var stepperDef = struct {
	ain1, ain2, bin1, bin2 int
	enableA, enableB       int
}{
	ain1: 8, ain2: 7, bin1: 9, bin2: 10,
	enableA: 6, enableB: 11,
}

// Peripherals is the bus and pin access handed to the board at construction.
// Tests and simulated installs substitute fakes here; nothing in this package
// reaches for global hardware state.
type Peripherals struct {
	I2C     buses.I2C
	SPI     buses.SPI
	Pixels  pixels.Ring
	OpenPin func(number int) (board.GPIOPin, error)
}

// Mainboard is the v1.1 board facade.
type Mainboard struct {
	cfg    *boardcfg.Config
	logger golog.Logger

	pool    *pca9685.Pool
	sampler *mcp3002.Sampler
	ring    pixels.Ring
	leds    map[int]board.LED
	aux     board.GPIOPin
	calLED  board.LED
	periph  Peripherals

	motorMu sync.Mutex
	motors  map[int]motor.Motor

	stepperMu sync.Mutex
	stepper   motor.Stepper
}

// New builds the board facade over the given peripherals. A bus failure while
// opening the driver chips is fatal: motors cannot be driven without PWM.
func New(ctx context.Context, cfg *boardcfg.Config, periph Peripherals, logger golog.Logger) (*Mainboard, error) {
	if cfg == nil {
		cfg = boardcfg.Default()
	}
	if err := cfg.Validate("board"); err != nil {
		return nil, err
	}

	pool, err := pca9685.NewPool(ctx, periph.I2C, pwmFrequencyHz, logger, pca1Addr, pca2Addr)
	if err != nil {
		return nil, errors.Wrap(err, "initializing driver chips")
	}

	leds := make(map[int]board.LED, len(ledPins))
	for channel, pin := range ledPins {
		p, err := periph.OpenPin(pin)
		if err != nil {
			return nil, errors.Wrapf(err, "opening LED channel %d on GPIO%d", channel, pin)
		}
		leds[channel] = board.NewLED(p)
	}

	aux, err := periph.OpenPin(auxPin)
	if err != nil {
		return nil, errors.Wrap(err, "opening aux line")
	}
	calPin, err := periph.OpenPin(calibrationLEDPin)
	if err != nil {
		return nil, errors.Wrap(err, "opening calibration LED")
	}

	b := &Mainboard{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		sampler: mcp3002.New(periph.SPI, adcChipSelect, adcBitRate, logger),
		ring:    periph.Pixels,
		leds:    leds,
		aux:     aux,
		calLED:  board.NewLED(calPin),
		periph:  periph,
		motors:  map[int]motor.Motor{},
	}

	logger.Infow("hardware detected", "board", boardName)
	return b, nil
}

// NewFromHost opens the real host buses and pins and builds the board. The
// config path may be empty to run with the stock chevron-N-to-channel-N map.
func NewFromHost(ctx context.Context, configPath string, logger golog.Logger) (*Mainboard, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing host drivers")
	}

	cfg := boardcfg.Default()
	if configPath != "" {
		var err error
		cfg, err = boardcfg.Load(configPath, logger)
		if err != nil {
			return nil, err
		}
	}

	i2cBus, err := buses.NewI2CBus("")
	if err != nil {
		return nil, err
	}
	spiBus := buses.NewSPIBus("0")

	periph := Peripherals{
		I2C:     i2cBus,
		SPI:     spiBus,
		Pixels:  pixels.NewWS281xRing(spiBus, pixelChipSelect, pixelCount, pixelBrightness),
		OpenPin: board.NewPeriphPin,
	}
	return New(ctx, cfg, periph, logger)
}

// Name returns the board revision name.
func (b *Mainboard) Name() string { return boardName }

// ChevronLED resolves a chevron number to its indicator LED through the
// remap table.
func (b *Mainboard) ChevronLED(chevron int) (board.LED, error) {
	channel, ok := b.cfg.LEDChannel(chevron)
	if !ok {
		return nil, board.NewConfigurationError(chevron, "led", "no remap entry")
	}
	led, ok := b.leds[channel]
	if !ok {
		return nil, board.NewConfigurationError(chevron, "led",
			fmt.Sprintf("no LED on channel %d", channel))
	}
	return led, nil
}

// ChevronMotor resolves a chevron number to its drive motor, constructing the
// motor on first access. Construction forces the H-bridge enable channel
// fully on exactly once; later calls return the cached handle untouched.
func (b *Mainboard) ChevronMotor(ctx context.Context, chevron int) (motor.Motor, error) {
	channel, ok := b.cfg.MotorChannel(chevron)
	if !ok {
		return nil, board.NewConfigurationError(chevron, "motor", "no remap entry")
	}

	b.motorMu.Lock()
	defer b.motorMu.Unlock()

	if m, ok := b.motors[channel]; ok {
		return m, nil
	}

	def, ok := motorDefs[channel]
	if !ok {
		return nil, board.NewConfigurationError(chevron, "motor",
			fmt.Sprintf("no motor on channel %d", channel))
	}

	if !b.cfg.ChevronMotorsEnabled() {
		m := fake.NewMotor(fmt.Sprintf("motor%d", channel), b.logger)
		b.motors[channel] = m
		return m, nil
	}

	enable, err := b.pool.Channel(def.chip, def.enable)
	if err != nil {
		return nil, err
	}
	pos, err := b.pool.Channel(def.chip, def.pos)
	if err != nil {
		return nil, err
	}
	neg, err := b.pool.Channel(def.chip, def.neg)
	if err != nil {
		return nil, err
	}

	// The enable line is an always-on gate; speed and direction run entirely
	// through the polarity pair. Only cache once this write has landed, so a
	// failed construction is retried rather than half-finished.
	if err := enable.SetDutyCycle(ctx, 0xFFFF); err != nil {
		return nil, err
	}

	m := motor.NewDCMotor(pos, neg, b.logger)
	b.motors[channel] = m
	return m, nil
}

// Stepper returns the ring stepper, constructing it on first access. With
// stepper hardware disabled by configuration, a simulated handle with the
// same contract is returned and no channel is ever touched.
func (b *Mainboard) Stepper(ctx context.Context) (motor.Stepper, error) {
	b.stepperMu.Lock()
	defer b.stepperMu.Unlock()

	if b.stepper != nil {
		return b.stepper, nil
	}

	if !b.cfg.StepperEnabled() {
		b.stepper = fake.NewStepper(b.logger)
		return b.stepper, nil
	}

	enableA, err := b.pool.Channel(1, stepperDef.enableA)
	if err != nil {
		return nil, err
	}
	enableB, err := b.pool.Channel(1, stepperDef.enableB)
	if err != nil {
		return nil, err
	}
	if err := multierr.Combine(
		enableA.SetDutyCycle(ctx, 0xFFFF),
		enableB.SetDutyCycle(ctx, 0xFFFF),
	); err != nil {
		return nil, err
	}

	ain1, err := b.pool.Channel(1, stepperDef.ain1)
	if err != nil {
		return nil, err
	}
	ain2, err := b.pool.Channel(1, stepperDef.ain2)
	if err != nil {
		return nil, err
	}
	bin1, err := b.pool.Channel(1, stepperDef.bin1)
	if err != nil {
		return nil, err
	}
	bin2, err := b.pool.Channel(1, stepperDef.bin2)
	if err != nil {
		return nil, err
	}

	s, err := motor.NewStepper(ain1, ain2, bin1, bin2,
		motor.StepperConfig{Microsteps: stepperMicrosteps}, b.logger)
	if err != nil {
		return nil, err
	}
	b.stepper = s
	return s, nil
}

// DriveMode resolves a stepper drive-mode name, falling back to double for
// unknown names.
func (b *Mainboard) DriveMode(name string) motor.DriveMode {
	return motor.DriveModeByName(name, b.logger)
}

// HomingSupported reports whether the homing sensor is calibrated for this
// installation.
func (b *Mainboard) HomingSupported() bool {
	return b.cfg.HomingEnabled()
}

// HomingVoltage samples the homing sensor and applies the calibration
// voltage = Vref * raw / maxCode.
func (b *Mainboard) HomingVoltage(ctx context.Context) (float64, error) {
	raw, err := b.sampler.Read(ctx, homingChannel)
	if err != nil {
		return 0, err
	}
	return adcVref * float64(raw) / float64(maxCode), nil
}

// Pixels returns the wormhole pixel ring.
func (b *Mainboard) Pixels() pixels.Ring { return b.ring }

// Aux returns the auxiliary GPIO line.
func (b *Mainboard) Aux() board.GPIOPin { return b.aux }

// CalibrationLED returns the calibration indicator.
func (b *Mainboard) CalibrationLED() board.LED { return b.calLED }

// Close powers the ring down, releases the stepper if one was built, and
// closes the bus connections.
func (b *Mainboard) Close(ctx context.Context) error {
	var errs error

	if b.ring != nil {
		errs = multierr.Combine(errs, b.ring.Off(ctx))
	}

	b.stepperMu.Lock()
	if b.stepper != nil {
		errs = multierr.Combine(errs, b.stepper.Release(ctx))
	}
	b.stepperMu.Unlock()

	if b.periph.SPI != nil {
		errs = multierr.Combine(errs, b.periph.SPI.Close(ctx))
	}
	if b.periph.I2C != nil {
		errs = multierr.Combine(errs, b.periph.I2C.Close(ctx))
	}
	return errs
}
