// Package boardcfg loads the per-installation board configuration: the
// chevron remap table plus the hardware enable flags. The remap table is the
// only place physical wiring knowledge lives outside the driver-chip pool, so
// supporting a new wiring harness means editing one file, not code.
package boardcfg

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Config keys for the hardware enable flags.
const (
	stepperEnableKey       = "stepper_motor_enable"
	chevronMotorsEnableKey = "chevron_motors_enable"

	// TODO: flip the default once the homing sensor calibration lands.
	homingEnableKey = "homing_enable"
)

// An AttributeMap is a loosely typed view of the decoded config file.
type AttributeMap map[string]interface{}

// Has returns whether the key is present.
func (m AttributeMap) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Int returns the named value as an int, or def when absent or non-numeric.
func (m AttributeMap) Int(name string, def int) int {
	v, ok := m[name]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		return x
	case float64: // encoding/json decodes all numbers to float64
		return int(x)
	default:
		return def
	}
}

// Bool returns the named value as a bool, or def when absent or mistyped.
func (m AttributeMap) Bool(name string, def bool) bool {
	v, ok := m[name]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Config is the merged board configuration for one installation.
type Config struct {
	Attributes AttributeMap
}

// Default returns the stock configuration: chevron N maps to channel N, all
// motor hardware enabled, homing disabled pending sensor calibration.
func Default() *Config {
	attrs := AttributeMap{
		stepperEnableKey:       true,
		chevronMotorsEnableKey: true,
		homingEnableKey:        false,
	}
	for n := 1; n <= 7; n++ {
		attrs[ledChannelKey(n)] = n
		attrs[motorChannelKey(n)] = n
	}
	return &Config{Attributes: attrs}
}

// Load reads the board config file and merges it over the defaults, so a
// partial file only has to name the entries it changes.
func Load(path string, logger golog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read board config %s", path)
	}
	var fileAttrs AttributeMap
	if err := json.Unmarshal(data, &fileAttrs); err != nil {
		return nil, errors.Wrapf(err, "cannot parse board config %s", path)
	}

	cfg := Default()
	for k, v := range fileAttrs {
		cfg.Attributes[k] = v
	}
	logger.Debugw("board config loaded", "path", path, "entries", len(fileAttrs))
	return cfg, nil
}

// Validate ensures the remap entries that are present are well typed.
func (c *Config) Validate(path string) error {
	if c.Attributes == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "attributes")
	}
	for n := 1; n <= 9; n++ {
		for _, key := range []string{ledChannelKey(n), motorChannelKey(n)} {
			v, ok := c.Attributes[key]
			if !ok {
				continue
			}
			switch v.(type) {
			case int, float64:
			default:
				return goutils.NewConfigValidationError(path,
					errors.Errorf("%s must be an integer channel number", key))
			}
		}
	}
	return nil
}

// LEDChannel returns the physical LED channel for a chevron, if remapped.
func (c *Config) LEDChannel(chevron int) (int, bool) {
	key := ledChannelKey(chevron)
	if !c.Attributes.Has(key) {
		return 0, false
	}
	return c.Attributes.Int(key, 0), true
}

// MotorChannel returns the physical motor channel for a chevron, if remapped.
func (c *Config) MotorChannel(chevron int) (int, bool) {
	key := motorChannelKey(chevron)
	if !c.Attributes.Has(key) {
		return 0, false
	}
	return c.Attributes.Int(key, 0), true
}

// StepperEnabled reports whether real stepper hardware should be driven.
func (c *Config) StepperEnabled() bool {
	return c.Attributes.Bool(stepperEnableKey, true)
}

// ChevronMotorsEnabled reports whether real chevron motors should be driven.
func (c *Config) ChevronMotorsEnabled() bool {
	return c.Attributes.Bool(chevronMotorsEnableKey, true)
}

// HomingEnabled reports whether the homing sensor is calibrated and usable.
func (c *Config) HomingEnabled() bool {
	return c.Attributes.Bool(homingEnableKey, false)
}

func ledChannelKey(n int) string   { return fmt.Sprintf("chevron_%d_led_channel", n) }
func motorChannelKey(n int) string { return fmt.Sprintf("chevron_%d_motor_channel", n) }
