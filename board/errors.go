package board

import (
	"fmt"

	"github.com/pkg/errors"
)

// An AddressingError indicates a request for a driver-chip channel that does
// not exist. It is never remapped or retried: an invalid channel could alias
// one that is already claimed by another motor.
type AddressingError struct {
	Chip    int
	Channel int
}

func (e *AddressingError) Error() string {
	return fmt.Sprintf("no channel %d on driver chip %d", e.Channel, e.Chip)
}

// NewAddressingError returns an error for an out-of-range chip or channel index.
func NewAddressingError(chip, channel int) error {
	return &AddressingError{Chip: chip, Channel: channel}
}

// A ConfigurationError indicates a logical chevron lookup that the installed
// remap table cannot satisfy. It is fatal to that single lookup only; other
// chevrons remain usable.
type ConfigurationError struct {
	Chevron int
	Role    string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("chevron %d has no usable %s mapping: %s", e.Chevron, e.Role, e.Reason)
}

// NewConfigurationError returns an error for a chevron with a missing or
// dangling remap entry for the given role.
func NewConfigurationError(chevron int, role, reason string) error {
	return &ConfigurationError{Chevron: chevron, Role: role, Reason: reason}
}

// A BusError wraps an underlying I2C/SPI transaction failure. At
// initialization it aborts startup; on a runtime sample it is surfaced to the
// caller, which owns any retry policy.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus failure during %s: %s", e.Op, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// NewBusError wraps err as a bus-level failure of the named operation.
func NewBusError(op string, err error) error {
	if err == nil {
		err = errors.New("unknown bus failure")
	}
	return &BusError{Op: op, Err: err}
}

// An InvalidChannelError indicates an ADC channel selector outside the chip's
// input range. This is a programming error: it must be caught before any
// frame is clocked onto the bus.
type InvalidChannelError struct {
	Channel int
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("adc channel must be 0 or 1, got %d", e.Channel)
}

// NewInvalidChannelError returns an error for an out-of-range ADC channel.
func NewInvalidChannelError(channel int) error {
	return &InvalidChannelError{Channel: channel}
}
