package driver

import (
	"errors"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

type DriverTypeEnum string

var (
	DriverTypeNull      DriverTypeEnum = "null"
	DriverTypeSimulated DriverTypeEnum = "simulated"
	DriverTypeWAV       DriverTypeEnum = "wav"
	DriverTypeSerial    DriverTypeEnum = "serial"
	DriverTypeOto       DriverTypeEnum = "oto"
)

var (
	errDriverTypeNotImplemented = errors.New("specified driver type is not implemented")
	errMissingWAVPath           = errors.New("wav driver requires an output file path")
)

// Settings for whichever driver NewDriver builds. Fields unrelated to the
// chosen driver are ignored.
type Options struct {
	// Destination file of the wav driver.
	WAVPath string

	// Port settings of the serial driver.
	Serial PortOptions

	// Drain the simulated DMA ring in real time. When false the ring is
	// only drained by explicit calls to SimulatedDriver.DrainOne.
	Realtime bool

	// Called by the simulated driver with every drained DMA buffer.
	Observer func(frames []frame.Frame)
}

// All driver types NewDriver understands.
func Types() []DriverTypeEnum {
	return []DriverTypeEnum{
		DriverTypeNull,
		DriverTypeSimulated,
		DriverTypeWAV,
		DriverTypeSerial,
		DriverTypeOto,
	}
}

// Create a new, not yet installed, driver of the given type.
// If the type has no implementation a nil Driver and an error is returned.
func NewDriver(driverType DriverTypeEnum, options Options) (peripheral.Driver, error) {
	switch driverType {
	case DriverTypeNull:
		return NewNullDriver(), nil
	case DriverTypeSimulated:
		return NewSimulatedDriver(options.Realtime, options.Observer), nil
	case DriverTypeWAV:
		if options.WAVPath == "" {
			return nil, errMissingWAVPath
		}
		return NewWAVDriver(options.WAVPath), nil
	case DriverTypeSerial:
		return NewSerialDriver(options.Serial, nil), nil
	case DriverTypeOto:
		return NewOtoDriver(), nil
	default:
		return nil, errDriverTypeNotImplemented
	}
}
