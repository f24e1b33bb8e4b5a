package peripheral

import (
	"errors"
	"time"
)

// Passing WaitForever as maxWait to Driver.Write blocks until the
// peripheral accepts at least one byte.
const WaitForever time.Duration = -1

var (
	ErrNotInstalled     = errors.New("peripheral driver not installed")
	ErrAlreadyInstalled = errors.New("peripheral driver already installed")
)

// Interface for the audio output peripheral, e.g. an I2S controller with its DMA ring.
//
// A driver is installed once with a Config, written to repeatedly, and uninstalled once.
type Driver interface {
	// Configure the peripheral and allocate its transmit buffers.
	// A second Install without an Uninstall in between returns ErrAlreadyInstalled.
	Install(config Config) error

	// Stop the peripheral and free its buffers.
	// Returns ErrNotInstalled if nothing is installed.
	Uninstall() error

	// Copy as much of p as fits into the transmit buffer, returning the number of bytes accepted.
	//
	// Fewer than len(p) bytes may be accepted; the caller must write the remainder again.
	// maxWait bounds how long the call may block for buffer space:
	// 0 never blocks, WaitForever blocks until some space is available.
	Write(p []byte, maxWait time.Duration) (int, error)
}

// Which of the built in DAC channels are driven from the transmit path.
type DACMode int

const (
	DACDisabled DACMode = iota
	DACRightEnabled
	DACLeftEnabled
	DACBothEnabled
)

func (m DACMode) String() string {
	switch m {
	case DACDisabled:
		return "disabled"
	case DACRightEnabled:
		return "right"
	case DACLeftEnabled:
		return "left"
	case DACBothEnabled:
		return "both"
	default:
		return "unknown"
	}
}

// Optional interface for drivers whose peripheral routes output through a built in DAC.
type DACConfigurer interface {
	SetDACMode(mode DACMode) error
}
