package driver

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

// The minimal view of a serial port the driver writes through.
// This abstraction enables unit testing without real serial hardware.
type Port interface {
	io.Writer
	io.Closer
}

// Function type for opening serial ports, replaceable in tests.
type PortOpener func(path string, mode *serial.Mode) (Port, error)

func openSerialPort(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// Fast enough for 44.1 kHz 16-bit stereo with 8N1 framing.
const DefaultBaudRate = 2000000

// Serial line settings of a UART attached codec.
type PortOptions struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Validate the options and apply defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if strings.TrimSpace(opts.Path) == "" {
		return opts, fmt.Errorf("serial port path must be set")
	}

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// Convert the options into the serial.Mode go.bug.st/serial opens a port with.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// SerialDriver streams raw frame bytes over a UART to an external codec.
//
// The line must be fast enough to carry the configured sample rate
// (SampleRate * 4 bytes per second plus framing); Install rejects a baud rate
// that cannot. Writes block in the operating system; maxWait is not honoured.
type SerialDriver struct {
	logger *slog.Logger
	uuid   uuid.UUID

	options PortOptions
	open    PortOpener

	mu      sync.Mutex
	port    Port
	written int64
}

// Create a serial driver. A nil opener opens real ports with go.bug.st/serial.
func NewSerialDriver(options PortOptions, opener PortOpener) *SerialDriver {
	uuid := uuid.New()
	logger := slog.Default().With(
		"serial driver uuid", uuid,
	)

	if opener == nil {
		opener = openSerialPort
	}

	return &SerialDriver{
		logger:  logger,
		uuid:    uuid,
		options: options,
		open:    opener,
	}
}

func (d *SerialDriver) Install(config peripheral.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		return peripheral.ErrAlreadyInstalled
	}
	if err := config.Validate(); err != nil {
		return err
	}

	opts, err := d.options.Normalize()
	if err != nil {
		return err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return err
	}

	// start + data + parity + stop bits per character
	bitsPerByte := 1 + opts.DataBits + opts.StopBits
	if opts.Parity != "N" {
		bitsPerByte++
	}
	required := config.SampleRate * config.FrameBytes() * bitsPerByte
	if opts.BaudRate < required {
		return fmt.Errorf("baud rate %d too low for %d Hz stereo: need at least %d",
			opts.BaudRate, config.SampleRate, required)
	}

	port, err := d.open(opts.Path, mode)
	if err != nil {
		d.logger.Error("could not open serial port", "path", opts.Path, "err", err)
		return err
	}
	d.port = port
	d.written = 0

	d.logger.Debug(
		"installed serial driver",
		"path", opts.Path,
		"baudRate", opts.BaudRate,
		"dataBits", opts.DataBits,
		"stopBits", opts.StopBits,
		"parity", opts.Parity,
	)
	return nil
}

func (d *SerialDriver) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return peripheral.ErrNotInstalled
	}
	err := d.port.Close()
	d.port = nil
	d.logger.Debug("uninstalled serial driver", "bytesWritten", d.written)
	return err
}

func (d *SerialDriver) Write(p []byte, _ time.Duration) (int, error) {
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()

	if port == nil {
		return 0, peripheral.ErrNotInstalled
	}

	n, err := port.Write(p)

	d.mu.Lock()
	d.written += int64(n)
	d.mu.Unlock()
	return n, err
}
