package driver

import (
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

// A Driver that accepts every byte immediately and discards it.
//
// A minimal example of the driver contract, useful in testing and dry runs.
type NullDriver struct {
	mu        sync.Mutex
	installed bool
	config    peripheral.Config
	written   int64
	installs  int
}

func NewNullDriver() *NullDriver {
	return &NullDriver{}
}

func (d *NullDriver) Install(config peripheral.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.installed {
		return peripheral.ErrAlreadyInstalled
	}
	if err := config.Validate(); err != nil {
		return err
	}
	d.installed = true
	d.config = config
	d.installs++
	return nil
}

func (d *NullDriver) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.installed {
		return peripheral.ErrNotInstalled
	}
	d.installed = false
	return nil
}

func (d *NullDriver) Write(p []byte, _ time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.installed {
		return 0, peripheral.ErrNotInstalled
	}
	d.written += int64(len(p))
	return len(p), nil
}

// Total bytes accepted since creation.
func (d *NullDriver) BytesWritten() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Number of successful installs since creation.
func (d *NullDriver) Installs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.installs
}
