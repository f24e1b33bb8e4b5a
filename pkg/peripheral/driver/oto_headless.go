//go:build headless

package driver

import (
	"errors"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

var errOtoUnavailable = errors.New("oto support not built (build without -tags headless)")

// OtoDriver stub for headless builds; Install always fails.
type OtoDriver struct{}

func NewOtoDriver() *OtoDriver {
	return &OtoDriver{}
}

func (d *OtoDriver) Install(_ peripheral.Config) error {
	return errOtoUnavailable
}

func (d *OtoDriver) Uninstall() error {
	return peripheral.ErrNotInstalled
}

func (d *OtoDriver) Write(_ []byte, _ time.Duration) (int, error) {
	return 0, peripheral.ErrNotInstalled
}
