package output

import (
	"errors"
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

var (
	ErrClosed = errors.New("output has been shut down")
)

// Install the peripheral with the output's configuration.
//
// Calling Initialize on a configured output does nothing. When the install
// fails the error is logged and returned, the output is left in StateFailed,
// and a later Initialize tries again. After a successful install the built in
// DAC is switched on (if the mode asks for it) and one transfer cycle runs so
// the peripheral starts from a known buffer.
func (o *Output) Initialize() error {
	installed, err := o.install()
	if err != nil || !installed {
		return err
	}

	// Run outside lifecycleMutex so Shutdown can interrupt a stalled write.
	o.Update()
	return nil
}

// Reports whether this call installed the peripheral.
func (o *Output) install() (bool, error) {
	o.lifecycleMutex.Lock()
	defer o.lifecycleMutex.Unlock()

	switch o.State() {
	case StateConfigured:
		return false, nil
	case StateClosed:
		return false, ErrClosed
	}

	if err := o.driver.Install(o.config); err != nil {
		o.setState(StateFailed)
		o.logger.Error(
			"could not install peripheral",
			"mode", o.config.Mode,
			"sampleRate", o.config.SampleRate,
			"err", err,
		)
		return false, fmt.Errorf("install peripheral: %w", err)
	}
	o.setState(StateConfigured)
	o.logger.Info(
		"peripheral installed",
		"mode", o.config.Mode,
		"sampleRate", o.config.SampleRate,
		"dmaBufCount", o.config.DMABufCount,
		"dmaBufLen", o.config.DMABufLen,
	)

	if o.config.Mode&peripheral.ModeDACBuiltIn != 0 {
		if dac, ok := o.driver.(peripheral.DACConfigurer); ok {
			if err := dac.SetDACMode(peripheral.DACBothEnabled); err != nil {
				o.logger.Warn("could not enable built in DAC", "err", err)
			}
		}
	}
	return true, nil
}

// Uninstall the peripheral if Initialize ever succeeded. Only the first call
// has any effect, and it is safe to call on an output that never initialized.
// Afterwards the output stays in StateClosed.
func (o *Output) Shutdown() {
	o.shutdownOnce.Do(func() {
		o.lifecycleMutex.Lock()
		defer o.lifecycleMutex.Unlock()

		previous := o.State()
		o.setState(StateClosed)
		if previous != StateConfigured {
			o.logger.Debug("shutdown without installed peripheral", "state", previous)
			return
		}

		if err := o.driver.Uninstall(); err != nil {
			o.logger.Error("could not uninstall peripheral", "err", err)
			return
		}
		o.logger.Info("peripheral uninstalled", "stats", o.Stats())
	})
}

// Close shuts the output down. It always returns nil.
func (o *Output) Close() error {
	o.Shutdown()
	return nil
}
