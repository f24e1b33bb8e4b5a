package output

import (
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

// One scripted response of a stubDriver write.
type step struct {
	n   int
	err error
}

// A driver whose writes follow a script. Once the script runs out every
// write is accepted whole.
type stubDriver struct {
	mu sync.Mutex

	installErrs []error
	script      []step

	installed  bool
	installs   int
	uninstalls int
	writes     int
	waits      []time.Duration
	written    []byte
	dacModes   []peripheral.DACMode
}

func (d *stubDriver) Install(config peripheral.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.installed {
		return peripheral.ErrAlreadyInstalled
	}
	if len(d.installErrs) > 0 {
		err := d.installErrs[0]
		d.installErrs = d.installErrs[1:]
		if err != nil {
			return err
		}
	}
	d.installed = true
	d.installs++
	return nil
}

func (d *stubDriver) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.installed {
		return peripheral.ErrNotInstalled
	}
	d.installed = false
	d.uninstalls++
	return nil
}

func (d *stubDriver) Write(p []byte, maxWait time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes++
	d.waits = append(d.waits, maxWait)
	if !d.installed {
		return 0, peripheral.ErrNotInstalled
	}

	n := len(p)
	var err error
	if len(d.script) > 0 {
		n = min(d.script[0].n, len(p))
		err = d.script[0].err
		d.script = d.script[1:]
	}
	d.written = append(d.written, p[:n]...)
	return n, err
}

func (d *stubDriver) SetDACMode(mode peripheral.DACMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dacModes = append(d.dacModes, mode)
	return nil
}

func (d *stubDriver) snapshot() stubDriver {
	d.mu.Lock()
	defer d.mu.Unlock()

	return stubDriver{
		installs:   d.installs,
		uninstalls: d.uninstalls,
		writes:     d.writes,
		written:    append([]byte(nil), d.written...),
		dacModes:   append([]peripheral.DACMode(nil), d.dacModes...),
	}
}

// A pool handing out at most one preset block per input, counting releases.
type countingPool struct {
	mu       sync.Mutex
	pending  [2]*block.Block
	acquired int
	released map[*block.Block]int
}

func newCountingPool(left, right *block.Block) *countingPool {
	return &countingPool{
		pending:  [2]*block.Block{left, right},
		released: make(map[*block.Block]int),
	}
}

func (p *countingPool) TryAcquireReadOnly(input int) *block.Block {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.pending[input]
	p.pending[input] = nil
	if b != nil {
		p.acquired++
	}
	return b
}

func (p *countingPool) Release(b *block.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released[b]++
}

func constantBlock(value float32) *block.Block {
	b := new(block.Block)
	b.Fill(value)
	return b
}
