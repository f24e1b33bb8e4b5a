package driver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

// SimulatedDriver emulates an I2S transmit path with a DMA ring.
//
// The ring holds DMABufCount buffers of DMABufLen frames. Write copies as much
// as fits and blocks while the ring is full. In real time mode a goroutine
// drains one DMA buffer every DMABufLen/SampleRate seconds, exactly the rate a
// peripheral clocks samples out, so a writer is paced by the drain rate.
// Otherwise the ring only drains on DrainOne, which makes tests deterministic.
type SimulatedDriver struct {
	logger *slog.Logger
	uuid   uuid.UUID

	realtime bool
	observer func(frames []frame.Frame)

	mu         sync.Mutex
	installed  bool
	config     peripheral.Config
	ring       []byte
	fill       int
	dacMode    peripheral.DACMode
	drained    int64
	underruns  int64
	space      chan struct{}
	done       chan struct{}
	drainGroup sync.WaitGroup
}

func NewSimulatedDriver(realtime bool, observer func(frames []frame.Frame)) *SimulatedDriver {
	uuid := uuid.New()
	logger := slog.Default().With(
		"simulated driver uuid", uuid,
	)

	return &SimulatedDriver{
		logger:   logger,
		uuid:     uuid,
		realtime: realtime,
		observer: observer,
	}
}

func (d *SimulatedDriver) Install(config peripheral.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.installed {
		return peripheral.ErrAlreadyInstalled
	}
	if err := config.Validate(); err != nil {
		return err
	}

	d.config = config
	d.ring = make([]byte, config.RingBytes())
	d.fill = 0
	d.space = make(chan struct{}, 1)
	d.done = make(chan struct{})
	d.installed = true

	period := time.Duration(config.DMABufLen) * time.Second / time.Duration(config.SampleRate)
	d.logger.Debug(
		"installed simulated driver",
		"sampleRate", config.SampleRate,
		"dmaBufCount", config.DMABufCount,
		"dmaBufLen", config.DMABufLen,
		"ringBytes", len(d.ring),
		"drainPeriod", period,
		"realtime", d.realtime,
	)

	if d.realtime {
		d.drainGroup.Add(1)
		go d.drainLoop(period, d.done)
	}
	return nil
}

func (d *SimulatedDriver) drainLoop(period time.Duration, done <-chan struct{}) {
	defer d.drainGroup.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.DrainOne()
		case <-done:
			return
		}
	}
}

func (d *SimulatedDriver) Uninstall() error {
	d.mu.Lock()
	if !d.installed {
		d.mu.Unlock()
		return peripheral.ErrNotInstalled
	}
	d.installed = false
	close(d.done)
	d.mu.Unlock()

	d.drainGroup.Wait()
	d.logger.Debug("uninstalled simulated driver", "drainedBuffers", d.Drained(), "underruns", d.Underruns())
	return nil
}

func (d *SimulatedDriver) Write(p []byte, maxWait time.Duration) (int, error) {
	var timeout <-chan time.Time
	if maxWait > 0 {
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		d.mu.Lock()
		if !d.installed {
			d.mu.Unlock()
			return 0, peripheral.ErrNotInstalled
		}
		if free := len(d.ring) - d.fill; free > 0 || len(p) == 0 {
			n := copy(d.ring[d.fill:], p)
			d.fill += n
			d.mu.Unlock()
			return n, nil
		}
		space, done := d.space, d.done
		d.mu.Unlock()

		if maxWait == 0 {
			return 0, nil
		}
		select {
		case <-space:
		case <-timeout:
			return 0, nil
		case <-done:
			return 0, peripheral.ErrNotInstalled
		}
	}
}

// Clock one DMA buffer out of the ring.
//
// If less than a full buffer is queued the remainder is played as silence and
// counted as an underrun. Returns false if the driver is not installed.
func (d *SimulatedDriver) DrainOne() bool {
	d.mu.Lock()
	if !d.installed {
		d.mu.Unlock()
		return false
	}

	bufBytes := d.config.DMABufLen * d.config.FrameBytes()
	n := min(d.fill, bufBytes)
	n -= n % frame.Bytes

	var frames []frame.Frame
	observer := d.observer
	if observer != nil {
		frames, _ = frame.Decode(make([]frame.Frame, 0, n/frame.Bytes), d.ring[:n])
	}
	copy(d.ring, d.ring[n:d.fill])
	d.fill -= n

	d.drained++
	if n < bufBytes {
		d.underruns++
	}
	space := d.space
	d.mu.Unlock()

	select {
	case space <- struct{}{}:
	default:
	}

	if observer != nil && len(frames) > 0 {
		observer(frames)
	}
	return true
}

func (d *SimulatedDriver) SetDACMode(mode peripheral.DACMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.installed {
		return peripheral.ErrNotInstalled
	}
	d.dacMode = mode
	return nil
}

func (d *SimulatedDriver) DACMode() peripheral.DACMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dacMode
}

// Bytes currently queued in the ring.
func (d *SimulatedDriver) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fill
}

// Number of DMA buffers clocked out.
func (d *SimulatedDriver) Drained() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drained
}

// Number of DMA buffers clocked out with fewer frames than a full buffer.
func (d *SimulatedDriver) Underruns() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.underruns
}
