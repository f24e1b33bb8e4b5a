//go:build !headless

package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

// oto allows a single context per process, so every OtoDriver shares it.
var (
	otoContextMutex      sync.Mutex
	otoContext           *oto.Context
	otoContextSampleRate int
)

func sharedOtoContext(config peripheral.Config) (*oto.Context, error) {
	otoContextMutex.Lock()
	defer otoContextMutex.Unlock()

	if otoContext != nil {
		if otoContextSampleRate != config.SampleRate {
			return nil, fmt.Errorf("oto context already running at %d Hz, cannot switch to %d Hz",
				otoContextSampleRate, config.SampleRate)
		}
		if err := otoContext.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoContext, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.DMABufLen) * time.Second / time.Duration(config.SampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoContext = ctx
	otoContextSampleRate = config.SampleRate
	return ctx, nil
}

// OtoDriver plays the transmit stream on the host's default audio device.
//
// The oto player pulls from a ring the size of the DMA ring, so the transfer
// loop sees the same backpressure it would from the real peripheral.
type OtoDriver struct {
	logger *slog.Logger
	uuid   uuid.UUID

	mu     sync.Mutex
	ring   *pcmRing
	player *oto.Player
}

func NewOtoDriver() *OtoDriver {
	uuid := uuid.New()
	logger := slog.Default().With(
		"oto driver uuid", uuid,
	)

	return &OtoDriver{
		logger: logger,
		uuid:   uuid,
	}
}

func (d *OtoDriver) Install(config peripheral.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player != nil {
		return peripheral.ErrAlreadyInstalled
	}
	if err := config.Validate(); err != nil {
		return err
	}

	ctx, err := sharedOtoContext(config)
	if err != nil {
		d.logger.Error("failed to open audio output", "err", err)
		return err
	}

	d.ring = newPCMRing(config.RingBytes())
	d.player = ctx.NewPlayer(d.ring)
	d.player.Play()

	d.logger.Info(
		"oto driver started",
		"sampleRate", config.SampleRate,
		"ringBytes", config.RingBytes(),
	)
	return nil
}

func (d *OtoDriver) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return peripheral.ErrNotInstalled
	}

	d.ring.close()
	err := d.player.Close()
	d.player = nil

	otoContextMutex.Lock()
	if otoContext != nil {
		if suspendErr := otoContext.Suspend(); suspendErr != nil {
			d.logger.Warn("oto context suspend error", "err", suspendErr)
		}
	}
	otoContextMutex.Unlock()

	d.logger.Info("oto driver stopped", "underruns", d.ring.underrunCount())
	return err
}

func (d *OtoDriver) Write(p []byte, maxWait time.Duration) (int, error) {
	d.mu.Lock()
	ring := d.ring
	installed := d.player != nil
	d.mu.Unlock()

	if !installed {
		return 0, peripheral.ErrNotInstalled
	}

	n, err := ring.write(p, maxWait)
	if errors.Is(err, errRingClosed) {
		return n, peripheral.ErrNotInstalled
	}
	return n, err
}
