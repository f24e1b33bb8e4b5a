package audiomanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/source"
)

var (
	errNilProducer = errors.New("audio manager requires a producer")
	errNilOutput   = errors.New("audio manager requires an output")
)

// The part of an output stage the manager drives.
type Updater interface {
	Update()
}

// A manager for the audio graph of one output.
// Holds reference to the canonical producer (e.g. a tone or a file), the queue
// carrying its blocks, and the output stage consuming them.
//
// Each cycle the producer fills one block per input and the output transfers
// them. An output writing to real hardware blocks on the DMA ring and so paces
// the loop by itself. Drivers that never push back (e.g. writing to a file)
// need the loop paced to the block period instead.
type AudioManager struct {
	logger *slog.Logger

	producer source.Producer
	queue    *block.Queue
	output   Updater

	// Zero disables pacing.
	blockPeriod time.Duration

	cycles atomic.Int64
}

func NewAudioManager(
	producer source.Producer,
	queue *block.Queue,
	output Updater,
	blockPeriod time.Duration,
	logger *slog.Logger,
) (*AudioManager, error) {
	if producer == nil {
		return nil, errNilProducer
	}
	if output == nil {
		return nil, errNilOutput
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AudioManager{
		logger:      logger,
		producer:    producer,
		queue:       queue,
		output:      output,
		blockPeriod: blockPeriod,
	}, nil
}

// The block period of a given sample rate, for pacing a manager.
func BlockPeriod(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(block.Samples) * time.Second / time.Duration(sampleRate)
}

// Drive the producer and the output until the context is canceled or the
// producer runs dry.
//
// Returns nil once the producer reports io.EOF, the context error if canceled,
// and any other producer error wrapped.
func (manager *AudioManager) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if manager.blockPeriod > 0 {
		ticker := time.NewTicker(manager.blockPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	manager.logger.Debug("audio manager running", "blockPeriod", manager.blockPeriod)

	for {
		if err := ctx.Err(); err != nil {
			manager.logger.Debug("audio manager stopped", "cycles", manager.cycles.Load())
			return err
		}

		if err := manager.producer.Produce(manager.queue); err != nil {
			if errors.Is(err, io.EOF) {
				manager.logger.Info("producer exhausted", "cycles", manager.cycles.Load())
				return nil
			}
			manager.logger.Error("producer failed", "err", err)
			return fmt.Errorf("produce: %w", err)
		}
		manager.output.Update()
		manager.cycles.Add(1)

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
			}
		}
	}
}

// Number of completed produce and update cycles.
func (manager *AudioManager) Cycles() int64 {
	return manager.cycles.Load()
}
