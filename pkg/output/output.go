package output

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

var (
	errNilDriver = errors.New("output requires a peripheral driver")
	errNilPool   = errors.New("output requires a block pool")
)

// Configuration state of an Output.
type State int32

const (
	StateUninitialized State = iota
	StateConfigured
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Options struct {
	// Configuration installed on the peripheral by Initialize.
	Peripheral peripheral.Config

	// How float samples are converted to 16 bit integers.
	Conversion frame.Conversion

	// How hard Update tries to hand a buffer to the peripheral.
	// An unbounded policy with no WriteWait blocks with WaitForever.
	Retry RetryPolicy

	// Called between incomplete writes. Defaults to runtime.Gosched.
	Yield func()

	// Defaults to slog.Default.
	Logger *slog.Logger
}

// Options reproducing the reference hardware setup at the given sample rate.
func DefaultOptions(sampleRate int) Options {
	return Options{
		Peripheral: peripheral.DefaultConfig(sampleRate),
		Conversion: frame.ConversionWrap,
		Retry:      DefaultRetryPolicy(),
		Yield:      runtime.Gosched,
	}
}

// Counters describing what an Output has done so far.
type Stats struct {
	// Calls to Update.
	Updates int64
	// Updates that ran while the output was not configured.
	Skipped int64
	// Buffers fully accepted by the peripheral.
	Transfers int64
	// Buffers abandoned before the peripheral accepted all of them.
	Incomplete int64
	// Blocks given back to the pool.
	Releases int64
	// Totals over every submission.
	Writes       int64
	Yields       int64
	BytesWritten int64
}

type counters struct {
	updates      atomic.Int64
	skipped      atomic.Int64
	transfers    atomic.Int64
	incomplete   atomic.Int64
	releases     atomic.Int64
	writes       atomic.Int64
	yields       atomic.Int64
	bytesWritten atomic.Int64
}

// Output is a stereo audio sink stage that feeds an I2S style peripheral.
//
// Every Update takes at most one block from each of the left and right inputs
// of the pool, packs them into 16 bit stereo frames, and writes the frames to
// the peripheral. The peripheral is installed by Initialize and removed once
// by Shutdown.
type Output struct {
	logger *slog.Logger
	uuid   uuid.UUID

	driver     peripheral.Driver
	pool       block.Pool
	config     peripheral.Config
	conversion frame.Conversion
	submitter  *Submitter

	// Serializes Initialize and Shutdown.
	lifecycleMutex sync.Mutex
	shutdownOnce   sync.Once
	state          atomic.Int32

	// Guards the packing and wire buffers shared by every Update.
	updateMutex sync.Mutex
	frames      frame.Buffer
	wire        [block.Samples * frame.Bytes]byte

	counters counters
}

// Create an output stage writing to driver and reading from pool.
// Nothing is installed until Initialize is called.
func New(driver peripheral.Driver, pool block.Pool, options Options) (*Output, error) {
	if driver == nil {
		return nil, errNilDriver
	}
	if pool == nil {
		return nil, errNilPool
	}
	if err := options.Peripheral.Validate(); err != nil {
		return nil, err
	}

	retry := options.Retry
	if !retry.bounded() && retry.WriteWait == 0 {
		retry.WriteWait = peripheral.WaitForever
	}

	uuid := uuid.New()
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		"output uuid", uuid,
	)

	logger.Debug(
		"created output",
		"mode", options.Peripheral.Mode,
		"sampleRate", options.Peripheral.SampleRate,
		"conversion", options.Conversion,
		"retryMaxAttempts", options.Retry.MaxAttempts,
		"retryMaxElapsed", options.Retry.MaxElapsed,
		"retryWriteWait", retry.WriteWait,
	)

	return &Output{
		logger:     logger,
		uuid:       uuid,
		driver:     driver,
		pool:       pool,
		config:     options.Peripheral,
		conversion: options.Conversion,
		submitter:  NewSubmitter(driver, retry, options.Yield, logger),
	}, nil
}

func (o *Output) State() State {
	return State(o.state.Load())
}

func (o *Output) setState(s State) {
	o.state.Store(int32(s))
}

func (o *Output) Stats() Stats {
	return Stats{
		Updates:      o.counters.updates.Load(),
		Skipped:      o.counters.skipped.Load(),
		Transfers:    o.counters.transfers.Load(),
		Incomplete:   o.counters.incomplete.Load(),
		Releases:     o.counters.releases.Load(),
		Writes:       o.counters.writes.Load(),
		Yields:       o.counters.yields.Load(),
		BytesWritten: o.counters.bytesWritten.Load(),
	}
}
