package audiomanager

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/output"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral/driver"
)

// Produces a fixed number of left blocks, then io.EOF or err.
type countingProducer struct {
	remaining int
	err       error
}

func (p *countingProducer) Produce(q *block.Queue) error {
	if p.remaining == 0 {
		if p.err != nil {
			return p.err
		}
		return io.EOF
	}
	p.remaining--
	b := q.Allocate()
	b.Fill(0.25)
	_, err := q.Transmit(block.InputLeft, b)
	return err
}

func (p *countingProducer) Close() error {
	return nil
}

type countingUpdater struct {
	updates atomic.Int64
}

func (u *countingUpdater) Update() {
	u.updates.Add(1)
}

func TestNewAudioManager_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewAudioManager(nil, block.NewQueue(2, 1), &countingUpdater{}, 0, nil)
	assert.ErrorIs(t, err, errNilProducer)

	_, err = NewAudioManager(&countingProducer{}, block.NewQueue(2, 1), nil, 0, nil)
	assert.ErrorIs(t, err, errNilOutput)
}

func TestAudioManager_RunsUntilProducerExhausted(t *testing.T) {
	t.Parallel()

	queue := block.NewQueue(2, 2)
	d := driver.NewNullDriver()
	out, err := output.New(d, queue, output.DefaultOptions(peripheral.DefaultSampleRate))
	require.NoError(t, err)
	require.NoError(t, out.Initialize())
	defer out.Shutdown()

	manager, err := NewAudioManager(&countingProducer{remaining: 10}, queue, out, 0, nil)
	require.NoError(t, err)
	require.NoError(t, manager.Run(context.Background()))

	assert.EqualValues(t, 10, manager.Cycles())
	stats := out.Stats()
	assert.EqualValues(t, 11, stats.Transfers, "ten cycles plus the startup transfer")
	assert.EqualValues(t, 10, stats.Releases)
	assert.Zero(t, queue.InUse())
	assert.EqualValues(t, 11*block.Samples*4, d.BytesWritten())
}

func TestAudioManager_ProducerError(t *testing.T) {
	t.Parallel()

	broken := errors.New("decoder broke")
	updater := &countingUpdater{}
	manager, err := NewAudioManager(&countingProducer{remaining: 2, err: broken}, block.NewQueue(2, 4), updater, 0, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, manager.Run(context.Background()), broken)
	assert.EqualValues(t, 2, updater.updates.Load())
}

func TestAudioManager_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	updater := &countingUpdater{}
	manager, err := NewAudioManager(&countingProducer{remaining: -1}, block.NewQueue(2, 1), updater, BlockPeriod(48000), nil)
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		errs <- manager.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return updater.updates.Load() >= 3
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop after cancel")
	}
}

func TestBlockPeriod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 128*time.Second/44100, BlockPeriod(44100))
	assert.Zero(t, BlockPeriod(0))
}
