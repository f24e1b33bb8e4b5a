package block

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_TryAcquireEmpty(t *testing.T) {
	t.Parallel()

	q := NewQueue(2, 4)
	assert.Nil(t, q.TryAcquireReadOnly(InputLeft))
	assert.Nil(t, q.TryAcquireReadOnly(InputRight))
	assert.Nil(t, q.TryAcquireReadOnly(7), "unknown input should yield no block")
}

func TestQueue_TransmitAcquireRelease(t *testing.T) {
	t.Parallel()

	q := NewQueue(2, 4)
	b := q.Allocate()
	b.Fill(0.25)

	ok, err := q.Transmit(InputLeft, b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, q.Pending(InputLeft))
	assert.Equal(t, 1, q.InUse())

	got := q.TryAcquireReadOnly(InputLeft)
	require.Same(t, b, got)
	assert.Equal(t, float32(0.25), got.Data[Samples-1])

	q.Release(got)
	assert.Equal(t, 0, q.InUse())
}

func TestQueue_RetainSharesBlockAcrossInputs(t *testing.T) {
	t.Parallel()

	q := NewQueue(2, 4)
	b := q.Allocate()
	q.Retain(b)

	_, err := q.Transmit(InputLeft, b)
	require.NoError(t, err)
	_, err = q.Transmit(InputRight, b)
	require.NoError(t, err)

	left := q.TryAcquireReadOnly(InputLeft)
	right := q.TryAcquireReadOnly(InputRight)
	require.Same(t, left, right)

	q.Release(left)
	assert.Equal(t, 1, q.InUse(), "block still referenced by right input")
	q.Release(right)
	assert.Equal(t, 0, q.InUse())
}

func TestQueue_TransmitFullDropsBlock(t *testing.T) {
	t.Parallel()

	q := NewQueue(1, 1)
	ok, err := q.Transmit(0, q.Allocate())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = q.Transmit(0, q.Allocate())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, q.InUse(), "dropped block must be released")
}

func TestQueue_TransmitUnknownInput(t *testing.T) {
	t.Parallel()

	q := NewQueue(1, 1)
	ok, err := q.Transmit(3, q.Allocate())
	assert.ErrorIs(t, err, ErrNoSuchInput)
	assert.False(t, ok)
	assert.Equal(t, 0, q.InUse())
}

func TestQueue_OverReleasePanics(t *testing.T) {
	t.Parallel()

	q := NewQueue(1, 1)
	b := q.Allocate()
	q.Release(b)
	assert.Panics(t, func() { q.Release(b) })
}

func TestQueue_ConcurrentProducersAndConsumer(t *testing.T) {
	t.Parallel()

	const perProducer = 500
	q := NewQueue(2, 8)

	var wg sync.WaitGroup
	for input := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				_, _ = q.Transmit(input, q.Allocate())
			}
		}()
	}
	wg.Wait()

	for input := range 2 {
		for b := q.TryAcquireReadOnly(input); b != nil; b = q.TryAcquireReadOnly(input) {
			q.Release(b)
		}
	}
	assert.Equal(t, 0, q.InUse())
}

func BenchmarkQueue_Cycle(b *testing.B) {
	q := NewQueue(2, 4)
	b.ReportAllocs()

	for b.Loop() {
		blk := q.Allocate()
		_, _ = q.Transmit(InputLeft, blk)
		q.Release(q.TryAcquireReadOnly(InputLeft))
	}
}
