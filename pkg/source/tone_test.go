package source

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
)

func TestNewToneSource_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		frequency  float64
		amplitude  float64
		channels   int
		sampleRate int
		want       error
	}{
		{name: "zero frequency", frequency: 0, amplitude: 0.5, channels: 1, sampleRate: 44100, want: errInvalidToneFrequency},
		{name: "above nyquist", frequency: 30000, amplitude: 0.5, channels: 1, sampleRate: 44100, want: errInvalidToneFrequency},
		{name: "zero sample rate", frequency: 440, amplitude: 0.5, channels: 1, sampleRate: 0, want: errInvalidToneFrequency},
		{name: "loud", frequency: 440, amplitude: 1.5, channels: 1, sampleRate: 44100, want: errInvalidToneAmplitude},
		{name: "three channels", frequency: 440, amplitude: 0.5, channels: 3, sampleRate: 44100, want: errInvalidToneChannels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewToneSource(tt.frequency, tt.amplitude, tt.channels, tt.sampleRate)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestToneSource_MonoFeedsLeftOnly(t *testing.T) {
	t.Parallel()

	s, err := NewToneSource(1000, 0.5, 1, 48000)
	require.NoError(t, err)
	q := block.NewQueue(2, 4)

	require.NoError(t, s.Produce(q))
	require.NoError(t, s.Produce(q))
	assert.Equal(t, 2, q.Pending(block.InputLeft))
	assert.Zero(t, q.Pending(block.InputRight))

	step := 2 * math.Pi * 1000 / 48000
	for n := range 2 {
		b := q.TryAcquireReadOnly(block.InputLeft)
		require.NotNil(t, b)
		for i, v := range b.Data {
			want := 0.5 * math.Sin(step*float64(n*block.Samples+i))
			assert.InDelta(t, want, v, 1e-4)
		}
		q.Release(b)
	}
	assert.Zero(t, q.InUse())
}

func TestToneSource_StereoQuadrature(t *testing.T) {
	t.Parallel()

	s, err := NewToneSource(440, 1, 2, 44100)
	require.NoError(t, err)
	q := block.NewQueue(2, 1)
	require.NoError(t, s.Produce(q))

	left := q.TryAcquireReadOnly(block.InputLeft)
	right := q.TryAcquireReadOnly(block.InputRight)
	require.NotNil(t, left)
	require.NotNil(t, right)
	for i := range block.Samples {
		power := float64(left.Data[i])*float64(left.Data[i]) + float64(right.Data[i])*float64(right.Data[i])
		assert.InDelta(t, 1, power, 1e-4)
	}
	q.Release(left)
	q.Release(right)
}

func TestToneSource_FullQueueDropsBlocks(t *testing.T) {
	t.Parallel()

	s, err := NewToneSource(440, 0.1, 2, 44100)
	require.NoError(t, err)
	q := block.NewQueue(2, 1)

	for range 5 {
		require.NoError(t, s.Produce(q))
	}
	assert.Equal(t, 1, q.Pending(block.InputLeft))
	assert.Equal(t, 1, q.Pending(block.InputRight))
	assert.Equal(t, 2, q.InUse())
}

func BenchmarkToneSource_Produce(b *testing.B) {
	s, err := NewToneSource(440, 0.5, 2, 44100)
	require.NoError(b, err)
	q := block.NewQueue(2, 1)

	for b.Loop() {
		_ = s.Produce(q)
		q.Release(q.TryAcquireReadOnly(block.InputLeft))
		q.Release(q.TryAcquireReadOnly(block.InputRight))
	}
}
