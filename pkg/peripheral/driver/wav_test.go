package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

func TestWAVDriver_WritesUnbiasedStereo(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.wav")
	d := NewWAVDriver(path)

	_, err := d.Write([]byte{0}, peripheral.WaitForever)
	require.ErrorIs(t, err, peripheral.ErrNotInstalled)

	require.NoError(t, d.Install(peripheral.DefaultConfig(22050)))
	assert.ErrorIs(t, d.Install(peripheral.DefaultConfig(22050)), peripheral.ErrAlreadyInstalled)

	wire := encodedBuffer(1234, -4321)
	// Split mid frame to exercise the carry.
	n, err := d.Write(wire[:6], peripheral.WaitForever)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	n, err = d.Write(wire[6:], peripheral.WaitForever)
	require.NoError(t, err)
	require.Equal(t, len(wire)-6, n)

	require.NoError(t, d.Uninstall())
	assert.ErrorIs(t, d.Uninstall(), peripheral.ErrNotInstalled)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoder := wav.NewDecoder(f)
	require.True(t, decoder.IsValidFile())
	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)

	assert.EqualValues(t, 22050, decoder.SampleRate)
	assert.EqualValues(t, 2, decoder.NumChans)
	assert.EqualValues(t, 16, decoder.BitDepth)
	require.Len(t, buf.Data, 2*block.Samples)
	for i := 0; i < len(buf.Data); i += 2 {
		assert.Equal(t, 1234, buf.Data[i])
		assert.Equal(t, -4321, buf.Data[i+1])
	}
}

func TestWAVDriver_InstallFailsOnBadPath(t *testing.T) {
	t.Parallel()

	d := NewWAVDriver(filepath.Join(t.TempDir(), "missing", "dir", "capture.wav"))
	assert.Error(t, d.Install(peripheral.DefaultConfig(peripheral.DefaultSampleRate)))

	_, err := d.Write([]byte{0, 0, 0, 0}, 0)
	assert.ErrorIs(t, err, peripheral.ErrNotInstalled)
}
