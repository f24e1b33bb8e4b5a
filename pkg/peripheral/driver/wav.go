package driver

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
)

const wavFormatPCM = 1

// WAVDriver captures the transmit stream into a 16-bit stereo .WAV file
// instead of clocking it out of a peripheral.
//
// Frames are un-biased back to signed samples before encoding, so the file
// plays the audio the peripheral would have produced.
// The file is only valid once the driver is uninstalled.
type WAVDriver struct {
	logger *slog.Logger
	uuid   uuid.UUID

	path string

	mu         sync.Mutex
	fileHandle *os.File
	encoder    *wav.Encoder
	format     *goaudio.Format
	carry      []byte
	frames     []frame.Frame
	samples    []int
	written    int64
}

func NewWAVDriver(audioFilePath string) *WAVDriver {
	uuid := uuid.New()
	logger := slog.Default().With(
		"wav driver uuid", uuid,
	)

	return &WAVDriver{
		logger: logger,
		uuid:   uuid,
		path:   audioFilePath,
	}
}

func (d *WAVDriver) Install(config peripheral.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		return peripheral.ErrAlreadyInstalled
	}
	if err := config.Validate(); err != nil {
		return err
	}

	f, err := os.Create(d.path)
	if err != nil {
		d.logger.Error(
			"could not create audio file",
			"audioFile", d.path,
			"err", err,
		)
		return err
	}

	d.fileHandle = f
	d.encoder = wav.NewEncoder(f, config.SampleRate, config.BitsPerSample, 2, wavFormatPCM)
	d.format = &goaudio.Format{
		SampleRate:  config.SampleRate,
		NumChannels: 2,
	}
	d.carry = d.carry[:0]
	d.written = 0

	d.logger.Debug(
		"installed wav driver",
		"audioFile", d.path,
		"sampleRate", config.SampleRate,
		"bitsPerSample", config.BitsPerSample,
	)
	return nil
}

func (d *WAVDriver) Uninstall() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return peripheral.ErrNotInstalled
	}

	encErr := d.encoder.Close()
	syncErr := d.fileHandle.Sync()
	closeErr := d.fileHandle.Close()
	d.encoder = nil
	d.fileHandle = nil

	d.logger.Debug("uninstalled wav driver", "audioFile", d.path, "bytesWritten", d.written)
	return errors.Join(encErr, syncErr, closeErr)
}

// Encode p into the file. Every byte is accepted; a trailing partial frame is
// held until the next Write completes it.
func (d *WAVDriver) Write(p []byte, _ time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return 0, peripheral.ErrNotInstalled
	}

	carried := len(d.carry)
	data := p
	if carried > 0 {
		d.carry = append(d.carry, p...)
		data = d.carry
	}

	var consumed int
	d.frames, consumed = frame.Decode(d.frames[:0], data)
	if len(d.frames) > 0 {
		d.samples = d.samples[:0]
		for _, f := range d.frames {
			left, right := frame.Unpack(f)
			d.samples = append(d.samples, int(left), int(right))
		}

		buf := &goaudio.IntBuffer{
			Format:         d.format,
			Data:           d.samples,
			SourceBitDepth: 16,
		}
		if err := d.encoder.Write(buf); err != nil {
			d.logger.Error("error while writing frames to file", "err", err)
			d.carry = d.carry[:carried]
			return 0, err
		}
	}

	d.carry = append(d.carry[:0], data[consumed:]...)
	d.written += int64(len(p))
	return len(p), nil
}
