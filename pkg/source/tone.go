package source

import (
	"errors"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
)

var (
	errInvalidToneFrequency = errors.New("tone frequency must be positive and below the nyquist frequency")
	errInvalidToneAmplitude = errors.New("tone amplitude must be within [0, 1]")
	errInvalidToneChannels  = errors.New("tone must have 1 or 2 channels")
)

// ToneSource generates a sine wave.
//
// A single channel tone is sent to the left input only, leaving the output to
// duplicate it onto the right. A two channel tone sends a cosine on the right,
// a quarter period ahead of the left.
type ToneSource struct {
	logger *slog.Logger
	uuid   uuid.UUID

	amplitude float64
	channels  int
	step      float64
	phase     float64
}

func NewToneSource(frequency float64, amplitude float64, channels int, sampleRate int) (*ToneSource, error) {
	if sampleRate <= 0 || frequency <= 0 || frequency >= float64(sampleRate)/2 {
		return nil, errInvalidToneFrequency
	}
	if amplitude < 0 || amplitude > 1 {
		return nil, errInvalidToneAmplitude
	}
	if channels != 1 && channels != 2 {
		return nil, errInvalidToneChannels
	}

	uuid := uuid.New()
	logger := slog.Default().With(
		"tone source uuid", uuid,
	)
	logger.Debug(
		"created tone source",
		"frequency", frequency,
		"amplitude", amplitude,
		"channels", channels,
		"sampleRate", sampleRate,
	)

	return &ToneSource{
		logger:    logger,
		uuid:      uuid,
		amplitude: amplitude,
		channels:  channels,
		step:      2 * math.Pi * frequency / float64(sampleRate),
	}, nil
}

func (s *ToneSource) Produce(q *block.Queue) error {
	left := q.Allocate()
	var right *block.Block
	if s.channels == 2 {
		right = q.Allocate()
	}

	for i := range block.Samples {
		left.Data[i] = float32(s.amplitude * math.Sin(s.phase))
		if right != nil {
			right.Data[i] = float32(s.amplitude * math.Cos(s.phase))
		}
		s.phase = math.Mod(s.phase+s.step, 2*math.Pi)
	}

	if right != nil {
		if err := transmit(q, block.InputRight, right); err != nil {
			q.Release(left)
			return err
		}
	}
	return transmit(q, block.InputLeft, left)
}

func (s *ToneSource) Close() error {
	return nil
}
