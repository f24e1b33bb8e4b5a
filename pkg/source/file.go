package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
)

var (
	errInvalidAudioFile = errors.New("error while decoding audio file")
	errEmptyAudioFile   = errors.New("audio file holds no samples")
)

const wavFormatPCM = 1

// FileSource plays a .WAV, .MP3 or Ogg Vorbis file block by block.
//
// The whole file is decoded up front and normalized to [-1, 1). Mono files
// only feed the left input. The final block is padded with silence. Once the
// file is exhausted Produce returns io.EOF, or starts over if the source loops.
type FileSource struct {
	logger *slog.Logger
	uuid   uuid.UUID

	sampleRate int
	channels   int
	samples    []float32
	position   int
	loop       bool
}

// Decoded, normalized, interleaved audio.
type decodedAudio struct {
	sampleRate int
	channels   int
	samples    []float32
}

// Make a new FileSource from an audio file (on the audioFilePath).
// The format follows the extension: .mp3, .ogg (vorbis), anything else WAV.
func NewFileSource(audioFilePath string, loop bool) (*FileSource, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"file source uuid", uuid,
	)

	f, err := os.Open(audioFilePath)
	if err != nil {
		logger.Error(
			"could not open audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}
	defer f.Close()

	var audio decodedAudio
	switch strings.ToLower(filepath.Ext(audioFilePath)) {
	case ".mp3":
		audio, err = decodeMP3(f)
	case ".ogg":
		audio, err = decodeVorbis(f)
	default:
		audio, err = decodeWAV(f)
	}
	if err != nil {
		logger.Error(
			"could not decode audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, err
	}
	if audio.channels < 1 || len(audio.samples) < audio.channels {
		return nil, errEmptyAudioFile
	}

	logger.Debug(
		"loaded audio file",
		"audioFile", audioFilePath,
		"sampleRate", audio.sampleRate,
		"channels", audio.channels,
		"frames", len(audio.samples)/audio.channels,
	)

	return &FileSource{
		logger:     logger,
		uuid:       uuid,
		sampleRate: audio.sampleRate,
		channels:   audio.channels,
		samples:    audio.samples,
		loop:       loop,
	}, nil
}

// Integer PCM only. 8-bit WAV samples are unsigned and centred on 128,
// wider ones are signed.
func decodeWAV(r io.ReadSeeker) (decodedAudio, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return decodedAudio{}, errInvalidAudioFile
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return decodedAudio{}, fmt.Errorf("%w: unsupported wav format %d", errInvalidAudioFile, decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return decodedAudio{}, fmt.Errorf("%w: %w", errInvalidAudioFile, err)
	}

	var offset int
	scale := float32(int64(1) << (decoder.BitDepth - 1))
	if decoder.BitDepth == 8 {
		offset = 128
	}
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v-offset) / scale
	}

	return decodedAudio{
		sampleRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		samples:    samples,
	}, nil
}

// go-mp3 always produces 16-bit little endian stereo.
func decodeMP3(r io.Reader) (decodedAudio, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return decodedAudio{}, fmt.Errorf("%w: %w", errInvalidAudioFile, err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return decodedAudio{}, fmt.Errorf("%w: %w", errInvalidAudioFile, err)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
	}

	return decodedAudio{
		sampleRate: decoder.SampleRate(),
		channels:   2,
		samples:    samples,
	}, nil
}

// Vorbis decodes straight to interleaved floats.
func decodeVorbis(r io.Reader) (decodedAudio, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return decodedAudio{}, fmt.Errorf("%w: %w", errInvalidAudioFile, err)
	}

	return decodedAudio{
		sampleRate: format.SampleRate,
		channels:   format.Channels,
		samples:    samples,
	}, nil
}

// Sample rate the file was recorded at.
func (s *FileSource) SampleRate() int {
	return s.sampleRate
}

func (s *FileSource) Channels() int {
	return s.channels
}

func (s *FileSource) Produce(q *block.Queue) error {
	frames := len(s.samples) / s.channels
	if frames == 0 {
		return io.EOF
	}
	if s.position >= frames {
		if !s.loop {
			return io.EOF
		}
		s.logger.Debug("restarting audio file")
		s.position = 0
	}

	left := q.Allocate()
	var right *block.Block
	if s.channels >= 2 {
		right = q.Allocate()
	}

	for i := range block.Samples {
		frameIndex := s.position + i
		if frameIndex >= frames {
			left.Data[i] = 0
			if right != nil {
				right.Data[i] = 0
			}
			continue
		}
		left.Data[i] = s.samples[frameIndex*s.channels]
		if right != nil {
			right.Data[i] = s.samples[frameIndex*s.channels+1]
		}
	}
	s.position += block.Samples

	if right != nil {
		if err := transmit(q, block.InputRight, right); err != nil {
			q.Release(left)
			return err
		}
	}
	return transmit(q, block.InputLeft, left)
}

func (s *FileSource) Close() error {
	s.logger.Debug("closing file source")
	s.samples = nil
	return nil
}
