package frame

import (
	"encoding/binary"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
)

// Size in bytes of one packed frame on the wire.
const Bytes = 4

// Scale applied to a normalized float sample to reach the signed 16-bit range.
const scale = 32767.0

// One stereo sample pair as the I2S peripheral expects it:
// right channel in the high 16 bits, left channel in the low 16 bits,
// each offset by 0x8000 so the signed sample becomes unsigned.
type Frame uint32

// A full block's worth of frames, the unit handed to the peripheral each cycle.
type Buffer [block.Samples]Frame

// How a float sample outside [-1, 1] is turned into a 16-bit sample.
type Conversion int

const (
	// Multiply and cast. Out of range input wraps modulo 2^16, bit for bit
	// compatible with the firmware this stage replaces.
	ConversionWrap Conversion = iota
	// Clamp to [-1, 1] before scaling.
	ConversionClamp
)

func (c Conversion) String() string {
	switch c {
	case ConversionWrap:
		return "wrap"
	case ConversionClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// Convert one normalized sample to a signed 16-bit sample.
//
// The product is truncated toward zero. Going through int32 keeps the wrap
// deterministic for any input whose scaled value fits in 32 bits.
func (c Conversion) Sample(x float32) int16 {
	if c == ConversionClamp {
		if x > 1 {
			x = 1
		} else if x < -1 {
			x = -1
		}
	}
	return int16(int32(x * scale))
}

// Pack two signed samples into a frame, right channel high.
func New(left, right int16) Frame {
	return Frame(bias(right))<<16 | Frame(bias(left))
}

// Recover the signed samples from a frame.
func Unpack(f Frame) (left int16, right int16) {
	return unbias(uint16(f)), unbias(uint16(f >> 16))
}

func (f Frame) Left() int16 {
	return unbias(uint16(f))
}

func (f Frame) Right() int16 {
	return unbias(uint16(f >> 16))
}

// (s + 0x8000) & 0xFFFF
func bias(s int16) uint16 {
	return uint16(s) ^ 0x8000
}

func unbias(u uint16) int16 {
	return int16(u ^ 0x8000)
}

// Fill dst from the two optional input blocks. A nil block is an absent channel.
//
// An absent left channel is silence. An absent right channel repeats the left
// sample (mono fallback). Every frame of dst is written; Pack cannot fail.
func Pack(dst *Buffer, left, right *block.Block, conversion Conversion) {
	for i := range dst {
		var sampleLeft int16
		if left != nil {
			sampleLeft = conversion.Sample(left.Data[i])
		}

		sampleRight := sampleLeft
		if right != nil {
			sampleRight = conversion.Sample(right.Data[i])
		}

		dst[i] = New(sampleLeft, sampleRight)
	}
}

// Encode the frames little endian into dst, which must hold len(b)*Bytes bytes.
// Returns the number of bytes written.
func (b *Buffer) PutBytes(dst []byte) int {
	_ = dst[len(b)*Bytes-1]
	for i, f := range b {
		binary.LittleEndian.PutUint32(dst[i*Bytes:], uint32(f))
	}
	return len(b) * Bytes
}

// Size of the encoded buffer in bytes.
func (b *Buffer) Len() int {
	return len(b) * Bytes
}

// Decode whole little endian frames from p into dst, returning the frames and
// the number of bytes consumed. Trailing bytes of an incomplete frame are left.
func Decode(dst []Frame, p []byte) ([]Frame, int) {
	n := len(p) / Bytes
	for i := range n {
		dst = append(dst, Frame(binary.LittleEndian.Uint32(p[i*Bytes:])))
	}
	return dst, n * Bytes
}
