package peripheral

import (
	"fmt"
	"strings"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
)

// Operating mode flags of the peripheral. Combine with |.
type Mode uint8

const (
	ModeMaster Mode = 1 << iota
	ModeSlave
	ModeTX
	ModeRX
	ModeDACBuiltIn
	ModeADCBuiltIn
	ModePDM
)

func (m Mode) String() string {
	names := []string{"master", "slave", "tx", "rx", "dac", "adc", "pdm"}
	var parts []string
	for i, name := range names {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Slot layout of samples within a frame.
type ChannelFormat int

const (
	// Interleaved stereo: both slots carry their own channel.
	ChannelFormatRightLeft ChannelFormat = iota
	ChannelFormatAllRight
	ChannelFormatAllLeft
	ChannelFormatOnlyRight
	ChannelFormatOnlyLeft
)

// Bit framing on the serial data line.
type CommFormat int

const (
	CommFormatI2S CommFormat = iota
	// Most significant bit first, left justified.
	CommFormatI2SMSB
	CommFormatI2SLSB
	CommFormatPCM
)

// Interrupt level the driver allocates its DMA interrupt at.
// Level 1 is the lowest and never starves other work.
type InterruptPriority int

const (
	IntrLevel1 InterruptPriority = iota + 1
	IntrLevel2
	IntrLevel3
)

const (
	DefaultSampleRate  = 44100
	DefaultDMABufCount = 2

	minDMABufCount = 2
	maxDMABufCount = 128
	minDMABufLen   = 8
	maxDMABufLen   = 1024
)

// Configuration record installed into the peripheral driver.
type Config struct {
	Mode          Mode
	SampleRate    int
	BitsPerSample int
	ChannelFormat ChannelFormat
	CommFormat    CommFormat
	IntrPriority  InterruptPriority

	// Number of DMA buffers in the transmit ring.
	DMABufCount int
	// Length of each DMA buffer, in frames.
	DMABufLen int

	// Derive the sample clock from the audio PLL rather than the main clock.
	UseAPLL bool
}

// The configuration of the output stage: primary role, transmit and receive,
// built in DAC and ADC, 16-bit interleaved stereo with MSB framing,
// lowest interrupt priority and a small ring of block sized DMA buffers.
func DefaultConfig(sampleRate int) Config {
	return Config{
		Mode:          ModeMaster | ModeTX | ModeRX | ModeDACBuiltIn | ModeADCBuiltIn,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
		ChannelFormat: ChannelFormatRightLeft,
		CommFormat:    CommFormatI2SMSB,
		IntrPriority:  IntrLevel1,
		DMABufCount:   DefaultDMABufCount,
		DMABufLen:     block.Samples,
		UseAPLL:       false,
	}
}

// Check the configuration is one the output stage can drive.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d: must be positive", c.SampleRate)
	}
	if c.BitsPerSample != 16 {
		return fmt.Errorf("invalid bits per sample %d: only 16 is supported", c.BitsPerSample)
	}
	if c.DMABufCount < minDMABufCount || c.DMABufCount > maxDMABufCount {
		return fmt.Errorf("invalid dma buffer count %d: must be between %d and %d",
			c.DMABufCount, minDMABufCount, maxDMABufCount)
	}
	if c.DMABufLen < minDMABufLen || c.DMABufLen > maxDMABufLen {
		return fmt.Errorf("invalid dma buffer length %d: must be between %d and %d",
			c.DMABufLen, minDMABufLen, maxDMABufLen)
	}
	if c.Mode&(ModeTX|ModeRX) == 0 {
		return fmt.Errorf("invalid mode %v: neither transmit nor receive enabled", c.Mode)
	}
	if c.Mode&ModeMaster != 0 && c.Mode&ModeSlave != 0 {
		return fmt.Errorf("invalid mode %v: master and slave are exclusive", c.Mode)
	}
	return nil
}

// Bytes in one stereo frame.
func (c Config) FrameBytes() int {
	return 2 * c.BitsPerSample / 8
}

// Bytes held by the whole DMA ring.
func (c Config) RingBytes() int {
	return c.DMABufCount * c.DMABufLen * c.FrameBytes()
}
