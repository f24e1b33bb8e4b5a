package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/output"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral/driver"
)

const (
	SourceTone = "tone"
	SourceFile = "file"
)

var (
	errUnknownDriver   = errors.New("unknown driver")
	errUnknownSource   = errors.New("unknown source")
	errMissingSource   = errors.New("file source requires sourcefile")
	errNegativeSetting = errors.New("setting must not be negative")
)

// Load defaults and then the config file into viper.
// A missing config file is not an error; the defaults are used.
func LoadConfig(configFilePath string) error {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
			return nil
		}
		slog.Error("error during config read", "err", err)
		return err
	}
	return nil
}

// Typed snapshot of the configuration.
type Settings struct {
	LogLevel string
	LogFile  string

	Driver        driver.DriverTypeEnum
	DriverOptions driver.Options

	SampleRate  int
	DMABufCount int
	Conversion  frame.Conversion
	Retry       output.RetryPolicy

	// Pace cycles to the block period, for drivers without backpressure.
	PaceBlocks bool
	// Stop after this long. Zero runs until interrupted or the source ends.
	Duration time.Duration

	Source        string
	SourceFile    string
	SourceLoop    bool
	ToneFrequency float64
	ToneAmplitude float64
	ToneChannels  int
}

// Read the current viper configuration into Settings.
func Load() (Settings, error) {
	s := Settings{
		LogLevel: viper.GetString("loglevel"),
		LogFile:  viper.GetString("logfile"),

		Driver: driver.DriverTypeEnum(viper.GetString("driver")),
		DriverOptions: driver.Options{
			WAVPath: viper.GetString("wavpath"),
			Serial: driver.PortOptions{
				Path:     viper.GetString("serialport"),
				BaudRate: viper.GetInt("serialbaudrate"),
				DataBits: viper.GetInt("serialdatabits"),
				StopBits: viper.GetInt("serialstopbits"),
				Parity:   viper.GetString("serialparity"),
			},
			Realtime: true,
		},

		SampleRate:  viper.GetInt("samplerate"),
		DMABufCount: viper.GetInt("dmabufcount"),
		Conversion:  frame.ConversionWrap,
		Retry: output.RetryPolicy{
			MaxAttempts: viper.GetInt("retrymaxattempts"),
			MaxElapsed:  viper.GetDuration("retrymaxelapsed"),
			WriteWait:   peripheral.WaitForever,
		},

		PaceBlocks: viper.GetBool("paceblocks"),
		Duration:   viper.GetDuration("duration"),

		Source:        viper.GetString("source"),
		SourceFile:    viper.GetString("sourcefile"),
		SourceLoop:    viper.GetBool("sourceloop"),
		ToneFrequency: viper.GetFloat64("tonefrequency"),
		ToneAmplitude: viper.GetFloat64("toneamplitude"),
		ToneChannels:  viper.GetInt("tonechannels"),
	}
	if viper.GetBool("clampsamples") {
		s.Conversion = frame.ConversionClamp
	}

	if !slices.Contains(driver.Types(), s.Driver) {
		return Settings{}, fmt.Errorf("%w: %q", errUnknownDriver, s.Driver)
	}
	switch s.Source {
	case SourceTone:
	case SourceFile:
		if s.SourceFile == "" {
			return Settings{}, errMissingSource
		}
	default:
		return Settings{}, fmt.Errorf("%w: %q", errUnknownSource, s.Source)
	}
	if s.Retry.MaxAttempts < 0 || s.Retry.MaxElapsed < 0 || s.Duration < 0 {
		return Settings{}, errNegativeSetting
	}
	if s.Retry.MaxAttempts > 0 || s.Retry.MaxElapsed > 0 {
		// A bounded policy must not park in a single write forever.
		s.Retry.WriteWait = BoundedWriteWait
	}

	if s.Driver == driver.DriverTypeSerial {
		if _, err := s.DriverOptions.Serial.Normalize(); err != nil {
			return Settings{}, err
		}
	}

	if err := s.PeripheralConfig().Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Longest single write when retries are bounded.
const BoundedWriteWait = 10 * time.Millisecond

func (s Settings) PeripheralConfig() peripheral.Config {
	config := peripheral.DefaultConfig(s.SampleRate)
	config.DMABufCount = s.DMABufCount
	return config
}

func (s Settings) OutputOptions() output.Options {
	options := output.DefaultOptions(s.SampleRate)
	options.Peripheral = s.PeripheralConfig()
	options.Conversion = s.Conversion
	options.Retry = s.Retry
	return options
}
