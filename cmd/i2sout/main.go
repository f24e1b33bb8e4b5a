package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/internal/audiomanager"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/block"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/output"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/peripheral/driver"
	"github.com/Honorable-Knights-of-the-Roundtable/i2sout/pkg/source"
)

// Depth of each input queue between the producer and the output.
const queueDepth = 4

func initializeProducer(settings config.Settings) (source.Producer, error) {
	switch settings.Source {
	case config.SourceFile:
		fileSource, err := source.NewFileSource(settings.SourceFile, settings.SourceLoop)
		if err != nil {
			return nil, err
		}
		if fileSource.SampleRate() != settings.SampleRate {
			slog.Warn(
				"source sample rate differs from output, playback speed will be off",
				"sourceSampleRate", fileSource.SampleRate(),
				"outputSampleRate", settings.SampleRate,
			)
		}
		return fileSource, nil
	default:
		return source.NewToneSource(
			settings.ToneFrequency,
			settings.ToneAmplitude,
			settings.ToneChannels,
			settings.SampleRate,
		)
	}
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flag.Parse()

	if err := config.LoadConfig(*configFilePath); err != nil {
		panic(err)
	}
	settings, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logFilePointer, err := utils.ConfigureDefaultLogger(
		settings.LogLevel,
		settings.LogFile,
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// --------------------------------------------------------------------------------

	peripheralDriver, err := driver.NewDriver(settings.Driver, settings.DriverOptions)
	if err != nil {
		slog.Error("could not create driver", "driver", settings.Driver, "err", err)
		os.Exit(1)
	}

	producer, err := initializeProducer(settings)
	if err != nil {
		slog.Error("could not create source", "source", settings.Source, "err", err)
		os.Exit(1)
	}
	defer producer.Close()

	queue := block.NewQueue(2, queueDepth)
	audioOutput, err := output.New(peripheralDriver, queue, settings.OutputOptions())
	if err != nil {
		slog.Error("could not create output", "err", err)
		os.Exit(1)
	}
	defer audioOutput.Shutdown()

	if err := audioOutput.Initialize(); err != nil {
		// Initialize has logged the cause. Keep running so blocks still drain,
		// and retry once before giving up on output.
		if err := audioOutput.Initialize(); err != nil {
			slog.Warn("running without an installed peripheral")
		}
	}

	// --------------------------------------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if settings.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Duration)
		defer cancel()
	}

	var blockPeriod = audiomanager.BlockPeriod(settings.SampleRate)
	if !settings.PaceBlocks {
		blockPeriod = 0
	}
	manager, err := audiomanager.NewAudioManager(producer, queue, audioOutput, blockPeriod, slog.Default())
	if err != nil {
		slog.Error("could not create audio manager", "err", err)
		os.Exit(1)
	}

	slog.Info(
		"starting playback",
		"driver", settings.Driver,
		"source", settings.Source,
		"sampleRate", settings.SampleRate,
		"paced", settings.PaceBlocks,
	)
	err = manager.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("playback stopped", "err", err)
	}
	slog.Info("playback finished", "cycles", manager.Cycles(), "stats", audioOutput.Stats())
}
