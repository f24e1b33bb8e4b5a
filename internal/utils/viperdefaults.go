package utils

import "github.com/spf13/viper"

// Set the viper defaults for the i2sout player.
// For use in cmd/i2sout and its config loader.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	viper.SetDefault("driver", "simulated")
	viper.SetDefault("samplerate", 44100)
	viper.SetDefault("dmabufcount", 2)
	viper.SetDefault("clampsamples", false)
	viper.SetDefault("retrymaxattempts", 0)
	viper.SetDefault("retrymaxelapsed", "0s")
	viper.SetDefault("paceblocks", false)
	viper.SetDefault("duration", "0s")

	viper.SetDefault("source", "tone")
	viper.SetDefault("sourcefile", "")
	viper.SetDefault("sourceloop", false)
	viper.SetDefault("tonefrequency", 440.0)
	viper.SetDefault("toneamplitude", 0.5)
	viper.SetDefault("tonechannels", 2)

	viper.SetDefault("wavpath", "output.wav")
	viper.SetDefault("serialport", "")
	viper.SetDefault("serialbaudrate", 2000000)
	viper.SetDefault("serialdatabits", 8)
	viper.SetDefault("serialparity", "N")
	viper.SetDefault("serialstopbits", 1)
}
