package config

const (
	defaultScratchDir           = "~/.local/share/cbzpress/scratch"
	defaultLogDir               = "~/.local/share/cbzpress/logs"
	defaultFormat               = "webp"
	defaultQualityColor         = 60
	defaultQualityGrayscale     = 35
	defaultMaxHeight            = 2400
	defaultKeepThresholdPercent = 75
	defaultChromaThreshold      = 2.5
	defaultSampleEdge           = 512
	defaultPackLevel            = 6
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Compression: Compression{
			Format:               defaultFormat,
			QualityColor:         defaultQualityColor,
			QualityGrayscale:     defaultQualityGrayscale,
			MaxHeight:            defaultMaxHeight,
			KeepThresholdPercent: defaultKeepThresholdPercent,
			ChromaThreshold:      defaultChromaThreshold,
			SampleEdge:           defaultSampleEdge,
			PackLevel:            defaultPackLevel,
		},
		Batch: Batch{
			Recursive: true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
