package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"cbzpress/internal/archive"
	"cbzpress/internal/complog"
	"cbzpress/internal/config"
	"cbzpress/internal/imaging"
	"cbzpress/internal/keep"
	"cbzpress/internal/platform"
)

// Options is the immutable per-batch configuration.
type Options struct {
	Imaging        imaging.Options
	Keep           keep.Engine
	PackLevel      int
	ScratchDir     string
	Recursive      bool
	HaltOnCritical bool
}

// OptionsFromConfig converts a loaded configuration once.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Imaging: imaging.OptionsFromConfig(cfg),
		Keep: keep.Engine{
			ThresholdPercent:     cfg.Compression.KeepThresholdPercent,
			AlwaysKeepCompressed: cfg.Compression.AlwaysKeepCompressed,
		},
		PackLevel:      cfg.Compression.PackLevel,
		ScratchDir:     cfg.Paths.ScratchDir,
		Recursive:      cfg.Batch.Recursive,
		HaltOnCritical: cfg.Batch.HaltOnCritical,
	}
}

func (o Options) logSettings() complog.Settings {
	return complog.Settings{
		Format:           o.Imaging.Format,
		QualityGrayscale: o.Imaging.QualityGrayscale,
		QualityColor:     o.Imaging.QualityColor,
		AlwaysKeep:       o.Keep.AlwaysKeepCompressed,
	}
}

// PageCompressor produces a compressed variant for every page.
type PageCompressor interface {
	CompressAll(ctx context.Context, pages []*imaging.Page, destDir string) error
}

// Dependencies are the collaborators an Orchestrator works with. Nil fields
// receive defaults; FS must view the same files as the archive codec, so it
// is an OS filesystem outside of tests.
type Dependencies struct {
	FS         afero.Fs
	Strategy   platform.Strategy
	Codec      *archive.Codec
	Compressor PageCompressor
	Logger     *slog.Logger
	Clock      func() time.Time
}

func (d Dependencies) withDefaults(opts Options) (Dependencies, error) {
	if d.FS == nil {
		d.FS = afero.NewOsFs()
	}
	if d.Strategy == nil {
		d.Strategy = platform.Detect()
	}
	if d.Codec == nil {
		d.Codec = archive.NewCodec(opts.PackLevel, d.Strategy, d.Logger)
	}
	if d.Compressor == nil {
		compressor, err := imaging.NewCompressor(d.FS, opts.Imaging, d.Logger)
		if err != nil {
			return d, err
		}
		d.Compressor = compressor
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d, nil
}
