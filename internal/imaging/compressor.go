package imaging

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"cbzpress/internal/config"
	"cbzpress/internal/logging"
	"cbzpress/internal/services"
	"cbzpress/internal/textutil"
)

// Options controls classification, scaling and encoding.
type Options struct {
	Format           string
	QualityColor     int
	QualityGrayscale int
	// MaxHeight and MaxLongEdge cap output dimensions; zero disables a cap.
	MaxHeight       int
	MaxLongEdge     int
	Workers         int
	ChromaThreshold float64
	SampleEdge      int
}

// OptionsFromConfig copies the compression section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	c := cfg.Compression
	return Options{
		Format:           c.Format,
		QualityColor:     c.QualityColor,
		QualityGrayscale: c.QualityGrayscale,
		MaxHeight:        c.MaxHeight,
		MaxLongEdge:      c.MaxLongEdge,
		Workers:          c.Workers,
		ChromaThreshold:  c.ChromaThreshold,
		SampleEdge:       c.SampleEdge,
	}
}

// Compressor recompresses pages into a destination directory.
type Compressor struct {
	fs        afero.Fs
	opts      Options
	color     Encoder
	grayscale Encoder
	logger    *slog.Logger
}

// NewCompressor validates opts and prepares one encoder per colour class.
func NewCompressor(fsys afero.Fs, opts Options, logger *slog.Logger) (*Compressor, error) {
	colorEnc, err := NewEncoder(opts.Format, opts.QualityColor)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "compress", "color encoder", "", err)
	}
	grayEnc, err := NewEncoder(opts.Format, opts.QualityGrayscale)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "compress", "grayscale encoder", "", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compressor{
		fs:        fsys,
		opts:      opts,
		color:     colorEnc,
		grayscale: grayEnc,
		logger:    logger,
	}, nil
}

// Ext is the extension every compressed variant receives.
func (c *Compressor) Ext() string { return c.color.Ext() }

// CompressAll compresses every page on a pool of at most Options.Workers
// goroutines. The first failure cancels the pages that have not started.
func (c *Compressor) CompressAll(ctx context.Context, pages []*Page, destDir string) error {
	if err := c.fs.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrCodec, "compress", "create output dir", destDir, err)
	}
	names := variantNames(pages, c.Ext())

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(c.opts.Workers)
	for i, page := range pages {
		group.Go(func() error {
			return c.compressTo(gctx, page, filepath.Join(destDir, names[i]))
		})
	}
	return group.Wait()
}

// Compress encodes a single page into destDir as <stem>.<ext> and records the
// result on page.Compressed.
func (c *Compressor) Compress(ctx context.Context, page *Page, destDir string) error {
	if err := c.fs.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrCodec, "compress", "create output dir", destDir, err)
	}
	stem, _ := textutil.SplitName(page.Name)
	return c.compressTo(ctx, page, filepath.Join(destDir, stem+"."+c.Ext()))
}

func (c *Compressor) compressTo(ctx context.Context, page *Page, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := decodeFile(c.fs, page.Path)
	if err != nil {
		return err
	}
	if page.Color == Undetermined {
		page.Color = Classify(img, c.opts)
	}
	encoder := c.color
	if page.Color == Grayscale {
		encoder = c.grayscale
	}

	out := resize(flatten(img), c.opts.MaxHeight, c.opts.MaxLongEdge)
	size, err := c.write(dest, out, encoder)
	if err != nil {
		return services.Wrap(services.ErrCodec, "compress", "encode", page.Name, err)
	}

	b := out.Bounds()
	page.Compressed = &Variant{
		Path:   dest,
		Size:   size,
		Width:  b.Dx(),
		Height: b.Dy(),
		Color:  page.Color,
	}
	c.logger.Debug("page compressed",
		logging.String("page", page.Name),
		logging.String("color", page.Color.String()),
		logging.Int64("original_bytes", page.Size),
		logging.Int64("compressed_bytes", size),
	)
	return nil
}

func (c *Compressor) write(dest string, img image.Image, encoder Encoder) (size int64, err error) {
	file, err := c.fs.Create(dest)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = c.fs.Remove(dest)
		}
	}()

	buf := bufio.NewWriter(file)
	if err = encoder.Encode(buf, img); err != nil {
		return 0, err
	}
	if err = buf.Flush(); err != nil {
		return 0, err
	}
	if err = file.Close(); err != nil {
		return 0, err
	}
	info, err := c.fs.Stat(dest)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ScaleFactor returns the uniform factor that fits width×height under both
// caps, or 1 when no downscale is needed. Zero caps are ignored.
func ScaleFactor(width, height, maxHeight, maxLongEdge int) float64 {
	scale := 1.0
	if maxHeight > 0 && height > maxHeight {
		scale = min(scale, float64(maxHeight)/float64(height))
	}
	if longest := max(width, height); maxLongEdge > 0 && longest > maxLongEdge {
		scale = min(scale, float64(maxLongEdge)/float64(longest))
	}
	return scale
}

// flatten composites img onto white so alpha and palettes never reach the
// encoder. Gray and opaque RGB images pass through.
func flatten(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.YCbCr:
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func resize(img image.Image, maxHeight, maxLongEdge int) image.Image {
	b := img.Bounds()
	scale := ScaleFactor(b.Dx(), b.Dy(), maxHeight, maxLongEdge)
	if scale >= 1 {
		return img
	}
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// variantNames maps each page to <stem>.<ext>. Pages whose stems collide
// (01.png next to 01.jpg) keep their full name as the stem instead.
func variantNames(pages []*Page, ext string) []string {
	counts := make(map[string]int, len(pages))
	for _, page := range pages {
		stem, _ := textutil.SplitName(page.Name)
		counts[stem]++
	}
	names := make([]string, len(pages))
	for i, page := range pages {
		stem, _ := textutil.SplitName(page.Name)
		if counts[stem] > 1 {
			stem = page.Name
		}
		names[i] = fmt.Sprintf("%s.%s", stem, ext)
	}
	return names
}
