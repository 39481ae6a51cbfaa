package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"cbzpress/internal/logging"
	"cbzpress/internal/platform"
	"cbzpress/internal/services"
)

const (
	stageExtract = "extract"
	stagePack    = "pack"
)

// Codec extracts and packs archives.
type Codec struct {
	level    int
	strategy platform.Strategy
	logger   *slog.Logger
}

// NewCodec returns a codec that packs with the given deflate level (-2..9).
// A nil strategy uses platform.Detect.
func NewCodec(level int, strategy platform.Strategy, logger *slog.Logger) *Codec {
	if strategy == nil {
		strategy = platform.Detect()
	}
	return &Codec{
		level:    level,
		strategy: strategy,
		logger:   logging.NewComponentLogger(logger, "archive"),
	}
}

type plannedEntry struct {
	file   *zip.File
	name   string
	target string
	dir    bool
}

// Extract unpacks archivePath into destDir. Every entry name is validated
// before the first write; a hostile name fails the whole archive.
func (c *Codec) Extract(ctx context.Context, archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		if reader != nil {
			_ = reader.Close()
		}
		return services.Wrap(services.ErrIntegrity, stageExtract, "open archive", filepath.Base(archivePath), err)
	}
	defer reader.Close()

	plan := make([]plannedEntry, 0, len(reader.File))
	for _, f := range reader.File {
		name, err := entryName(f.Name)
		if err != nil {
			return services.Wrap(services.ErrIntegrity, stageExtract, "validate entry", "zip-slip", err)
		}
		target, err := entryTarget(destDir, name)
		if err != nil {
			return services.Wrap(services.ErrIntegrity, stageExtract, "validate entry", "zip-slip", err)
		}
		plan = append(plan, plannedEntry{
			file:   f,
			name:   name,
			target: target,
			dir:    strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir(),
		})
	}

	logger := logging.WithContext(ctx, c.logger)
	for _, entry := range plan {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		switch {
		case entry.name == ".":
			continue
		case entry.dir:
			if err := os.MkdirAll(entry.target, 0o755); err != nil {
				return services.Wrap(services.ErrIntegrity, stageExtract, "create directory", entry.name, err)
			}
		case entry.file.Mode()&fs.ModeSymlink != 0:
			logging.WarnWithContext(logger, "skipping symbolic link entry", "archive_symlink_skipped",
				logging.String("entry", entry.name),
				logging.String(logging.FieldImpact, "link target not extracted"),
				logging.String(logging.FieldErrorHint, "archives should contain regular files only"),
			)
		default:
			if err := extractFile(entry.file, entry.target); err != nil {
				return services.Wrap(services.ErrIntegrity, stageExtract, "extract entry", entry.name, err)
			}
		}
	}

	if err := c.strategy.FixPermissions(destDir); err != nil {
		return services.Wrap(services.ErrIntegrity, stageExtract, "fix permissions", "", err)
	}
	logger.Debug("archive extracted", logging.Int("entries", len(plan)), logging.String("dest_dir", destDir))
	return nil
}

func extractFile(f *zip.File, target string) (err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	// Reading to EOF is what triggers the CRC comparison.
	if _, err = io.Copy(tmp, rc); err != nil {
		if errors.Is(err, zip.ErrChecksum) {
			return fmt.Errorf("checksum mismatch: %w", err)
		}
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = rename(tmpName, target); err != nil {
		return err
	}
	if !f.Modified.IsZero() {
		_ = os.Chtimes(target, f.Modified, f.Modified)
	}
	return nil
}

// Staged is a packed archive waiting in a temp file beside its destination.
type Staged struct {
	TempPath string
	DestPath string
	Size     int64
	mode     fs.FileMode
}

// Commit replaces the destination with the staged archive. A rename across
// filesystems fails with a CrossDeviceError.
func (s *Staged) Commit() error {
	if err := os.Chmod(s.TempPath, s.mode); err != nil {
		return services.Wrap(services.ErrIntegrity, stagePack, "commit", "chmod staged archive", err)
	}
	if err := rename(s.TempPath, s.DestPath); err != nil {
		return services.Wrap(services.ErrIntegrity, stagePack, "commit", filepath.Base(s.DestPath), err)
	}
	syncDirBestEffort(filepath.Dir(s.DestPath))
	return nil
}

// Discard removes the staged temp file.
func (s *Staged) Discard() error {
	if err := os.Remove(s.TempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Pack writes every regular file under sourceDir into a new zip staged next to
// destPath. Entries are written in lexical path order. With keepRoot the
// base name of sourceDir prefixes every entry.
func (c *Codec) Pack(ctx context.Context, sourceDir, destPath string, keepRoot bool) (staged *Staged, err error) {
	destDir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(destDir, "."+filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, stagePack, "create temp archive", "", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	writer := zip.NewWriter(tmp)
	level := c.level
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	prefix := ""
	if keepRoot {
		prefix = filepath.Base(filepath.Clean(sourceDir)) + "/"
	}

	count := 0
	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := writeEntry(writer, prefix+filepath.ToSlash(rel), path, info); err != nil {
			return err
		}
		count++
		return nil
	})
	if walkErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pack: %w", ctxErr)
		}
		return nil, services.Wrap(services.ErrIntegrity, stagePack, "write archive", filepath.Base(destPath), walkErr)
	}
	if err = writer.Close(); err != nil {
		return nil, services.Wrap(services.ErrIntegrity, stagePack, "finalize archive", "", err)
	}
	if err = tmp.Sync(); err != nil {
		return nil, services.Wrap(services.ErrIntegrity, stagePack, "sync archive", "", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, stagePack, "stat archive", "", err)
	}

	mode := fs.FileMode(0o644)
	if existing, statErr := os.Stat(destPath); statErr == nil {
		mode = existing.Mode().Perm()
	}
	logging.WithContext(ctx, c.logger).Debug("archive staged",
		logging.Int("entries", count),
		logging.Int64("size_bytes", info.Size()),
	)
	return &Staged{TempPath: tmpName, DestPath: destPath, Size: info.Size(), mode: mode}, nil
}

func writeEntry(writer *zip.Writer, name, path string, info fs.FileInfo) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	header.SetMode(0o644)
	w, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}
