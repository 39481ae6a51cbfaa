package imaging

import (
	"bufio"
	"image"
	"path/filepath"

	// Decoders for every supported page format.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spf13/afero"

	"cbzpress/internal/services"
)

func decodeFile(fsys afero.Fs, path string) (image.Image, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrCodec, "compress", "open", filepath.Base(path), err)
	}
	defer file.Close()

	img, _, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, services.Wrap(services.ErrCodec, "compress", "decode", filepath.Base(path), err)
	}
	return img, nil
}
