package imaging_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"cbzpress/internal/imaging"
	"cbzpress/internal/logging"
	"cbzpress/internal/services"
	"cbzpress/internal/testsupport"
)

func testOptions() imaging.Options {
	return imaging.Options{
		Format:           "jpeg",
		QualityColor:     60,
		QualityGrayscale: 35,
		Workers:          2,
		ChromaThreshold:  2.5,
		SampleEdge:       64,
	}
}

func writeImage(t *testing.T, fsys afero.Fs, path string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestEnumerateOrdersPagesLexically(t *testing.T) {
	fsys := afero.NewMemMapFs()
	png := testsupport.EncodePNG(t, testsupport.SolidImage(4, 6, color.White))
	for _, name := range []string{"10.png", "02.png", "01.png", "ComicInfo.xml", "CompressionLog.txt"} {
		writeImage(t, fsys, filepath.Join("/tree", name), png)
	}

	pages, err := imaging.Enumerate(fsys, "/tree")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	want := []string{"01.png", "02.png", "10.png"}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(pages))
	}
	for i, page := range pages {
		if page.Name != want[i] || page.Ordinal != i {
			t.Fatalf("page %d: got %s/%d", i, page.Name, page.Ordinal)
		}
		if page.Width != 4 || page.Height != 6 {
			t.Fatalf("unexpected dimensions %dx%d", page.Width, page.Height)
		}
		if page.Size != int64(len(png)) {
			t.Fatalf("unexpected size %d", page.Size)
		}
		if i > 0 && !(pages[i-1].Name < page.Name && pages[i-1].Ordinal < page.Ordinal) {
			t.Fatalf("ordering violated at %d", i)
		}
	}
}

func TestEnumerateRejectsUnexpectedFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeImage(t, fsys, "/tree/01.png", testsupport.EncodePNG(t, testsupport.SolidImage(2, 2, color.White)))
	writeImage(t, fsys, "/tree/notes.pdf", []byte("pdf"))

	if _, err := imaging.Enumerate(fsys, "/tree"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnumerateReportsUndecodablePage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeImage(t, fsys, "/tree/01.jpg", []byte("not a jpeg"))

	if _, err := imaging.Enumerate(fsys, "/tree"); !errors.Is(err, services.ErrCodec) {
		t.Fatalf("expected codec error, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	opts := testOptions()
	cases := map[string]struct {
		img  image.Image
		want imaging.Classification
	}{
		"gray type":  {image.NewGray(image.Rect(0, 0, 8, 8)), imaging.Grayscale},
		"gray noise": {testsupport.GrayNoiseImage(200, 100, 1), imaging.Grayscale},
		"color":      {testsupport.NoiseImage(200, 100, 2), imaging.Color},
		"gray palette": {
			image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White, color.Gray{Y: 128}}),
			imaging.Grayscale,
		},
	}
	for name, tc := range cases {
		if got := imaging.Classify(tc.img, opts); got != tc.want {
			t.Fatalf("%s: got %s want %s", name, got, tc.want)
		}
	}
}

func TestScaleFactor(t *testing.T) {
	cases := []struct {
		w, h, maxH, maxEdge int
		want                float64
	}{
		{1000, 2000, 0, 0, 1},
		{1000, 2000, 2400, 0, 1},
		{1000, 4800, 2400, 0, 0.5},
		{4000, 1000, 2400, 2000, 0.5},
		{1000, 4000, 2000, 1000, 0.25},
	}
	for _, tc := range cases {
		if got := imaging.ScaleFactor(tc.w, tc.h, tc.maxH, tc.maxEdge); got != tc.want {
			t.Fatalf("ScaleFactor(%d,%d,%d,%d) = %v want %v", tc.w, tc.h, tc.maxH, tc.maxEdge, got, tc.want)
		}
	}
}

func TestCompressAllProducesVariants(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeImage(t, fsys, "/tree/01.png", testsupport.EncodePNG(t, testsupport.NoiseImage(64, 128, 3)))
	writeImage(t, fsys, "/tree/02.png", testsupport.EncodePNG(t, testsupport.GrayNoiseImage(64, 128, 4)))

	opts := testOptions()
	opts.MaxHeight = 64
	compressor, err := imaging.NewCompressor(fsys, opts, logging.NewNop())
	if err != nil {
		t.Fatalf("NewCompressor: %v", err)
	}
	pages, err := imaging.Enumerate(fsys, "/tree")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if err := compressor.CompressAll(context.Background(), pages, "/out"); err != nil {
		t.Fatalf("CompressAll: %v", err)
	}

	wantColor := []imaging.Classification{imaging.Color, imaging.Grayscale}
	for i, page := range pages {
		v := page.Compressed
		if v == nil {
			t.Fatalf("page %s has no variant", page.Name)
		}
		if v.Path != filepath.Join("/out", page.Name[:2]+".jpg") {
			t.Fatalf("unexpected variant path %s", v.Path)
		}
		if v.Width != 32 || v.Height != 64 {
			t.Fatalf("expected downscale to 32x64, got %dx%d", v.Width, v.Height)
		}
		if page.Color != wantColor[i] || v.Color != page.Color {
			t.Fatalf("page %s: color %s variant %s", page.Name, page.Color, v.Color)
		}
		info, err := fsys.Stat(v.Path)
		if err != nil || info.Size() != v.Size {
			t.Fatalf("variant size mismatch: %v", err)
		}
	}
}

func TestCompressAllFailsOnBrokenPage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	png := testsupport.EncodePNG(t, testsupport.SolidImage(8, 8, color.White))
	for _, name := range []string{"01.png", "02.png", "03.png"} {
		writeImage(t, fsys, filepath.Join("/tree", name), png)
	}
	pages, err := imaging.Enumerate(fsys, "/tree")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	// Break the page after enumeration so only decoding fails.
	writeImage(t, fsys, "/tree/02.png", png[:len(png)/2])

	compressor, err := imaging.NewCompressor(fsys, testOptions(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewCompressor: %v", err)
	}
	if err := compressor.CompressAll(context.Background(), pages, "/out"); !errors.Is(err, services.ErrCodec) {
		t.Fatalf("expected codec error, got %v", err)
	}
}

func TestCompressFlattensAlphaOntoWhite(t *testing.T) {
	fsys := afero.NewMemMapFs()
	transparent := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	writeImage(t, fsys, "/tree/01.png", testsupport.EncodePNG(t, transparent))
	pages, err := imaging.Enumerate(fsys, "/tree")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	compressor, err := imaging.NewCompressor(fsys, testOptions(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewCompressor: %v", err)
	}
	if err := compressor.Compress(context.Background(), pages[0], "/out"); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	data, err := afero.ReadFile(fsys, pages[0].Compressed.Path)
	if err != nil {
		t.Fatalf("read variant: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode variant: %v", err)
	}
	r, g, b, _ := img.At(8, 8).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Fatalf("expected white background, got %d/%d/%d", r>>8, g>>8, b>>8)
	}
}

func TestNewEncoder(t *testing.T) {
	enc, err := imaging.NewEncoder("webp", 50)
	if err != nil {
		t.Fatalf("NewEncoder webp: %v", err)
	}
	if enc.Ext() != "webp" {
		t.Fatalf("unexpected ext %q", enc.Ext())
	}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, testsupport.NoiseImage(16, 16, 5)); err != nil {
		t.Fatalf("encode webp: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		t.Fatalf("expected RIFF/WEBP header, got % x", data[:min(12, len(data))])
	}

	if _, err := imaging.NewEncoder("bmp", 50); err == nil {
		t.Fatal("expected unsupported format error")
	}
	if _, err := imaging.NewEncoder("jpeg", 0); err == nil {
		t.Fatal("expected quality range error")
	}
}

func TestDescribe(t *testing.T) {
	got := imaging.Describe("01.jpg", 800, 1200, imaging.Grayscale, 4096)
	want := "01.jpg - Dimensions: 800x1200, Color: Grayscale, Size 4096 bytes"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if imaging.Undetermined.String() != "Undefined" {
		t.Fatalf("unexpected undetermined label %q", imaging.Undetermined)
	}
}
