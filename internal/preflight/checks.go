package preflight

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/dustin/go-humanize"

	"cbzpress/internal/imaging"
	"cbzpress/internal/platform"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(strategy platform.Strategy, name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if err := strategy.CheckAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEncoder encodes a small gradient with the configured format so a broken
// encoder surfaces before any archive is opened.
func CheckEncoder(format string, quality int) Result {
	name := fmt.Sprintf("Encoder (%s)", format)
	encoder, err := imaging.NewEncoder(format, quality)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	probe := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			probe.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, probe); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("encode failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("ok (%s probe)", humanize.Bytes(uint64(buf.Len())))}
}
