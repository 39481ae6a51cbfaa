package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Classify decides whether img is colour or grayscale. Single-channel images
// and all-gray palettes short-circuit; everything else is sampled down to
// opts.SampleEdge on its longest side and judged by the standard deviation of
// its Cb and Cr channels against opts.ChromaThreshold.
func Classify(img image.Image, opts Options) Classification {
	switch src := img.(type) {
	case *image.Gray, *image.Gray16:
		return Grayscale
	case *image.Paletted:
		if grayPalette(src.Palette) {
			return Grayscale
		}
	}

	sample := sampleRGBA(img, opts.SampleEdge)
	cb, cr := chromaStddev(sample)
	if cb > opts.ChromaThreshold || cr > opts.ChromaThreshold {
		return Color
	}
	return Grayscale
}

func grayPalette(p color.Palette) bool {
	for _, c := range p {
		r, g, b, _ := c.RGBA()
		if r != g || g != b {
			return false
		}
	}
	return true
}

// sampleRGBA flattens img onto white, shrinking it first when its longest
// side exceeds edge.
func sampleRGBA(img image.Image, edge int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); edge > 0 && longest > edge {
		scale := float64(edge) / float64(longest)
		w = max(1, int(float64(w)*scale))
		h = max(1, int(float64(h)*scale))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func chromaStddev(img *image.RGBA) (float64, float64) {
	var n, sumCb, sumCr, sqCb, sqCr float64
	for i := 0; i+3 < len(img.Pix); i += 4 {
		_, cb, cr := color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		fcb, fcr := float64(cb), float64(cr)
		sumCb += fcb
		sumCr += fcr
		sqCb += fcb * fcb
		sqCr += fcr * fcr
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return stddev(sumCb, sqCb, n), stddev(sumCr, sqCr, n)
}

func stddev(sum, sq, n float64) float64 {
	mean := sum / n
	return math.Sqrt(max(0, sq/n-mean*mean))
}
