package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// Sampling bounds keep analysis cost flat on huge images.
	maxColorSamples   = 4096
	maxSpatialSamples = 2048

	contrastDivisor = 80.0
)

// AnalyzeImage computes an ImageProfile from an RGBA pixel buffer.
//
// Analysis always succeeds for a well-formed buffer; degenerate images
// (blank, single color) yield a valid, low-contrast-biased profile. The
// only error condition is a buffer that does not match the declared
// dimensions.
func AnalyzeImage(pix []byte, width, height int) (*ImageProfile, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("profile: image dimensions must be > 0: %dx%d", width, height)
	}

	if len(pix) < width*height*4 {
		return nil, fmt.Errorf("profile: pixel buffer too short: %d bytes for %dx%d", len(pix), width, height)
	}

	p := &ImageProfile{}

	analyzeColor(p, pix, width, height)
	analyzeSpatial(p, pix, width, height)

	p.RootHz = rootForHue(p.Hue)
	p.Scale = scaleForCharacter(p.Saturation, p.Warmth, p.Contrast)
	p.Modes = generateModes(p)

	return p, nil
}

func analyzeColor(p *ImageProfile, pix []byte, width, height int) {
	total := width * height

	stride := 1
	if total > maxColorSamples {
		stride = total / maxColorSamples
	}

	var sumR, sumG, sumB, sumSat float64

	lums := make([]float64, 0, maxColorSamples+1)

	for i := 0; i < total; i += stride {
		r := float64(pix[i*4])
		g := float64(pix[i*4+1])
		b := float64(pix[i*4+2])

		sumR += r
		sumG += g
		sumB += b

		maxC := math.Max(r, math.Max(g, b))
		minC := math.Min(r, math.Min(g, b))
		if maxC > 0 {
			sumSat += (maxC - minC) / maxC
		}

		lums = append(lums, luminance(r, g, b))
	}

	n := float64(len(lums))
	if n == 0 {
		return
	}

	avgR := sumR / n
	avgG := sumG / n
	avgB := sumB / n

	meanLum := stat.Mean(lums, nil)
	varLum := stat.Variance(lums, nil)
	if math.IsNaN(varLum) {
		varLum = 0
	}

	p.Brightness = clamp01(meanLum / 255)
	p.Contrast = math.Min(math.Sqrt(varLum)/contrastDivisor, 1)
	p.Warmth = clamp01((avgR-avgB)/128*0.5 + 0.5)
	p.Saturation = clamp01(sumSat / n)
	p.Hue = rgbToHue(avgR, avgG, avgB)
}

// analyzeSpatial estimates low/mid/high spatial-frequency energy from
// luminance differences at 8, 4, and 1 pixel offsets along a strided
// walk of the buffer.
func analyzeSpatial(p *ImageProfile, pix []byte, width, height int) {
	total := width * height

	stride := 1
	if total > maxSpatialSamples {
		stride = total / maxSpatialSamples
	}

	offsets := [3]int{8, 4, 1} // low, mid, high

	var sums [3]float64

	var count int

	for i := 0; i < total; i += stride {
		x := i % width
		y := i / width

		l0 := lumAt(pix, width, x, y)

		for k, off := range offsets {
			xo := x + off
			if xo >= width {
				xo = width - 1
			}

			sums[k] += math.Abs(lumAt(pix, width, xo, y) - l0)
		}

		count++
	}

	if count == 0 {
		return
	}

	// Mean absolute difference, scaled so busy images approach 1.
	norm := func(s float64) float64 {
		return clamp01(s / float64(count) / 64)
	}

	p.SpatialLow = norm(sums[0])
	p.SpatialMid = norm(sums[1])
	p.SpatialHigh = norm(sums[2])
}

func lumAt(pix []byte, width, x, y int) float64 {
	i := (y*width + x) * 4
	return luminance(float64(pix[i]), float64(pix[i+1]), float64(pix[i+2]))
}

func luminance(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// rgbToHue converts average channel levels to a hue in [0, 360).
func rgbToHue(r, g, b float64) float64 {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))

	delta := maxC - minC
	if delta == 0 {
		return 0
	}

	var hue float64

	switch maxC {
	case r:
		hue = math.Mod((g-b)/delta, 6)
	case g:
		hue = (b-r)/delta + 2
	default:
		hue = (r-g)/delta + 4
	}

	hue *= 60
	if hue < 0 {
		hue += 360
	}

	return hue
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
