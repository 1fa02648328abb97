// Package scan reads windowed pixel samples from a layer's rectangle.
//
// A layer's rectangle is split into profile.NumBins subdivisions along
// the axis perpendicular to scan travel; for each bin a short window of
// pixels is read along the travel axis around the scan head. Sampling
// is bit-reproducible for identical inputs: there is no randomness and
// every coordinate access is clamped to image bounds.
package scan

import (
	"math"
	"strings"

	"github.com/cwbudde/algo-sonify/sonic/profile"
)

// windowSize is the number of samples read along the travel axis per bin.
const windowSize = 7

// edgeThreshold is the adjacent-bin luminance delta (0-255 scale) that
// counts as an edge.
const edgeThreshold = 25.0

// Direction is a layer's scan travel direction.
type Direction int

const (
	DirectionHorizontal Direction = iota
	DirectionVertical
	DirectionDiagonalDown
	DirectionDiagonalUp
)

// String returns the direction's stable identifier.
func (d Direction) String() string {
	switch d {
	case DirectionHorizontal:
		return "horizontal"
	case DirectionVertical:
		return "vertical"
	case DirectionDiagonalDown:
		return "diagonal_down"
	case DirectionDiagonalUp:
		return "diagonal_up"
	default:
		return "horizontal"
	}
}

// ParseDirection maps a config string to a Direction. Unknown values
// fall back to horizontal.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical":
		return DirectionVertical
	case "diagonal_down", "diagonal-down":
		return DirectionDiagonalDown
	case "diagonal_up", "diagonal-up":
		return DirectionDiagonalUp
	default:
		return DirectionHorizontal
	}
}

// Region is a layer's rectangle in image coordinates.
type Region struct {
	X, Y, W, H float64
}

// PixelSample is one frame's read at a scan-head position. It is
// ephemeral: recreated every frame, with no identity beyond the layer
// that produced it.
type PixelSample struct {
	// Brightness is mean luminance on a 0-255 scale.
	Brightness float64
	// Hue is in degrees [0, 360); Saturation in [0, 1].
	Hue        float64
	Saturation float64
	// EdgeDensity is the fraction of adjacent-bin luminance deltas
	// exceeding the edge threshold.
	EdgeDensity float64
	// R, G, B are mean channel levels on a 0-255 scale.
	R, G, B float64
	// Contrast is normalized cross-bin deviation in [0, 1].
	Contrast float64

	SpectrumBins [profile.NumBins]float64
	BinVariance  [profile.NumBins]float64
}

// Sample reads a PixelSample at the given scan-head position.
//
// A zero-area region degrades to the zero sample rather than failing;
// downstream synthesis treats that as silence.
func Sample(pix []byte, width, height int, region Region, dir Direction, headX, headY float64) PixelSample {
	var s PixelSample

	if width <= 0 || height <= 0 || len(pix) < width*height*4 {
		return s
	}

	if region.W <= 0 || region.H <= 0 {
		return s
	}

	travelX, travelY, perpX, perpY := axes(dir)

	// Bins span the rectangle along the perpendicular axis; for
	// diagonal scans the perpendicular extent is the smaller side.
	perpExtent := region.H
	switch dir {
	case DirectionVertical:
		perpExtent = region.W
	case DirectionDiagonalDown, DirectionDiagonalUp:
		perpExtent = math.Min(region.W, region.H)
	}

	var (
		binLums [profile.NumBins]float64
		sumR    float64
		sumG    float64
		sumB    float64
	)

	for bin := 0; bin < profile.NumBins; bin++ {
		offset := ((float64(bin)+0.5)/profile.NumBins - 0.5) * perpExtent

		centerX := headX + perpX*offset
		centerY := headY + perpY*offset

		if dir == DirectionHorizontal {
			// Horizontal scan bins are rows of the rectangle; the head
			// supplies only the X coordinate.
			centerX = headX
			centerY = region.Y + (float64(bin)+0.5)/profile.NumBins*region.H
		}

		if dir == DirectionVertical {
			centerX = region.X + (float64(bin)+0.5)/profile.NumBins*region.W
			centerY = headY
		}

		var window [windowSize]float64

		var accR, accG, accB float64

		for j := 0; j < windowSize; j++ {
			step := float64(j - windowSize/2)

			x := clampInt(int(centerX+travelX*step), 0, width-1)
			y := clampInt(int(centerY+travelY*step), 0, height-1)

			i := (y*width + x) * 4
			r := float64(pix[i])
			g := float64(pix[i+1])
			b := float64(pix[i+2])

			// Linear cross-fade across the window biases red toward the
			// window start and blue toward its end; green rides the middle.
			t := float64(j) / float64(windowSize-1)
			accR += r * (1 - t)
			accB += b * t
			accG += g * (1 - math.Abs(2*t-1))

			window[j] = 0.2126*r + 0.7152*g + 0.0722*b
		}

		mean := 0.0
		for _, l := range window {
			mean += l
		}
		mean /= windowSize

		variance := 0.0
		for _, l := range window {
			d := l - mean
			variance += d * d
		}
		variance /= windowSize

		binLums[bin] = mean

		// Normalize each channel by its own cross-fade weight sum so a
		// neutral window reads as neutral color.
		const wSumEdge = windowSize / 2.0 // sum of (1-t) and of t
		const wSumMid = windowSize/2.0 - 0.5

		binR := accR / wSumEdge
		binG := accG / wSumMid
		binB := accB / wSumEdge

		s.SpectrumBins[bin] = math.Min(mean/255*colorWeight(binR, binG, binB), 1)
		s.BinVariance[bin] = math.Min(variance/(64*64), 1)

		sumR += binR
		sumG += binG
		sumB += binB
	}

	s.R = sumR / profile.NumBins
	s.G = sumG / profile.NumBins
	s.B = sumB / profile.NumBins

	meanLum := 0.0
	for _, l := range binLums {
		meanLum += l
	}
	meanLum /= profile.NumBins

	variance := 0.0
	edges := 0

	for i, l := range binLums {
		d := l - meanLum
		variance += d * d

		if i > 0 && math.Abs(l-binLums[i-1]) > edgeThreshold {
			edges++
		}
	}
	variance /= profile.NumBins

	s.Brightness = meanLum
	s.Contrast = math.Min(math.Sqrt(variance)/80, 1)
	s.EdgeDensity = float64(edges) / (profile.NumBins - 1)
	s.Hue, s.Saturation = hueSaturation(s.R, s.G, s.B)

	return s
}

// MeanBinAmplitude returns the mean of the spectrum bins.
func (s *PixelSample) MeanBinAmplitude() float64 {
	sum := 0.0
	for _, v := range s.SpectrumBins {
		sum += v
	}

	return sum / profile.NumBins
}

// axes returns unit travel and perpendicular direction vectors.
func axes(dir Direction) (travelX, travelY, perpX, perpY float64) {
	const diag = 0.7071067811865476 // 1/sqrt(2)

	switch dir {
	case DirectionVertical:
		return 0, 1, 1, 0
	case DirectionDiagonalDown:
		return diag, diag, diag, -diag
	case DirectionDiagonalUp:
		return diag, -diag, diag, diag
	default:
		return 1, 0, 0, 1
	}
}

// colorWeight scales a bin's luminance contribution by how colorful the
// window was, so saturated regions read slightly hotter.
func colorWeight(r, g, b float64) float64 {
	maxC := math.Max(r, math.Max(g, b))
	if maxC <= 0 {
		return 0.75
	}

	minC := math.Min(r, math.Min(g, b))

	return 0.75 + 0.5*(maxC-minC)/maxC
}

func hueSaturation(r, g, b float64) (float64, float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))

	if maxC <= 0 || maxC == minC {
		return 0, 0
	}

	delta := maxC - minC

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

	return hue, delta / maxC
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
