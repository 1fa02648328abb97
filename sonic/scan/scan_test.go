package scan

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sonify/internal/testutil"
	"github.com/cwbudde/algo-sonify/sonic/profile"
)

func TestSampleUniformGray(t *testing.T) {
	pix := testutil.SolidImage(64, 48, 128, 128, 128)
	region := Region{X: 8, Y: 8, W: 48, H: 32}

	s := Sample(pix, 64, 48, region, DirectionHorizontal, 30, 0)

	for bin := 0; bin < profile.NumBins; bin++ {
		if s.BinVariance[bin] > 1e-9 {
			t.Fatalf("bin %d variance = %g, want ~0", bin, s.BinVariance[bin])
		}

		if diff := math.Abs(s.SpectrumBins[bin] - s.SpectrumBins[0]); diff > 1e-9 {
			t.Fatalf("bin %d amplitude %g differs from bin 0 %g", bin, s.SpectrumBins[bin], s.SpectrumBins[0])
		}
	}

	if s.EdgeDensity != 0 {
		t.Fatalf("EdgeDensity = %g, want 0", s.EdgeDensity)
	}

	if s.Saturation > 1e-9 {
		t.Fatalf("Saturation = %g, want ~0 for gray", s.Saturation)
	}

	if math.Abs(s.Brightness-128) > 1 {
		t.Fatalf("Brightness = %g, want ~128", s.Brightness)
	}
}

func TestSampleZeroAreaRegionDegradesToSilence(t *testing.T) {
	pix := testutil.SolidImage(16, 16, 200, 10, 10)

	for _, region := range []Region{{}, {X: 4, Y: 4, W: 0, H: 8}, {X: 4, Y: 4, W: 8, H: 0}} {
		s := Sample(pix, 16, 16, region, DirectionHorizontal, 8, 8)
		if s.MeanBinAmplitude() != 0 || s.Brightness != 0 {
			t.Fatalf("region %+v: expected zero sample, got brightness %g", region, s.Brightness)
		}
	}
}

func TestSampleDeterministic(t *testing.T) {
	pix := testutil.GradientImage(32, 32)

	region := Region{X: 2, Y: 2, W: 28, H: 28}

	for _, dir := range []Direction{DirectionHorizontal, DirectionVertical, DirectionDiagonalDown, DirectionDiagonalUp} {
		a := Sample(pix, 32, 32, region, dir, 16, 16)
		b := Sample(pix, 32, 32, region, dir, 16, 16)

		if a != b {
			t.Fatalf("direction %v: repeated sample differs", dir)
		}
	}
}

func TestSampleClampsOutOfBoundsHead(t *testing.T) {
	pix := testutil.SolidImage(16, 16, 90, 90, 90)
	region := Region{X: 0, Y: 0, W: 16, H: 16}

	// Heads far outside the image must not panic and still read clamped pixels.
	for _, head := range [][2]float64{{-100, -100}, {1000, 1000}, {8, -50}} {
		s := Sample(pix, 16, 16, region, DirectionDiagonalDown, head[0], head[1])
		if math.IsNaN(s.Brightness) {
			t.Fatalf("head %v: NaN brightness", head)
		}
	}
}

func TestSampleEdgeDensityDetectsStripes(t *testing.T) {
	// Alternate black/white horizontal stripes, one per bin row.
	const w, h = 48, 48

	pix := testutil.StripeImage(w, h, 2)

	s := Sample(pix, w, h, Region{X: 0, Y: 0, W: w, H: h}, DirectionHorizontal, 24, 0)

	if s.EdgeDensity < 0.5 {
		t.Fatalf("EdgeDensity = %g, want >= 0.5 for hard stripes", s.EdgeDensity)
	}

	if s.Contrast < 0.5 {
		t.Fatalf("Contrast = %g, want >= 0.5 for hard stripes", s.Contrast)
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"horizontal":    DirectionHorizontal,
		"VERTICAL":      DirectionVertical,
		"diagonal_down": DirectionDiagonalDown,
		"diagonal-up":   DirectionDiagonalUp,
		"nonsense":      DirectionHorizontal,
	}

	for in, want := range cases {
		if got := ParseDirection(in); got != want {
			t.Fatalf("ParseDirection(%q) = %v, want %v", in, got, want)
		}
	}
}
