package profile

import (
	"math"
	"sort"
)

const (
	minModeCount   = 3
	maxModeCount   = 5
	modeScoreFloor = 0.25
)

// generateModes scores all six archetypes against the profile, keeps the
// top three unconditionally, and extends to five while scores stay at or
// above the floor. The result is sorted by descending score.
func generateModes(p *ImageProfile) []GeneratedMode {
	scored := make([]GeneratedMode, 0, archetypeCount)

	for a := Archetype(0); a < archetypeCount; a++ {
		scored = append(scored, GeneratedMode{
			ID:          a.String(),
			Archetype:   a,
			Score:       scoreArchetype(a, p),
			Name:        modeName(a, p),
			Description: modeDescription(a, p),
			Params:      deriveParams(a, p),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	kept := scored[:minModeCount]
	for i := minModeCount; i < len(scored) && len(kept) < maxModeCount; i++ {
		if scored[i].Score < modeScoreFloor {
			break
		}

		kept = append(kept, scored[i])
	}

	out := make([]GeneratedMode, len(kept))
	copy(out, kept)

	return out
}

// scoreArchetype is a fixed linear blend of profile scalars per
// archetype. The weights are part of the behavior contract; see the
// per-case comments for what each archetype favors.
func scoreArchetype(a Archetype, p *ImageProfile) float64 {
	switch a {
	case ArchetypeTonal:
		// Smooth, bright images sing.
		return 0.40*(1-p.Contrast) + 0.40*p.Brightness + 0.20*(1-p.SpatialHigh)
	case ArchetypeRhythmic:
		// Hard edges and mid-scale structure pulse.
		return 0.50*p.Contrast + 0.30*p.SpatialMid + 0.20*p.SpatialHigh
	case ArchetypeTextural:
		// Fine grain and busy color shimmer.
		return 0.40*p.SpatialHigh + 0.35*p.Contrast + 0.25*p.Saturation
	case ArchetypeSub:
		// Dark, desaturated, large-scale images rumble.
		return 0.50*(1-p.Brightness) + 0.30*(1-p.Saturation) + 0.20*p.SpatialLow
	case ArchetypeSpectral:
		// Strong color identity maps channels to bands.
		return 0.50*p.Saturation + 0.30*2*math.Abs(p.Warmth-0.5) + 0.20*p.Brightness
	case ArchetypeChromaticNoise:
		// Harsh, saturated detail crushes well.
		return 0.40*p.Contrast + 0.30*p.SpatialHigh + 0.30*p.Saturation
	default:
		return 0
	}
}

var modeNamePools = map[Archetype][4]string{
	ArchetypeTonal:          {"Cold Drift", "Night Choir", "Ember Drone", "Golden Hour"},
	ArchetypeRhythmic:       {"Slate Pulse", "Strobe Field", "Copper Clock", "Sun Hammer"},
	ArchetypeTextural:       {"Frost Grain", "Pale Static", "Rust Murmur", "Warm Gravel"},
	ArchetypeSub:            {"Deep Floor", "Grey Mass", "Tar Pit", "Amber Weight"},
	ArchetypeSpectral:       {"Prism Veil", "Glass Spectrum", "Heat Haze", "Chroma Bloom"},
	ArchetypeChromaticNoise: {"Bit Sleet", "White Shatter", "Scorched Grid", "Neon Grit"},
}

// modeName picks from a fixed per-archetype pool indexed by the warmth
// and brightness halves of the profile, so the same image always names
// its modes the same way.
func modeName(a Archetype, p *ImageProfile) string {
	idx := 0
	if p.Warmth > 0.5 {
		idx |= 1
	}

	if p.Brightness > 0.5 {
		idx |= 2
	}

	pool := modeNamePools[a]

	return pool[idx]
}

func modeDescription(a Archetype, p *ImageProfile) string {
	color := "muted"
	if p.Saturation > 0.5 {
		color = "vivid"
	}

	switch a {
	case ArchetypeTonal:
		return "Sustained harmonic bed following the " + color + " spectrum of the scan line."
	case ArchetypeRhythmic:
		return "Edge-triggered percussive hits driven by " + color + " image contrast."
	case ArchetypeTextural:
		return "Granular cloud seeded by " + color + " fine detail."
	case ArchetypeSub:
		return "Low-register weight drawn from the darkest " + color + " regions."
	case ArchetypeSpectral:
		return "Channel-split bands encoding the image's " + color + " color balance."
	case ArchetypeChromaticNoise:
		return "Quantized, ring-modulated noise shaped by " + color + " saturation."
	default:
		return ""
	}
}

// deriveParams tunes ModeParams as deterministic functions of the
// profile scalars. Each archetype gets its own bin-curve shape.
func deriveParams(a Archetype, p *ImageProfile) ModeParams {
	m := ModeParams{
		RootHz: p.RootHz,
		Scale:  p.Scale,

		SpectralSmoothing: 2 + 6*(1-p.Contrast),
		DetuneSpread:      0.04 + 0.16*p.Saturation,
		Attack:            0.005 + 0.08*(1-p.Contrast),
		Release:           0.15 + 0.85*(1-p.Brightness),
		TriggerThreshold:  0.12 + 0.28*(1-p.Contrast),
		GrainDensity:      4 + 36*p.SpatialHigh,
		GrainWidth:        1 + 3*p.Saturation,
		HarmonicRichness:  0.5*p.Contrast + 0.5*p.SpatialHigh,
		StereoWidth:       0.2 + 0.6*p.Saturation,
		Gain:              0.8,

		OscWeights: OscWeights{
			Sine:     0.4 + 0.6*(1-p.Contrast),
			Triangle: 0.3 + 0.4*p.Warmth,
			Saw:      0.2 + 0.8*p.HarmonicBias(),
		},
	}

	m.ColorBalance = colorBalance(p)

	center := 4 + p.Brightness*float64(NumBins-8)

	switch a {
	case ArchetypeTonal:
		m.BinWeights = peakedCurve(center, 3+5*(1-p.Contrast))
	case ArchetypeRhythmic:
		m.BinWeights = uniformCurve()
		m.SpectralSmoothing = 8
		m.Release = 0.1 + 0.4*(1-p.Brightness)
	case ArchetypeTextural:
		m.BinWeights = bandCurve(center, 3+4*p.SpatialHigh)
	case ArchetypeSub:
		m.BinWeights = lowPassCurve(0.6 + 0.3*p.Brightness)
		m.StereoWidth = 0.1
		m.Gain = 0.9
	case ArchetypeSpectral:
		m.BinWeights = uniformCurve()
	case ArchetypeChromaticNoise:
		m.BinWeights = highPassCurve(0.5 + 0.4*p.Contrast)
		m.Gain = 0.6
		m.DetuneSpread = 0.2 + 0.5*p.Saturation
	}

	return m
}

// HarmonicBias is the tendency toward buzzy waveforms, derived from
// edge energy.
func (p *ImageProfile) HarmonicBias() float64 {
	return clamp01(0.5*p.Contrast + 0.5*p.SpatialHigh)
}

func colorBalance(p *ImageProfile) [3]float64 {
	r := 0.5 + 0.5*(p.Warmth*2-1)
	b := 0.5 - 0.5*(p.Warmth*2-1)
	g := 1 - math.Abs(p.Warmth-0.5)

	sum := r + g + b
	if sum <= 0 {
		return [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	}

	return [3]float64{r / sum, g / sum, b / sum}
}

func uniformCurve() [NumBins]float64 {
	var c [NumBins]float64
	for i := range c {
		c[i] = 1
	}

	return c
}

func lowPassCurve(rolloff float64) [NumBins]float64 {
	var c [NumBins]float64
	for i := range c {
		t := float64(i) / float64(NumBins-1)
		c[i] = math.Pow(1-t, 1+3*rolloff)
	}

	return c
}

func highPassCurve(rolloff float64) [NumBins]float64 {
	var c [NumBins]float64
	for i := range c {
		t := float64(i) / float64(NumBins-1)
		c[i] = math.Pow(t, 1+3*rolloff)
	}

	return c
}

func bandCurve(center, width float64) [NumBins]float64 {
	var c [NumBins]float64
	for i := range c {
		d := (float64(i) - center) / width
		c[i] = math.Exp(-d * d)
	}

	return c
}

func peakedCurve(center, sharpness float64) [NumBins]float64 {
	var c [NumBins]float64
	for i := range c {
		d := math.Abs(float64(i)-center) / float64(NumBins)
		c[i] = 1 / (1 + sharpness*10*d*d)
	}

	return c
}
