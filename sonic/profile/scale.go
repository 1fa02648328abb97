package profile

import "math"

// Scale is an ordered set of pitch ratios relative to the root, covering
// one octave. Ratios[0] is always 1.
type Scale struct {
	Name   string
	Ratios []float64
}

// rootA2Hz anchors the chromatic root table. Roots are the twelve equal
// tempered pitches of the octave starting at A2.
const rootA2Hz = 110.0

// brightnessOctaveSpan maps pixel brightness [0, 255] onto three octaves.
const brightnessOctaveSpan = 256.0 / 3.0

var scaleSemitones = map[string][]int{
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"pentatonic": {0, 2, 4, 7, 9},
	"wholetone":  {0, 2, 4, 6, 8, 10},
	"chromatic":  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// ScaleByName returns a named scale. Unknown names fall back to pentatonic.
func ScaleByName(name string) Scale {
	semis, ok := scaleSemitones[name]
	if !ok {
		name = "pentatonic"
		semis = scaleSemitones[name]
	}

	ratios := make([]float64, len(semis))
	for i, s := range semis {
		ratios[i] = math.Pow(2, float64(s)/12)
	}

	return Scale{Name: name, Ratios: ratios}
}

// rootForHue picks one of the twelve chromatic roots by hue sector
// (30 degree sextants of the color wheel, two per sextant pair).
func rootForHue(hueDegrees float64) float64 {
	hue := math.Mod(hueDegrees, 360)
	if hue < 0 {
		hue += 360
	}

	sector := int(hue / 30)
	if sector > 11 {
		sector = 11
	}

	return rootA2Hz * math.Pow(2, float64(sector)/12)
}

// scaleForCharacter selects a scale from the fixed decision table on
// (saturation, warmth, contrast).
func scaleForCharacter(saturation, warmth, contrast float64) Scale {
	switch {
	case saturation < 0.2:
		if contrast > 0.5 {
			return ScaleByName("chromatic")
		}
		return ScaleByName("wholetone")
	case warmth > 0.6:
		if contrast > 0.5 {
			return ScaleByName("major")
		}
		return ScaleByName("pentatonic")
	case warmth < 0.4:
		return ScaleByName("minor")
	default:
		return ScaleByName("pentatonic")
	}
}

// BrightnessToFrequency maps a pixel brightness in [0, 255] to a pitch
// on the profile's scale. Brightness 0 is the root; the mapping climbs
// the scale degrees monotonically and spans three octaves, stepping up
// an octave near brightness 85 and 170.
func BrightnessToFrequency(brightness float64, p *ImageProfile) float64 {
	if p == nil || len(p.Scale.Ratios) == 0 {
		return rootA2Hz
	}

	if brightness < 0 {
		brightness = 0
	}

	if brightness > 255 {
		brightness = 255
	}

	octave := int(brightness / brightnessOctaveSpan)
	if octave > 2 {
		octave = 2
	}

	frac := (brightness - float64(octave)*brightnessOctaveSpan) / brightnessOctaveSpan

	degree := int(frac * float64(len(p.Scale.Ratios)))
	if degree >= len(p.Scale.Ratios) {
		degree = len(p.Scale.Ratios) - 1
	}

	return p.RootHz * math.Pow(2, float64(octave)) * p.Scale.Ratios[degree]
}

// SnapToScale returns the scale pitch nearest to hz, measured in
// semitones. Snapping is idempotent: a pitch already on the scale maps
// to itself.
func SnapToScale(hz float64, p *ImageProfile) float64 {
	if p == nil || len(p.Scale.Ratios) == 0 {
		return hz
	}

	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return p.RootHz
	}

	semis := 12 * math.Log2(hz/p.RootHz)
	octave := math.Floor(semis / 12)
	within := semis - 12*octave

	best := 0.0
	bestDist := math.Inf(1)

	for _, r := range p.Scale.Ratios {
		cand := 12 * math.Log2(r)
		if d := math.Abs(within - cand); d < bestDist {
			bestDist = d
			best = cand
		}
	}

	// The next octave's root can be closer than any degree below it.
	if d := math.Abs(within - 12); d < bestDist {
		best = 12
	}

	return p.RootHz * math.Pow(2, octave+best/12)
}
