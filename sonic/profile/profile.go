// Package profile derives a sonic characterization from a still image.
//
// AnalyzeImage reduces an RGBA pixel buffer to an ImageProfile: global
// color and contrast statistics, a root pitch and scale, spatial
// frequency band energies, and an ordered list of scored synthesis
// modes. The profile is computed once per loaded image and is immutable
// afterwards.
package profile

import "fmt"

// NumBins is the number of spectral bins a layer resolves. Every scan
// rectangle is split into this many perpendicular subdivisions, each
// driving one oscillator voice.
const NumBins = 24

// Archetype identifies one of the six fixed synthesis strategies.
type Archetype int

const (
	ArchetypeTonal Archetype = iota
	ArchetypeRhythmic
	ArchetypeTextural
	ArchetypeSub
	ArchetypeSpectral
	ArchetypeChromaticNoise

	archetypeCount = 6
)

// String returns the archetype's stable identifier.
func (a Archetype) String() string {
	switch a {
	case ArchetypeTonal:
		return "tonal"
	case ArchetypeRhythmic:
		return "rhythmic"
	case ArchetypeTextural:
		return "textural"
	case ArchetypeSub:
		return "sub"
	case ArchetypeSpectral:
		return "spectral"
	case ArchetypeChromaticNoise:
		return "chromatic_noise"
	default:
		return fmt.Sprintf("archetype(%d)", int(a))
	}
}

// OscWeights blends the oscillator bank between waveform shapes.
// Weights are normalized at use; they need not sum to 1.
type OscWeights struct {
	Sine     float64
	Triangle float64
	Saw      float64
}

// ModeParams holds the tuned synthesis parameters of one generated mode.
type ModeParams struct {
	// BinWeights shapes the per-bin amplitude response.
	BinWeights [NumBins]float64

	// SpectralSmoothing bounds per-bin slew in units per second.
	SpectralSmoothing float64

	// DetuneSpread is the maximum per-bin detune in semitones.
	DetuneSpread float64

	OscWeights OscWeights

	// Attack and Release are envelope times in seconds.
	Attack  float64
	Release float64

	// TriggerThreshold gates the rhythmic archetype on edge density.
	TriggerThreshold float64

	// GrainDensity is grains per second; GrainWidth is a bin radius.
	GrainDensity float64
	GrainWidth   float64

	RootHz float64
	Scale  Scale

	HarmonicRichness float64
	StereoWidth      float64

	// ColorBalance weights the R, G, B channels for the spectral archetype.
	ColorBalance [3]float64

	Gain float64
}

// GeneratedMode binds an archetype to tuned parameters and a score.
// Immutable once produced by AnalyzeImage.
type GeneratedMode struct {
	ID          string
	Name        string
	Description string
	Archetype   Archetype
	Params      ModeParams
	Score       float64
}

// ImageProfile is the per-image sonic characterization.
//
// Scalars are normalized to [0, 1] except RootHz (Hz) and Hue (degrees).
// Modes is sorted by descending score and holds between 3 and 5 entries.
type ImageProfile struct {
	RootHz float64
	Scale  Scale

	Warmth     float64
	Saturation float64
	Brightness float64
	Contrast   float64
	Hue        float64

	SpatialLow  float64
	SpatialMid  float64
	SpatialHigh float64

	Modes []GeneratedMode
}

// ModeByID returns the generated mode with the given id, or nil.
func (p *ImageProfile) ModeByID(id string) *GeneratedMode {
	for i := range p.Modes {
		if p.Modes[i].ID == id {
			return &p.Modes[i]
		}
	}

	return nil
}
