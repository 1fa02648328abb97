// Package fxchain implements a per-layer effect processing chain.
//
// Six stages run in a fixed series order: distortion, 3-band EQ,
// flanger, chorus, delay, and convolution reverb. Substitutive stages
// (distortion, EQ, flanger, chorus) implement true parallel bypass: a
// wet and a dry path are summed with cross-faded gains so toggling an
// effect never produces a discontinuity. Delay and reverb are additive
// sends: their dry path stays at unity and only the wet send fades.
package fxchain

import "math"

// Settings describes the desired state of every stage. Applying the
// same Settings twice is a no-op beyond re-scheduling identical ramps.
type Settings struct {
	DistortionEnabled bool
	// DistortionDrive is the waveshaper drive in [1, 20].
	DistortionDrive float64

	EQEnabled bool
	// Band gains in dB, [-24, 24].
	EQLowGainDB  float64
	EQMidGainDB  float64
	EQHighGainDB float64

	FlangerEnabled bool
	// FlangerRateHz in (0, 5]; FlangerDepth in [0, 1].
	FlangerRateHz float64
	FlangerDepth  float64

	ChorusEnabled bool
	ChorusRateHz  float64
	ChorusDepth   float64

	DelayEnabled bool
	// DelayTime in seconds, [0.001, 2]; DelayFeedback in [0, 0.9].
	DelayTime     float64
	DelayFeedback float64

	ReverbEnabled bool
	// ReverbDecay in seconds, [0.1, 4]; ReverbWet in [0, 1].
	ReverbDecay float64
	ReverbWet   float64
}

// DefaultSettings returns a chain with every stage disabled and
// practical parameter defaults.
func DefaultSettings() Settings {
	return Settings{
		DistortionDrive: 2,
		FlangerRateHz:   0.25,
		FlangerDepth:    0.5,
		ChorusRateHz:    0.35,
		ChorusDepth:     0.4,
		DelayTime:       0.3,
		DelayFeedback:   0.35,
		ReverbDecay:     1.2,
		ReverbWet:       0.4,
	}
}

// sanitize clamps every parameter into its documented range. Apply
// never rejects settings; out-of-range values degrade to the nearest
// legal value.
func (s Settings) sanitize() Settings {
	s.DistortionDrive = clampFinite(s.DistortionDrive, 1, 20, 2)
	s.EQLowGainDB = clampFinite(s.EQLowGainDB, -24, 24, 0)
	s.EQMidGainDB = clampFinite(s.EQMidGainDB, -24, 24, 0)
	s.EQHighGainDB = clampFinite(s.EQHighGainDB, -24, 24, 0)
	s.FlangerRateHz = clampFinite(s.FlangerRateHz, 0.01, 5, 0.25)
	s.FlangerDepth = clampFinite(s.FlangerDepth, 0, 1, 0.5)
	s.ChorusRateHz = clampFinite(s.ChorusRateHz, 0.01, 5, 0.35)
	s.ChorusDepth = clampFinite(s.ChorusDepth, 0, 1, 0.4)
	s.DelayTime = clampFinite(s.DelayTime, 0.001, 2, 0.3)
	s.DelayFeedback = clampFinite(s.DelayFeedback, 0, 0.9, 0.35)
	s.ReverbDecay = clampFinite(s.ReverbDecay, 0.1, 4, 1.2)
	s.ReverbWet = clampFinite(s.ReverbWet, 0, 1, 0.4)

	return s
}

func clampFinite(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
