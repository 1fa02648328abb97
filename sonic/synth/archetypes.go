package synth

import (
	"math"

	"github.com/cwbudde/algo-sonify/sonic/granular"
	"github.com/cwbudde/algo-sonify/sonic/profile"
	"github.com/cwbudde/algo-sonify/sonic/scan"
)

// Constants preserved literally; their values are the behavior
// contract, not derived quantities.
const (
	rhythmicCooldownFactor = 0.6
	rhythmicAmpFloor       = 0.05
	rhythmicContrastFloor  = 0.15

	subBins          = 6
	subBoost         = 4.0
	subSlewPerSecond = 2.0

	ringCarrierBaseHz = 10.0
	ringCarrierSpanHz = 790.0
)

// updaters dispatches the per-frame modulation of each archetype. A
// fixed table keeps the hot path branch-predictable; every entry is
// non-nil for all six archetypes.
var updaters = [6]func(*Synthesizer, scan.PixelSample, float64){
	profile.ArchetypeTonal:          updateTonal,
	profile.ArchetypeRhythmic:       updateRhythmic,
	profile.ArchetypeTextural:       updateTextural,
	profile.ArchetypeSub:            updateSub,
	profile.ArchetypeSpectral:       updateSpectral,
	profile.ArchetypeChromaticNoise: updateChromaticNoise,
}

// rhythmState is the edge-trigger machine: a cooldown clock plus a
// one-shot decay envelope snapshotted at trigger time.
type rhythmState struct {
	cooldown float64
	active   bool
	age      float64
	env      [profile.NumBins]float64
}

// textureState schedules synthesized grains when no sample is loaded.
type textureState struct {
	acc float64
	env [profile.NumBins]float64
}

type subState struct {
	levels [subBins]float64
}

// updateTonal follows the smoothed spectrum, weighted by the mode's bin
// curve and emphasized where the bin shows local detail.
func updateTonal(s *Synthesizer, px scan.PixelSample, dt float64) {
	for i := 0; i < profile.NumBins; i++ {
		g := s.smoothed[i] * s.params.BinWeights[i] * (0.6 + 0.4*px.BinVariance[i])
		s.bank.setGain(i, g, binRampSeconds)
	}
}

// updateRhythmic fires a one-shot decay when the scan head crosses an
// edge, gated by a cooldown so dense edges read as rhythm, not drone.
func updateRhythmic(s *Synthesizer, px scan.PixelSample, dt float64) {
	r := &s.rhythm

	if r.cooldown > 0 {
		r.cooldown -= dt
	}

	release := s.params.Release
	if release <= 0 {
		release = 0.3
	}

	triggered := px.EdgeDensity > s.params.TriggerThreshold ||
		(px.MeanBinAmplitude() > rhythmicAmpFloor && px.Contrast > rhythmicContrastFloor)

	if triggered && r.cooldown <= 0 {
		r.active = true
		r.age = 0
		r.cooldown = release * rhythmicCooldownFactor

		for i := 0; i < profile.NumBins; i++ {
			r.env[i] = s.smoothed[i] * s.params.BinWeights[i]
		}

		attack := s.params.Attack
		if attack <= 0 {
			attack = 0.005
		}

		for i := 0; i < profile.NumBins; i++ {
			s.bank.setGain(i, r.env[i], attack)
		}

		return
	}

	if !r.active {
		for i := 0; i < profile.NumBins; i++ {
			s.bank.setGain(i, 0, binRampSeconds)
		}

		return
	}

	r.age += dt

	if r.age >= release {
		r.active = false

		for i := 0; i < profile.NumBins; i++ {
			s.bank.setGain(i, 0, binRampSeconds)
		}

		return
	}

	// Exponential ramp to near-zero over the release time.
	decay := math.Exp(-6 * r.age / release)

	for i := 0; i < profile.NumBins; i++ {
		s.bank.setGain(i, r.env[i]*decay, binRampSeconds)
	}
}

// updateTextural runs its own grain clock against the oscillator bank:
// each grain briefly raises a cluster of bins around the brightness
// bin, with per-grain amplitude jitter.
func updateTextural(s *Synthesizer, px scan.PixelSample, dt float64) {
	t := &s.texture

	density := s.params.GrainDensity
	if density <= 0 {
		density = 4
	}

	interval := 1 / density
	t.acc += dt

	for t.acc >= interval {
		t.acc -= interval
		s.fireSynthGrain(px)
	}

	// Grain envelopes decay over roughly two inter-grain intervals.
	decay := math.Exp(-dt / (2 * interval))

	for i := 0; i < profile.NumBins; i++ {
		t.env[i] *= decay
		s.bank.setGain(i, t.env[i], binRampSeconds)
	}
}

func (s *Synthesizer) fireSynthGrain(px scan.PixelSample) {
	center := int(px.Brightness / 255 * float64(profile.NumBins-1))

	width := int(s.params.GrainWidth)
	if width < 1 {
		width = 1
	}

	amp := 0.4 + 0.6*s.rng.Float64()

	for i := center - width; i <= center+width; i++ {
		if i < 0 || i >= profile.NumBins {
			continue
		}

		v := amp * (0.7 + 0.3*s.rng.Float64()) * s.params.BinWeights[i]
		if v > s.texture.env[i] {
			s.texture.env[i] = v
		}

		scatter := (s.rng.Float64()*2 - 1) * s.params.DetuneSpread
		s.bank.setFrequency(i, s.baseHz[i]*math.Pow(2, scatter/12))
	}
}

// updateSub keeps only the six lowest bins alive, boosted and slewed
// slowly so the bass is felt rather than heard stepping.
func updateSub(s *Synthesizer, px scan.PixelSample, dt float64) {
	step := subSlewPerSecond * dt

	for i := 0; i < profile.NumBins; i++ {
		if i >= subBins {
			s.bank.setGain(i, 0, binRampSeconds)
			continue
		}

		target := clampRange(s.smoothed[i]*s.params.BinWeights[i]*subBoost, 0, 1.5)
		s.sub.levels[i] = slewToward(s.sub.levels[i], target, step)
		s.bank.setGain(i, s.sub.levels[i], binRampSeconds)
	}
}

// updateSpectral modulates each bin by one of the three color channels,
// round-robin by bin index, so the sound encodes the image's color
// balance.
func updateSpectral(s *Synthesizer, px scan.PixelSample, dt float64) {
	channels := [3]float64{px.R / 255, px.G / 255, px.B / 255}

	for i := 0; i < profile.NumBins; i++ {
		c := i % 3
		w := channels[c] * s.params.ColorBalance[c]
		g := s.smoothed[i] * s.params.BinWeights[i] * (0.25 + 0.75*w)
		s.bank.setGain(i, g, binRampSeconds)
	}
}

// updateChromaticNoise quantizes bin amplitudes to a contrast-derived
// level count and routes the bank through the ring-mod side chain.
func updateChromaticNoise(s *Synthesizer, px scan.PixelSample, dt float64) {
	levels := 8 - int(math.Floor(px.Contrast*6))
	if levels < 2 {
		levels = 2
	}

	q := float64(levels)

	for i := 0; i < profile.NumBins; i++ {
		v := s.smoothed[i] * s.params.BinWeights[i]
		v = math.Floor(v*q) / q
		s.bank.setGain(i, v, binRampSeconds)
	}

	s.mangle.setCarrierTarget(ringCarrierBaseHz + px.Saturation*ringCarrierSpanHz)
	s.mangle.setSend(clampRange(s.params.Gain, 0, 1), binRampSeconds)
}

// updateSamplePath drives the sample-based routes: the granular engine
// for textural and chromatic noise, the shaped loop player otherwise.
func (s *Synthesizer) updateSamplePath(px scan.PixelSample, dt float64) {
	if s.granularSample {
		meanVar := 0.0
		for i := range px.BinVariance {
			meanVar += px.BinVariance[i]
		}
		meanVar /= profile.NumBins

		density := s.params.GrainDensity
		if density <= 0 {
			density = 4
		}

		p := granular.Params{
			Density:         density,
			Duration:        clampRange(2/density, 0.03, 0.4),
			Position:        px.Brightness / 255,
			PositionScatter: meanVar,
			PitchShift:      s.pitch,
			PitchScatter:    s.params.DetuneSpread,
			StereoWidth:     s.params.StereoWidth,
			Gain:            s.params.Gain,
		}

		if s.archetype == profile.ArchetypeChromaticNoise {
			p.PositionScatter = clampRange(meanVar+0.3, 0, 1)
			p.PitchScatter = 12
			s.mangle.setCarrierTarget(ringCarrierBaseHz + px.Saturation*ringCarrierSpanHz)
		}

		s.engine.Tick(p, dt)

		return
	}

	// Loop path: gain follows the smoothed spectrum's energy, tone
	// follows the archetype.
	var energy float64
	for i := range s.smoothed {
		energy += s.smoothed[i] * s.params.BinWeights[i]
	}
	energy /= profile.NumBins

	gain := clampRange(energy*3, 0, 1)
	rampTime := binRampSeconds

	switch s.archetype {
	case profile.ArchetypeSub:
		s.player.setShaping(150, 0.2)
		gain = clampRange(gain*subBoost, 0, 1.5)
		rampTime = masterRampSeconds

	case profile.ArchetypeRhythmic:
		s.updateRhythmicLoop(px, dt)

		return

	case profile.ArchetypeSpectral:
		// Peaking tilt at the dominant color channel's band, boosted by
		// that channel's weight.
		channels := [3]float64{
			px.R / 255 * s.params.ColorBalance[0],
			px.G / 255 * s.params.ColorBalance[1],
			px.B / 255 * s.params.ColorBalance[2],
		}

		cutoffs := [3]float64{400, 1200, 3600}
		dominant := 0

		for c := 1; c < 3; c++ {
			if channels[c] > channels[dominant] {
				dominant = c
			}
		}

		s.player.setPeaking(cutoffs[dominant],
			0.4+0.4*s.params.HarmonicRichness,
			0.5+channels[dominant])

	default:
		cutoff := 200 + math.Pow(px.Brightness/255, 2)*8000
		s.player.setShaping(cutoff, 0.3*s.params.HarmonicRichness)
	}

	s.player.setGain(gain, rampTime)
}

// updateRhythmicLoop gates the loop player with the same edge trigger
// and decay the oscillator path uses.
func (s *Synthesizer) updateRhythmicLoop(px scan.PixelSample, dt float64) {
	r := &s.rhythm

	if r.cooldown > 0 {
		r.cooldown -= dt
	}

	release := s.params.Release
	if release <= 0 {
		release = 0.3
	}

	triggered := px.EdgeDensity > s.params.TriggerThreshold ||
		(px.MeanBinAmplitude() > rhythmicAmpFloor && px.Contrast > rhythmicContrastFloor)

	if triggered && r.cooldown <= 0 {
		r.active = true
		r.age = 0
		r.cooldown = release * rhythmicCooldownFactor

		attack := s.params.Attack
		if attack <= 0 {
			attack = 0.005
		}

		s.player.setShaping(200+px.Brightness/255*4000, 0.3)
		s.player.setGain(clampRange(px.MeanBinAmplitude()*2, 0, 1), attack)

		return
	}

	if !r.active {
		s.player.setGain(0, binRampSeconds)

		return
	}

	r.age += dt

	if r.age >= release {
		r.active = false
		s.player.setGain(0, binRampSeconds)

		return
	}

	decay := math.Exp(-6 * r.age / release)
	s.player.setGain(clampRange(px.MeanBinAmplitude()*2*decay, 0, 1), binRampSeconds)
}
