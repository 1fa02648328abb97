// Package synth turns per-frame pixel samples into audio.
//
// A Synthesizer owns a 24-voice oscillator bank, a granular engine, a
// looping sample path, a ring-modulation side chain, and an effect
// chain, all exclusive to one layer. UpdateFromPixel runs once per
// display frame on the frame-loop goroutine and only schedules ramp
// targets; Render evaluates those ramps sample-accurately and may be
// called with any block size.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-sonify/sonic/fxchain"
	"github.com/cwbudde/algo-sonify/sonic/granular"
	"github.com/cwbudde/algo-sonify/sonic/profile"
	"github.com/cwbudde/algo-sonify/sonic/ramp"
	"github.com/cwbudde/algo-sonify/sonic/scan"
)

const (
	// binRampSeconds is the default per-bin gain ramp on frame updates.
	binRampSeconds = 0.04

	// masterRampSeconds smooths volume and mute transitions.
	masterRampSeconds = 0.05

	defaultSeed = 1
)

// Synthesizer is the per-layer synthesis unit.
type Synthesizer struct {
	sampleRate float64

	bank   *oscillatorBank
	engine *granular.Engine
	chain  *fxchain.Chain
	mangle *mangle
	player *loopPlayer
	master *ramp.Value

	params    profile.ModeParams
	archetype profile.Archetype
	pitch     float64
	hasMode   bool

	// smoothed is the slew-limited view of the incoming spectrum bins.
	smoothed [profile.NumBins]float64

	// baseHz is each voice's in-scale frequency before per-grain
	// detune scatter.
	baseHz [profile.NumBins]float64

	sample   []float64
	sampleHz float64
	// granularSample reports whether the loaded sample is routed to the
	// granular engine (textural and chromatic noise) or the loop player.
	granularSample bool

	rhythm  rhythmState
	texture textureState
	sub     subState

	rng *rand.Rand

	// mangleRouted diverts the oscillator bank through the side chain.
	mangleRouted bool

	scratchL, scratchR []float64

	disconnected bool
}

// Option configures a Synthesizer at construction.
type Option func(*Synthesizer)

// WithRandomSeed fixes the seed of the grain-jitter generator, making
// textural scheduling reproducible.
func WithRandomSeed(seed int64) Option {
	return func(s *Synthesizer) {
		s.rng = rand.New(rand.NewSource(seed))
		s.engine.SetRandomSeed(seed)
	}
}

// New creates a silent synthesizer with no mode assigned.
func New(sampleRate float64, opts ...Option) (*Synthesizer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("synth sample rate must be > 0: %f", sampleRate)
	}

	bank, err := newOscillatorBank(sampleRate)
	if err != nil {
		return nil, err
	}

	engine, err := granular.NewEngine(sampleRate)
	if err != nil {
		return nil, err
	}

	chain, err := fxchain.NewChain(sampleRate)
	if err != nil {
		return nil, err
	}

	mg, err := newMangle(sampleRate)
	if err != nil {
		return nil, err
	}

	player, err := newLoopPlayer(sampleRate)
	if err != nil {
		return nil, err
	}

	master, err := ramp.New(sampleRate, 0)
	if err != nil {
		return nil, err
	}

	s := &Synthesizer{
		sampleRate: sampleRate,
		bank:       bank,
		engine:     engine,
		chain:      chain,
		mangle:     mg,
		player:     player,
		master:     master,
		rng:        rand.New(rand.NewSource(defaultSeed)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// SetModeParams switches the layer to a new mode. All bin gains and
// the mangle send are silenced first, smoothing state is cleared, the
// bank is retuned to the mode's root and scale at the given pitch
// offset, and sample routing is rebuilt for the new archetype.
func (s *Synthesizer) SetModeParams(arch profile.Archetype, p profile.ModeParams, pitchSemitones float64) {
	if s.disconnected {
		return
	}

	s.bank.silence()
	s.mangle.silence()
	s.player.silence()

	s.smoothed = [profile.NumBins]float64{}
	s.rhythm = rhythmState{}
	s.texture = textureState{}
	s.sub = subState{}

	if int(arch) < 0 || int(arch) >= len(updaters) {
		arch = profile.ArchetypeTonal
	}

	s.archetype = arch
	s.params = p
	s.pitch = clampRange(pitchSemitones, -48, 48)
	s.hasMode = true
	s.mangleRouted = arch == profile.ArchetypeChromaticNoise

	s.bank.setWaveform(p.OscWeights)
	s.retune()
	s.routeSample()
}

// ClearMode returns the layer to silence; no archetype logic runs until
// the next SetModeParams.
func (s *Synthesizer) ClearMode() {
	if s.disconnected {
		return
	}

	s.hasMode = false
	s.StopAll()
}

// retune maps each bin to a scale degree of the mode's root across a
// three-octave span, then applies the mode's fixed detune distribution
// and the layer's pitch offset.
func (s *Synthesizer) retune() {
	eff := &profile.ImageProfile{RootHz: s.params.RootHz, Scale: s.params.Scale}

	if eff.RootHz <= 0 {
		eff.RootHz = 110
	}

	if len(eff.Scale.Ratios) == 0 {
		eff.Scale = profile.ScaleByName("pentatonic")
	}

	for i := 0; i < profile.NumBins; i++ {
		b := 255 * float64(i) / float64(profile.NumBins-1)
		hz := profile.BrightnessToFrequency(b, eff)

		detune := math.Sin(float64(i)*0.7) * s.params.DetuneSpread
		hz *= math.Pow(2, (detune+s.pitch)/12)

		s.baseHz[i] = hz
		s.bank.setFrequency(i, hz)

		pan := (2*float64(i)/float64(profile.NumBins-1) - 1) * s.params.StereoWidth
		s.bank.setPan(i, pan, binRampSeconds)
	}

	s.player.setPitch(s.pitch)
}

// routeSample rebuilds the sample playback path for the current
// archetype: textural and chromatic noise feed the granular engine,
// everything else loops the sample directly.
func (s *Synthesizer) routeSample() {
	if len(s.sample) == 0 {
		s.granularSample = false
		s.engine.ClearBuffer()
		s.player.clearBuffer()

		return
	}

	s.granularSample = s.archetype == profile.ArchetypeTextural ||
		s.archetype == profile.ArchetypeChromaticNoise

	if s.granularSample {
		s.player.clearBuffer()

		// SetBuffer only fails on a bad rate, which SetSampleBuffer
		// already validated.
		_ = s.engine.SetBuffer(s.sample, s.sampleHz)

		return
	}

	s.engine.ClearBuffer()
	s.player.setBuffer(s.sample, s.sampleHz)
	s.player.setPitch(s.pitch)
}

// SetSampleBuffer loads a mono sample for sample-based playback.
func (s *Synthesizer) SetSampleBuffer(samples []float64, sampleHz float64) error {
	if s.disconnected {
		return nil
	}

	if len(samples) == 0 {
		return fmt.Errorf("synth: empty sample buffer")
	}

	if sampleHz <= 0 || math.IsNaN(sampleHz) || math.IsInf(sampleHz, 0) {
		return fmt.Errorf("synth: sample rate must be > 0: %f", sampleHz)
	}

	s.sample = samples
	s.sampleHz = sampleHz
	s.routeSample()

	return nil
}

// ClearSampleBuffer returns the layer to oscillator synthesis.
func (s *Synthesizer) ClearSampleBuffer() {
	if s.disconnected {
		return
	}

	s.sample = nil
	s.sampleHz = 0
	s.routeSample()
}

// ApplyEffects forwards settings to the effect chain. Never fails;
// out-of-range values are clamped.
func (s *Synthesizer) ApplyEffects(settings fxchain.Settings) {
	if s.disconnected {
		return
	}

	s.chain.Apply(settings)
}

// UpdateFromPixel is the per-frame contract: it schedules every audio
// parameter from the given pixel sample. It never fails; malformed
// samples degrade to silence.
func (s *Synthesizer) UpdateFromPixel(px scan.PixelSample, volume float64, muted bool, dt float64) {
	if s.disconnected || dt <= 0 || math.IsNaN(dt) {
		return
	}

	if muted || !s.hasMode {
		s.master.RampTo(0, masterRampSeconds)

		for i := 0; i < profile.NumBins; i++ {
			s.bank.setGain(i, 0, binRampSeconds)
		}

		s.mangle.setSend(0, binRampSeconds)
		s.player.setGain(0, binRampSeconds)

		return
	}

	target := clampRange(volume, 0, 2) * clampRange(s.params.Gain, 0, 2)
	s.master.RampTo(target, masterRampSeconds)

	s.slewSpectrum(px, dt)

	if len(s.sample) > 0 {
		s.updateSamplePath(px, dt)

		return
	}

	updaters[s.archetype](s, px, dt)
}

// slewSpectrum moves the smoothed bins toward the incoming spectrum,
// bounded by the mode's smoothing rate. This is the single mechanism
// preventing audible stepping when pixel reads jump between frames.
func (s *Synthesizer) slewSpectrum(px scan.PixelSample, dt float64) {
	maxStep := s.params.SpectralSmoothing * dt
	if maxStep <= 0 || math.IsNaN(maxStep) {
		maxStep = dt
	}

	for i := range s.smoothed {
		s.smoothed[i] = slewToward(s.smoothed[i], px.SpectrumBins[i], maxStep)
	}
}

// Render evaluates one block of audio into left and right, overwriting
// both. Safe to call regardless of mode or sample state.
func (s *Synthesizer) Render(left, right []float64) {
	n := len(left)

	for i := range left {
		left[i] = 0
		right[i] = 0
	}

	if s.disconnected || n == 0 || n != len(right) {
		return
	}

	if cap(s.scratchL) < n {
		s.scratchL = make([]float64, n)
		s.scratchR = make([]float64, n)
	}

	if s.mangleRouted {
		// The bank feeds the ring-mod side chain; only the shaped
		// signal reaches the mix.
		wetL := s.scratchL[:n]
		wetR := s.scratchR[:n]

		for i := 0; i < n; i++ {
			wetL[i] = 0
			wetR[i] = 0
		}

		s.bank.render(wetL, wetR)
		s.mangle.process(wetL, wetR)

		for i := 0; i < n; i++ {
			left[i] += wetL[i]
			right[i] += wetR[i]
		}
	} else {
		s.bank.render(left, right)
	}

	s.engine.Render(left, right)
	s.player.render(left, right)

	for i := 0; i < n; i++ {
		m := s.master.Next()
		left[i] *= m
		right[i] *= m
	}

	s.chain.Process(left, right)
}

// StopAll zeroes every gain and clears all scheduled ramps immediately.
// Nothing keeps sounding after it returns.
func (s *Synthesizer) StopAll() {
	if s.disconnected {
		return
	}

	s.master.SetImmediate(0)
	s.bank.silence()
	s.mangle.silence()
	s.player.silence()
	s.engine.Reset()
	s.chain.Silence()

	s.smoothed = [profile.NumBins]float64{}
	s.rhythm = rhythmState{}
	s.texture = textureState{}
	s.sub = subState{}
}

// Disconnect tears the synthesizer down. Safe to call more than once;
// teardown order across layers is not guaranteed.
func (s *Synthesizer) Disconnect() {
	if s.disconnected {
		return
	}

	s.StopAll()
	s.engine.Disconnect()
	s.chain.Disconnect()
	s.disconnected = true
}

// BinGainTargets reports the scheduled gain target of every bank voice,
// mainly for visualization and tests.
func (s *Synthesizer) BinGainTargets() [profile.NumBins]float64 {
	return s.bank.gainTargets()
}

// ActiveGrains reports the granular engine's live voice count.
func (s *Synthesizer) ActiveGrains() int { return s.engine.ActiveGrains() }

func slewToward(current, target, maxStep float64) float64 {
	if math.IsNaN(target) {
		return current
	}

	d := target - current
	if d > maxStep {
		return current + maxStep
	}

	if d < -maxStep {
		return current - maxStep
	}

	return target
}
