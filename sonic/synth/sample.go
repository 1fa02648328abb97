package synth

import (
	"math"

	"github.com/cwbudde/algo-sonify/sonic/ramp"
)

// loopPlayer is the non-granular sample path: a looping linear-read
// player with a gain ramp, a pan ramp, and a state-variable shaping
// filter whose character is set per archetype.
type loopPlayer struct {
	sampleRate float64

	buffer     []float64
	bufferRate float64

	pos  float64
	rate float64

	gain *ramp.Value
	pan  *ramp.Value

	filter shapingFilter
}

func newLoopPlayer(sampleRate float64) (*loopPlayer, error) {
	gain, err := ramp.New(sampleRate, 0)
	if err != nil {
		return nil, err
	}

	pan, err := ramp.New(sampleRate, 0)
	if err != nil {
		return nil, err
	}

	p := &loopPlayer{sampleRate: sampleRate, rate: 1, gain: gain, pan: pan}
	p.filter.configure(sampleRate, sampleRate/2, 0.5)

	return p, nil
}

func (p *loopPlayer) setBuffer(samples []float64, bufferRate float64) {
	p.buffer = samples
	p.bufferRate = bufferRate
	p.rate = bufferRate / p.sampleRate
	p.pos = 0
	p.filter.reset()
}

func (p *loopPlayer) clearBuffer() {
	p.buffer = nil
	p.pos = 0
	p.gain.SetImmediate(0)
}

func (p *loopPlayer) active() bool { return len(p.buffer) > 0 }

// setPitch retunes playback in semitones relative to the buffer's
// native rate.
func (p *loopPlayer) setPitch(semitones float64) {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) || p.bufferRate <= 0 {
		return
	}

	p.rate = math.Pow(2, semitones/12) * p.bufferRate / p.sampleRate
}

func (p *loopPlayer) setGain(level, seconds float64) {
	p.gain.RampTo(clampRange(level, 0, 4), seconds)
}

func (p *loopPlayer) setPan(pan, seconds float64) {
	p.pan.RampTo(clampRange(pan, -1, 1), seconds)
}

// setShaping retargets the filter cutoff and resonance. Low-pass mode.
func (p *loopPlayer) setShaping(cutoffHz, resonance float64) {
	p.filter.configure(p.sampleRate, cutoffHz, resonance)
	p.filter.peak = 0
}

// setPeaking switches the filter to a peaking tilt: the signal passes
// and a resonant band around cutoffHz is boosted by peak.
func (p *loopPlayer) setPeaking(cutoffHz, resonance, peak float64) {
	p.filter.configure(p.sampleRate, cutoffHz, resonance)
	p.filter.peak = clampRange(peak, 0, 4)
}

func (p *loopPlayer) silence() {
	p.gain.SetImmediate(0)
}

// render adds the looped, filtered sample into left and right.
func (p *loopPlayer) render(left, right []float64) {
	if len(p.buffer) == 0 {
		return
	}

	length := float64(len(p.buffer))

	for i := range left {
		a := int(p.pos)
		frac := p.pos - float64(a)

		b := a + 1
		if b >= len(p.buffer) {
			b = 0
		}

		s := p.buffer[a]*(1-frac) + p.buffer[b]*frac
		s = p.filter.process(s) * p.gain.Next()

		pan := p.pan.Next()
		angle := (pan + 1) * math.Pi / 4
		left[i] += s * math.Cos(angle)
		right[i] += s * math.Sin(angle)

		p.pos += p.rate
		for p.pos >= length {
			p.pos -= length
		}

		if p.pos < 0 {
			p.pos = 0
		}
	}
}

// shapingFilter is a Chamberlin state-variable filter. It is the
// per-archetype tone control on the sample path: low-pass when peak is
// zero, otherwise a peaking tilt (input plus a boosted band output).
// Cutoff at Nyquist is effectively transparent.
type shapingFilter struct {
	f, q     float64
	peak     float64
	low, bnd float64
}

func (f *shapingFilter) configure(sampleRate, cutoffHz, resonance float64) {
	if cutoffHz <= 0 || math.IsNaN(cutoffHz) {
		cutoffHz = sampleRate / 2
	}

	if cutoffHz > sampleRate/2 {
		cutoffHz = sampleRate / 2
	}

	// The sin form stays stable up to about a quarter of the rate; the
	// coefficient is capped there and high cutoffs just pass through.
	f.f = 2 * math.Sin(math.Pi*math.Min(cutoffHz/sampleRate, 0.24))
	f.q = clampRange(1-resonance, 0.05, 1)
}

func (f *shapingFilter) reset() {
	f.low, f.bnd = 0, 0
}

func (f *shapingFilter) process(in float64) float64 {
	high := in - f.low - f.q*f.bnd
	f.bnd += f.f * high
	f.low += f.f * f.bnd

	if f.peak > 0 {
		return in + f.peak*f.bnd
	}

	return f.low
}
