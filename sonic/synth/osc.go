package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-sonify/sonic/profile"
	"github.com/cwbudde/algo-sonify/sonic/ramp"
)

// voice is one oscillator of the bank: a phase accumulator with its own
// gain and pan ramps. Frequency changes take effect at the next sample;
// gain and pan always move through ramps so retuning never clicks.
type voice struct {
	phase  float64
	freqHz float64

	gain *ramp.Value
	pan  *ramp.Value
}

// oscillatorBank holds one voice per spectral bin plus the waveform
// blend shared by all voices.
type oscillatorBank struct {
	sampleRate float64
	voices     [profile.NumBins]voice

	// Normalized waveform weights.
	wSine, wTriangle, wSaw float64
}

func newOscillatorBank(sampleRate float64) (*oscillatorBank, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("synth sample rate must be > 0: %f", sampleRate)
	}

	b := &oscillatorBank{sampleRate: sampleRate, wSine: 1}

	for i := range b.voices {
		gain, err := ramp.New(sampleRate, 0)
		if err != nil {
			return nil, err
		}

		pan, err := ramp.New(sampleRate, 0)
		if err != nil {
			return nil, err
		}

		b.voices[i] = voice{freqHz: 110, gain: gain, pan: pan}
	}

	return b, nil
}

// setWaveform normalizes and stores the oscillator blend. A degenerate
// all-zero weighting falls back to pure sine.
func (b *oscillatorBank) setWaveform(w profile.OscWeights) {
	sum := w.Sine + w.Triangle + w.Saw
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		b.wSine, b.wTriangle, b.wSaw = 1, 0, 0

		return
	}

	b.wSine = w.Sine / sum
	b.wTriangle = w.Triangle / sum
	b.wSaw = w.Saw / sum
}

// setFrequency retunes one voice. Non-finite or non-positive values are
// ignored; the voice keeps its previous pitch.
func (b *oscillatorBank) setFrequency(bin int, hz float64) {
	if bin < 0 || bin >= profile.NumBins {
		return
	}

	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return
	}

	b.voices[bin].freqHz = hz
}

// setGain schedules one voice's gain ramp.
func (b *oscillatorBank) setGain(bin int, level, seconds float64) {
	if bin < 0 || bin >= profile.NumBins {
		return
	}

	b.voices[bin].gain.RampTo(level, seconds)
}

// setPan schedules one voice's pan ramp, -1 (left) to 1 (right).
func (b *oscillatorBank) setPan(bin int, pan, seconds float64) {
	if bin < 0 || bin >= profile.NumBins {
		return
	}

	b.voices[bin].pan.RampTo(clampRange(pan, -1, 1), seconds)
}

// silence zeroes every gain immediately and clears pending ramps.
func (b *oscillatorBank) silence() {
	for i := range b.voices {
		b.voices[i].gain.SetImmediate(0)
	}
}

// gainTargets reports each voice's scheduled gain target.
func (b *oscillatorBank) gainTargets() [profile.NumBins]float64 {
	var out [profile.NumBins]float64

	for i := range b.voices {
		out[i] = b.voices[i].gain.Target()
	}

	return out
}

// render adds the bank's output into left and right.
func (b *oscillatorBank) render(left, right []float64) {
	n := len(left)
	if n == 0 || n != len(right) {
		return
	}

	for i := range b.voices {
		v := &b.voices[i]

		// Skip settled-silent voices; the ramp state does not advance
		// while a voice is inaudible, which is fine because gains only
		// leave zero through a fresh RampTo.
		if v.gain.Value() == 0 && !v.gain.Ramping() {
			continue
		}

		inc := v.freqHz / b.sampleRate

		for j := 0; j < n; j++ {
			s := b.waveform(v.phase) * v.gain.Next()

			pan := v.pan.Next()
			angle := (pan + 1) * math.Pi / 4
			left[j] += s * math.Cos(angle)
			right[j] += s * math.Sin(angle)

			v.phase += inc
			if v.phase >= 1 {
				v.phase -= 1
			}
		}
	}
}

// waveform evaluates the blended oscillator at phase in [0, 1).
func (b *oscillatorBank) waveform(phase float64) float64 {
	var s float64

	if b.wSine > 0 {
		s += b.wSine * math.Sin(2*math.Pi*phase)
	}

	if b.wTriangle > 0 {
		tri := 4*math.Abs(phase-0.5) - 1
		s += b.wTriangle * tri
	}

	if b.wSaw > 0 {
		s += b.wSaw * (2*phase - 1)
	}

	return s
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}

	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
