package fxchain

import (
	"fmt"
	"math"
)

// Chain is a per-layer effect chain. Stage order is fixed:
// distortion -> EQ -> flanger -> chorus -> delay -> reverb.
//
// Apply is idempotent and side-effect free beyond scheduling gain ramps
// and (rarely) rebuilding the reverb impulse response; it never fails.
// All mutation happens on the frame-loop goroutine.
type Chain struct {
	sampleRate float64

	distortion *distortion
	eq         *threeBandEQ
	flanger    *modDelay
	chorus     *modDelay
	delay      *feedbackDelay
	reverb     *convolutionReverb

	settings     Settings
	disconnected bool
}

// NewChain creates a chain with every stage bypassed.
func NewChain(sampleRate float64) (*Chain, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("fxchain sample rate must be > 0: %f", sampleRate)
	}

	dist, err := newDistortion(sampleRate)
	if err != nil {
		return nil, err
	}

	eq, err := newThreeBandEQ(sampleRate)
	if err != nil {
		return nil, err
	}

	flanger, err := newFlanger(sampleRate)
	if err != nil {
		return nil, err
	}

	chorus, err := newChorus(sampleRate)
	if err != nil {
		return nil, err
	}

	delay, err := newFeedbackDelay(sampleRate)
	if err != nil {
		return nil, err
	}

	reverb, err := newConvolutionReverb(sampleRate)
	if err != nil {
		return nil, err
	}

	c := &Chain{
		sampleRate: sampleRate,
		distortion: dist,
		eq:         eq,
		flanger:    flanger,
		chorus:     chorus,
		delay:      delay,
		reverb:     reverb,
		settings:   DefaultSettings(),
	}
	c.Apply(c.settings)

	return c, nil
}

// Apply schedules the chain toward the given settings. Out-of-range
// values are clamped, never rejected.
func (c *Chain) Apply(s Settings) {
	if c.disconnected {
		return
	}

	s = s.sanitize()
	c.settings = s

	c.distortion.setDrive(s.DistortionDrive)
	c.distortion.mix.setEnabled(s.DistortionEnabled)

	c.eq.setGains(s.EQLowGainDB, s.EQMidGainDB, s.EQHighGainDB)
	c.eq.mix.setEnabled(s.EQEnabled)

	configureFlanger(c.flanger, s.FlangerRateHz, s.FlangerDepth)
	c.flanger.mix.setEnabled(s.FlangerEnabled)

	configureChorus(c.chorus, s.ChorusRateHz, s.ChorusDepth)
	c.chorus.mix.setEnabled(s.ChorusEnabled)

	c.delay.configure(s.DelayTime, s.DelayFeedback)
	if s.DelayEnabled {
		c.delay.wet.setLevel(1)
	} else {
		c.delay.wet.setLevel(0)
	}

	// The impulse response is rebuilt only when decay moved enough;
	// re-applying the same decay is free.
	_ = c.reverb.setDecay(s.ReverbDecay)

	if s.ReverbEnabled {
		c.reverb.wet.setLevel(s.ReverbWet)
	} else {
		c.reverb.wet.setLevel(0)
	}
}

// Settings returns the last applied (sanitized) settings.
func (c *Chain) Settings() Settings { return c.settings }

// Process runs both channels through all six stages in place.
func (c *Chain) Process(left, right []float64) {
	if c.disconnected || len(left) == 0 || len(left) != len(right) {
		return
	}

	c.distortion.process(left, right)
	c.eq.process(left, right)
	c.flanger.process(left, right)
	c.chorus.process(left, right)
	c.delay.process(left, right)
	c.reverb.process(left, right)
}

// Reset clears all stage state and settles wet/dry gains at their
// targets (no ramps left in flight).
func (c *Chain) Reset() {
	c.eq.reset()
	c.flanger.reset()
	c.chorus.reset()
	c.delay.reset()
	c.reverb.reset()

	s := c.settings
	c.distortion.mix.reset(s.DistortionEnabled)
	c.eq.mix.reset(s.EQEnabled)
	c.flanger.mix.reset(s.FlangerEnabled)
	c.chorus.mix.reset(s.ChorusEnabled)

	if s.DelayEnabled {
		c.delay.wet.reset(1)
	} else {
		c.delay.wet.reset(0)
	}

	if s.ReverbEnabled {
		c.reverb.wet.reset(s.ReverbWet)
	} else {
		c.reverb.wet.reset(0)
	}
}

// Silence clears every stage buffer and forces all wet paths to zero
// immediately, with no crossfade. Settings are kept; the next Apply
// ramps the configured sends back in.
func (c *Chain) Silence() {
	c.eq.reset()
	c.flanger.reset()
	c.chorus.reset()
	c.delay.reset()
	c.reverb.reset()

	c.distortion.mix.reset(false)
	c.eq.mix.reset(false)
	c.flanger.mix.reset(false)
	c.chorus.mix.reset(false)
	c.delay.wet.reset(0)
	c.reverb.wet.reset(0)
}

// Disconnect tears the chain down. Safe to call more than once.
func (c *Chain) Disconnect() {
	if c.disconnected {
		return
	}

	c.Reset()
	c.disconnected = true
}

// ReverbWetLevel exposes the current reverb send level.
func (c *Chain) ReverbWetLevel() float64 { return c.reverb.wet.wet.Value() }

// ReverbBuilds reports how many times the impulse response has been
// synthesized since construction.
func (c *Chain) ReverbBuilds() int { return c.reverb.builds }
