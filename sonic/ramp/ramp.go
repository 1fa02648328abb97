// Package ramp provides sample-accurate scheduled parameter values.
//
// A Value holds a current level plus an optional linear ramp toward a
// target. Producers (the frame loop) schedule changes with SetImmediate
// and RampTo; the consumer (the render path) evaluates one level per
// sample with Next. This keeps every audible parameter change a ramp
// rather than an instantaneous write, so toggles and retargets never
// introduce discontinuities.
package ramp

import (
	"fmt"
	"math"
)

// Value is a linearly ramped parameter.
//
// It is real-time safe (no allocations after construction) and not
// thread-safe; producer and consumer are expected to run on the same
// goroutine, as the frame loop does.
type Value struct {
	sampleRate float64

	current   float64
	target    float64
	step      float64
	remaining int
}

// New creates a Value at the given initial level.
func New(sampleRate, initial float64) (*Value, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("ramp sample rate must be > 0: %f", sampleRate)
	}

	return &Value{
		sampleRate: sampleRate,
		current:    initial,
		target:     initial,
	}, nil
}

// SetImmediate jumps to level, cancelling any scheduled ramp.
func (v *Value) SetImmediate(level float64) {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return
	}

	v.current = level
	v.target = level
	v.step = 0
	v.remaining = 0
}

// RampTo schedules a linear ramp from the current level to target over
// the given duration. A non-positive duration applies immediately.
func (v *Value) RampTo(target, seconds float64) {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return
	}

	samples := int(math.Round(seconds * v.sampleRate))
	if samples <= 0 {
		v.SetImmediate(target)
		return
	}

	v.target = target
	v.step = (target - v.current) / float64(samples)
	v.remaining = samples
}

// Next advances one sample and returns the new level.
func (v *Value) Next() float64 {
	if v.remaining > 0 {
		v.current += v.step
		v.remaining--

		if v.remaining == 0 {
			v.current = v.target
		}
	}

	return v.current
}

// Skip advances n samples without reporting intermediate levels.
func (v *Value) Skip(n int) {
	if n <= 0 {
		return
	}

	if v.remaining <= 0 {
		return
	}

	if n >= v.remaining {
		v.current = v.target
		v.remaining = 0
		return
	}

	v.current += v.step * float64(n)
	v.remaining -= n
}

// Value returns the current level without advancing.
func (v *Value) Value() float64 { return v.current }

// Target returns the level the Value is heading toward.
func (v *Value) Target() float64 { return v.target }

// Ramping reports whether a ramp is still in flight.
func (v *Value) Ramping() bool { return v.remaining > 0 }

// SampleRate returns the evaluation rate in Hz.
func (v *Value) SampleRate() float64 { return v.sampleRate }
