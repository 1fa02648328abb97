package ramp

import (
	"math"
	"testing"
)

func TestNewRejectsInvalidSampleRate(t *testing.T) {
	invalid := []float64{0, -1, math.NaN(), math.Inf(1)}
	for _, sampleRate := range invalid {
		_, err := New(sampleRate, 0)
		if err == nil {
			t.Fatalf("New(%v, 0) expected error", sampleRate)
		}
	}
}

func TestRampToReachesTargetExactly(t *testing.T) {
	v, err := New(1000, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	v.RampTo(1, 0.1) // 100 samples

	last := 0.0
	for i := 0; i < 100; i++ {
		next := v.Next()
		if next < last-1e-12 {
			t.Fatalf("sample %d: ramp not monotone: %g < %g", i, next, last)
		}
		last = next
	}

	if last != 1 {
		t.Fatalf("ramp end = %g, want exactly 1", last)
	}

	if v.Ramping() {
		t.Fatal("Ramping() = true after ramp completed")
	}
}

func TestSetImmediateCancelsRamp(t *testing.T) {
	v, err := New(48000, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	v.RampTo(1, 1)
	v.SetImmediate(0.25)

	if got := v.Next(); got != 0.25 {
		t.Fatalf("Next() after SetImmediate = %g, want 0.25", got)
	}

	if v.Ramping() {
		t.Fatal("Ramping() = true after SetImmediate")
	}
}

func TestSkipMatchesRepeatedNext(t *testing.T) {
	a, _ := New(48000, 0.2)
	b, _ := New(48000, 0.2)

	a.RampTo(0.9, 0.05)
	b.RampTo(0.9, 0.05)

	for i := 0; i < 1234; i++ {
		a.Next()
	}
	b.Skip(1234)

	if diff := math.Abs(a.Value() - b.Value()); diff > 1e-9 {
		t.Fatalf("Skip level = %g, Next level = %g (diff %g)", b.Value(), a.Value(), diff)
	}
}

func TestNonPositiveDurationAppliesImmediately(t *testing.T) {
	v, _ := New(48000, 0.7)
	v.RampTo(0.1, 0)

	if got := v.Value(); got != 0.1 {
		t.Fatalf("Value() = %g, want 0.1", got)
	}
}

func TestNonFiniteTargetsIgnored(t *testing.T) {
	v, _ := New(48000, 0.5)
	v.RampTo(math.NaN(), 0.1)
	v.SetImmediate(math.Inf(1))

	if got := v.Value(); got != 0.5 {
		t.Fatalf("Value() = %g, want 0.5 (non-finite targets ignored)", got)
	}
}
