package granular

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sonify/internal/testutil"
)

func testBuffer(n int) []float64 {
	return testutil.DeterministicSine(220, 48000, 1, n)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := NewEngine(48000)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if err := e.SetBuffer(testBuffer(48000), 48000); err != nil {
		t.Fatalf("SetBuffer() error = %v", err)
	}

	return e
}

func TestNewEngineRejectsInvalidSampleRate(t *testing.T) {
	for _, sampleRate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewEngine(sampleRate)
		if err == nil {
			t.Fatalf("NewEngine(%v) expected error", sampleRate)
		}
	}
}

func TestTickFiresAtDensity(t *testing.T) {
	e := newTestEngine(t)

	p := Params{Density: 10, Duration: 0.05, Gain: 1}

	if fired := e.Tick(p, 1.0); fired != 10 {
		t.Fatalf("Tick(density=10, dt=1) fired %d grains, want 10", fired)
	}

	if e.Dropped() != 0 {
		t.Fatalf("Dropped() = %d, want 0", e.Dropped())
	}
}

func TestTickCarriesRemainder(t *testing.T) {
	e := newTestEngine(t)

	p := Params{Density: 10, Duration: 0.05, Gain: 1}

	// 0.05s accumulates half an interval: no grain yet, but the time
	// must not be discarded.
	if fired := e.Tick(p, 0.05); fired != 0 {
		t.Fatalf("first half-interval fired %d grains, want 0", fired)
	}

	if fired := e.Tick(p, 0.05); fired != 1 {
		t.Fatalf("second half-interval fired %d grains, want 1", fired)
	}
}

func TestPoolSaturationDropsSilently(t *testing.T) {
	e := newTestEngine(t)

	p := Params{Density: 40, Duration: 0.5, Gain: 1}

	fired := e.Tick(p, 1.0)

	if fired != MaxGrains {
		t.Fatalf("fired %d grains, want pool cap %d", fired, MaxGrains)
	}

	if e.Dropped() != 40-MaxGrains {
		t.Fatalf("Dropped() = %d, want %d", e.Dropped(), 40-MaxGrains)
	}

	if e.ActiveGrains() != MaxGrains {
		t.Fatalf("ActiveGrains() = %d, want %d", e.ActiveGrains(), MaxGrains)
	}
}

func TestSlotsFreeAfterEnvelopeCompletes(t *testing.T) {
	e := newTestEngine(t)

	p := Params{Density: 5, Duration: 0.02, Gain: 1}

	e.Tick(p, 0.2) // one grain

	if e.ActiveGrains() != 1 {
		t.Fatalf("ActiveGrains() = %d, want 1", e.ActiveGrains())
	}

	left := make([]float64, 4096)
	right := make([]float64, 4096)
	e.Render(left, right)

	if e.ActiveGrains() != 0 {
		t.Fatalf("ActiveGrains() = %d after render, want 0", e.ActiveGrains())
	}
}

func TestRenderDeterministicWithSeed(t *testing.T) {
	render := func() []float64 {
		e := newTestEngine(t)
		e.SetRandomSeed(42)

		p := Params{
			Density: 30, Duration: 0.04, Position: 0.3, PositionScatter: 0.2,
			PitchShift: 2, PitchScatter: 3, StereoWidth: 0.8, Gain: 0.7,
		}

		left := make([]float64, 2048)
		right := make([]float64, 2048)

		for i := 0; i < 8; i++ {
			e.Tick(p, 2048.0/48000)
			e.Render(left, right)
		}

		return left
	}

	a := render()
	b := render()

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs across seeded runs: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestTickWithoutBufferIsNoop(t *testing.T) {
	e, err := NewEngine(48000)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if fired := e.Tick(Params{Density: 100, Gain: 1}, 1); fired != 0 {
		t.Fatalf("Tick without buffer fired %d grains, want 0", fired)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	e := newTestEngine(t)

	e.Disconnect()
	e.Disconnect() // must not panic or error

	if fired := e.Tick(Params{Density: 10, Gain: 1}, 1); fired != 0 {
		t.Fatalf("Tick after disconnect fired %d grains, want 0", fired)
	}
}

func TestPositionClampedToBuffer(t *testing.T) {
	e := newTestEngine(t)

	p := Params{Density: 10, Duration: 0.02, Position: 2, PositionScatter: 5, Gain: 1}

	e.Tick(p, 0.1)

	left := make([]float64, 512)
	right := make([]float64, 512)
	e.Render(left, right) // must not panic reading past the buffer

	for i := range left {
		if math.IsNaN(left[i]) || math.IsNaN(right[i]) {
			t.Fatalf("sample %d: NaN output", i)
		}
	}
}
