package synth

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sonify/internal/testutil"
	"github.com/cwbudde/algo-sonify/sonic/fxchain"
	"github.com/cwbudde/algo-sonify/sonic/profile"
	"github.com/cwbudde/algo-sonify/sonic/scan"
)

const testRate = 48000.0

func flatParams() profile.ModeParams {
	p := profile.ModeParams{
		SpectralSmoothing: 1000,
		DetuneSpread:      0.1,
		OscWeights:        profile.OscWeights{Sine: 1},
		Attack:            0.01,
		Release:           0.3,
		TriggerThreshold:  0.3,
		GrainDensity:      10,
		GrainWidth:        2,
		RootHz:            110,
		Scale:             profile.ScaleByName("pentatonic"),
		StereoWidth:       0.5,
		ColorBalance:      [3]float64{1, 1, 1},
		Gain:              1,
	}

	for i := range p.BinWeights {
		p.BinWeights[i] = 1
	}

	return p
}

func brightPixel() scan.PixelSample {
	px := scan.PixelSample{
		Brightness: 200,
		R:          200, G: 200, B: 200,
	}

	for i := range px.SpectrumBins {
		px.SpectrumBins[i] = 0.8
	}

	return px
}

func newTestSynth(t *testing.T, arch profile.Archetype) *Synthesizer {
	t.Helper()

	s, err := New(testRate, WithRandomSeed(7))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.SetModeParams(arch, flatParams(), 0)

	return s
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	for _, rate := range []float64{0, -1, math.NaN()} {
		if _, err := New(rate); err == nil {
			t.Fatalf("New(%f) expected error, got nil", rate)
		}
	}
}

func TestModeSwitchSilencesAllBins(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	// Drive gains up first.
	s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)

	targets := s.BinGainTargets()
	raised := false

	for _, g := range targets {
		if g > 0 {
			raised = true
			break
		}
	}

	if !raised {
		t.Fatal("expected at least one bin gain target above zero before switch")
	}

	s.SetModeParams(profile.ArchetypeRhythmic, flatParams(), 0)

	for i, g := range s.BinGainTargets() {
		if g != 0 {
			t.Fatalf("bin %d gain target = %f after mode switch, want 0", i, g)
		}
	}
}

func TestMutedUpdateZeroesTargets(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)
	s.UpdateFromPixel(brightPixel(), 1, true, 1.0/60)

	for i, g := range s.BinGainTargets() {
		if g != 0 {
			t.Fatalf("bin %d gain target = %f while muted, want 0", i, g)
		}
	}
}

func TestSubArchetypeUsesOnlyLowestBins(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeSub)

	// Several frames so the slow sub slew has moved off zero.
	for i := 0; i < 30; i++ {
		s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)
	}

	targets := s.BinGainTargets()

	for i := 0; i < subBins; i++ {
		if targets[i] <= 0 {
			t.Fatalf("sub bin %d target = %f, want > 0", i, targets[i])
		}
	}

	for i := subBins; i < profile.NumBins; i++ {
		if targets[i] != 0 {
			t.Fatalf("bin %d target = %f, want 0 above the sub band", i, targets[i])
		}
	}
}

func TestRhythmicTriggerRespectsCooldown(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeRhythmic)

	px := brightPixel()
	px.EdgeDensity = 0.9

	s.UpdateFromPixel(px, 1, false, 1.0/60)

	first := s.BinGainTargets()
	if first[0] <= 0 {
		t.Fatalf("bin 0 target = %f after trigger, want > 0", first[0])
	}

	// Still inside the cooldown window: the envelope must decay, not
	// re-fire at full level.
	s.UpdateFromPixel(px, 1, false, 1.0/60)

	second := s.BinGainTargets()
	if second[0] >= first[0] {
		t.Fatalf("bin 0 target rose from %f to %f inside cooldown", first[0], second[0])
	}

	// After the cooldown (release*0.6 = 0.18 s) a new trigger fires at
	// full level again.
	s.UpdateFromPixel(px, 1, false, 0.2)
	s.UpdateFromPixel(px, 1, false, 1.0/60)

	third := s.BinGainTargets()
	if third[0] < second[0] {
		t.Fatalf("bin 0 target = %f after cooldown, want re-trigger above %f", third[0], second[0])
	}
}

func TestChromaticNoiseQuantizesLevels(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeChromaticNoise)

	px := brightPixel()
	px.Contrast = 0 // 8 quantization levels

	s.UpdateFromPixel(px, 1, false, 1.0/60)

	for i, g := range s.BinGainTargets() {
		scaled := g * 8
		if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
			t.Fatalf("bin %d target %f is not a multiple of 1/8", i, g)
		}
	}
}

func TestTexturalSampleModeDelegatesToGranular(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTextural)

	buf := testutil.DeterministicSine(480, testRate, 1, 4800)

	if err := s.SetSampleBuffer(buf, testRate); err != nil {
		t.Fatalf("SetSampleBuffer failed: %v", err)
	}

	// Density 10 over one second fires grains into the pool.
	s.UpdateFromPixel(brightPixel(), 1, false, 1.0)

	if got := s.ActiveGrains(); got == 0 {
		t.Fatal("expected active grains after textural sample update")
	}
}

func TestRenderProducesFiniteAudio(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	for i := 0; i < 10; i++ {
		s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)
	}

	left := make([]float64, 2048)
	right := make([]float64, 2048)
	s.Render(left, right)

	testutil.RequireFinite(t, left)
	testutil.RequireFinite(t, right)

	var energy float64

	for i := range left {
		energy += left[i]*left[i] + right[i]*right[i]
	}

	if energy == 0 {
		t.Fatal("expected non-silent render for an unmuted tonal layer")
	}
}

func TestStopAllSilencesImmediately(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	for i := 0; i < 10; i++ {
		s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)
	}

	s.StopAll()

	left := make([]float64, 512)
	right := make([]float64, 512)
	s.Render(left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("sample %d = %f, %f after StopAll, want silence", i, left[i], right[i])
		}
	}
}

func TestStopAllCutsEffectTails(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	fx := fxchain.DefaultSettings()
	fx.DelayEnabled = true
	fx.DelayTime = 0.05
	fx.DelayFeedback = 0.8
	fx.ReverbEnabled = true
	fx.ReverbWet = 0.4
	s.ApplyEffects(fx)

	left := make([]float64, 4800)
	right := make([]float64, 4800)

	// Interleave updates and renders so the delay line and reverb tail
	// fill with signal.
	for i := 0; i < 30; i++ {
		s.UpdateFromPixel(brightPixel(), 1, false, 0.1)
		s.Render(left, right)
	}

	s.StopAll()
	s.Render(left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("sample %d = %g, %g after StopAll, want silence", i, left[i], right[i])
		}
	}
}

func TestSpectralSampleModeAppliesPeakingTilt(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeSpectral)

	buf := testutil.DeterministicSine(220, testRate, 0.5, 4800)
	if err := s.SetSampleBuffer(buf, testRate); err != nil {
		t.Fatalf("SetSampleBuffer failed: %v", err)
	}

	px := brightPixel()
	px.R, px.G, px.B = 250, 40, 40
	s.UpdateFromPixel(px, 1, false, 1.0/60)

	if s.player.filter.peak <= 0 {
		t.Fatalf("peak = %f, want a positive band boost", s.player.filter.peak)
	}

	wantF := 2 * math.Sin(math.Pi*400/testRate)
	if math.Abs(s.player.filter.f-wantF) > 1e-12 {
		t.Fatalf("filter coefficient = %g, want %g for the 400 Hz band", s.player.filter.f, wantF)
	}

	// A blue-dominant pixel moves the band.
	px.R, px.B = 40, 250
	s.UpdateFromPixel(px, 1, false, 1.0/60)

	wantF = 2 * math.Sin(math.Pi*3600/testRate)
	if math.Abs(s.player.filter.f-wantF) > 1e-12 {
		t.Fatalf("filter coefficient = %g, want %g for the 3600 Hz band", s.player.filter.f, wantF)
	}

	// Other archetypes keep the plain low-pass.
	s.SetModeParams(profile.ArchetypeTonal, flatParams(), 0)
	s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)

	if s.player.filter.peak != 0 {
		t.Fatalf("tonal shaping peak = %f, want 0", s.player.filter.peak)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	s.Disconnect()
	s.Disconnect()

	s.UpdateFromPixel(brightPixel(), 1, false, 1.0/60)

	left := make([]float64, 64)
	right := make([]float64, 64)
	s.Render(left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("disconnected synth produced audio at sample %d", i)
		}
	}
}

func TestInvalidSampleBufferRejected(t *testing.T) {
	s := newTestSynth(t, profile.ArchetypeTonal)

	if err := s.SetSampleBuffer(nil, testRate); err == nil {
		t.Fatal("expected error for empty sample buffer")
	}

	if err := s.SetSampleBuffer([]float64{1, 2}, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}
