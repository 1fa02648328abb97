package engine

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-sonify/internal/testutil"
	"github.com/cwbudde/algo-sonify/sonic/scan"
)

const testRate = 48000.0

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s, err := NewScheduler(testRate, WithRandomSeed(7))
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}

	if err := s.SetImage(testutil.SolidImage(200, 150, 128, 128, 128), 200, 150); err != nil {
		t.Fatalf("SetImage failed: %v", err)
	}

	return s
}

func firstModeID(t *testing.T, s *Scheduler) string {
	t.Helper()

	p := s.Profile()
	if p == nil || len(p.Modes) == 0 {
		t.Fatal("expected a profile with modes")
	}

	return p.Modes[0].ID
}

func TestHorizontalScanAdvancesInPixels(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 10, Y: 20, W: 120, H: 40}, scan.DirectionHorizontal)
	l.ScanSpeed = 60
	l.ModeID = firstModeID(t, s)

	patches := s.Advance([]Layer{l}, 1.0)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}

	p := patches[0]

	if p.ScanX != 60 {
		t.Fatalf("ScanX = %f after 1 s at 60 px/s, want 60", p.ScanX)
	}

	if math.Abs(p.ScanPos-0.5) > 1e-12 {
		t.Fatalf("ScanPos = %f, want 0.5", p.ScanPos)
	}

	r, ok := s.Readout(l.ID)
	if !ok {
		t.Fatal("expected a readout for the layer")
	}

	if r.HeadY != 40 {
		t.Fatalf("HeadY = %f, want rectangle vertical midpoint 40", r.HeadY)
	}

	if r.HeadX != 70 {
		t.Fatalf("HeadX = %f, want region X + scanX = 70", r.HeadX)
	}
}

func TestHorizontalScanWrapsOnWidth(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 120, H: 40}, scan.DirectionHorizontal)
	l.ScanSpeed = 60
	l.ScanX = 110
	l.ModeID = firstModeID(t, s)

	patches := s.Advance([]Layer{l}, 1.0)

	if got := patches[0].ScanX; math.Abs(got-50) > 1e-9 {
		t.Fatalf("ScanX = %f after wrap, want 50", got)
	}
}

func TestVerticalScanWrapsAtOne(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 40, H: 100}, scan.DirectionVertical)
	l.ScanSpeed = 60
	l.ScanPos = 0.9
	l.ModeID = firstModeID(t, s)

	patches := s.Advance([]Layer{l}, 1.0)

	// 60 px over a 100 px extent is 0.6 normalized; 0.9 + 0.6 wraps.
	if got := patches[0].ScanPos; math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("ScanPos = %f, want 0.5", got)
	}
}

func TestPatchTouchesOnlyScanFields(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 120, H: 40}, scan.DirectionHorizontal)
	l.ScanSpeed = 60
	l.ModeID = firstModeID(t, s)

	patches := s.Advance([]Layer{l}, 0.5)

	// Concurrent edit between snapshot and write-back.
	l.Volume = 0.3
	l.Muted = true

	patches[0].Apply(&l)

	if l.Volume != 0.3 || !l.Muted {
		t.Fatal("patch overwrote non-scan fields")
	}

	if l.ScanX != 30 {
		t.Fatalf("ScanX = %f after patch, want 30", l.ScanX)
	}
}

func TestModePushUsesCompositeCacheKey(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 100, H: 50}, scan.DirectionHorizontal)
	l.ScanSpeed = 10
	l.ModeID = firstModeID(t, s)

	s.Advance([]Layer{l}, 1.0/60)

	key1 := s.synths[l.ID].cacheKey
	if key1 == "" {
		t.Fatal("expected a cache key after the first frame")
	}

	// Unchanged layer: the key (and the push) stays.
	s.Advance([]Layer{l}, 1.0/60)

	if got := s.synths[l.ID].cacheKey; got != key1 {
		t.Fatalf("cache key changed on a steady frame: %q -> %q", key1, got)
	}

	// Pitch participates in the key.
	l.PitchSemitones = 7
	s.Advance([]Layer{l}, 1.0/60)

	key2 := s.synths[l.ID].cacheKey
	if key2 == key1 {
		t.Fatal("cache key ignored the pitch change")
	}

	// So do overrides, independent of map iteration order.
	l.Overrides = map[string]float64{"release": 0.5, "gain": 0.8}
	s.Advance([]Layer{l}, 1.0/60)

	key3 := s.synths[l.ID].cacheKey
	if key3 == key2 {
		t.Fatal("cache key ignored overrides")
	}

	if want := cacheKey(&l, l.ModeID); key3 != want {
		t.Fatalf("cache key = %q, want %q", key3, want)
	}
}

func TestRootOffsetRebuildsEffectiveProfile(t *testing.T) {
	s := newTestScheduler(t)

	base := s.Profile().RootHz

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 100, H: 50}, scan.DirectionHorizontal)
	l.ModeID = firstModeID(t, s)
	s.Advance([]Layer{l}, 1.0/60)

	s.SetRootOffset(12)

	if got := s.Profile().RootHz; math.Abs(got-2*base) > 1e-9 {
		t.Fatalf("RootHz = %f after +12 semitones, want %f", got, 2*base)
	}

	// The override invalidates per-layer caches so the next frame
	// re-pushes mode params.
	if got := s.synths[l.ID].cacheKey; got != "" {
		t.Fatalf("cache key = %q after profile change, want empty", got)
	}

	// Setting the same offset again is a no-op.
	eff := s.Profile()
	s.SetRootOffset(12)

	if s.Profile() != eff {
		t.Fatal("identical root offset rebuilt the effective profile")
	}
}

func TestUnresolvableModePlaysSilence(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 100, H: 50}, scan.DirectionHorizontal)
	l.ModeID = "no-such-mode"

	patches := s.Advance([]Layer{l}, 1.0)
	if len(patches) != 0 {
		t.Fatalf("got %d patches for a silent layer, want 0", len(patches))
	}

	left := make([]float64, 512)
	right := make([]float64, 512)
	s.Render(left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("silent layer produced audio at sample %d", i)
		}
	}
}

func TestRemovedLayerIsDisconnected(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 100, H: 50}, scan.DirectionHorizontal)
	l.ModeID = firstModeID(t, s)

	s.Advance([]Layer{l}, 1.0/60)

	if _, ok := s.synths[l.ID]; !ok {
		t.Fatal("expected a synthesizer for the advanced layer")
	}

	// The layer left the snapshot; its synthesizer goes with it.
	s.Advance(nil, 1.0/60)

	if _, ok := s.synths[l.ID]; ok {
		t.Fatal("stale layer synthesizer was not dropped")
	}
}

func TestRenderMixesLayers(t *testing.T) {
	s := newTestScheduler(t)

	a := NewLayer(scan.Region{X: 0, Y: 0, W: 100, H: 50}, scan.DirectionHorizontal)
	a.ModeID = firstModeID(t, s)

	b := NewLayer(scan.Region{X: 50, Y: 50, W: 100, H: 80}, scan.DirectionVertical)
	b.ModeID = firstModeID(t, s)

	layers := []Layer{a, b}

	for i := 0; i < 20; i++ {
		s.Advance(layers, 1.0/60)
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
		t.Fatal("expected audible output from two unmuted layers")
	}
}

func TestStopAllSilencesLayersAndReappliesEffects(t *testing.T) {
	s := newTestScheduler(t)

	l := NewLayer(scan.Region{X: 0, Y: 0, W: 100, H: 100}, scan.DirectionHorizontal)
	l.ModeID = firstModeID(t, s)
	l.Effects.DelayEnabled = true
	l.Effects.DelayTime = 0.05
	l.Effects.DelayFeedback = 0.8

	left := make([]float64, 4800)
	right := make([]float64, 4800)

	// Fill the delay line with signal before stopping.
	for i := 0; i < 30; i++ {
		s.Advance([]Layer{l}, 0.1)
		s.Render(left, right)
	}

	if !s.synths[l.ID].effects.valid {
		t.Fatal("expected the effects cache to be primed by Advance")
	}

	s.StopAll()

	if s.synths[l.ID].effects.valid {
		t.Fatal("expected StopAll to drop the effects cache")
	}

	s.Render(left, right)

	for i := range left {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("sample %d = %g, %g after StopAll, want silence", i, left[i], right[i])
		}
	}

	// The next frame re-applies the layer's chain settings.
	s.Advance([]Layer{l}, 0.1)

	if !s.synths[l.ID].effects.valid {
		t.Fatal("expected the frame after StopAll to re-apply effects")
	}
}
