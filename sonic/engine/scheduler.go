// Package engine runs the per-frame orchestration loop: it advances
// each layer's scan head, samples pixels under it, pushes mode and
// profile changes to the layer's synthesizer, and mixes all layers
// into one stereo signal.
//
// The scheduler never mutates Layer records. It consumes an immutable
// snapshot each frame and returns sparse scan patches for the owner to
// apply, so edits to other fields made during the frame are preserved.
package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-sonify/sonic/fxchain"
	"github.com/cwbudde/algo-sonify/sonic/profile"
	"github.com/cwbudde/algo-sonify/sonic/scan"
	"github.com/cwbudde/algo-sonify/sonic/synth"
)

// Scheduler owns one synthesizer per layer and the image profile. All
// methods must be called from the frame-loop goroutine.
type Scheduler struct {
	sampleRate float64

	pix    []byte
	width  int
	height int

	base      *profile.ImageProfile
	effective *profile.ImageProfile

	rootOffsetSemis float64
	scaleOverride   string

	synths     map[string]*layerState
	scratchL   []float64
	scratchR   []float64
	randomSeed int64
}

// layerState is the scheduler's private per-layer bookkeeping.
type layerState struct {
	synth    *synth.Synthesizer
	cacheKey string
	effects  applied
	readout  Readout
}

// applied remembers the last effect settings pushed to the chain so
// unchanged frames skip the re-apply.
type applied struct {
	valid    bool
	settings fxchain.Settings
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithRandomSeed seeds every layer synthesizer it creates, making
// grain scheduling reproducible.
func WithRandomSeed(seed int64) Option {
	return func(s *Scheduler) { s.randomSeed = seed }
}

// NewScheduler creates a scheduler with no image loaded.
func NewScheduler(sampleRate float64, opts ...Option) (*Scheduler, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("engine sample rate must be > 0: %f", sampleRate)
	}

	s := &Scheduler{
		sampleRate: sampleRate,
		synths:     make(map[string]*layerState),
		randomSeed: 1,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// SetImage analyzes a new image and pushes the resulting profile to
// every layer. Per-layer mode caches are invalidated so the next frame
// re-pushes mode params against the new profile.
func (s *Scheduler) SetImage(pix []byte, width, height int) error {
	p, err := profile.AnalyzeImage(pix, width, height)
	if err != nil {
		return err
	}

	s.pix = pix
	s.width = width
	s.height = height
	s.base = p
	s.rebuildEffective()

	return nil
}

// ClearImage drops the image and silences every layer.
func (s *Scheduler) ClearImage() {
	s.pix = nil
	s.width, s.height = 0, 0
	s.base = nil
	s.effective = nil

	for _, st := range s.synths {
		st.synth.ClearMode()
		st.cacheKey = ""
	}
}

// Profile returns the effective profile (base plus root and scale
// overrides), or nil before an image is loaded.
func (s *Scheduler) Profile() *profile.ImageProfile { return s.effective }

// SetRootOffset transposes the effective profile by whole semitones.
// A no-op when the offset is unchanged.
func (s *Scheduler) SetRootOffset(semitones float64) {
	if semitones == s.rootOffsetSemis || math.IsNaN(semitones) {
		return
	}

	s.rootOffsetSemis = semitones
	s.rebuildEffective()
}

// SetScaleOverride replaces the profile's scale by name; an empty name
// restores the analyzed scale. A no-op when unchanged.
func (s *Scheduler) SetScaleOverride(name string) {
	if name == s.scaleOverride {
		return
	}

	s.scaleOverride = name
	s.rebuildEffective()
}

// rebuildEffective recomputes the derived profile and invalidates all
// per-layer caches, forcing a full re-push next frame.
func (s *Scheduler) rebuildEffective() {
	if s.base == nil {
		s.effective = nil

		return
	}

	eff := *s.base
	eff.Modes = make([]profile.GeneratedMode, len(s.base.Modes))
	copy(eff.Modes, s.base.Modes)

	shift := math.Pow(2, s.rootOffsetSemis/12)
	eff.RootHz *= shift

	if s.scaleOverride != "" {
		eff.Scale = profile.ScaleByName(s.scaleOverride)
	}

	for i := range eff.Modes {
		eff.Modes[i].Params.RootHz *= shift

		if s.scaleOverride != "" {
			eff.Modes[i].Params.Scale = eff.Scale
		}
	}

	s.effective = &eff

	for _, st := range s.synths {
		st.cacheKey = ""
	}
}

// SetSampleBuffer loads a sample for one layer's playback path.
func (s *Scheduler) SetSampleBuffer(layerID string, samples []float64, sampleHz float64) error {
	st, err := s.state(layerID)
	if err != nil {
		return err
	}

	return st.synth.SetSampleBuffer(samples, sampleHz)
}

// ClearSampleBuffer returns one layer to oscillator synthesis.
func (s *Scheduler) ClearSampleBuffer(layerID string) {
	if st, ok := s.synths[layerID]; ok {
		st.synth.ClearSampleBuffer()
	}
}

// RemoveLayer tears down a layer's synthesizer.
func (s *Scheduler) RemoveLayer(layerID string) {
	if st, ok := s.synths[layerID]; ok {
		st.synth.Disconnect()
		delete(s.synths, layerID)
	}
}

// StopAll silences every layer immediately, clearing scheduled ramps
// and effect tails. The effects cache is dropped so the next frame
// re-applies each layer's chain settings.
func (s *Scheduler) StopAll() {
	for _, st := range s.synths {
		st.synth.StopAll()
		st.effects = applied{}
	}
}

// Close disconnects every layer. Safe to call more than once.
func (s *Scheduler) Close() {
	for id, st := range s.synths {
		st.synth.Disconnect()
		delete(s.synths, id)
	}
}

// Readout returns the latest visualization snapshot for a layer.
func (s *Scheduler) Readout(layerID string) (Readout, bool) {
	st, ok := s.synths[layerID]
	if !ok {
		return Readout{}, false
	}

	return st.readout, true
}

// Advance runs one frame over the layer snapshot: scan heads move by
// scanSpeed*dt, pixels are sampled, synthesizers updated. It returns
// one patch per layer whose scan fields moved.
func (s *Scheduler) Advance(layers []Layer, dt float64) []ScanPatch {
	if dt <= 0 || math.IsNaN(dt) {
		return nil
	}

	s.dropStale(layers)

	patches := make([]ScanPatch, 0, len(layers))

	for i := range layers {
		l := &layers[i]

		st, err := s.state(l.ID)
		if err != nil {
			continue
		}

		mode := s.resolveMode(l.ModeID)
		if mode == nil {
			// Unresolvable mode plays silence; the scan head holds.
			st.synth.UpdateFromPixel(scan.PixelSample{}, l.Volume, true, dt)
			st.cacheKey = ""

			continue
		}

		s.pushMode(l, st, mode)
		s.pushEffects(l, st)

		pos, scanX, headX, headY := advanceHead(l, dt)

		px := scan.Sample(s.pix, s.width, s.height, l.Region, l.Direction, headX, headY)
		st.synth.UpdateFromPixel(px, l.Volume, l.Muted, dt)

		st.readout = Readout{ID: l.ID, HeadX: headX, HeadY: headY, Sample: px}

		patches = append(patches, ScanPatch{ID: l.ID, ScanPos: pos, ScanX: scanX})
	}

	return patches
}

// Render mixes all layers into left and right, overwriting both.
func (s *Scheduler) Render(left, right []float64) {
	n := len(left)

	for i := range left {
		left[i] = 0
		right[i] = 0
	}

	if n == 0 || n != len(right) {
		return
	}

	if cap(s.scratchL) < n {
		s.scratchL = make([]float64, n)
		s.scratchR = make([]float64, n)
	}

	wetL := s.scratchL[:n]
	wetR := s.scratchR[:n]

	for _, st := range s.synths {
		st.synth.Render(wetL, wetR)

		for i := 0; i < n; i++ {
			left[i] += wetL[i]
			right[i] += wetR[i]
		}
	}
}

// state returns (creating if needed) the bookkeeping for a layer id.
func (s *Scheduler) state(layerID string) (*layerState, error) {
	if st, ok := s.synths[layerID]; ok {
		return st, nil
	}

	sy, err := synth.New(s.sampleRate, synth.WithRandomSeed(s.randomSeed))
	if err != nil {
		return nil, err
	}

	st := &layerState{synth: sy}
	s.synths[layerID] = st

	return st, nil
}

// dropStale disconnects synthesizers whose layers left the snapshot.
func (s *Scheduler) dropStale(layers []Layer) {
	if len(s.synths) == 0 {
		return
	}

	live := make(map[string]bool, len(layers))
	for i := range layers {
		live[layers[i].ID] = true
	}

	for id, st := range s.synths {
		if !live[id] {
			st.synth.Disconnect()
			delete(s.synths, id)
		}
	}
}

func (s *Scheduler) resolveMode(id string) *profile.GeneratedMode {
	if s.effective == nil || id == "" {
		return nil
	}

	return s.effective.ModeByID(id)
}

// pushMode republishes mode params only when the composite cache key
// (mode id, overrides, pitch) changes, so steady frames skip the reset
// that SetModeParams performs.
func (s *Scheduler) pushMode(l *Layer, st *layerState, mode *profile.GeneratedMode) {
	key := cacheKey(l, mode.ID)
	if key == st.cacheKey {
		return
	}

	params := mode.Params
	applyOverrides(&params, l.Overrides)

	st.synth.SetModeParams(mode.Archetype, params, l.PitchSemitones)
	st.cacheKey = key
}

func (s *Scheduler) pushEffects(l *Layer, st *layerState) {
	if st.effects.valid && st.effects.settings == l.Effects {
		return
	}

	st.synth.ApplyEffects(l.Effects)
	st.effects = applied{valid: true, settings: l.Effects}
}

// cacheKey serializes the mode-affecting parts of a layer.
func cacheKey(l *Layer, modeID string) string {
	var b strings.Builder

	b.WriteString(modeID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(l.PitchSemitones, 'g', -1, 64))

	if len(l.Overrides) > 0 {
		keys := make([]string, 0, len(l.Overrides))
		for k := range l.Overrides {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			b.WriteByte('|')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strconv.FormatFloat(l.Overrides[k], 'g', -1, 64))
		}
	}

	return b.String()
}

// applyOverrides adjusts individual mode parameters by name. Unknown
// names are ignored.
func applyOverrides(p *profile.ModeParams, overrides map[string]float64) {
	for k, v := range overrides {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		switch k {
		case "spectralSmoothing":
			p.SpectralSmoothing = v
		case "detuneSpread":
			p.DetuneSpread = v
		case "attack":
			p.Attack = v
		case "release":
			p.Release = v
		case "triggerThreshold":
			p.TriggerThreshold = v
		case "grainDensity":
			p.GrainDensity = v
		case "grainWidth":
			p.GrainWidth = v
		case "harmonicRichness":
			p.HarmonicRichness = v
		case "stereoWidth":
			p.StereoWidth = v
		case "gain":
			p.Gain = v
		}
	}
}

// advanceHead moves a layer's scan head by scanSpeed*dt and returns
// the new normalized position, the legacy pixel offset, and the head's
// absolute image coordinates.
func advanceHead(l *Layer, dt float64) (pos, scanX, headX, headY float64) {
	r := l.Region

	switch l.Direction {
	case scan.DirectionHorizontal:
		// Legacy path: wraps in pixel units on the rectangle width.
		scanX = l.ScanX + l.ScanSpeed*dt
		if r.W > 0 {
			scanX = math.Mod(scanX, r.W)
			if scanX < 0 {
				scanX += r.W
			}

			pos = scanX / r.W
		}

		headX = r.X + scanX
		headY = r.Y + r.H/2

	case scan.DirectionVertical:
		pos = wrap01(l.ScanPos + speedNormalized(l.ScanSpeed, r.H)*dt)
		scanX = 0
		headX = r.X + r.W/2
		headY = r.Y + pos*r.H

	case scan.DirectionDiagonalDown:
		pos = wrap01(l.ScanPos + speedNormalized(l.ScanSpeed, math.Min(r.W, r.H))*dt)
		scanX = 0
		headX = r.X + pos*r.W
		headY = r.Y + pos*r.H

	case scan.DirectionDiagonalUp:
		pos = wrap01(l.ScanPos + speedNormalized(l.ScanSpeed, math.Min(r.W, r.H))*dt)
		scanX = 0
		headX = r.X + pos*r.W
		headY = r.Y + r.H - pos*r.H

	default:
		pos = l.ScanPos
		scanX = l.ScanX
		headX = r.X
		headY = r.Y
	}

	return pos, scanX, headX, headY
}

func speedNormalized(pxPerSecond, extent float64) float64 {
	if extent <= 0 {
		return 0
	}

	return pxPerSecond / extent
}

func wrap01(v float64) float64 {
	v = math.Mod(v, 1)
	if v < 0 {
		v += 1
	}

	return v
}
