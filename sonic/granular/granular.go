// Package granular implements a bounded-pool granular playback engine.
//
// The engine owns a fixed arena of grain slots per layer. The frame
// loop feeds it elapsed time through Tick, which fires grains at the
// requested density; the render path advances active grains through
// Render. When every slot is busy a new grain is dropped silently:
// overload is admission control, not an error, and bounds the per-layer
// voice cost.
package granular

import (
	"fmt"
	"math"
	"math/rand"

	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	// MaxGrains caps concurrent grain voices per engine.
	MaxGrains = 32

	// minGrainSeconds floors grain duration.
	minGrainSeconds = 0.015

	// envBucketSamples quantizes envelope lengths so the Hann cache
	// stays bounded.
	envBucketSamples = 64

	defaultSeed = 1
)

// Params drives one Tick of the engine.
type Params struct {
	// Density is grains per second; non-positive fires nothing.
	Density float64
	// Duration is the grain length in seconds, floored at 15 ms.
	Duration float64
	// Position is the normalized buffer read offset in [0, 1].
	Position float64
	// PositionScatter randomizes Position by up to ± its value.
	PositionScatter float64
	// PitchShift and PitchScatter are in semitones.
	PitchShift   float64
	PitchScatter float64
	// StereoWidth scales random grain panning in [0, 1].
	StereoWidth float64
	// Gain scales grain amplitude.
	Gain float64
}

type grainSlot struct {
	busy bool

	pos  float64 // fractional read position in buffer samples
	rate float64 // playback rate in buffer samples per output sample
	age  int
	dur  int

	gainL float64
	gainR float64
	env   []float64
}

// Engine is a per-layer granular voice pool. It is real-time safe after
// a buffer is set (no per-grain allocations beyond envelope cache
// misses) and not thread-safe; all mutation happens on the frame loop.
type Engine struct {
	sampleRate float64

	buffer     []float64
	bufferRate float64

	slots [MaxGrains]grainSlot
	acc   float64

	rng  *rand.Rand
	seed int64

	envCache map[int][]float64
	scratch  []float64

	dropped      uint64
	disconnected bool
}

// NewEngine creates an engine rendering at the given sample rate.
func NewEngine(sampleRate float64) (*Engine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("granular sample rate must be > 0: %f", sampleRate)
	}

	return &Engine{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(defaultSeed)),
		seed:       defaultSeed,
		envCache:   make(map[int][]float64),
	}, nil
}

// SetRandomSeed makes grain scatter reproducible and resets state.
func (e *Engine) SetRandomSeed(seed int64) {
	e.seed = seed
	e.rng.Seed(seed)
	e.Reset()
}

// SetBuffer installs the source sample data recorded at bufferRate.
func (e *Engine) SetBuffer(samples []float64, bufferRate float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("granular buffer must not be empty")
	}

	if bufferRate <= 0 || math.IsNaN(bufferRate) || math.IsInf(bufferRate, 0) {
		return fmt.Errorf("granular buffer rate must be > 0: %f", bufferRate)
	}

	e.buffer = samples
	e.bufferRate = bufferRate
	e.Reset()

	return nil
}

// ClearBuffer removes the source buffer and kills active grains.
func (e *Engine) ClearBuffer() {
	e.buffer = nil
	e.bufferRate = 0
	e.Reset()
}

// HasBuffer reports whether a source buffer is installed.
func (e *Engine) HasBuffer() bool { return len(e.buffer) > 0 }

// ActiveGrains returns the number of busy slots.
func (e *Engine) ActiveGrains() int {
	n := 0

	for i := range e.slots {
		if e.slots[i].busy {
			n++
		}
	}

	return n
}

// Dropped returns the number of grains rejected because the pool was full.
func (e *Engine) Dropped() uint64 { return e.dropped }

// Reset frees all slots and clears accumulated trigger time. The random
// state is rewound so a reset engine replays identically.
func (e *Engine) Reset() {
	for i := range e.slots {
		e.slots[i] = grainSlot{}
	}

	e.acc = 0
	e.rng.Seed(e.seed)
}

// Disconnect releases the engine. Calling it more than once is a no-op.
func (e *Engine) Disconnect() {
	if e.disconnected {
		return
	}

	e.disconnected = true
	e.ClearBuffer()
}

// Tick accumulates dt and fires grains at 1/Density intervals. Large dt
// fires multiple grains; sub-interval remainders are carried over, never
// dropped. Returns the number of grains actually started.
func (e *Engine) Tick(p Params, dt float64) int {
	if e.disconnected || len(e.buffer) == 0 || p.Density <= 0 || dt <= 0 {
		return 0
	}

	interval := 1 / p.Density

	e.acc += dt

	fired := 0

	for e.acc >= interval {
		e.acc -= interval

		if e.fire(p) {
			fired++
		}
	}

	return fired
}

// fire starts one grain in the first idle slot (first-idle policy).
// Returns false when the pool is saturated; the grain is dropped.
func (e *Engine) fire(p Params) bool {
	slot := -1

	for i := range e.slots {
		if !e.slots[i].busy {
			slot = i
			break
		}
	}

	if slot < 0 {
		e.dropped++
		return false
	}

	pos01 := p.Position + (e.rng.Float64()*2-1)*p.PositionScatter
	if pos01 < 0 {
		pos01 = 0
	}

	if pos01 > 1 {
		pos01 = 1
	}

	semis := p.PitchShift + (e.rng.Float64()*2-1)*p.PitchScatter
	rate := math.Pow(2, semis/12) * e.bufferRate / e.sampleRate

	dur := math.Max(p.Duration, minGrainSeconds)
	env := e.hannEnvelope(int(math.Round(dur * e.sampleRate)))

	pan := (e.rng.Float64()*2 - 1) * clamp01(p.StereoWidth)

	gain := p.Gain
	if gain < 0 {
		gain = 0
	}

	// Equal-power pan law.
	angle := (pan + 1) * math.Pi / 4

	e.slots[slot] = grainSlot{
		busy:  true,
		pos:   pos01 * float64(len(e.buffer)-1),
		rate:  rate,
		dur:   len(env),
		env:   env,
		gainL: gain * math.Cos(angle),
		gainR: gain * math.Sin(angle),
	}

	return true
}

// Render advances all active grains by len(left) samples, mixing their
// output into left and right. Slots are released exactly once, when a
// grain's envelope completes or its read position leaves the buffer.
func (e *Engine) Render(left, right []float64) {
	if e.disconnected || len(e.buffer) == 0 || len(left) == 0 || len(left) != len(right) {
		return
	}

	if cap(e.scratch) < len(left) {
		e.scratch = make([]float64, len(left))
	}

	for i := range e.slots {
		g := &e.slots[i]
		if !g.busy {
			continue
		}

		n := g.dur - g.age
		if n > len(left) {
			n = len(left)
		}

		wet := e.scratch[:n]

		rendered := n

		for j := 0; j < n; j++ {
			if g.pos >= float64(len(e.buffer)-1) {
				rendered = j
				break
			}

			wet[j] = readLinear(e.buffer, g.pos)
			g.pos += g.rate
		}

		for j := rendered; j < n; j++ {
			wet[j] = 0
		}

		vecmath.MulBlockInPlace(wet, g.env[g.age:g.age+n])

		for j := 0; j < n; j++ {
			left[j] += wet[j] * g.gainL
			right[j] += wet[j] * g.gainR
		}

		g.age += n
		if g.age >= g.dur || rendered < n {
			e.release(g)
		}
	}
}

// release frees a slot. Guarded so a completed grain cannot be released
// twice even if Render races its own end-of-buffer and end-of-envelope
// conditions in the same block.
func (e *Engine) release(g *grainSlot) {
	if !g.busy {
		return
	}

	*g = grainSlot{}
}

// hannEnvelope returns a cached Hann window, bucketing lengths to
// multiples of 64 samples to bound cache memory.
func (e *Engine) hannEnvelope(samples int) []float64 {
	bucket := (samples + envBucketSamples/2) / envBucketSamples * envBucketSamples
	if bucket < envBucketSamples {
		bucket = envBucketSamples
	}

	if env, ok := e.envCache[bucket]; ok {
		return env
	}

	env := make([]float64, bucket)
	for i := range env {
		phase := 2 * math.Pi * float64(i) / float64(bucket-1)
		env[i] = 0.5 * (1 - math.Cos(phase))
	}

	e.envCache[bucket] = env

	return env
}

func readLinear(buffer []float64, pos float64) float64 {
	i0 := int(pos)
	if i0 < 0 || i0 >= len(buffer)-1 {
		return 0
	}

	frac := pos - float64(i0)

	return buffer[i0] + (buffer[i0+1]-buffer[i0])*frac
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
