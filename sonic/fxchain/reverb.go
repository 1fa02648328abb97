package fxchain

import (
	"fmt"
	"math"
	"math/rand"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	// reverbBlock is the internal convolution block size; it is also
	// the reverb's wet-path latency in samples.
	reverbBlock = 512

	// irRebuildThreshold is how far (seconds) the decay parameter must
	// move before the impulse response is re-synthesized. The IR is an
	// expensive resource and is cached otherwise.
	irRebuildThreshold = 0.05

	irSeedLeft  = 101
	irSeedRight = 202
)

// convolutionReverb convolves against a synthesized noise-decay impulse
// response, one decorrelated IR per channel. The dry path stays at
// unity; only the wet send fades.
type convolutionReverb struct {
	sampleRate float64

	decay float64
	built bool

	conv   [2]*streamConvolver
	builds int

	wet *send
}

func newConvolutionReverb(sampleRate float64) (*convolutionReverb, error) {
	wet, err := newSend(sampleRate)
	if err != nil {
		return nil, err
	}

	r := &convolutionReverb{sampleRate: sampleRate, wet: wet}
	if err := r.rebuild(1.2); err != nil {
		return nil, err
	}

	return r, nil
}

// setDecay rebuilds the impulse response only when decay moved by more
// than the rebuild threshold.
func (r *convolutionReverb) setDecay(decay float64) error {
	if r.built && math.Abs(decay-r.decay) <= irRebuildThreshold {
		return nil
	}

	return r.rebuild(decay)
}

func (r *convolutionReverb) rebuild(decay float64) error {
	for ch, seed := range []int64{irSeedLeft, irSeedRight} {
		kernel := synthesizeImpulse(r.sampleRate, decay, seed)

		conv, err := newStreamConvolver(kernel, reverbBlock)
		if err != nil {
			return fmt.Errorf("fxchain: reverb impulse: %w", err)
		}

		r.conv[ch] = conv
	}

	r.decay = decay
	r.built = true
	r.builds++

	return nil
}

func (r *convolutionReverb) process(left, right []float64) {
	for i := range left {
		wet := r.wet.next()

		left[i] += r.conv[0].processSample(left[i]) * wet
		right[i] += r.conv[1].processSample(right[i]) * wet
	}
}

func (r *convolutionReverb) reset() {
	r.conv[0].reset()
	r.conv[1].reset()
}

// synthesizeImpulse builds an exponentially decaying noise IR reaching
// -60 dB at the decay time, normalized to unit energy.
func synthesizeImpulse(sampleRate, decay float64, seed int64) []float64 {
	n := int(decay * sampleRate)
	if n < reverbBlock {
		n = reverbBlock
	}

	rng := rand.New(rand.NewSource(seed))

	kernel := make([]float64, n)
	energy := 0.0

	for i := range kernel {
		t := float64(i) / sampleRate
		env := math.Exp(-6.91 * t / decay)
		kernel[i] = (rng.Float64()*2 - 1) * env
		energy += kernel[i] * kernel[i]
	}

	if energy > 0 {
		scale := 1 / math.Sqrt(energy)
		for i := range kernel {
			kernel[i] *= scale
		}
	}

	return kernel
}

// streamConvolver is a fixed-block FFT overlap-add convolver with a
// per-sample facade. Output lags input by one block.
type streamConvolver struct {
	kernelLen int
	block     int
	fftSize   int

	plan      *algofft.Plan[complex128]
	kernelFFT []complex128

	inputPadded  []complex128
	outputPadded []complex128

	inBuf  []float64
	outBuf []float64
	fill   int

	tail []float64
}

func newStreamConvolver(kernel []float64, block int) (*streamConvolver, error) {
	if len(kernel) == 0 {
		return nil, fmt.Errorf("fxchain: empty convolution kernel")
	}

	if block <= 0 {
		return nil, fmt.Errorf("fxchain: convolution block must be > 0: %d", block)
	}

	fftSize := nextPowerOf2(block + len(kernel) - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fxchain: fft plan: %w", err)
	}

	sc := &streamConvolver{
		kernelLen:    len(kernel),
		block:        block,
		fftSize:      fftSize,
		plan:         plan,
		kernelFFT:    make([]complex128, fftSize),
		inputPadded:  make([]complex128, fftSize),
		outputPadded: make([]complex128, fftSize),
		inBuf:        make([]float64, block),
		outBuf:       make([]float64, block),
		tail:         make([]float64, len(kernel)-1),
	}

	kernelPadded := make([]complex128, fftSize)
	for i, v := range kernel {
		kernelPadded[i] = complex(v, 0)
	}

	if err := plan.Forward(sc.kernelFFT, kernelPadded); err != nil {
		return nil, fmt.Errorf("fxchain: kernel fft: %w", err)
	}

	return sc, nil
}

// processSample pushes one input sample and pops one output sample,
// convolving a block at a time.
func (sc *streamConvolver) processSample(x float64) float64 {
	y := sc.outBuf[sc.fill]

	sc.inBuf[sc.fill] = x
	sc.fill++

	if sc.fill == sc.block {
		sc.convolveBlock()
		sc.fill = 0
	}

	return y
}

func (sc *streamConvolver) convolveBlock() {
	for i := range sc.inputPadded {
		sc.inputPadded[i] = 0
	}

	for i, v := range sc.inBuf {
		sc.inputPadded[i] = complex(v, 0)
	}

	if err := sc.plan.Forward(sc.inputPadded, sc.inputPadded); err != nil {
		return
	}

	for i := range sc.outputPadded {
		sc.outputPadded[i] = sc.inputPadded[i] * sc.kernelFFT[i]
	}

	if err := sc.plan.Inverse(sc.outputPadded, sc.outputPadded); err != nil {
		return
	}

	resultLen := sc.block + sc.kernelLen - 1

	for i := 0; i < sc.block; i++ {
		v := real(sc.outputPadded[i])
		if i < len(sc.tail) {
			v += sc.tail[i]
		}

		sc.outBuf[i] = v
	}

	// Shift the overlap state: what remains beyond this block becomes
	// the next block's tail.
	for i := sc.block; i < resultLen; i++ {
		v := real(sc.outputPadded[i])
		if i < len(sc.tail) {
			v += sc.tail[i]
		}

		sc.tail[i-sc.block] = v
	}
}

func (sc *streamConvolver) reset() {
	for i := range sc.tail {
		sc.tail[i] = 0
	}

	for i := range sc.inBuf {
		sc.inBuf[i] = 0
		sc.outBuf[i] = 0
	}

	sc.fill = 0
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
