package fxchain

import "math"

// modDelay is a sinusoidally modulated delay tap with optional
// feedback, the shared core of the flanger and chorus stages. One
// instance carries both channels; the right LFO runs a quarter cycle
// ahead for stereo spread.
type modDelay struct {
	sampleRate float64

	buffer [2][]float64
	write  int

	rateHz    float64
	baseDelay float64 // seconds
	depth     float64 // seconds
	feedback  float64

	phase float64

	mix *bypass
}

func newModDelay(sampleRate, maxDelaySeconds float64) (*modDelay, error) {
	mix, err := newBypass(sampleRate)
	if err != nil {
		return nil, err
	}

	size := int(math.Ceil(maxDelaySeconds*sampleRate)) + 4
	if size < 16 {
		size = 16
	}

	m := &modDelay{sampleRate: sampleRate, mix: mix}
	m.buffer[0] = make([]float64, size)
	m.buffer[1] = make([]float64, size)

	return m, nil
}

func (m *modDelay) configure(rateHz, baseDelay, depth, feedback float64) {
	m.rateHz = rateHz
	m.baseDelay = baseDelay
	m.depth = depth
	m.feedback = feedback
}

func (m *modDelay) process(left, right []float64) {
	size := float64(len(m.buffer[0]))

	for i := range left {
		wet, dry := m.mix.next()

		lfoL := math.Sin(m.phase)
		lfoR := math.Sin(m.phase + math.Pi/2)

		m.phase += 2 * math.Pi * m.rateHz / m.sampleRate
		if m.phase >= 2*math.Pi {
			m.phase -= 2 * math.Pi
		}

		delayL := (m.baseDelay + m.depth*(0.5+0.5*lfoL)) * m.sampleRate
		delayR := (m.baseDelay + m.depth*(0.5+0.5*lfoR)) * m.sampleRate

		maxDelay := size - 2
		delayL = math.Min(delayL, maxDelay)
		delayR = math.Min(delayR, maxDelay)

		wl := m.readFractional(0, delayL)
		wr := m.readFractional(1, delayR)

		m.buffer[0][m.write] = left[i] + wl*m.feedback
		m.buffer[1][m.write] = right[i] + wr*m.feedback

		m.write++
		if m.write >= len(m.buffer[0]) {
			m.write = 0
		}

		left[i] = dry*left[i] + wet*0.5*(left[i]+wl)
		right[i] = dry*right[i] + wet*0.5*(right[i]+wr)
	}
}

func (m *modDelay) readFractional(ch int, delay float64) float64 {
	size := len(m.buffer[ch])

	p := int(delay)
	frac := delay - float64(p)

	i0 := (m.write - p + size) % size
	i1 := (i0 - 1 + size) % size

	v0 := m.buffer[ch][i0]
	v1 := m.buffer[ch][i1]

	return v0 + (v1-v0)*frac
}

func (m *modDelay) reset() {
	for ch := range m.buffer {
		for i := range m.buffer[ch] {
			m.buffer[ch][i] = 0
		}
	}

	m.write = 0
	m.phase = 0
}

const (
	flangerMaxDelay  = 0.012
	flangerBaseDelay = 0.001
	flangerFeedback  = 0.25

	chorusMaxDelay  = 0.040
	chorusBaseDelay = 0.015
)

func newFlanger(sampleRate float64) (*modDelay, error) {
	return newModDelay(sampleRate, flangerMaxDelay)
}

func configureFlanger(m *modDelay, rateHz, depth float64) {
	m.configure(rateHz, flangerBaseDelay, depth*0.005, flangerFeedback)
}

func newChorus(sampleRate float64) (*modDelay, error) {
	return newModDelay(sampleRate, chorusMaxDelay)
}

func configureChorus(m *modDelay, rateHz, depth float64) {
	m.configure(rateHz, chorusBaseDelay, depth*0.010, 0)
}
