package fxchain

const (
	eqLowFreq  = 200.0
	eqMidFreq  = 1000.0
	eqHighFreq = 4000.0
	eqMidQ     = 0.9
)

// threeBandEQ is a low shelf, mid peak, high shelf cascade with
// independent state per channel.
type threeBandEQ struct {
	sampleRate float64

	low  [2]biquadSection
	mid  [2]biquadSection
	high [2]biquadSection

	lowDB, midDB, highDB float64

	mix *bypass
}

func newThreeBandEQ(sampleRate float64) (*threeBandEQ, error) {
	mix, err := newBypass(sampleRate)
	if err != nil {
		return nil, err
	}

	eq := &threeBandEQ{sampleRate: sampleRate, mix: mix}
	eq.setGains(0, 0, 0)

	return eq, nil
}

// setGains rebuilds coefficients only when a band gain actually moved.
func (eq *threeBandEQ) setGains(lowDB, midDB, highDB float64) {
	if lowDB == eq.lowDB && midDB == eq.midDB && highDB == eq.highDB && eq.low[0].B0 != 0 {
		return
	}

	eq.lowDB = lowDB
	eq.midDB = midDB
	eq.highDB = highDB

	lowC := lowShelfCoefficients(eq.sampleRate, eqLowFreq, lowDB)
	midC := peakingCoefficients(eq.sampleRate, eqMidFreq, midDB, eqMidQ)
	highC := highShelfCoefficients(eq.sampleRate, eqHighFreq, highDB)

	for ch := 0; ch < 2; ch++ {
		eq.low[ch].biquadCoefficients = lowC
		eq.mid[ch].biquadCoefficients = midC
		eq.high[ch].biquadCoefficients = highC
	}
}

func (eq *threeBandEQ) process(left, right []float64) {
	for i := range left {
		wet, dry := eq.mix.next()

		wl := eq.high[0].processSample(eq.mid[0].processSample(eq.low[0].processSample(left[i])))
		wr := eq.high[1].processSample(eq.mid[1].processSample(eq.low[1].processSample(right[i])))

		left[i] = dry*left[i] + wet*wl
		right[i] = dry*right[i] + wet*wr
	}
}

func (eq *threeBandEQ) reset() {
	for ch := 0; ch < 2; ch++ {
		eq.low[ch].reset()
		eq.mid[ch].reset()
		eq.high[ch].reset()
	}
}
