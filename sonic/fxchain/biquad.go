package fxchain

import "math"

// biquadCoefficients holds a normalized second-order section (a0 = 1).
// Processing uses Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type biquadCoefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// biquadSection is a single biquad with state. Not thread-safe.
type biquadSection struct {
	biquadCoefficients

	d0, d1 float64
}

func (s *biquadSection) processSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

func (s *biquadSection) reset() {
	s.d0 = 0
	s.d1 = 0
}

// RBJ audio-EQ-cookbook designs for the three-band EQ.

func lowShelfCoefficients(sampleRate, freq, gainDB float64) biquadCoefficients {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / 2 * math.Sqrt2
	sqrtA := math.Sqrt(a)

	b0 := a * ((a + 1) - (a-1)*cosW0 + 2*sqrtA*alpha)
	b1 := 2 * a * ((a - 1) - (a+1)*cosW0)
	b2 := a * ((a + 1) - (a-1)*cosW0 - 2*sqrtA*alpha)
	a0 := (a + 1) + (a-1)*cosW0 + 2*sqrtA*alpha
	a1 := -2 * ((a - 1) + (a+1)*cosW0)
	a2 := (a + 1) + (a-1)*cosW0 - 2*sqrtA*alpha

	return normalizeCoefficients(b0, b1, b2, a0, a1, a2)
}

func highShelfCoefficients(sampleRate, freq, gainDB float64) biquadCoefficients {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / 2 * math.Sqrt2
	sqrtA := math.Sqrt(a)

	b0 := a * ((a + 1) + (a-1)*cosW0 + 2*sqrtA*alpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW0)
	b2 := a * ((a + 1) + (a-1)*cosW0 - 2*sqrtA*alpha)
	a0 := (a + 1) - (a-1)*cosW0 + 2*sqrtA*alpha
	a1 := 2 * ((a - 1) - (a+1)*cosW0)
	a2 := (a + 1) - (a-1)*cosW0 - 2*sqrtA*alpha

	return normalizeCoefficients(b0, b1, b2, a0, a1, a2)
}

func peakingCoefficients(sampleRate, freq, gainDB, q float64) biquadCoefficients {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / sampleRate
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	b0 := 1 + alpha*a
	b1 := -2 * cosW0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosW0
	a2 := 1 - alpha/a

	return normalizeCoefficients(b0, b1, b2, a0, a1, a2)
}

func normalizeCoefficients(b0, b1, b2, a0, a1, a2 float64) biquadCoefficients {
	return biquadCoefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
