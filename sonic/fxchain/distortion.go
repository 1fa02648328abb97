package fxchain

import "math"

// distortion is a stateless tanh waveshaper normalized so unity input
// maps to unity output regardless of drive.
type distortion struct {
	drive float64
	norm  float64

	mix *bypass
}

func newDistortion(sampleRate float64) (*distortion, error) {
	mix, err := newBypass(sampleRate)
	if err != nil {
		return nil, err
	}

	d := &distortion{mix: mix}
	d.setDrive(2)

	return d, nil
}

func (d *distortion) setDrive(drive float64) {
	d.drive = drive
	d.norm = 1 / math.Tanh(drive)
}

func (d *distortion) process(left, right []float64) {
	for i := range left {
		wet, dry := d.mix.next()

		left[i] = dry*left[i] + wet*math.Tanh(left[i]*d.drive)*d.norm
		right[i] = dry*right[i] + wet*math.Tanh(right[i]*d.drive)*d.norm
	}
}
