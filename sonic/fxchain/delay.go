package fxchain

import "math"

const maxDelaySeconds = 2.0

// feedbackDelay is the additive delay stage. The feedback path writes
// input plus the delayed signal back into the line, forming the
// intentional short feedback loop delay -> feedback gain -> delay.
type feedbackDelay struct {
	sampleRate float64

	buffer [2][]float64
	write  int

	delaySamples int
	feedback     float64

	wet *send
}

func newFeedbackDelay(sampleRate float64) (*feedbackDelay, error) {
	wet, err := newSend(sampleRate)
	if err != nil {
		return nil, err
	}

	size := int(math.Ceil(maxDelaySeconds*sampleRate)) + 1

	d := &feedbackDelay{sampleRate: sampleRate, wet: wet}
	d.buffer[0] = make([]float64, size)
	d.buffer[1] = make([]float64, size)
	d.configure(0.3, 0.35)

	return d, nil
}

func (d *feedbackDelay) configure(delaySeconds, feedback float64) {
	samples := int(math.Round(delaySeconds * d.sampleRate))
	if samples < 1 {
		samples = 1
	}

	if samples >= len(d.buffer[0]) {
		samples = len(d.buffer[0]) - 1
	}

	d.delaySamples = samples
	d.feedback = feedback
}

func (d *feedbackDelay) process(left, right []float64) {
	size := len(d.buffer[0])

	for i := range left {
		wet := d.wet.next()

		read := d.write - d.delaySamples
		if read < 0 {
			read += size
		}

		dl := d.buffer[0][read]
		dr := d.buffer[1][read]

		d.buffer[0][d.write] = left[i] + dl*d.feedback
		d.buffer[1][d.write] = right[i] + dr*d.feedback

		d.write++
		if d.write >= size {
			d.write = 0
		}

		// Additive: dry passes at unity, only the send fades.
		left[i] += dl * wet
		right[i] += dr * wet
	}
}

func (d *feedbackDelay) reset() {
	for ch := range d.buffer {
		for i := range d.buffer[ch] {
			d.buffer[ch][i] = 0
		}
	}

	d.write = 0
}
