package synth

import (
	"math"

	"github.com/cwbudde/algo-sonify/sonic/ramp"
)

// ringSlewSeconds is how long the ring carrier takes to reach a new
// frequency target.
const ringSlewSeconds = 0.08

// mangle is the ring-modulation and wave-shaping side chain used by the
// chromatic noise archetype. Signal routed through it is multiplied by
// a sine carrier, pushed through a tanh shaper, and scaled by the send
// level. The carrier frequency is slewed, never stepped.
type mangle struct {
	sampleRate float64

	carrierPhase float64
	carrierHz    *ramp.Value
	send         *ramp.Value

	drive float64
	norm  float64
}

func newMangle(sampleRate float64) (*mangle, error) {
	hz, err := ramp.New(sampleRate, 10)
	if err != nil {
		return nil, err
	}

	send, err := ramp.New(sampleRate, 0)
	if err != nil {
		return nil, err
	}

	m := &mangle{sampleRate: sampleRate, carrierHz: hz, send: send}
	m.setDrive(3)

	return m, nil
}

func (m *mangle) setDrive(drive float64) {
	if drive < 1 {
		drive = 1
	}

	m.drive = drive
	m.norm = 1 / math.Tanh(drive)
}

// setCarrierTarget slews the ring frequency toward hz.
func (m *mangle) setCarrierTarget(hz float64) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return
	}

	if hz != m.carrierHz.Target() {
		m.carrierHz.RampTo(hz, ringSlewSeconds)
	}
}

func (m *mangle) setSend(level, seconds float64) {
	m.send.RampTo(clampRange(level, 0, 1), seconds)
}

// silence zeroes the send immediately and clears its ramp.
func (m *mangle) silence() {
	m.send.SetImmediate(0)
}

// process ring-modulates and shapes both channels in place, scaled by
// the send level. Call with the side-chain scratch, not the master mix.
func (m *mangle) process(left, right []float64) {
	for i := range left {
		hz := m.carrierHz.Next()
		carrier := math.Sin(2 * math.Pi * m.carrierPhase)

		m.carrierPhase += hz / m.sampleRate
		if m.carrierPhase >= 1 {
			m.carrierPhase -= 1
		}

		send := m.send.Next()

		left[i] = math.Tanh(left[i]*carrier*m.drive) * m.norm * send
		right[i] = math.Tanh(right[i]*carrier*m.drive) * m.norm * send
	}
}
