package fxchain

import "github.com/cwbudde/algo-sonify/sonic/ramp"

// crossfadeSeconds is the wet/dry ramp time on enable/disable.
const crossfadeSeconds = 0.05

// bypass implements true parallel bypass for a substitutive stage: the
// wet and dry paths are always both computed and summed under
// cross-faded gains, so toggling never clicks.
type bypass struct {
	wet *ramp.Value
	dry *ramp.Value
}

func newBypass(sampleRate float64) (*bypass, error) {
	wet, err := ramp.New(sampleRate, 0)
	if err != nil {
		return nil, err
	}

	dry, err := ramp.New(sampleRate, 1)
	if err != nil {
		return nil, err
	}

	return &bypass{wet: wet, dry: dry}, nil
}

func (b *bypass) setEnabled(on bool) {
	if on {
		b.wet.RampTo(1, crossfadeSeconds)
		b.dry.RampTo(0, crossfadeSeconds)
		return
	}

	b.wet.RampTo(0, crossfadeSeconds)
	b.dry.RampTo(1, crossfadeSeconds)
}

// next advances one sample frame and returns the wet and dry gains.
func (b *bypass) next() (wet, dry float64) {
	return b.wet.Next(), b.dry.Next()
}

func (b *bypass) reset(enabled bool) {
	if enabled {
		b.wet.SetImmediate(1)
		b.dry.SetImmediate(0)
		return
	}

	b.wet.SetImmediate(0)
	b.dry.SetImmediate(1)
}

// send is the additive variant: dry stays at unity and only the wet
// send level fades. Used by delay and reverb.
type send struct {
	wet *ramp.Value
}

func newSend(sampleRate float64) (*send, error) {
	wet, err := ramp.New(sampleRate, 0)
	if err != nil {
		return nil, err
	}

	return &send{wet: wet}, nil
}

func (s *send) setLevel(level float64) {
	s.wet.RampTo(level, crossfadeSeconds)
}

func (s *send) next() float64 { return s.wet.Next() }

func (s *send) reset(level float64) { s.wet.SetImmediate(level) }
