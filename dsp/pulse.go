package dsp

// PulseGenerator is a retriggerable one-shot. Triggering while a pulse is
// high extends it to the new duration if that is longer; pulses never stack.
type PulseGenerator struct {
	remaining float64
}

func (p *PulseGenerator) Reset() {
	p.remaining = 0
}

// Trigger starts a pulse of the given duration in seconds.
func (p *PulseGenerator) Trigger(duration float64) {
	if duration > p.remaining {
		p.remaining = duration
	}
}

// Process advances the generator by deltaTime seconds and reports whether the
// pulse was high during this step.
func (p *PulseGenerator) Process(deltaTime float64) bool {
	if p.remaining > 0 {
		p.remaining -= deltaTime
		return true
	}
	return false
}

// High reports whether the pulse is currently high, without advancing it.
func (p *PulseGenerator) High() bool {
	return p.remaining > 0
}
