package dsp

// Timer accumulates sample time. Combined with Elapsed it is a rate limiter
// whose period is independent of the sample rate.
type Timer struct {
	Time float64
}

func (t *Timer) Reset() {
	t.Time = 0
}

// Process advances the timer by deltaTime seconds and returns the total.
func (t *Timer) Process(deltaTime float64) float64 {
	t.Time += deltaTime
	return t.Time
}

// Elapsed advances the timer and reports whether a full period has passed.
// When it has, one period is subtracted so the phase is kept.
func (t *Timer) Elapsed(deltaTime, period float64) bool {
	if t.Process(deltaTime) >= period {
		t.Time -= period
		return true
	}
	return false
}
