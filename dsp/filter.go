package dsp

// ExponentialFilter is a single pole low-pass filter. Out can be written
// directly to jump the filter to a value.
type ExponentialFilter struct {
	Out    float32
	lambda float32
}

func (f *ExponentialFilter) Reset() {
	f.Out = 0
}

// SetTau sets the time constant in seconds.
func (f *ExponentialFilter) SetTau(tau float32) {
	f.lambda = 1 / tau
}

func (f *ExponentialFilter) SetLambda(lambda float32) {
	f.lambda = lambda
}

// Process advances the filter by deltaTime seconds towards in.
func (f *ExponentialFilter) Process(deltaTime, in float32) float32 {
	y := f.Out + (in-f.Out)*f.lambda*deltaTime
	// no change means the step underflowed; settle on the input
	if y == f.Out {
		f.Out = in
	} else {
		f.Out = y
	}
	return f.Out
}
