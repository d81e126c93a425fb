package mtscv

type (
	// Cable is one sample of a polyphonic cable, one voltage per channel. An
	// empty cable is unconnected and a single entry is shared by all
	// channels.
	Cable []float32

	// CVBuffer holds control voltages, one slice of frames per cable channel.
	// All channels are expected to be of equal length.
	CVBuffer [][]float32

	// CVSink consumes rendered control voltages, e.g. a DC-coupled audio
	// interface.
	CVSink interface {
		WriteCV(buffer CVBuffer) error
		Close() error
	}

	// AudioContext opens CVSinks with a fixed number of channels.
	AudioContext interface {
		Output(channels int) (CVSink, error)
		Close() error
	}
)

// MakeCVBuffer allocates a buffer of the given number of channels and frames.
func MakeCVBuffer(channels, frames int) CVBuffer {
	backing := make([]float32, channels*frames)
	ret := make(CVBuffer, channels)
	for i := range ret {
		ret[i] = backing[i*frames : (i+1)*frames : (i+1)*frames]
	}
	return ret
}

// Frames returns the length of the buffer in frames.
func (b CVBuffer) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Append appends the frames of other to b, channel by channel.
func (b CVBuffer) Append(other CVBuffer) CVBuffer {
	for i := range b {
		if i < len(other) {
			b[i] = append(b[i], other[i]...)
		}
	}
	return b
}

// Interleave writes the buffer frame by frame into dst, scaling volts to
// samples, and returns the extended dst.
func (b CVBuffer) Interleave(dst []float32) []float32 {
	n := len(dst)
	dst = b.InterleaveVolts(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = VoltsToSample(dst[i])
	}
	return dst
}

// InterleaveVolts writes the buffer frame by frame into dst, unscaled, and
// returns the extended dst.
func (b CVBuffer) InterleaveVolts(dst []float32) []float32 {
	frames := b.Frames()
	for f := 0; f < frames; f++ {
		for c := range b {
			dst = append(dst, b[c][f])
		}
	}
	return dst
}

// Poly returns the voltage of channel c, or normal when the cable is
// unconnected. Channels beyond a polyphonic cable read 0.
func (cb Cable) Poly(c int, normal float32) float32 {
	switch {
	case len(cb) == 0:
		return normal
	case len(cb) == 1:
		return cb[0]
	case c < len(cb):
		return cb[c]
	}
	return 0
}

// Mono returns the voltage of the first channel, or normal when the cable is
// unconnected.
func (cb Cable) Mono(normal float32) float32 {
	return cb.Poly(0, normal)
}
