package oto

import (
	"errors"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
	"github.com/oddsound/mtscv"
	"github.com/viterin/vek/vek32"
)

type (
	// OtoContext plays control voltages on a DC-coupled audio interface.
	// oto allows one context per process and fixes the channel count when it
	// is created.
	OtoContext struct {
		context  *oto.Context
		channels int
	}

	OtoOutput struct {
		player    *oto.Player
		writer    *io.PipeWriter
		channels  int
		samples   []float32
		tmpBuffer []byte
	}
)

const otoBufferSize = 8192

var errChannelCount = errors.New("channel count does not match the audio context")

// NewContext opens the audio device with 32-bit float samples and waits
// until it is ready.
func NewContext(sampleRate, channels int) (*OtoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0, // platform default
	}
	context, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, channels: channels}, nil
}

// Output starts a player. WriteCV blocks until the player has consumed the
// previous buffer, which paces the caller to the device.
func (c *OtoContext) Output(channels int) (mtscv.CVSink, error) {
	if channels != c.channels {
		return nil, fmt.Errorf("opening %d channel output: %w", channels, errChannelCount)
	}
	r, w := io.Pipe()
	player := c.context.NewPlayer(r)
	player.SetBufferSize(otoBufferSize * channels)
	player.Play()
	return &OtoOutput{player: player, writer: w, channels: channels}, nil
}

// Close suspends the device; oto contexts live as long as the process.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (o *OtoOutput) WriteCV(buffer mtscv.CVBuffer) error {
	if len(buffer) != o.channels {
		return fmt.Errorf("writing %d channels: %w", len(buffer), errChannelCount)
	}
	o.samples = buffer.InterleaveVolts(o.samples[:0])
	vek32.MulNumber_Inplace(o.samples, mtscv.VoltsToSample(1))
	vek32.MinimumNumber_Inplace(o.samples, 1)
	vek32.MaximumNumber_Inplace(o.samples, -1)
	// we reuse the old capacity tmpBuffer by setting its length to zero. then,
	// we save the tmpBuffer so we can reuse it next time
	o.tmpBuffer = FloatBufferToFloat32LE(o.samples, o.tmpBuffer[:0])
	if _, err := o.writer.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close disposes of resources
func (o *OtoOutput) Close() error {
	o.writer.Close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
