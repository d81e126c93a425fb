package cmd

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/oddsound/mtscv/midicv"
	"github.com/oddsound/mtscv/quantizer"
)

type (
	// Tracer prints the outputs through a text/template with the sprig
	// functions available.
	Tracer struct {
		template *template.Template
		w        io.Writer
	}

	// TraceData is the dot of a trace template. The slices are cut to the
	// active channels.
	TraceData struct {
		Frame     int
		Time      float64
		CV        []float32
		Gate      []float32
		Velocity  []float32
		Quantized []float32
		Pitch     []float32
		Mod       []float32
		Clock     float32
	}
)

// NewTracer parses text, e.g.
//
//	{{.Time | printf "%.3f"}} {{.CV | join " "}}
func NewTracer(text string, w io.Writer) (*Tracer, error) {
	tmpl, err := template.New("trace").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf(`could not parse trace template: %v`, err)
	}
	return &Tracer{template: tmpl, w: w}, nil
}

func (t *Tracer) Trace(frame int, sampleTime float64, out *midicv.Outputs, q *quantizer.Outputs) error {
	data := TraceData{
		Frame:     frame,
		Time:      float64(frame) * sampleTime,
		CV:        out.CV[:out.Channels],
		Gate:      out.Gate[:out.Channels],
		Velocity:  out.Velocity[:out.Channels],
		Quantized: q.CV[:q.Channels],
		Pitch:     out.Pitch[:out.WheelChannels],
		Mod:       out.Mod[:out.WheelChannels],
		Clock:     out.Clock,
	}
	if err := t.template.Execute(t.w, &data); err != nil {
		return fmt.Errorf("could not execute trace template: %w", err)
	}
	return nil
}
