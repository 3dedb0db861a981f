package nodes

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// Audio class names.
const (
	ClassSine     = "SineOscillator"
	ClassGain     = "Gain"
	ClassMixer    = "Mixer"
	ClassMultiply = "Multiply"
)

// Vertex names of the audio input and output of single-input processors
// and of audio sources.
const (
	AudioIn  = "In"
	AudioOut = "Out"
)

// SineParams configures a sine oscillator.
type SineParams struct {
	Frequency float64 `mapstructure:"frequency"`
	Amplitude float64 `mapstructure:"amplitude"`
}

// DefaultSineParams returns a 440 Hz full-scale sine.
func DefaultSineParams() SineParams {
	return SineParams{Frequency: 440, Amplitude: 1}
}

// NewSine creates a sine oscillator with Frequency and Amplitude control
// inputs defaulting to p.
func NewSine(name string, p SineParams) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{
			{Name: "Frequency", TypeName: data.TypeFloat, Default: data.FloatLiteral(p.Frequency), Tooltip: "Hz"},
			{Name: "Amplitude", TypeName: data.TypeFloat, Default: data.FloatLiteral(p.Amplitude)},
		},
		[]vertex.Output{{Name: AudioOut, TypeName: data.TypeAudio}},
	)

	return newNode(name, ClassSine, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &sineOperator{sampleRate: params.Settings.SampleRate}
			freq, okF := graph.InputOrDefault[float64](params, "Frequency", errs)
			amp, okA := graph.InputOrDefault[float64](params, "Amplitude", errs)

			out, okO := graph.NewOutput[*data.Buffer](params, AudioOut, data.NoneLiteral(), errs)
			if !okF || !okA || !okO {
				return nil
			}

			graph.BindInput(&op.IO, "Frequency", &op.freq, freq)
			graph.BindInput(&op.IO, "Amplitude", &op.amp, amp)

			op.out = out
			op.SetOutput(AudioOut, out.Ref())

			return op
		}))
}

type sineOperator struct {
	graph.IO
	freq, amp  data.ReadRef[float64]
	out        data.WriteRef[*data.Buffer]
	sampleRate float64
	phase      float64
}

func (o *sineOperator) Execute() {
	buf := o.out.Get().Samples()
	amp := o.amp.Get()
	step := 2 * math.Pi * o.freq.Get() / o.sampleRate

	for i := range buf {
		buf[i] = amp * math.Sin(o.phase)
		o.phase += step
	}

	o.phase = math.Mod(o.phase, 2*math.Pi)
}

func (o *sineOperator) Reset(params graph.ResetParams) {
	o.phase = 0
	o.sampleRate = params.Settings.SampleRate
	o.out.Get().Zero()
}

// NewGain creates a node scaling its audio input by the Gain control.
func NewGain(name string, gain float64) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{
			{Name: AudioIn, TypeName: data.TypeAudio},
			{Name: "Gain", TypeName: data.TypeFloat, Default: data.FloatLiteral(gain)},
		},
		[]vertex.Output{{Name: AudioOut, TypeName: data.TypeAudio}},
	)

	return newNode(name, ClassGain, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &gainOperator{}
			in, okI := graph.InputOrDefault[*data.Buffer](params, AudioIn, errs)
			g, okG := graph.InputOrDefault[float64](params, "Gain", errs)

			out, okO := graph.NewOutput[*data.Buffer](params, AudioOut, data.NoneLiteral(), errs)
			if !okI || !okG || !okO {
				return nil
			}

			graph.BindInput(&op.IO, AudioIn, &op.in, in)
			graph.BindInput(&op.IO, "Gain", &op.gain, g)

			op.out = out
			op.SetOutput(AudioOut, out.Ref())

			return op
		}))
}

type gainOperator struct {
	graph.IO
	in   data.ReadRef[*data.Buffer]
	gain data.ReadRef[float64]
	out  data.WriteRef[*data.Buffer]
}

func (o *gainOperator) Execute() {
	dst, src := blockPair(o.out.Get(), o.in.Get())
	vecmath.ScaleBlock(dst, src, o.gain.Get())
}

// MixerParams configures a mixer.
type MixerParams struct {
	Inputs int `mapstructure:"inputs"`
}

// MixerInput returns the name of mixer input i, counting from 1.
func MixerInput(i int) string { return fmt.Sprintf("In%d", i) }

// NewMixer creates a node summing p.Inputs audio inputs named In1..InN.
func NewMixer(name string, p MixerParams) (*Node, error) {
	if p.Inputs < 1 {
		return nil, fmt.Errorf("nodes: mixer %q: need at least one input, got %d", name, p.Inputs)
	}

	inputs := make([]vertex.Input, p.Inputs)
	for i := range inputs {
		inputs[i] = vertex.Input{Name: MixerInput(i + 1), TypeName: data.TypeAudio}
	}

	iface := vertex.MustInterface(inputs, []vertex.Output{{Name: AudioOut, TypeName: data.TypeAudio}})

	return newNode(name, ClassMixer, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &mixerOperator{ins: make([]data.ReadRef[*data.Buffer], p.Inputs)}
			for i := range op.ins {
				in, ok := graph.InputOrDefault[*data.Buffer](params, MixerInput(i+1), errs)
				if !ok {
					return nil
				}

				graph.BindInput(&op.IO, MixerInput(i+1), &op.ins[i], in)
			}

			out, ok := graph.NewOutput[*data.Buffer](params, AudioOut, data.NoneLiteral(), errs)
			if !ok {
				return nil
			}

			op.out = out
			op.SetOutput(AudioOut, out.Ref())

			return op
		})), nil
}

type mixerOperator struct {
	graph.IO
	ins []data.ReadRef[*data.Buffer]
	out data.WriteRef[*data.Buffer]
}

func (o *mixerOperator) Execute() {
	out := o.out.Get()
	out.Zero()

	for _, in := range o.ins {
		dst, src := blockPair(out, in.Get())
		vecmath.AddBlockInPlace(dst, src)
	}
}

// NewMultiply creates a node multiplying audio inputs A and B sample by
// sample, e.g. for ring modulation or applying an envelope.
func NewMultiply(name string) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{
			{Name: "A", TypeName: data.TypeAudio},
			{Name: "B", TypeName: data.TypeAudio, Default: data.FloatLiteral(1)},
		},
		[]vertex.Output{{Name: AudioOut, TypeName: data.TypeAudio}},
	)

	return newNode(name, ClassMultiply, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &multiplyOperator{}
			a, okA := graph.InputOrDefault[*data.Buffer](params, "A", errs)
			b, okB := graph.InputOrDefault[*data.Buffer](params, "B", errs)

			out, okO := graph.NewOutput[*data.Buffer](params, AudioOut, data.NoneLiteral(), errs)
			if !okA || !okB || !okO {
				return nil
			}

			graph.BindInput(&op.IO, "A", &op.a, a)
			graph.BindInput(&op.IO, "B", &op.b, b)

			op.out = out
			op.SetOutput(AudioOut, out.Ref())

			return op
		}))
}

type multiplyOperator struct {
	graph.IO
	a, b data.ReadRef[*data.Buffer]
	out  data.WriteRef[*data.Buffer]
}

func (o *multiplyOperator) Execute() {
	out := o.out.Get().Samples()
	a, b := o.a.Get().Samples(), o.b.Get().Samples()
	n := min(len(out), len(a), len(b))
	vecmath.MulBlock(out[:n], a[:n], b[:n])
}

// blockPair returns dst and src trimmed to a common length.
func blockPair(dst, src *data.Buffer) ([]float64, []float64) {
	d, s := dst.Samples(), src.Samples()
	n := min(len(d), len(s))

	return d[:n], s[:n]
}
