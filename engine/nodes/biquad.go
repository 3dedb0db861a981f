package nodes

import (
	"math"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// ClassLowpass is the class name of the biquad lowpass node.
const ClassLowpass = "BiquadLowpass"

const defaultQ = 1 / math.Sqrt2

// LowpassParams configures a biquad lowpass.
type LowpassParams struct {
	Cutoff float64 `mapstructure:"cutoff"`
	Q      float64 `mapstructure:"q"`
}

// DefaultLowpassParams returns a 1 kHz Butterworth lowpass.
func DefaultLowpassParams() LowpassParams {
	return LowpassParams{Cutoff: 1000, Q: defaultQ}
}

// NewLowpass creates a second-order lowpass with Cutoff (Hz) and Q
// control inputs.
func NewLowpass(name string, p LowpassParams) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{
			{Name: AudioIn, TypeName: data.TypeAudio},
			{Name: "Cutoff", TypeName: data.TypeFloat, Default: data.FloatLiteral(p.Cutoff), Tooltip: "Hz"},
			{Name: "Q", TypeName: data.TypeFloat, Default: data.FloatLiteral(p.Q)},
		},
		[]vertex.Output{{Name: AudioOut, TypeName: data.TypeAudio}},
	)

	return newNode(name, ClassLowpass, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &lowpassOperator{sampleRate: params.Settings.SampleRate}
			in, okI := graph.InputOrDefault[*data.Buffer](params, AudioIn, errs)
			cutoff, okC := graph.InputOrDefault[float64](params, "Cutoff", errs)
			q, okQ := graph.InputOrDefault[float64](params, "Q", errs)

			out, okO := graph.NewOutput[*data.Buffer](params, AudioOut, data.NoneLiteral(), errs)
			if !okI || !okC || !okQ || !okO {
				return nil
			}

			graph.BindInput(&op.IO, AudioIn, &op.in, in)
			graph.BindInput(&op.IO, "Cutoff", &op.cutoff, cutoff)
			graph.BindInput(&op.IO, "Q", &op.q, q)

			op.out = out
			op.SetOutput(AudioOut, out.Ref())
			op.update()

			return op
		}))
}

// coefficients of one second-order section with a0 normalised to 1.
type coefficients struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// lowpassRBJ designs the RBJ cookbook lowpass. ok is false for cutoffs
// outside (0, Nyquist).
func lowpassRBJ(freq, q, sampleRate float64) (coefficients, bool) {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return coefficients{}, false
	}

	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		q = defaultQ
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)
	a0 := 1 + alpha

	return coefficients{
		b0: (1 - cw) / 2 / a0,
		b1: (1 - cw) / a0,
		b2: (1 - cw) / 2 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}, true
}

type lowpassOperator struct {
	graph.IO
	in        data.ReadRef[*data.Buffer]
	cutoff, q data.ReadRef[float64]
	out       data.WriteRef[*data.Buffer]

	sampleRate     float64
	lastCut, lastQ float64
	coefficients
	d0, d1 float64
}

// update redesigns the filter when a control changed. Invalid cutoffs keep
// the previous design.
func (o *lowpassOperator) update() {
	cut, q := o.cutoff.Get(), o.q.Get()
	if cut == o.lastCut && q == o.lastQ {
		return
	}

	o.lastCut, o.lastQ = cut, q
	if c, ok := lowpassRBJ(cut, q, o.sampleRate); ok {
		o.coefficients = c
	}
}

// Execute filters one block in Direct Form II Transposed.
func (o *lowpassOperator) Execute() {
	o.update()

	dst, src := blockPair(o.out.Get(), o.in.Get())
	for i, x := range src {
		y := o.b0*x + o.d0
		o.d0 = o.b1*x - o.a1*y + o.d1
		o.d1 = o.b2*x - o.a2*y
		dst[i] = y
	}
}

func (o *lowpassOperator) Reset(params graph.ResetParams) {
	o.d0, o.d1 = 0, 0
	o.sampleRate = params.Settings.SampleRate
	o.lastCut, o.lastQ = 0, 0
	o.update()
}
