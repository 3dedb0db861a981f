package nodes

import (
	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// ClassSpectralPeak is the class name of the spectral peak detector.
const ClassSpectralPeak = "SpectralPeak"

// NewSpectralPeak creates a node reporting the frequency and amplitude of
// the strongest non-DC bin of each audio block. The block size must be a
// power of two.
func NewSpectralPeak(name string) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{{Name: AudioIn, TypeName: data.TypeAudio}},
		[]vertex.Output{
			{Name: "Frequency", TypeName: data.TypeFloat, Tooltip: "Hz"},
			{Name: "Magnitude", TypeName: data.TypeFloat},
		},
	)

	return newNode(name, ClassSpectralPeak, iface, graph.FactoryFunc(createSpectralPeak))
}

func createSpectralPeak(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
	n := params.Settings.BlockSize
	if n < 2 || n&(n-1) != 0 {
		errs.Add(graph.NewError(graph.KindInvalidSettings, "spectral peak %q needs a power-of-two block size, got %d",
			params.Node.InstanceName(), n).WithNodes(params.Node.ID()))

		return nil
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		errs.Add(graph.NewError(graph.KindFactoryFailure, "spectral peak %q: FFT plan: %v", params.Node.InstanceName(), err).
			WithNodes(params.Node.ID()))

		return nil
	}

	in, okI := graph.InputOrDefault[*data.Buffer](params, AudioIn, errs)
	freq, okF := graph.NewOutput[float64](params, "Frequency", data.NoneLiteral(), errs)

	mag, okM := graph.NewOutput[float64](params, "Magnitude", data.NoneLiteral(), errs)
	if !okI || !okF || !okM {
		return nil
	}

	bins := n/2 + 1
	op := &spectralPeakOperator{
		plan:       plan,
		sampleRate: params.Settings.SampleRate,
		frame:      make([]complex128, n),
		spectrum:   make([]complex128, n),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mag:        make([]float64, bins),
		freq:       freq,
		magnitude:  mag,
	}
	graph.BindInput(&op.IO, AudioIn, &op.in, in)
	op.SetOutput("Frequency", freq.Ref())
	op.SetOutput("Magnitude", mag.Ref())

	return op
}

type spectralPeakOperator struct {
	graph.IO
	in        data.ReadRef[*data.Buffer]
	freq      data.WriteRef[float64]
	magnitude data.WriteRef[float64]

	plan            *algofft.Plan[complex128]
	sampleRate      float64
	frame, spectrum []complex128
	re, im, mag     []float64
}

func (o *spectralPeakOperator) Execute() {
	samples := o.in.Get().Samples()

	for i := range o.frame {
		var v float64

		if i < len(samples) {
			v = samples[i]
		}

		o.frame[i] = complex(v, 0)
	}

	err := o.plan.Forward(o.spectrum, o.frame)
	if err != nil {
		return
	}

	for k := range o.re {
		o.re[k] = real(o.spectrum[k])
		o.im[k] = imag(o.spectrum[k])
	}

	vecmath.Magnitude(o.mag, o.re, o.im)

	peak := 1

	for k := 2; k < len(o.mag); k++ {
		if o.mag[k] > o.mag[peak] {
			peak = k
		}
	}

	n := float64(len(o.frame))
	o.freq.Set(float64(peak) * o.sampleRate / n)
	o.magnitude.Set(2 * o.mag[peak] / n)
}
