package nodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/internal/testutil"
)

func TestSineContinuesPhaseAcrossBlocks(t *testing.T) {
	t.Parallel()

	const block = 48
	osc := NewSine("osc", SineParams{Frequency: 1000, Amplitude: 0.5})
	op := newTestGraph(t, osc).output("Out", data.TypeAudio, osc, AudioOut).build(testSettings(block))

	want := testutil.DeterministicSine(1000, testSampleRate, 0.5, 2*block)

	op.Execute()
	testutil.RequireSliceNearlyEqual(t, audioOutput(t, op, "Out"), want[:block], 1e-9)
	op.Execute()
	testutil.RequireSliceNearlyEqual(t, audioOutput(t, op, "Out"), want[block:], 1e-9)

	op.Reset(graph.ResetParams{Settings: testSettings(block)})
	op.Execute()
	testutil.RequireSliceNearlyEqual(t, audioOutput(t, op, "Out"), want[:block], 1e-9)
}

func TestSineFrequencyFromGraphInput(t *testing.T) {
	t.Parallel()

	const block = 64
	osc := NewSine("osc", DefaultSineParams())
	op := newTestGraph(t, osc).
		input("Freq", data.TypeFloat, data.FloatLiteral(440), osc, "Frequency").
		output("Out", data.TypeAudio, osc, AudioOut).
		build(testSettings(block))

	freq, ok := data.GetWrite[float64](op.Inputs(), "Freq")
	require.True(t, ok)
	assert.InDelta(t, 440, freq.Get(), 0)

	freq.Set(3000)
	op.Execute()
	testutil.RequireSliceNearlyEqual(t, audioOutput(t, op, "Out"),
		testutil.DeterministicSine(3000, testSampleRate, 1, block), 1e-9)
}

func TestGainAndMultiply(t *testing.T) {
	t.Parallel()

	const block = 32
	osc := NewSine("osc", SineParams{Frequency: 750, Amplitude: 1})
	gain := NewGain("gain", 0.25)
	two := NewLiteral("two", data.TypeAudio, data.FloatLiteral(2))
	mul := NewMultiply("mul")

	op := newTestGraph(t, osc, gain, two, mul).
		connect(osc, AudioOut, gain, AudioIn).
		connect(gain, AudioOut, mul, "A").
		connect(two, LiteralVertex, mul, "B").
		output("Out", data.TypeAudio, mul, AudioOut).
		build(testSettings(block))

	op.Execute()

	want := testutil.DeterministicSine(750, testSampleRate, 0.5, block)
	testutil.RequireSliceNearlyEqual(t, audioOutput(t, op, "Out"), want, 1e-9)
}

func TestMultiplyDefaultsToUnity(t *testing.T) {
	t.Parallel()

	const block = 16
	osc := NewSine("osc", SineParams{Frequency: 3000, Amplitude: 1})
	mul := NewMultiply("mul")
	op := newTestGraph(t, osc, mul).
		connect(osc, AudioOut, mul, "A").
		output("Out", data.TypeAudio, mul, AudioOut).
		build(testSettings(block))

	op.Execute()
	testutil.RequireSliceNearlyEqual(t, audioOutput(t, op, "Out"),
		testutil.DeterministicSine(3000, testSampleRate, 1, block), 1e-9)
}

func TestMixerSumsInputs(t *testing.T) {
	t.Parallel()

	mix, err := NewMixer("mix", MixerParams{Inputs: 3})
	require.NoError(t, err)

	a := NewLiteral("a", data.TypeAudio, data.FloatLiteral(0.25))
	b := NewLiteral("b", data.TypeAudio, data.FloatLiteral(0.5))

	op := newTestGraph(t, a, b, mix).
		connect(a, LiteralVertex, mix, MixerInput(1)).
		connect(b, LiteralVertex, mix, MixerInput(3)).
		output("Out", data.TypeAudio, mix, AudioOut).
		build(testSettings(8))

	op.Execute()
	op.Execute()
	testutil.RequireAllNear(t, audioOutput(t, op, "Out"), 0.75, 1e-15)

	_, err = NewMixer("none", MixerParams{})
	require.Error(t, err)
}

func TestLowpass(t *testing.T) {
	t.Parallel()

	const block = 256

	run := func(t *testing.T, freq float64) []float64 {
		t.Helper()

		osc := NewSine("osc", SineParams{Frequency: freq, Amplitude: 1})
		lp := NewLowpass("lp", LowpassParams{Cutoff: 500, Q: defaultQ})
		op := newTestGraph(t, osc, lp).
			connect(osc, AudioOut, lp, AudioIn).
			output("Out", data.TypeAudio, lp, AudioOut).
			build(testSettings(block))

		for range 20 {
			op.Execute()
		}

		out := audioOutput(t, op, "Out")
		testutil.RequireFinite(t, out)

		return out
	}

	t.Run("passband", func(t *testing.T) {
		t.Parallel()

		// One period per block, well below the cutoff: nearly unity gain.
		rms := testutil.RMS(run(t, float64(testSampleRate)/block))
		assert.InDelta(t, math.Sqrt2/2, rms, 0.05)
	})
	t.Run("stopband", func(t *testing.T) {
		t.Parallel()
		// Second order: about -64 dB at 20 kHz.
		assert.Less(t, testutil.RMS(run(t, 20000)), 0.01)
	})
}

func TestLowpassDesign(t *testing.T) {
	t.Parallel()

	c, ok := lowpassRBJ(1000, defaultQ, testSampleRate)
	require.True(t, ok)

	// DC gain of a lowpass is 1.
	dc := (c.b0 + c.b1 + c.b2) / (1 + c.a1 + c.a2)
	assert.InDelta(t, 1, dc, 1e-12)

	_, ok = lowpassRBJ(30000, defaultQ, testSampleRate)
	assert.False(t, ok)

	_, ok = lowpassRBJ(0, defaultQ, testSampleRate)
	assert.False(t, ok)
}

func TestSpectralPeak(t *testing.T) {
	t.Parallel()

	const block = 256
	binWidth := float64(testSampleRate) / block
	osc := NewSine("osc", SineParams{Frequency: 10 * binWidth, Amplitude: 0.8})
	peak := NewSpectralPeak("peak")

	op := newTestGraph(t, osc, peak).
		connect(osc, AudioOut, peak, AudioIn).
		output("Frequency", data.TypeFloat, peak, "Frequency").
		output("Magnitude", data.TypeFloat, peak, "Magnitude").
		build(testSettings(block))

	op.Execute()
	assert.InDelta(t, 10*binWidth, floatOutput(t, op, "Frequency"), 1e-9)
	assert.InDelta(t, 0.8, floatOutput(t, op, "Magnitude"), 1e-6)
}

func TestSpectralPeakRejectsBlockSize(t *testing.T) {
	t.Parallel()

	g := graph.New("bad")
	require.NoError(t, g.AddNode(NewSpectralPeak("peak")))

	var errs graph.BuildErrors

	for _, n := range g.Nodes() {
		op := n.DefaultOperatorFactory().CreateOperator(graph.BuildParams{
			Node:     n,
			Settings: core.ApplyOptions(core.WithBlockSize(100)),
			Inputs:   data.NewCollection(),
			Types:    data.NewBuiltinRegistry(),
		}, &errs)
		assert.Nil(t, op)
	}

	require.Len(t, errs.OfKind(graph.KindInvalidSettings), 1)
}
