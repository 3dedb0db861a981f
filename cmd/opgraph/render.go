package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-opgraph/engine/builder"
	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/document"
)

var errNoAudioOutput = errors.New("render: graph has no audio output")

func newRenderCmd(opts *options) *cobra.Command {
	var (
		outPath  string
		output   string
		duration time.Duration
		sets     []string
	)
	cmd := &cobra.Command{
		Use:   "render DOCUMENT",
		Short: "Render a graph's audio output to a WAV file",
		Long: `Builds the graph and executes it block by block, writing one audio
output as 16-bit stereo WAV. Graph inputs can be set with --set NAME=VALUE.`,
		Example: `  opgraph render -o tone.wav --duration 2s tone.yaml
  opgraph render --output Left --set Freq=220 synth.hcl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			doc, g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			settings := cfg.Settings()
			types := data.NewBuiltinRegistry()

			inputs, err := inputValues(doc, types, settings, sets)
			if err != nil {
				return err
			}

			op, res := builder.New(builder.WithLogger(logger)).Build(builder.BuildParams{
				Graph:    g,
				Settings: settings,
				Types:    types,
				Inputs:   inputs,
			})
			if op == nil {
				return fmt.Errorf("render: %w", res.Errors.Err())
			}

			src, err := newBlockStreamer(op.Execute, op.Outputs(), output)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			format := beep.Format{SampleRate: beep.SampleRate(settings.SampleRate), NumChannels: 2, Precision: 2}
			frames := format.SampleRate.N(duration)

			err = wav.Encode(f, beep.Take(frames, src), format)
			if err != nil {
				f.Close()

				return fmt.Errorf("render: %w", err)
			}

			err = f.Close()
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			logger.Info("rendered",
				"document", doc.Name,
				"output", src.name,
				"file", outPath,
				"frames", frames,
				"blocks", src.blocks)

			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "out.wav", "WAV file to write")
	cmd.Flags().StringVar(&output, "output", "", "graph output to render (default: first audio output by name)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", time.Second, "length of the rendering")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "graph input value as NAME=VALUE (repeatable)")

	return cmd
}

// inputValues creates references for the --set values, typed after the
// document's inputs.
func inputValues(doc *document.Document, types *data.Registry, settings core.OperatorSettings, sets []string) (*data.Collection, error) {
	inputs := data.NewCollection()

	for _, kv := range sets {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("render: --set %q: want NAME=VALUE", kv)
		}

		typeName := ""

		for _, in := range doc.Inputs {
			if in.Name == name {
				typeName = in.Type
			}
		}

		if typeName == "" {
			return nil, fmt.Errorf("render: --set %q: no graph input %q", kv, name)
		}

		var v any

		err := yaml.Unmarshal([]byte(raw), &v)
		if err != nil {
			return nil, fmt.Errorf("render: --set %q: %w", kv, err)
		}

		lit, err := data.LiteralFrom(v)
		if err != nil {
			return nil, fmt.Errorf("render: --set %q: %w", kv, err)
		}

		ref, err := types.Create(typeName, settings, lit)
		if err != nil {
			return nil, fmt.Errorf("render: --set %q: %w", kv, err)
		}

		inputs.Add(name, ref)
	}

	return inputs, nil
}

// blockStreamer executes the graph whenever the current block is used up
// and plays a mono audio output on both channels.
type blockStreamer struct {
	execute func()
	out     data.ReadRef[*data.Buffer]
	name    string
	block   []float64
	pos     int
	blocks  int
}

func newBlockStreamer(execute func(), outputs *data.Collection, name string) (*blockStreamer, error) {
	if name == "" {
		for _, n := range outputs.Names() {
			if ref, ok := outputs.Get(n); ok && ref.TypeName() == data.TypeAudio {
				name = n

				break
			}
		}

		if name == "" {
			return nil, errNoAudioOutput
		}
	}

	out, ok := data.GetRead[*data.Buffer](outputs, name)
	if !ok {
		return nil, fmt.Errorf("%w named %q", errNoAudioOutput, name)
	}

	return &blockStreamer{execute: execute, out: out, name: name}, nil
}

func (s *blockStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if s.pos >= len(s.block) {
			s.execute()

			s.blocks++
			s.block = s.out.Get().Samples()

			s.pos = 0
			if len(s.block) == 0 {
				return n, n > 0
			}
		}

		for ; n < len(samples) && s.pos < len(s.block); n, s.pos = n+1, s.pos+1 {
			v := s.block[s.pos]
			samples[n] = [2]float64{v, v}
		}
	}

	return n, true
}

func (s *blockStreamer) Err() error { return nil }
