package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-opgraph/engine/document"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
	"github.com/cwbudde/algo-opgraph/internal/config"
	"github.com/cwbudde/algo-opgraph/internal/logging"
)

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	sampleRate float64
	blockSize  int
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "opgraph",
		Short: "Operator graph toolkit",
		Long: `opgraph loads operator graph documents (YAML, JSON or HCL), validates
them, prints their execution order, exports them as Mermaid flowcharts,
renders their audio output to WAV and runs them live while following
edits to the document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "settings file (TOML or YAML); defaults to ./opgraph.toml or ./opgraph.yaml")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format (text|json)")
	f.Float64Var(&opts.sampleRate, "sample-rate", 0, "sample rate in Hz")
	f.IntVar(&opts.blockSize, "block-size", 0, "frames per block")

	cmd.AddCommand(
		newLintCmd(opts),
		newOrderCmd(opts),
		newGraphCmd(opts),
		newRenderCmd(opts),
		newWatchCmd(opts),
	)

	return cmd
}

// load reads the settings file and applies the flags set on cmd over it.
func (o *options) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}

	if flags.Changed("sample-rate") {
		cfg.SampleRate = o.sampleRate
	}

	if flags.Changed("block-size") {
		cfg.BlockSize = o.blockSize
	}

	err = cfg.Validate()
	if err != nil {
		return config.Config{}, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(level, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}

	return cfg, logger, nil
}

// loadGraph reads a document and builds its graph with the built-in node
// classes.
func loadGraph(path string) (*document.Document, *graph.Graph, error) {
	doc, err := document.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	g, err := document.Build(doc, nodes.DefaultRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, g, nil
}
