// Package config loads the opgraph command settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-opgraph/engine/core"
)

// Config is the settings file. Zero fields keep their defaults.
type Config struct {
	SampleRate  float64 `toml:"sample_rate" yaml:"sample_rate"`
	BlockSize   int     `toml:"block_size" yaml:"block_size"`
	LogLevel    string  `toml:"log_level" yaml:"log_level"`
	LogFormat   string  `toml:"log_format" yaml:"log_format"`
	MetricsAddr string  `toml:"metrics_addr" yaml:"metrics_addr"`
}

// DefaultFiles are looked up, in order, when no file is named.
var DefaultFiles = []string{"opgraph.toml", "opgraph.yaml", "opgraph.yml"}

// Default returns the built-in settings.
func Default() Config {
	s := core.DefaultSettings()

	return Config{
		SampleRate:  s.SampleRate,
		BlockSize:   s.BlockSize,
		LogLevel:    "info",
		LogFormat:   "text",
		MetricsAddr: ":9090",
	}
}

// Load reads path over the defaults. An empty path tries DefaultFiles in
// the working directory and falls back to the defaults if none exists.
func Load(path string) (Config, error) {
	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name

				break
			}
		}

		if path == "" {
			return Default(), nil
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return Parse(src, filepath.Ext(path))
}

// Parse decodes src, a TOML or YAML file as told by ext, over the
// defaults. The result is not validated so flags can still override it.
func Parse(src []byte, ext string) (Config, error) {
	cfg := Default()

	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()

		err := dec.Decode(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config: decode toml: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)

		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported file type %q", ext)
	}
	return cfg, nil
}

// Validate checks the audio settings.
func (c Config) Validate() error {
	err := c.Settings().Validate()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// Settings returns the operator settings described by c.
func (c Config) Settings() core.OperatorSettings {
	return core.OperatorSettings{SampleRate: c.SampleRate, BlockSize: c.BlockSize}
}
