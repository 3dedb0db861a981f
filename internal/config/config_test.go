package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 48000.0, cfg.Settings().SampleRate, 0)
	assert.Equal(t, 256, cfg.Settings().BlockSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
		src  string
	}{
		{
			name: "toml",
			ext:  ".toml",
			src:  "sample_rate = 44100.0\nblock_size = 128\nlog_level = \"debug\"\n",
		},
		{
			name: "yaml",
			ext:  ".yaml",
			src:  "sample_rate: 44100\nblock_size: 128\nlog_level: debug\n",
		},
		{
			name: "yml",
			ext:  ".YML",
			src:  "sample_rate: 44100\nblock_size: 128\nlog_level: debug\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse([]byte(tt.src), tt.ext)
			require.NoError(t, err)
			assert.InDelta(t, 44100.0, cfg.SampleRate, 0)
			assert.Equal(t, 128, cfg.BlockSize)
			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, "text", cfg.LogFormat)
			assert.Equal(t, ":9090", cfg.MetricsAddr)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
		src  string
	}{
		{name: "unknown toml key", ext: ".toml", src: "rate = 1\n"},
		{name: "unknown yaml key", ext: ".yaml", src: "rate: 1\n"},
		{name: "unsupported type", ext: ".ini", src: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.src), tt.ext)
			require.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("block_size: -4\n"), ".yaml")
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "block size")

	cfg, err = Parse([]byte("sample_rate = -1.0\n"), ".toml")
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "sample rate")
}

func TestParseEmptyYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("metrics_addr = \"127.0.0.1:0\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", cfg.MetricsAddr)
	assert.Equal(t, 256, cfg.BlockSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
