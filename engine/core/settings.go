// Package core holds the per-build configuration every operator factory
// receives: the OperatorSettings that size audio blocks and the opaque
// Environment bag for node-specific out-of-band values.
package core

import "fmt"

// OperatorSettings defines the immutable audio configuration of one build.
type OperatorSettings struct {
	SampleRate float64
	BlockSize  int
}

// Option mutates an OperatorSettings.
type Option func(*OperatorSettings)

// DefaultSettings returns sensible defaults for offline and streaming use.
func DefaultSettings() OperatorSettings {
	return OperatorSettings{
		SampleRate: 48000,
		BlockSize:  256,
	}
}

// WithSampleRate sets the sample rate in Hz.
func WithSampleRate(sampleRate float64) Option {
	return func(s *OperatorSettings) {
		if sampleRate > 0 {
			s.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the number of frames per block.
func WithBlockSize(blockSize int) Option {
	return func(s *OperatorSettings) {
		if blockSize > 0 {
			s.BlockSize = blockSize
		}
	}
}

// ApplyOptions applies zero or more options to the default settings.
func ApplyOptions(opts ...Option) OperatorSettings {
	s := DefaultSettings()

	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	return s
}

// BlockRate returns the number of blocks rendered per second.
func (s OperatorSettings) BlockRate() float64 {
	if s.BlockSize <= 0 {
		return 0
	}

	return s.SampleRate / float64(s.BlockSize)
}

// Validate reports settings no operator can be built with.
func (s OperatorSettings) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("core: sample rate must be > 0: %v", s.SampleRate)
	}

	if s.BlockSize <= 0 {
		return fmt.Errorf("core: block size must be > 0: %d", s.BlockSize)
	}

	return nil
}
