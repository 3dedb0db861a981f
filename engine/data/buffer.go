package data

// Buffer is the value of the Audio data type: one block of samples sized
// by OperatorSettings.BlockSize. DSP code works on the raw slice returned
// by Samples.
type Buffer struct {
	samples []float64
}

// NewBuffer returns a zero-filled Buffer of the given length.
func NewBuffer(length int) *Buffer {
	if length < 0 {
		length = 0
	}

	return &Buffer{samples: make([]float64, length)}
}

// BufferFrom wraps an existing slice without copying.
func BufferFrom(s []float64) *Buffer {
	return &Buffer{samples: s}
}

// Samples returns the underlying slice.
func (b *Buffer) Samples() []float64 {
	if b == nil {
		return nil
	}

	return b.samples
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}

	return len(b.samples)
}

// Resize sets the length to n, reusing existing capacity when possible.
// Newly exposed elements are zeroed.
func (b *Buffer) Resize(n int) {
	if n < 0 {
		n = 0
	}

	oldLen := len(b.samples)

	if n <= cap(b.samples) {
		b.samples = b.samples[:n]
	} else {
		s := make([]float64, n)
		copy(s, b.samples)

		b.samples = s
	}

	for i := oldLen; i < n; i++ {
		b.samples[i] = 0
	}
}

// Zero sets all samples to 0.
func (b *Buffer) Zero() {
	b.Fill(0)
}

// Fill sets all samples to v.
func (b *Buffer) Fill(v float64) {
	for i := range b.samples {
		b.samples[i] = v
	}
}

// CopyFrom copies as many samples from src as fit and returns the count.
func (b *Buffer) CopyFrom(src *Buffer) int {
	return copy(b.samples, src.Samples())
}
