// SPDX-License-Identifier: MIT
//
// Package fft wraps the gonum real FFT with pre-allocated buffers so repeated
// transforms of the same size do not allocate.
package fft

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"hearsim/internal/dsp"
	"hearsim/pkg/bitint"
)

// workspace holds pre-allocated buffers for FFT calculations.
type workspace struct {
	input     []float64    // ...for windowed input samples
	coeffs    []complex128 // ...for FFT complex output
	magnitude []float64    // ...for magnitude output
	window    []float64    // ...for window function coefficients
}

// Processor computes single-frame magnitude spectra. A Processor is not safe
// for concurrent use; give each goroutine its own.
type Processor struct {
	size       int
	sampleRate float64
	windowType WindowFunc
	fft        *fourier.FFT
	ws         workspace
}

// NewProcessor pre-allocates every buffer a transform of size points needs and
// computes the window coefficients. size must be a power of two.
func NewProcessor(size int, sampleRate float64, w WindowFunc) (*Processor, error) {
	if size <= 0 || !bitint.IsPowerOfTwo(size) {
		return nil, &dsp.InvalidParameterError{Param: "fft_size", Value: float64(size), Reason: "must be a positive power of two"}
	}
	if !(sampleRate > 0) {
		return nil, &dsp.InvalidParameterError{Param: "sample_rate", Value: sampleRate, Reason: "must be positive"}
	}

	bins := size/2 + 1
	return &Processor{
		size:       size,
		sampleRate: sampleRate,
		windowType: w,
		fft:        fourier.NewFFT(size),
		ws: workspace{
			input:     make([]float64, size),
			coeffs:    make([]complex128, bins),
			magnitude: make([]float64, bins),
			window:    Window(size, w),
		},
	}, nil
}

// Magnitudes windows samples, zero-padding or truncating to the processor
// size, and returns |X[k]| for k in [0, size/2]. The returned slice is owned
// by the Processor and overwritten by the next call.
func (p *Processor) Magnitudes(samples []float64) []float64 {
	n := copy(p.ws.input, samples)
	for i := range n {
		p.ws.input[i] *= p.ws.window[i]
	}
	clear(p.ws.input[n:])

	p.fft.Coefficients(p.ws.coeffs, p.ws.input)
	for i, c := range p.ws.coeffs {
		p.ws.magnitude[i] = cmplx.Abs(c)
	}
	return p.ws.magnitude
}

// FrequencyForBin returns the center frequency in Hz of bin i, or 0 when i is
// out of range.
func (p *Processor) FrequencyForBin(i int) float64 {
	if i < 0 || i >= len(p.ws.coeffs) {
		return 0
	}
	return p.fft.Freq(i) * p.sampleRate
}

// Size is the number of points per transform.
func (p *Processor) Size() int { return p.size }

// Bins is the number of magnitude values Magnitudes returns.
func (p *Processor) Bins() int { return len(p.ws.magnitude) }

// SampleRate is the rate used to label bins.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// WindowType is the window applied before each transform.
func (p *Processor) WindowType() WindowFunc { return p.windowType }
