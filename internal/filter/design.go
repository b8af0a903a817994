// SPDX-License-Identifier: MIT
/*
Package filter designs and applies the Butterworth low-pass used to simulate
high-frequency hearing loss.

A design is a cascade of second-order sections derived from the analog
Butterworth prototype through the bilinear transform. Odd orders end with a
first-order section (B2 = A2 = 0). Every section has unity DC gain, so the
cascade passes low frequencies untouched and rolls off monotonically above the
cutoff without passband ripple.

Coefficients follow the Direct Form II Transposed sign convention with a0
normalized to 1:

	y  = B0*x + d0
	d0 = B1*x - A1*y + d1
	d1 = B2*x - A2*y
*/
package filter

import (
	"math"
	"math/cmplx"

	"hearsim/internal/dsp"
	applog "hearsim/internal/log"
)

const (
	// DefaultOrder is the filter order used by the processing pipeline. It
	// trades roll-off steepness against ringing and phase lag.
	DefaultOrder = 5

	// MaxNormalizedCutoff is the value a cutoff at or above Nyquist is
	// clamped to.
	MaxNormalizedCutoff = 0.99

	// MinNormalizedCutoff is the value a non-positive (or NaN) cutoff is
	// clamped to.
	MinNormalizedCutoff = 1e-4
)

// Coefficients holds one second-order section.
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
}

// Spec is a designed low-pass filter. It is only valid for the cutoff, sample
// rate and order that produced it.
type Spec struct {
	Sections []Coefficients

	Cutoff           float64 // cutoff requested by the caller (Hz)
	NormalizedCutoff float64 // effective cutoff as a fraction of Nyquist
	SampleRate       int
	Order            int
	Clamped          bool // NormalizedCutoff differs from Cutoff/(SampleRate/2)
}

// Design returns a Butterworth low-pass of the given order.
//
// The normalized cutoff is cutoff / (sampleRate/2). A cutoff at or above
// Nyquist is clamped to MaxNormalizedCutoff and a non-positive cutoff to
// MinNormalizedCutoff, so Design never fails because of the cutoff value. It
// returns a *dsp.InvalidParameterError when sampleRate or order is not
// positive.
func Design(cutoff float64, sampleRate, order int) (*Spec, error) {
	if sampleRate <= 0 {
		return nil, &dsp.InvalidParameterError{Param: "sample_rate", Value: float64(sampleRate), Reason: "must be positive"}
	}
	if order <= 0 {
		return nil, &dsp.InvalidParameterError{Param: "order", Value: float64(order), Reason: "must be positive"}
	}

	nyquist := float64(sampleRate) / 2
	wn := cutoff / nyquist
	clamped := false
	switch {
	case wn >= 1:
		wn = MaxNormalizedCutoff
		clamped = true
	case !(wn > 0): // also catches NaN
		wn = MinNormalizedCutoff
		clamped = true
	}
	if clamped {
		applog.Debugf("Filter: cutoff %.1f Hz outside (0, %.1f) Hz, clamped to %.4f of Nyquist", cutoff, nyquist, wn)
	}

	return &Spec{
		Sections:         butterworthSections(wn, order),
		Cutoff:           cutoff,
		NormalizedCutoff: wn,
		SampleRate:       sampleRate,
		Order:            order,
		Clamped:          clamped,
	}, nil
}

// butterworthSections places the analog prototype poles on a circle of radius
// equal to the prewarped cutoff and maps each conjugate pair (and the real
// pole of an odd order) to the z-plane. The design is normalized to fs = 2 so
// wn is a fraction of Nyquist. Low-Q sections come first.
func butterworthSections(wn float64, order int) []Coefficients {
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)

	bilinear := func(p complex128) complex128 {
		k := complex(2*fs, 0)
		return (k + p) / (k - p)
	}

	sections := make([]Coefficients, 0, (order+1)/2)

	if order%2 != 0 {
		z := real(bilinear(complex(-warped, 0)))
		g := (1 - z) / 2
		sections = append(sections, Coefficients{B0: g, B1: g, A1: -z})
	}

	// k = 0 is the pole closest to the imaginary axis (highest Q).
	for k := order/2 - 1; k >= 0; k-- {
		theta := math.Pi*float64(2*k+1)/float64(2*order) + math.Pi/2
		z := bilinear(cmplx.Rect(warped, theta))

		a1 := -2 * real(z)
		a2 := real(z)*real(z) + imag(z)*imag(z)
		// Both zeros sit at z = -1; scale so H(1) = 1.
		g := (1 + a1 + a2) / 4
		sections = append(sections, Coefficients{B0: g, B1: 2 * g, B2: g, A1: a1, A2: a2})
	}

	return sections
}

// TransferFunction expands the cascade into a single rational transfer
// function, returning numerator b and denominator a in powers of z^-1 with
// a[0] = 1. Both have Order+1 coefficients.
func (s *Spec) TransferFunction() (b, a []float64) {
	b = []float64{1}
	a = []float64{1}
	for _, c := range s.Sections {
		if c.B2 == 0 && c.A2 == 0 {
			b = polyMul(b, []float64{c.B0, c.B1})
			a = polyMul(a, []float64{1, c.A1})
			continue
		}
		b = polyMul(b, []float64{c.B0, c.B1, c.B2})
		a = polyMul(a, []float64{1, c.A1, c.A2})
	}
	return b, a
}

func polyMul(p, q []float64) []float64 {
	out := make([]float64, len(p)+len(q)-1)
	for i, x := range p {
		for j, y := range q {
			out[i+j] += x * y
		}
	}
	return out
}

// MagnitudeAt returns |H(e^jw)| at freq Hz.
func (s *Spec) MagnitudeAt(freq float64) float64 {
	w := 2 * math.Pi * freq / float64(s.SampleRate)
	z1 := cmplx.Exp(complex(0, -w)) // z^-1
	z2 := z1 * z1

	h := complex(1, 0)
	for _, c := range s.Sections {
		num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
		den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
		h *= num / den
	}
	return cmplx.Abs(h)
}

// Stable reports whether every section has its poles strictly inside the
// unit circle (the stability triangle |A2| < 1, |A1| < 1 + A2).
func (s *Spec) Stable() bool {
	for _, c := range s.Sections {
		if math.Abs(c.A2) >= 1 || math.Abs(c.A1) >= 1+c.A2 {
			return false
		}
	}
	return len(s.Sections) > 0
}
