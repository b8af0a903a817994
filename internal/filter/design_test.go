// SPDX-License-Identifier: MIT
package filter

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"hearsim/internal/dsp"
)

const testSampleRate = 44100

func TestDesignRejectsInvalidParameters(t *testing.T) {
	t.Parallel()
	tests := []struct {
		desc  string
		rate  int
		order int
		param string
	}{
		{"Zero sample rate", 0, DefaultOrder, "sample_rate"},
		{"Negative sample rate", -44100, DefaultOrder, "sample_rate"},
		{"Zero order", testSampleRate, 0, "order"},
		{"Negative order", testSampleRate, -2, "order"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			spec, err := Design(1000, tt.rate, tt.order)
			if spec != nil {
				t.Errorf("expected nil spec, got %+v", spec)
			}
			var perr *dsp.InvalidParameterError
			if !errors.As(err, &perr) {
				t.Fatalf("expected InvalidParameterError, got %v", err)
			}
			if perr.Param != tt.param {
				t.Errorf("Param = %q, want %q", perr.Param, tt.param)
			}
		})
	}
}

func TestDesignSectionCount(t *testing.T) {
	t.Parallel()
	for order := 1; order <= 8; order++ {
		t.Run(fmt.Sprintf("order %d", order), func(t *testing.T) {
			spec, err := Design(3000, testSampleRate, order)
			if err != nil {
				t.Fatalf("Design: %v", err)
			}
			if want := (order + 1) / 2; len(spec.Sections) != want {
				t.Errorf("sections = %d, want %d", len(spec.Sections), want)
			}
			b, a := spec.TransferFunction()
			if len(b) != order+1 || len(a) != order+1 {
				t.Errorf("transfer function lengths = %d/%d, want %d", len(b), len(a), order+1)
			}
			if !spec.Stable() {
				t.Error("design is not stable")
			}
		})
	}
}

func TestDesignClampsCutoff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		desc    string
		cutoff  float64
		wantWn  float64
		clamped bool
	}{
		{"At sample rate", testSampleRate, MaxNormalizedCutoff, true},
		{"At Nyquist", testSampleRate / 2, MaxNormalizedCutoff, true},
		{"Above sample rate", 10 * testSampleRate, MaxNormalizedCutoff, true},
		{"Zero", 0, MinNormalizedCutoff, true},
		{"Negative", -100, MinNormalizedCutoff, true},
		{"NaN", math.NaN(), MinNormalizedCutoff, true},
		{"In range", 11025, 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			spec, err := Design(tt.cutoff, testSampleRate, DefaultOrder)
			if err != nil {
				t.Fatalf("Design must not fail on cutoff value: %v", err)
			}
			if math.Abs(spec.NormalizedCutoff-tt.wantWn) > 1e-12 {
				t.Errorf("NormalizedCutoff = %v, want %v", spec.NormalizedCutoff, tt.wantWn)
			}
			if spec.Clamped != tt.clamped {
				t.Errorf("Clamped = %v, want %v", spec.Clamped, tt.clamped)
			}
			if !spec.Stable() {
				t.Error("clamped design must be stable")
			}
		})
	}
}

func TestDesignFrequencyResponse(t *testing.T) {
	t.Parallel()
	spec, err := Design(3000, testSampleRate, DefaultOrder)
	if err != nil {
		t.Fatal(err)
	}

	if dc := spec.MagnitudeAt(0); math.Abs(dc-1) > 1e-9 {
		t.Errorf("DC gain = %v, want 1", dc)
	}
	if db := 20 * math.Log10(spec.MagnitudeAt(3000)); math.Abs(db+3.0103) > 0.01 {
		t.Errorf("gain at cutoff = %.4f dB, want -3.01 dB", db)
	}
	if db := 20 * math.Log10(spec.MagnitudeAt(10000)); db > -55 {
		t.Errorf("gain at 10 kHz = %.2f dB, want below -55 dB", db)
	}
	if nyq := spec.MagnitudeAt(testSampleRate / 2); nyq > 1e-9 {
		t.Errorf("gain at Nyquist = %v, want ~0", nyq)
	}

	// No ripple: the response must fall monotonically across the band.
	prev := math.Inf(1)
	for f := 0.0; f <= testSampleRate/2; f += 250 {
		m := spec.MagnitudeAt(f)
		if m > prev+1e-12 {
			t.Fatalf("response rises at %.0f Hz (%v > %v)", f, m, prev)
		}
		prev = m
	}
}

func TestTransferFunctionMatchesCascade(t *testing.T) {
	t.Parallel()
	spec, err := Design(1500, testSampleRate, DefaultOrder)
	if err != nil {
		t.Fatal(err)
	}
	b, a := spec.TransferFunction()
	if a[0] != 1 {
		t.Errorf("a[0] = %v, want 1", a[0])
	}

	var sb, sa float64
	for i := range b {
		sb += b[i]
		sa += a[i]
	}
	if dc := sb / sa; math.Abs(dc-1) > 1e-6 {
		t.Errorf("DC gain from polynomials = %v, want 1", dc)
	}
}

func BenchmarkDesign(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Design(3000, testSampleRate, DefaultOrder)
	}
}
