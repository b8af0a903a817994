// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"math"
	"testing"
)

func TestPeak(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		buf  []float64
		want float64
	}{
		{"Empty", nil, 0},
		{"Silence", []float64{0, 0, 0}, 0},
		{"Negative peak", []float64{0.1, -0.8, 0.5}, 0.8},
		{"Positive infinity", []float64{0.1, math.Inf(1)}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Peak(tt.buf); got != tt.want {
				t.Errorf("Peak() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeakPropagatesNaN(t *testing.T) {
	t.Parallel()
	if got := Peak([]float64{0.5, math.NaN(), 0.9}); !math.IsNaN(got) {
		t.Errorf("Peak() = %v, want NaN", got)
	}
}

func TestCheckFinite(t *testing.T) {
	t.Parallel()
	if err := CheckFinite([]float64{0, 1, -1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := CheckFinite([]float64{0, 1, math.Inf(-1), math.NaN()})
	var anomaly *NumericAnomalyError
	if !errors.As(err, &anomaly) {
		t.Fatalf("expected NumericAnomalyError, got %v", err)
	}
	if anomaly.Index != 2 {
		t.Errorf("anomaly index = %d, want 2", anomaly.Index)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()
	src := []float64{1, 2, 3}
	dst := Clone(src)
	dst[0] = 99
	if src[0] != 1 {
		t.Error("Clone shares backing array with its source")
	}
	if got := Clone(nil); got == nil || len(got) != 0 {
		t.Errorf("Clone(nil) = %#v, want empty non-nil slice", got)
	}
}
