// SPDX-License-Identifier: MIT
/*
Package dsp holds the sample-buffer primitives shared by the processing
stages: peak measurement, finiteness checks and the error kinds the stages
report.

A sample buffer is a plain []float64 of mono samples. Stages never mutate the
buffer they are given; each returns a freshly allocated slice.
*/
package dsp

import "math"

// Peak returns max(|buf[i]|). A NaN anywhere in buf yields NaN so that bad
// input is carried forward instead of being hidden by the comparison. An
// empty buffer has a peak of 0.
func Peak(buf []float64) float64 {
	var peak float64
	for _, v := range buf {
		if math.IsNaN(v) {
			return math.NaN()
		}
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// Clone returns a copy of buf. A nil buf yields an empty, non-nil slice.
func Clone(buf []float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)
	return out
}
