// SPDX-License-Identifier: MIT
/*
Package gain restores the loudness of a filtered buffer by peak
normalization: the filtered signal keeps its shape but its peak is brought
back to the peak of the original buffer. It is not an RMS or loudness-curve
match.
*/
package gain

import (
	"gonum.org/v1/gonum/floats"

	"hearsim/internal/dsp"
)

// Normalize rescales filtered so that its peak absolute value equals the
// peak absolute value of original.
//
// A silent original leaves filtered unchanged, as does a silent filtered
// buffer (there is no shape to scale). Normalize never fails; NaN or Inf in
// either input propagates into the result. The returned slice is always a new
// allocation.
func Normalize(original, filtered []float64) []float64 {
	out := dsp.Clone(filtered)

	peak := dsp.Peak(original)
	if peak == 0 {
		return out
	}

	fpeak := dsp.Peak(filtered)
	if fpeak == 0 {
		return out
	}

	// Unit peak first, then the original's peak.
	floats.Scale(1/fpeak, out)
	floats.Scale(peak, out)
	return out
}
