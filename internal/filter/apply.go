// SPDX-License-Identifier: MIT
package filter

// Apply runs buf through the cascade in a single forward pass, starting from
// zero state in every section. The result is causal, so a small
// frequency-dependent phase lag is expected. buf is not modified and the
// output has the same length. Non-finite samples propagate.
func Apply(buf []float64, spec *Spec) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	for _, c := range spec.Sections {
		processSection(c, out)
	}
	return out
}

// processSection filters buf in place through one Direct Form II Transposed
// section. Zero-alloc.
func processSection(c Coefficients, buf []float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2
	var d0, d1 float64

	for i, x := range buf {
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}
}
