// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"

	applog "hearsim/internal/log"
)

// WindowFunc selects the taper applied before a transform.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Rectangular
	BartlettHann
	Blackman
	BlackmanNuttall
	Hamming
	Lanczos
	Nuttall

	// PeriodicHann is Hann over size+1 points with the last one dropped.
	PeriodicHann
)

var windowNames = map[WindowFunc]string{
	Hann:            "hann",
	Rectangular:     "rectangular",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
	PeriodicHann:    "periodichann",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "hanning":
		return Hann, nil
	case "hann-periodic", "periodic-hann":
		return PeriodicHann, nil
	case "rect", "none", "boxcar":
		return Rectangular, nil
	default:
		for w, wn := range windowNames {
			if wn == n {
				return w, nil
			}
		}
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// Window returns size coefficients of the selected window. Unknown types fall
// back to Hann.
func Window(size int, w WindowFunc) []float64 {
	if w == PeriodicHann {
		return Window(size+1, Hann)[:size]
	}
	coeffs := make([]float64, size)
	// gonum windows scale in place, so start from all ones.
	for i := range coeffs {
		coeffs[i] = 1
	}
	switch w {
	case Hann:
		window.Hann(coeffs)
	case Rectangular:
		window.Rectangular(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("FFT: unknown window function %d, defaulting to Hann", int(w))
		window.Hann(coeffs)
	}
	return coeffs
}
