// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"hearsim/internal/dsp"
	"hearsim/internal/fft"
	"hearsim/pkg/bitint"
)

// FrequencyBand is a named frequency range (LowHz, HighHz]. A HighHz of +Inf
// extends the band to Nyquist.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands covers the audible range in the coarse groups the report uses.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "presence", LowHz: 4000, HighHz: 8000},
	{Name: "treble", LowHz: 8000, HighHz: math.Inf(1)},
}

// BandEnergies returns sum(|X[k]|^2) over the bins of each band, where X is a
// single rectangular-window FFT of the whole buffer zero padded to the next
// power of two.
func BandEnergies(buf []float64, sampleRate int, bands []FrequencyBand) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, &dsp.InvalidParameterError{Param: "sample_rate", Value: float64(sampleRate), Reason: "must be positive"}
	}
	energies := make([]float64, len(bands))
	if len(buf) == 0 {
		return energies, nil
	}

	proc, err := fft.NewProcessor(bitint.NextPowerOfTwo(len(buf)), float64(sampleRate), fft.Rectangular)
	if err != nil {
		return nil, err
	}
	for i, m := range proc.Magnitudes(buf) {
		freq := proc.FrequencyForBin(i)
		for b, band := range bands {
			if freq > band.LowHz && freq <= band.HighHz {
				energies[b] += m * m
			}
		}
	}
	return energies, nil
}

// BandEnergy returns the energy of buf in (lowHz, highHz].
func BandEnergy(buf []float64, sampleRate int, lowHz, highHz float64) (float64, error) {
	e, err := BandEnergies(buf, sampleRate, []FrequencyBand{{LowHz: lowHz, HighHz: highHz}})
	if err != nil {
		return 0, err
	}
	return e[0], nil
}

// AttenuationDB compares the energy above aboveHz in processed against
// original: 10*log10(processed/original). Negative values mean processed has
// less high-frequency energy. It is 0 when original has none.
func AttenuationDB(original, processed []float64, sampleRate int, aboveHz float64) (float64, error) {
	e0, err := BandEnergy(original, sampleRate, aboveHz, math.Inf(1))
	if err != nil {
		return 0, err
	}
	e1, err := BandEnergy(processed, sampleRate, aboveHz, math.Inf(1))
	if err != nil {
		return 0, err
	}
	if e0 == 0 {
		return 0, nil
	}
	return 10 * math.Log10(e1/e0), nil
}
