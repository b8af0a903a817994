// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"hearsim/internal/dsp"
	"hearsim/pkg/utils"
)

func TestBandEnergyLocatesSine(t *testing.T) {
	t.Parallel()

	buf := utils.GenerateSineWave(testSampleRate, testSampleRate, 10000, 1)
	high, err := BandEnergy(buf, testSampleRate, 3000, math.Inf(1))
	if err != nil {
		t.Fatal(err)
	}
	total, err := BandEnergy(buf, testSampleRate, math.Inf(-1), math.Inf(1))
	if err != nil {
		t.Fatal(err)
	}
	if high/total < 0.99 {
		t.Errorf("only %.4f of a 10 kHz tone's energy is above 3 kHz", high/total)
	}
}

func TestBandEnergiesDefaultBands(t *testing.T) {
	t.Parallel()

	buf := utils.GenerateSineWave(16384, testSampleRate, 1000, 1)
	energies, err := BandEnergies(buf, testSampleRate, DefaultBands)
	if err != nil {
		t.Fatal(err)
	}
	if len(energies) != len(DefaultBands) {
		t.Fatalf("got %d energies for %d bands", len(energies), len(DefaultBands))
	}

	loudest := 0
	for i, e := range energies {
		if e > energies[loudest] {
			loudest = i
		}
	}
	if DefaultBands[loudest].Name != "mid" {
		t.Errorf("1 kHz tone loudest in %q, want mid", DefaultBands[loudest].Name)
	}
}

func TestBandEnergyEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	e, err := BandEnergy(nil, testSampleRate, 0, 1000)
	if err != nil || e != 0 {
		t.Errorf("empty buffer: got %g, %v", e, err)
	}

	_, err = BandEnergy([]float64{1}, 0, 0, 1000)
	var ipe *dsp.InvalidParameterError
	if !errors.As(err, &ipe) {
		t.Errorf("expected InvalidParameterError, got %v", err)
	}
}

func TestAttenuationDB(t *testing.T) {
	t.Parallel()

	noise := utils.DeterministicNoise(3, 0.5, 8192)

	same, err := AttenuationDB(noise, noise, testSampleRate, 5000)
	if err != nil || same != 0 {
		t.Errorf("identical buffers: got %g dB, %v", same, err)
	}

	half := make([]float64, len(noise))
	for i, v := range noise {
		half[i] = v / 2
	}
	got, err := AttenuationDB(noise, half, testSampleRate, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if want := 20 * math.Log10(0.5); math.Abs(got-want) > 1e-9 {
		t.Errorf("half amplitude: got %g dB, want %g", got, want)
	}

	silent, err := AttenuationDB(make([]float64, 100), noise[:100], testSampleRate, 5000)
	if err != nil || silent != 0 {
		t.Errorf("silent original: got %g, %v", silent, err)
	}
}
