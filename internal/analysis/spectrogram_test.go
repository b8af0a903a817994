// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"hearsim/internal/dsp"
	"hearsim/pkg/utils"
)

const testSampleRate = 44100

func TestAnalyzeRejectsBadRate(t *testing.T) {
	t.Parallel()

	for _, rate := range []int{0, -44100} {
		_, err := Analyze(utils.DC(0.5, 100), rate)
		var ipe *dsp.InvalidParameterError
		if !errors.As(err, &ipe) {
			t.Errorf("rate %d: expected InvalidParameterError, got %v", rate, err)
		}
	}
}

func TestAnalyzeShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		samples int
		frames  int
	}{
		{0, 1},
		{511, 1},
		{512, 2},
		{testSampleRate, 87},
	}
	for _, tt := range tests {
		s, err := Analyze(utils.DeterministicNoise(1, 0.5, tt.samples), testSampleRate)
		if err != nil {
			t.Fatalf("Analyze(%d samples): %v", tt.samples, err)
		}
		if s.Bins() != FFTSize/2+1 || s.Frames() != tt.frames {
			t.Errorf("%d samples: got %dx%d, want %dx%d", tt.samples, s.Bins(), s.Frames(), FFTSize/2+1, tt.frames)
		}
		if s.Samples != tt.samples {
			t.Errorf("Samples = %d, want %d", s.Samples, tt.samples)
		}
	}
}

func TestAnalyzeReferenceIsLoudestBin(t *testing.T) {
	t.Parallel()

	buf := utils.GenerateComplexWave(testSampleRate/2, testSampleRate)
	s, err := Analyze(buf, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if got := mat.Max(s.DB); got != 0 {
		t.Errorf("max dB = %g, want exactly 0", got)
	}
	// amin = 1e-5 bounds the range below the reference.
	if got := mat.Min(s.DB); got < -20*math.Log10(1/AminMagnitude)-20*math.Log10(FFTSize) {
		t.Errorf("min dB = %g is below the amin floor", got)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	t.Parallel()

	for _, buf := range [][]float64{nil, make([]float64, 4096)} {
		s, err := Analyze(buf, testSampleRate)
		if err != nil {
			t.Fatal(err)
		}
		if mat.Max(s.DB) != 0 || mat.Min(s.DB) != 0 {
			t.Errorf("silent buffer of %d samples should be 0 dB everywhere", len(buf))
		}
	}
}

func TestAnalyzeSinePeak(t *testing.T) {
	t.Parallel()

	buf := utils.GenerateSineWave(testSampleRate, testSampleRate, 1000, 0.7)
	s, err := Analyze(buf, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	col := mat.Col(nil, s.Frames()/2, s.DB)
	peak := utils.FindPeakBin(col, 0, len(col)-1)
	binWidth := float64(testSampleRate) / FFTSize
	if f := s.FrequencyForBin(peak); math.Abs(f-1000) > binWidth {
		t.Errorf("peak at %.1f Hz, want 1000 Hz", f)
	}
}

func TestAnalyzeDeterministicAndPure(t *testing.T) {
	t.Parallel()

	buf := utils.DeterministicNoise(7, 0.3, 10000)
	orig := slices.Clone(buf)

	a, err := Analyze(buf, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Analyze(buf, testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(a.DB, b.DB) {
		t.Error("two analyses of the same buffer differ")
	}
	if !slices.Equal(buf, orig) {
		t.Error("Analyze modified its input")
	}
}

func TestSpectrogramAxes(t *testing.T) {
	t.Parallel()

	s, err := Analyze(make([]float64, 1024), 48000)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.FrequencyForBin(s.Bins() - 1); got != 24000 {
		t.Errorf("last bin = %g Hz, want Nyquist", got)
	}
	if got := s.TimeForFrame(2); math.Abs(got-1024.0/48000) > 1e-12 {
		t.Errorf("TimeForFrame(2) = %g", got)
	}
}

func TestFillFrame(t *testing.T) {
	t.Parallel()

	buf := []float64{1, 2, 3}
	frame := make([]float64, 4)

	fillFrame(frame, buf, -2)
	if !slices.Equal(frame, []float64{0, 0, 1, 2}) {
		t.Errorf("leading pad: %v", frame)
	}
	fillFrame(frame, buf, 2)
	if !slices.Equal(frame, []float64{3, 0, 0, 0}) {
		t.Errorf("trailing pad: %v", frame)
	}
	fillFrame(frame, buf, 10)
	if !slices.Equal(frame, []float64{0, 0, 0, 0}) {
		t.Errorf("out of range: %v", frame)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	buf := utils.GenerateComplexWave(testSampleRate, testSampleRate)
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Analyze(buf, testSampleRate)
	}
}

func TestAnalyzeUsesPeriodicHann(t *testing.T) {
	t.Parallel()

	// A constant signal through a periodic Hann window puts all energy in
	// bins 0 and 1, with bin 1 at exactly half the magnitude of bin 0.
	spec, err := Analyze(utils.DC(1, 4*FFTSize), testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	const frame = 4 // fully inside the buffer
	if got := spec.DB.At(0, frame); math.Abs(got) > 1e-9 {
		t.Errorf("bin 0 = %g dB, want 0", got)
	}
	if got, want := spec.DB.At(1, frame), 20*math.Log10(0.5); math.Abs(got-want) > 1e-6 {
		t.Errorf("bin 1 = %g dB, want %g", got, want)
	}
	if got := spec.DB.At(2, frame); got > -120 {
		t.Errorf("bin 2 = %g dB, want leakage below -120 dB", got)
	}
}
