// SPDX-License-Identifier: MIT
/*
Package analysis turns sample buffers into the measurements used to show what
the hearing-loss filter removed: a short-time magnitude spectrogram in dB and
per-band energy totals.

Analyze uses fixed parameters so spectrograms of the original and processed
buffers are directly comparable:

	FFT size   2048 samples
	Hop        512 samples
	Window     periodic Hann (Hann over FFTSize+1 points, last dropped)
	Framing    centered, zero padded by FFTSize/2 on both sides
	Scale      20*log10(max(amin, |X|)) - 20*log10(max(amin, ref))
	           ref = loudest bin of the whole buffer, amin = 1e-5

The loudest bin is therefore 0 dB and everything else is negative. Values are
not floored; display code decides the visible range.
*/
package analysis

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"hearsim/internal/dsp"
	"hearsim/internal/fft"
	applog "hearsim/internal/log"
)

const (
	FFTSize   = 2048
	HopLength = 512

	// AminMagnitude floors magnitudes before the log so silence maps to a
	// finite value.
	AminMagnitude = 1e-5
)

// Spectrogram is a dB-scaled STFT. DB has one row per frequency bin
// (FFTSize/2+1) and one column per frame.
type Spectrogram struct {
	DB         *mat.Dense
	FFTSize    int
	Hop        int
	SampleRate int
	Samples    int // length of the analyzed buffer
}

// Bins is the number of frequency rows.
func (s *Spectrogram) Bins() int {
	r, _ := s.DB.Dims()
	return r
}

// Frames is the number of time columns.
func (s *Spectrogram) Frames() int {
	_, c := s.DB.Dims()
	return c
}

// FrequencyForBin returns the center frequency of row i in Hz.
func (s *Spectrogram) FrequencyForBin(i int) float64 {
	return float64(i) * float64(s.SampleRate) / float64(s.FFTSize)
}

// TimeForFrame returns the center time of column j in seconds.
func (s *Spectrogram) TimeForFrame(j int) float64 {
	return float64(j*s.Hop) / float64(s.SampleRate)
}

// Analyze computes the dB spectrogram of buf. It is deterministic and does not
// modify buf. An empty buffer yields a single silent frame. The only error is
// a *dsp.InvalidParameterError for a non-positive sample rate.
func Analyze(buf []float64, sampleRate int) (*Spectrogram, error) {
	if sampleRate <= 0 {
		return nil, &dsp.InvalidParameterError{Param: "sample_rate", Value: float64(sampleRate), Reason: "must be positive"}
	}

	proc, err := fft.NewProcessor(FFTSize, float64(sampleRate), fft.PeriodicHann)
	if err != nil {
		return nil, err
	}

	bins := proc.Bins()
	frames := 1 + len(buf)/HopLength
	data := make([]float64, bins*frames)
	frame := make([]float64, FFTSize)

	ref := 0.0
	for j := range frames {
		fillFrame(frame, buf, j*HopLength-FFTSize/2)
		for i, m := range proc.Magnitudes(frame) {
			data[i*frames+j] = m
			if m > ref || math.IsNaN(m) {
				ref = m
			}
		}
	}

	refDB := 20 * math.Log10(math.Max(AminMagnitude, ref))
	for i, m := range data {
		data[i] = 20*math.Log10(math.Max(AminMagnitude, m)) - refDB
	}

	applog.Debugf("Analysis: spectrogram of %d samples, %d bins x %d frames", len(buf), bins, frames)

	return &Spectrogram{
		DB:         mat.NewDense(bins, frames, data),
		FFTSize:    FFTSize,
		Hop:        HopLength,
		SampleRate: sampleRate,
		Samples:    len(buf),
	}, nil
}

// fillFrame copies buf[start:start+len(frame)] into frame, writing zeros for
// positions outside buf.
func fillFrame(frame, buf []float64, start int) {
	clear(frame)
	lo := max(start, 0)
	hi := min(start+len(frame), len(buf))
	if lo < hi {
		copy(frame[lo-start:], buf[lo:hi])
	}
}
