// SPDX-License-Identifier: MIT
/*
Package display prepares spectrograms for viewing: it clamps dB values to a
fixed range and drops bins above a frequency ceiling, so the original and the
processed audio are always drawn on the same scale.

A Frame is plain data (JSON friendly) shared by every sink: the HTTP API,
WebSocket and UDP streams, and the terminal heatmap.
*/
package display

import (
	"math"

	"hearsim/internal/analysis"
)

const (
	DefaultMinDB     = -80.0
	DefaultMaxDB     = 0.0
	DefaultCeilingHz = 12000.0
)

// Range is the visible dB interval.
type Range struct {
	MinDB float64 `json:"min_db"`
	MaxDB float64 `json:"max_db"`
}

// DefaultRange is [-80, 0] dB.
var DefaultRange = Range{MinDB: DefaultMinDB, MaxDB: DefaultMaxDB}

// Clamp limits v to the range. NaN maps to MinDB.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.MinDB
	}
	return math.Max(r.MinDB, math.Min(r.MaxDB, v))
}

// Level maps v onto [0, 1] within the range.
func (r Range) Level(v float64) float64 {
	span := r.MaxDB - r.MinDB
	if span <= 0 {
		return 0
	}
	return (r.Clamp(v) - r.MinDB) / span
}

// Frame is a display-ready spectrogram. Values is indexed [bin][frame].
type Frame struct {
	Range         Range       `json:"range"`
	CeilingHz     float64     `json:"ceiling_hz"`
	SampleRate    int         `json:"sample_rate"`
	FrequenciesHz []float64   `json:"frequencies_hz"`
	TimesSec      []float64   `json:"times_s"`
	Values        [][]float64 `json:"values_db"`
}

// Bins is the number of frequency rows kept.
func (f *Frame) Bins() int { return len(f.FrequenciesHz) }

// Frames is the number of time columns.
func (f *Frame) Frames() int { return len(f.TimesSec) }

// Column returns the values of time frame j, lowest frequency first.
func (f *Frame) Column(j int) []float64 {
	col := make([]float64, len(f.Values))
	for i, row := range f.Values {
		col[i] = row[j]
	}
	return col
}

// Prepare clamps spec to r and keeps the bins at or below ceilingHz. A
// non-positive ceiling keeps every bin.
func Prepare(spec *analysis.Spectrogram, r Range, ceilingHz float64) *Frame {
	bins, frames := spec.Bins(), spec.Frames()

	kept := bins
	if ceilingHz > 0 {
		kept = 0
		for kept < bins && spec.FrequencyForBin(kept) <= ceilingHz {
			kept++
		}
	}

	f := &Frame{
		Range:         r,
		CeilingHz:     ceilingHz,
		SampleRate:    spec.SampleRate,
		FrequenciesHz: make([]float64, kept),
		TimesSec:      make([]float64, frames),
		Values:        make([][]float64, kept),
	}
	for j := range frames {
		f.TimesSec[j] = spec.TimeForFrame(j)
	}
	for i := range kept {
		f.FrequenciesHz[i] = spec.FrequencyForBin(i)
		row := make([]float64, frames)
		for j := range frames {
			row[j] = r.Clamp(spec.DB.At(i, j))
		}
		f.Values[i] = row
	}
	return f
}
