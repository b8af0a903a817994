// SPDX-License-Identifier: MIT
//
// Package presets maps listener ages to low-pass cutoffs and validates the
// custom cutoff a user may enter instead.
package presets

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// MinCustomCutoff and MaxCustomCutoff bound a user-entered cutoff (Hz).
	MinCustomCutoff = 500.0
	MaxCustomCutoff = 10000.0

	// DefaultCustomCutoff is offered when the user picks "custom".
	DefaultCustomCutoff = 2000.0

	// CustomStep is the granularity of interactive cutoff adjustment.
	CustomStep = 100.0

	// CustomKey selects a user-entered cutoff.
	CustomKey = "custom"
)

// Preset is one entry of the parameter source.
type Preset struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Cutoff      float64 `json:"cutoff_hz"`
	Custom      bool    `json:"custom,omitempty"`
}

var all = []Preset{
	{Key: "20y", Label: "20y/15000Hz", Description: "20 years, normal hearing", Cutoff: 15000},
	{Key: "50y", Label: "50y/6000Hz", Description: "50 years, mild loss above 6 kHz", Cutoff: 6000},
	{Key: "65y", Label: "65y/3000Hz", Description: "65 years, moderate loss above 3 kHz", Cutoff: 3000},
	{Key: "80y", Label: "80y/1500Hz", Description: "80 years, severe loss above 1.5 kHz", Cutoff: 1500},
}

// ErrUnknownPreset is wrapped by Resolve for names that are neither a preset
// nor a number.
var ErrUnknownPreset = errors.New("unknown preset")

// CutoffRangeError reports a custom cutoff outside [MinCustomCutoff, MaxCustomCutoff].
type CutoffRangeError struct {
	Cutoff float64
}

func (e *CutoffRangeError) Error() string {
	return fmt.Sprintf("custom cutoff %g Hz outside [%g, %g] Hz", e.Cutoff, MinCustomCutoff, MaxCustomCutoff)
}

// All returns the age presets in ascending age order.
func All() []Preset {
	out := make([]Preset, len(all))
	copy(out, all)
	return out
}

// Custom validates a user-entered cutoff.
func Custom(cutoff float64) (Preset, error) {
	if !(cutoff >= MinCustomCutoff && cutoff <= MaxCustomCutoff) {
		return Preset{}, &CutoffRangeError{Cutoff: cutoff}
	}
	return Preset{
		Key:         CustomKey,
		Label:       fmt.Sprintf("custom/%gHz", cutoff),
		Description: "custom cutoff",
		Cutoff:      cutoff,
		Custom:      true,
	}, nil
}

// Resolve accepts a preset key ("65y"), a label ("65y/3000Hz"), "custom"
// (DefaultCustomCutoff) or a number of Hz (custom, range checked).
func Resolve(name string) (Preset, error) {
	name = strings.TrimSpace(name)
	for _, p := range all {
		if strings.EqualFold(name, p.Key) || strings.EqualFold(name, p.Label) {
			return p, nil
		}
	}
	if strings.EqualFold(name, CustomKey) {
		return Custom(DefaultCustomCutoff)
	}

	hz, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(name), "hz"), 64)
	if err != nil {
		return Preset{}, fmt.Errorf("%w: %q (want one of %s, custom, or a cutoff in Hz)", ErrUnknownPreset, name, keys())
	}
	return Custom(hz)
}

func keys() string {
	ks := make([]string, len(all))
	for i, p := range all {
		ks[i] = p.Key
	}
	return strings.Join(ks, ", ")
}

// DefaultAsset returns the first candidate path that exists as a regular
// file.
func DefaultAsset(candidates []string) (string, bool) {
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
