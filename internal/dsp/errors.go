// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
)

// InvalidParameterError reports a design or analysis parameter that cannot
// produce a valid result, such as a non-positive sample rate or filter order.
// It is fatal to the call and never retried.
type InvalidParameterError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%g: %s", e.Param, e.Value, e.Reason)
}

// NumericAnomalyError reports the first non-finite sample in a buffer.
type NumericAnomalyError struct {
	Index int
	Value float64
}

func (e *NumericAnomalyError) Error() string {
	return fmt.Sprintf("non-finite sample %v at index %d", e.Value, e.Index)
}

// CheckFinite returns a *NumericAnomalyError for the first NaN or Inf sample
// in buf, or nil when every sample is finite.
func CheckFinite(buf []float64) error {
	for i, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &NumericAnomalyError{Index: i, Value: v}
		}
	}
	return nil
}
