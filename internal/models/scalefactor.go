package models

import "math"

// ScaleFactor is the multiplicative gain ratio relating one readout's
// signal to the first readout's signal, together with the propagated
// uncertainty of the estimate. The first readout is the reference and
// always carries {Mean: 1, Variance: 0}.
type ScaleFactor struct {
	Mean     float64
	Variance float64
}

// Std returns the standard deviation of the scale factor estimate.
func (s ScaleFactor) Std() float64 {
	return math.Sqrt(s.Variance)
}
