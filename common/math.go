package common

import "math"

// Clamp limits v to [lo, hi]. NaN bounds are treated as unbounded.
func Clamp(v, lo, hi float64) float64 {
	if !math.IsNaN(lo) && v < lo {
		return lo
	}
	if !math.IsNaN(hi) && v > hi {
		return hi
	}
	return v
}

// Oscillate advances v by step in the current direction and flips the
// direction once v leaves [lo, hi]. It returns the new value and direction.
func Oscillate(v, lo, hi, step float64, rising bool) (float64, bool) {
	if rising {
		v += step
		if v > hi {
			rising = false
		}
	} else {
		v -= step
		if v < lo {
			rising = true
		}
	}
	return v, rising
}
