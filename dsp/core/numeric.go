package core

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// ClampSample saturates an audio sample to the internal [-1, 1] range.
func ClampSample(value float64) float64 {
	if value < -1 {
		return -1
	}

	if value > 1 {
		return 1
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// Feedback loops decay geometrically and would otherwise spend their
// tails in denormal territory, which is slow on many CPUs.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// MsToSamples converts a duration in milliseconds to a whole sample count
// at the given sample rate, rounding to nearest.
func MsToSamples(ms, sampleRate float64) int {
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}

	return int(math.Round(ms * sampleRate / 1000))
}
