package sampler

import "math"

// Percentage returns value/total as a percentage rounded to two decimals.
// A zero total yields 0.
func Percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return Round2(value / total * 100)
}

// Round2 rounds x to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// usedBytes clamps free to total so the subtraction cannot wrap.
func usedBytes(total, free uint64) (used, clampedFree uint64) {
	if free > total {
		free = total
	}
	return total - free, free
}
