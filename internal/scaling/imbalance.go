package scaling

import "math"

// Imbalance returns the population coefficient of variation (standard
// deviation divided by mean) of the group sizes. It is 0 when there are
// fewer than two groups or no members at all.
func Imbalance(counts []int) float64 {
	if len(counts) < 2 {
		return 0
	}

	sum := 0
	for _, c := range counts {
		sum += c
	}
	if sum == 0 {
		return 0
	}

	n := float64(len(counts))
	mean := float64(sum) / n

	var sq float64
	for _, c := range counts {
		d := float64(c) - mean
		sq += d * d
	}
	return math.Sqrt(sq/n) / mean
}

// Summarize computes the distribution facts the policy rules read.
func Summarize(counts []int, total int) Distribution {
	d := Distribution{
		Groups:    len(counts),
		Total:     total,
		Imbalance: Imbalance(counts),
	}
	for i, c := range counts {
		if i == 0 || c < d.MinSize {
			d.MinSize = c
		}
	}
	return d
}

// Total returns the sum of the group sizes.
func Total(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
