// Package token approximates token costs for budget decisions. The estimate
// is a heuristic gate, never an exact count.
package token

// Estimate returns the approximate token cost of text using the ~4 bytes per
// token density of English prose, rounded up. Deterministic, side-effect-free
// and monotonic in text length.
func Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateAll sums Estimate over all given spans.
func EstimateAll(texts []string) int {
	total := 0
	for _, t := range texts {
		total += Estimate(t)
	}
	return total
}
