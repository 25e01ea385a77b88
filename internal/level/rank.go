package level

import "sort"

// rankPeaks orders merged peak indices best-first according to the sorting
// policy. Ties preserve the incoming (ascending post-merge) order. The
// policy is validated at Processor construction, so an unknown value cannot
// reach this point.
func rankPeaks(peaks []int, sweep, r []float64, policy PeakSorting) []int {
	key := make([]float64, len(peaks))
	for i, p := range peaks {
		amp := sweep[p]
		switch policy {
		case SortClosest:
			key[i] = r[p]
		case SortStrongest:
			key[i] = -amp
		case SortStrongestReflector:
			key[i] = -amp * r[p] * r[p]
		case SortStrongestFlatReflector:
			key[i] = -amp * r[p]
		}
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return key[order[i]] < key[order[j]]
	})

	ranked := make([]int, len(peaks))
	for i, o := range order {
		ranked[i] = peaks[o]
	}
	return ranked
}
