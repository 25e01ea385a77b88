package level

import (
	"math"
	"sort"
)

// mergePeaks collapses peaks that lie within mergeRadius bins of each other
// (absolute difference strictly less than the radius) into a single peak at
// the rounded mean of the cluster. The result is in ascending bin order.
//
// Each round counts, for every peak, how many peaks fall within the radius
// (including itself), picks the lowest-index peak with the maximum count,
// and replaces that cluster with its mean. Merging stops when no peak has a
// neighbour besides itself. The greedy round-by-round clustering and its
// tie-break are load-bearing: callers depend on the exact grouping.
func mergePeaks(peaks []int, mergeRadius int) []int {
	merged := make([]int, len(peaks))
	copy(merged, peaks)

	for len(merged) > 1 {
		counts := make([]int, len(merged))
		for i, p := range merged {
			for _, q := range merged {
				if abs(q-p) < mergeRadius {
					counts[i]++
				}
			}
		}

		// lowest-index peak with the most neighbours
		best := 0
		for i, c := range counts {
			if c > counts[best] {
				best = i
			}
		}
		if counts[best] <= 1 {
			break
		}

		center := merged[best]
		kept := make([]int, 0, len(merged))
		sum, clusterSize := 0, 0
		for _, p := range merged {
			if abs(p-center) < mergeRadius {
				sum += p
				clusterSize++
			} else {
				kept = append(kept, p)
			}
		}
		kept = append(kept, int(math.Round(float64(sum)/float64(clusterSize))))
		sort.Ints(kept)
		merged = kept
	}

	return merged
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
