package level

import "math"

// findFirstCrossing returns the first bin, scanning from bin 0, where the
// sweep strictly exceeds its threshold. The second return is false when the
// threshold is entirely masked or never exceeded. Used for tank-level
// monitoring where direct leakage swamps the peak shape.
func findFirstCrossing(sweep, threshold []float64) (int, bool) {
	if len(threshold) == 0 || allMasked(threshold) {
		return 0, false
	}
	for i := range sweep {
		// comparison against a masked (NaN) bin is always false
		if sweep[i] > threshold[i] {
			return i, true
		}
	}
	return 0, false
}

// findPeaks scans a sweep against its threshold curve and returns the bin
// indices of local maxima, in ascending order.
//
// A peak is a single sample or a plateau of equal samples, all strictly
// above threshold, whose nearest neighbours on both sides are lower and
// also above threshold. At least three consecutive in-range samples are
// therefore required. For a plateau [d, dUpper-1] the reported index is
// d + ceil((dUpper-d-1)/2), the midpoint biased toward the far end.
//
// The outer scan resumes from dUpper after every candidate, so each bin is
// visited a bounded number of times.
func findPeaks(sweep, threshold []float64) []int {
	if len(threshold) == 0 || allMasked(threshold) {
		return nil
	}

	var found []int

	n := len(sweep)
	d := 1
	for d < n-1 {
		// skip ahead until the threshold starts; adaptive engines mask
		// leading bins
		if math.IsNaN(threshold[d-1]) {
			d++
			continue
		}

		// stop once the threshold ends
		if math.IsNaN(threshold[d+1]) {
			break
		}

		// the next bin cannot be a peak unless this one is over threshold
		if sweep[d] <= threshold[d] {
			d += 2
			continue
		}

		// previous bin must also be over threshold
		if sweep[d-1] <= threshold[d-1] {
			d++
			continue
		}

		// require a strictly rising edge into the candidate
		if sweep[d-1] >= sweep[d] {
			d++
			continue
		}

		// walk the plateau until it falls, rises, or runs out of range
		dUpper := d + 1
		for {
			if dUpper >= n-1 {
				break
			}
			if math.IsNaN(threshold[dUpper]) {
				break
			}
			if sweep[dUpper] <= threshold[dUpper] {
				break
			}
			if sweep[dUpper] > sweep[d] {
				// still rising: the peak lies further right
				break
			}
			if sweep[dUpper] < sweep[d] {
				delta := dUpper - d
				found = append(found, d+int(math.Ceil(float64(delta-1)/2.0)))
				break
			}
			dUpper++
		}

		d = dUpper
	}

	return found
}
