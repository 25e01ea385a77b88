package level

import "gonum.org/v1/gonum/floats"

// averager maintains an exponentially weighted running mean of incoming
// sweeps and emits a snapshot once nbrAverage sweeps have been folded in.
// The weight of each new sweep is 1/(1+k) where k is the number of sweeps
// since the last emission, so the first sweep of a cycle fully replaces the
// accumulator and later sweeps contribute progressively less.
type averager struct {
	mean            []float64
	sweepsSinceMean int
	nbrAverage      float64
}

func newAverager(numBins int, nbrAverage float64) *averager {
	return &averager{
		mean:       make([]float64, numBins),
		nbrAverage: nbrAverage,
	}
}

// accumulate folds one sweep into the running mean. It returns the completed
// mean sweep when the averaging cycle finishes, otherwise nil. The returned
// slice is a snapshot owned by the caller; the accumulator is zeroed for the
// next cycle.
func (a *averager) accumulate(sweep []float64) []float64 {
	w := 1.0 / (1.0 + float64(a.sweepsSinceMean))
	floats.Scale(1.0-w, a.mean)
	floats.AddScaled(a.mean, w, sweep)
	a.sweepsSinceMean++

	if float64(a.sweepsSinceMean) < a.nbrAverage {
		return nil
	}

	a.sweepsSinceMean = 0
	snapshot := make([]float64, len(a.mean))
	copy(snapshot, a.mean)
	for i := range a.mean {
		a.mean[i] = 0
	}
	return snapshot
}

// setNbrAverage changes the cycle length. The in-flight accumulator keeps
// its value; the inclusive emission check picks up the new length on the
// next accumulate call.
func (a *averager) setNbrAverage(n float64) {
	a.nbrAverage = n
}
