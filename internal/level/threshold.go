package level

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// thresholdEngine computes a per-bin threshold curve for a sweep. Bins with
// no valid threshold are NaN ("masked") and cannot produce detections.
// Adaptive engines leave edge bins masked where too few neighbouring samples
// exist; the fixed engine never masks.
type thresholdEngine interface {
	compute(sweep []float64) []float64
}

// fixedThreshold applies one configured level across the full sweep.
type fixedThreshold struct {
	level float64
}

func (t fixedThreshold) compute(sweep []float64) []float64 {
	curve := make([]float64, len(sweep))
	floats.AddConst(t.level, curve)
	return curve
}

// newThresholdEngine builds the engine for the configured threshold type.
// The recorded and CFAR variants are declared extension points and are
// rejected here rather than at first use.
func newThresholdEngine(cfg ProcessingConfig) (thresholdEngine, error) {
	switch cfg.ThresholdType {
	case ThresholdFixed:
		return fixedThreshold{level: cfg.FixedThresholdLevel}, nil
	case ThresholdRecorded, ThresholdCFAR:
		return nil, fmt.Errorf("threshold type %q is not implemented", cfg.ThresholdType)
	default:
		return nil, fmt.Errorf("unknown threshold type %q", cfg.ThresholdType)
	}
}

// allMasked reports whether every bin of a threshold curve is masked.
func allMasked(threshold []float64) bool {
	for _, v := range threshold {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
