package level

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSensorConfig() SensorConfig {
	return SensorConfig{
		RangeStartM:             0.1,
		RangeEndM:               0.6,
		DataLength:              51, // dr = 0.01 m, merge radius = 1 bin
		UpdateRateHz:            10,
		NoiseLevelNormalization: true,
	}
}

func testProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		NbrAverage:          1,
		ThresholdType:       ThresholdFixed,
		FixedThresholdLevel: 100,
		PeakSorting:         SortStrongest,
		HistoryLengthS:      2,
	}
}

// pulseSweep returns an all-zero sweep with a triangular pulse peaking at
// the given bin with the given amplitude.
func pulseSweep(n, peakBin int, amplitude float64) []float64 {
	sweep := make([]float64, n)
	sweep[peakBin-1] = amplitude * 0.7
	sweep[peakBin] = amplitude
	sweep[peakBin+1] = amplitude * 0.7
	return sweep
}

func TestNewProcessorRejectsBadConfig(t *testing.T) {
	t.Run("unset update rate", func(t *testing.T) {
		sensor := testSensorConfig()
		sensor.UpdateRateHz = 0
		_, err := NewProcessor(sensor, testProcessingConfig())
		require.Error(t, err)
	})

	t.Run("unknown sorting policy", func(t *testing.T) {
		cfg := testProcessingConfig()
		cfg.PeakSorting = "loudest"
		_, err := NewProcessor(testSensorConfig(), cfg)
		require.Error(t, err)
	})

	t.Run("unknown threshold type", func(t *testing.T) {
		cfg := testProcessingConfig()
		cfg.ThresholdType = "adaptive"
		_, err := NewProcessor(testSensorConfig(), cfg)
		require.Error(t, err)
	})

	t.Run("declared but unimplemented threshold types", func(t *testing.T) {
		for _, tt := range []ThresholdType{ThresholdRecorded, ThresholdCFAR} {
			cfg := testProcessingConfig()
			cfg.ThresholdType = tt
			_, err := NewProcessor(testSensorConfig(), cfg)
			require.Error(t, err, "threshold type %s", tt)
		}
	})

	t.Run("nbr_average below one", func(t *testing.T) {
		cfg := testProcessingConfig()
		cfg.NbrAverage = 0
		_, err := NewProcessor(testSensorConfig(), cfg)
		require.Error(t, err)
	})
}

func TestProcessorSweepIndexAndEmissionCadence(t *testing.T) {
	cfg := testProcessingConfig()
	cfg.NbrAverage = 4
	p, err := NewProcessor(testSensorConfig(), cfg)
	require.NoError(t, err)

	sweep := pulseSweep(51, 25, 500)
	for i := 0; i < 12; i++ {
		res, err := p.Advance(sweep)
		require.NoError(t, err)
		assert.Equal(t, i, res.SweepIndex, "sweep index increments by one per call")

		wantEmit := (i+1)%4 == 0
		assert.Equal(t, wantEmit, res.Emitted, "call %d", i)
	}
}

func TestProcessorDetectsPulse(t *testing.T) {
	p, err := NewProcessor(testSensorConfig(), testProcessingConfig())
	require.NoError(t, err)

	// pulse peaking at bin 25 -> 0.1 + 25*0.01 = 0.35 m
	res, err := p.Advance(pulseSweep(51, 25, 500))
	require.NoError(t, err)

	require.True(t, res.Emitted)
	require.Equal(t, []int{25}, res.Peaks)
	require.Len(t, res.PeakDistancesM, 1)
	assert.InDelta(t, 0.35, res.PeakDistancesM[0], 1e-9)

	// single peak also lands in the main history, and the rising flank is
	// the first bin above threshold
	require.Len(t, res.MainPeakHistory, 1)
	assert.InDelta(t, 0.35, res.MainPeakHistory[0].DistanceM, 1e-9)
	assert.Empty(t, res.MinorPeakHistory)
	require.Len(t, res.FirstAboveHistory, 1)
	assert.InDelta(t, 0.34, res.FirstAboveHistory[0].DistanceM, 1e-9)
}

func TestProcessorNoDetectionIsNotAnError(t *testing.T) {
	p, err := NewProcessor(testSensorConfig(), testProcessingConfig())
	require.NoError(t, err)

	res, err := p.Advance(make([]float64, 51))
	require.NoError(t, err)

	assert.True(t, res.Emitted)
	assert.Empty(t, res.Peaks)
	assert.Empty(t, res.MainPeakHistory)
	assert.Empty(t, res.FirstAboveHistory)
}

func TestProcessorMeanSweepBeforeFirstEmission(t *testing.T) {
	cfg := testProcessingConfig()
	cfg.NbrAverage = 3
	p, err := NewProcessor(testSensorConfig(), cfg)
	require.NoError(t, err)

	res, err := p.Advance(pulseSweep(51, 25, 500))
	require.NoError(t, err)

	assert.False(t, res.Emitted)
	assert.True(t, math.IsNaN(res.LastMeanSweep[0]), "mean sweep is undefined until the first cycle completes")
	assert.Nil(t, res.Peaks)
	require.Len(t, res.Threshold, 51)
	assert.Equal(t, 100.0, res.Threshold[10])
}

func TestProcessorSweepLengthMismatch(t *testing.T) {
	cfg := testProcessingConfig()
	cfg.NbrAverage = 2
	p, err := NewProcessor(testSensorConfig(), cfg)
	require.NoError(t, err)

	_, err = p.Advance(make([]float64, 51))
	require.NoError(t, err)

	_, err = p.Advance(make([]float64, 10))
	require.ErrorIs(t, err, ErrSweepLength)

	// the failed call mutated nothing: the in-flight cycle still needs
	// exactly one more sweep and the index did not advance
	res, err := p.Advance(make([]float64, 51))
	require.NoError(t, err)
	assert.Equal(t, 1, res.SweepIndex)
	assert.True(t, res.Emitted)
}

func TestProcessorHistoryEviction(t *testing.T) {
	// horizon = 2 s x 10 Hz = 20 sweeps
	p, err := NewProcessor(testSensorConfig(), testProcessingConfig())
	require.NoError(t, err)

	pulse := pulseSweep(51, 25, 500)
	empty := make([]float64, 51)

	// detection at sweep 0, then silence
	_, err = p.Advance(pulse)
	require.NoError(t, err)

	var last *Result
	for i := 1; i <= 20; i++ {
		last, err = p.Advance(empty)
		require.NoError(t, err)
	}
	// current sweep index 20: 20-0 = 20, not > 20, entry retained
	require.Len(t, last.MainPeakHistory, 1)
	assert.InDelta(t, -2.0, last.MainPeakHistory[0].TimeOffsetS, 1e-9)

	last, err = p.Advance(empty)
	require.NoError(t, err)
	assert.Empty(t, last.MainPeakHistory, "entry one sweep past the horizon is evicted")
}

func TestProcessorMinorPeaksRanked(t *testing.T) {
	cfg := testProcessingConfig()
	cfg.PeakSorting = SortClosest
	p, err := NewProcessor(testSensorConfig(), cfg)
	require.NoError(t, err)

	// two well separated pulses; the stronger one is farther away
	sweep := make([]float64, 51)
	sweep[14], sweep[15], sweep[16] = 300, 400, 300
	sweep[39], sweep[40], sweep[41] = 600, 800, 600

	res, err := p.Advance(sweep)
	require.NoError(t, err)

	require.Equal(t, []int{15, 40}, res.Peaks, "closest policy ranks the near peak first")
	require.Len(t, res.MainPeakHistory, 1)
	require.Len(t, res.MinorPeakHistory, 1)
	assert.InDelta(t, 0.25, res.MainPeakHistory[0].DistanceM, 1e-9)
	assert.InDelta(t, 0.50, res.MinorPeakHistory[0].DistanceM, 1e-9)
}

func TestProcessorUpdateConfigBetweenSweeps(t *testing.T) {
	cfg := testProcessingConfig()
	cfg.NbrAverage = 2
	p, err := NewProcessor(testSensorConfig(), cfg)
	require.NoError(t, err)

	update := cfg
	update.FixedThresholdLevel = 900
	require.NoError(t, p.UpdateConfig(update))
	assert.Equal(t, 900.0, p.Config().FixedThresholdLevel)

	res, err := p.Advance(make([]float64, 51))
	require.NoError(t, err)
	assert.Equal(t, 900.0, res.Threshold[0], "staged config applies on the next advance")

	t.Run("invalid update rejected without staging", func(t *testing.T) {
		bad := cfg
		bad.PeakSorting = "bogus"
		require.Error(t, p.UpdateConfig(bad))
		assert.Equal(t, 900.0, p.Config().FixedThresholdLevel)
	})
}

func TestCheckSensorConfigAlerts(t *testing.T) {
	t.Run("unset update rate is blocking", func(t *testing.T) {
		sensor := testSensorConfig()
		sensor.UpdateRateHz = 0
		alerts := CheckSensorConfig(sensor, testProcessingConfig())
		require.True(t, HasBlocking(alerts))
	})

	t.Run("fixed threshold without normalization is advisory", func(t *testing.T) {
		sensor := testSensorConfig()
		sensor.NoiseLevelNormalization = false
		alerts := CheckSensorConfig(sensor, testProcessingConfig())
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertWarning, alerts[0].Severity)
		assert.False(t, HasBlocking(alerts))
	})

	t.Run("clean config has no alerts", func(t *testing.T) {
		alerts := CheckSensorConfig(testSensorConfig(), testProcessingConfig())
		assert.Empty(t, alerts)
	})
}

func TestProcessorErrSweepLengthWrapped(t *testing.T) {
	p, err := NewProcessor(testSensorConfig(), testProcessingConfig())
	require.NoError(t, err)

	_, err = p.Advance(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSweepLength))
}
