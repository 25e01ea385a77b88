package level

import "fmt"

// PeakMergeLimitM is the physical separation below which two detected peaks
// are treated as reflections off the same surface and merged.
const PeakMergeLimitM = 0.005

// ThresholdType selects how the per-bin threshold curve is computed.
type ThresholdType string

const (
	// ThresholdFixed applies one configured level across the full sweep.
	ThresholdFixed ThresholdType = "fixed"
	// ThresholdRecorded derives the threshold from a recorded background
	// sweep. Declared for configuration compatibility; not implemented.
	ThresholdRecorded ThresholdType = "recorded"
	// ThresholdCFAR derives a per-bin threshold from windowed local
	// statistics. Declared for configuration compatibility; not implemented.
	ThresholdCFAR ThresholdType = "cfar"
)

// ParseThresholdType converts a config string into a ThresholdType.
func ParseThresholdType(s string) (ThresholdType, error) {
	switch ThresholdType(s) {
	case ThresholdFixed, ThresholdRecorded, ThresholdCFAR:
		return ThresholdType(s), nil
	default:
		return "", fmt.Errorf("unknown threshold type %q", s)
	}
}

// PeakSorting selects the ranking policy applied to merged peaks.
type PeakSorting string

const (
	// SortStrongest ranks by raw amplitude.
	SortStrongest PeakSorting = "strongest"
	// SortClosest ranks by distance, nearest first.
	SortClosest PeakSorting = "closest"
	// SortStrongestReflector ranks by amplitude compensated for spherical
	// spreading (amplitude x distance squared).
	SortStrongestReflector PeakSorting = "strongest_reflector"
	// SortStrongestFlatReflector ranks by amplitude compensated for a flat
	// reflector (amplitude x distance).
	SortStrongestFlatReflector PeakSorting = "strongest_flat_reflector"
)

// ParsePeakSorting converts a config string into a PeakSorting policy.
func ParsePeakSorting(s string) (PeakSorting, error) {
	switch PeakSorting(s) {
	case SortStrongest, SortClosest, SortStrongestReflector, SortStrongestFlatReflector:
		return PeakSorting(s), nil
	default:
		return "", fmt.Errorf("unknown peak sorting method %q", s)
	}
}

// SensorConfig describes the envelope session the sweeps come from. It is
// fixed for the lifetime of a Processor.
type SensorConfig struct {
	// Measurement range in metres.
	RangeStartM float64 `json:"range_start_m"`
	RangeEndM   float64 `json:"range_end_m"`

	// Number of distance bins per sweep.
	DataLength int `json:"data_length"`

	// Sweep rate of the sensor. Required: history eviction and time
	// offsets are derived from it.
	UpdateRateHz float64 `json:"update_rate_hz"`

	// Whether the sensor normalizes its noise floor. Display/advisory only.
	NoiseLevelNormalization bool `json:"noise_level_normalization"`
}

func (c SensorConfig) validate() error {
	if c.UpdateRateHz <= 0 {
		return fmt.Errorf("sensor update rate must be set, got %v", c.UpdateRateHz)
	}
	if c.DataLength < 2 {
		return fmt.Errorf("sensor data length must be at least 2 bins, got %d", c.DataLength)
	}
	if c.RangeEndM <= c.RangeStartM {
		return fmt.Errorf("sensor range [%v, %v] is empty", c.RangeStartM, c.RangeEndM)
	}
	return nil
}

// ProcessingConfig holds the detector tuning parameters. A subset may be
// updated while a session is running via Processor.UpdateConfig.
type ProcessingConfig struct {
	// Number of sweeps averaged into one mean sweep before detection runs.
	NbrAverage float64 `json:"nbr_average"`

	ThresholdType       ThresholdType `json:"threshold_type"`
	FixedThresholdLevel float64       `json:"fixed_threshold"`

	PeakSorting PeakSorting `json:"peak_sorting"`

	// Length of the detection history window in seconds.
	HistoryLengthS float64 `json:"history_length_s"`

	// Display hint: whether the first-above-threshold trace should be shown.
	ShowFirstAboveThreshold bool `json:"show_first_above_threshold"`
}

func (c ProcessingConfig) validate() error {
	if c.NbrAverage < 1 {
		return fmt.Errorf("nbr_average must be at least 1, got %v", c.NbrAverage)
	}
	if _, err := ParseThresholdType(string(c.ThresholdType)); err != nil {
		return err
	}
	if c.ThresholdType == ThresholdFixed && c.FixedThresholdLevel <= 0 {
		return fmt.Errorf("fixed threshold level must be positive, got %v", c.FixedThresholdLevel)
	}
	if _, err := ParsePeakSorting(string(c.PeakSorting)); err != nil {
		return err
	}
	if c.HistoryLengthS < 0 {
		return fmt.Errorf("history length must be non-negative, got %v", c.HistoryLengthS)
	}
	return nil
}

// AlertSeverity classifies pre-flight configuration alerts.
type AlertSeverity string

const (
	// AlertError blocks a session from starting.
	AlertError AlertSeverity = "error"
	// AlertWarning is advisory; the session may still start.
	AlertWarning AlertSeverity = "warning"
)

// Alert is a pre-flight configuration finding tied to a config field.
type Alert struct {
	Severity AlertSeverity `json:"severity"`
	Field    string        `json:"field"`
	Message  string        `json:"message"`
}

// CheckSensorConfig inspects a sensor/processing configuration pair and
// returns advisory and blocking alerts. It never returns an error: callers
// decide whether to proceed based on the alert severities.
func CheckSensorConfig(sensor SensorConfig, proc ProcessingConfig) []Alert {
	var alerts []Alert

	if sensor.UpdateRateHz <= 0 {
		alerts = append(alerts, Alert{
			Severity: AlertError,
			Field:    "update_rate_hz",
			Message:  "must be set",
		})
	}

	if !sensor.NoiseLevelNormalization && proc.ThresholdType == ThresholdFixed {
		alerts = append(alerts, Alert{
			Severity: AlertWarning,
			Field:    "noise_level_normalization",
			Message:  "enabling noise level normalization is recommended with a fixed threshold",
		})
	}

	return alerts
}

// HasBlocking reports whether any alert in the list is blocking.
func HasBlocking(alerts []Alert) bool {
	for _, a := range alerts {
		if a.Severity == AlertError {
			return true
		}
	}
	return false
}
