package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/level.report/internal/level"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for detector tuning. The
// schema matches the /api/config endpoint so the same JSON can be used for
// both startup configuration and runtime updates. Nil fields fall back to
// the defaults baked into the Get* accessors, so partial configs are safe.
type TuningConfig struct {
	// Detector params
	NbrAverage              *float64 `json:"nbr_average,omitempty"`
	ThresholdType           *string  `json:"threshold_type,omitempty"`
	FixedThreshold          *float64 `json:"fixed_threshold,omitempty"`
	PeakSorting             *string  `json:"peak_sorting,omitempty"`
	HistoryLengthS          *float64 `json:"history_length_s,omitempty"`
	ShowFirstAboveThreshold *bool    `json:"show_first_above_threshold,omitempty"`

	// Sensor session params
	RangeStartM             *float64 `json:"range_start_m,omitempty"`
	RangeEndM               *float64 `json:"range_end_m,omitempty"`
	DataLength              *int     `json:"data_length,omitempty"`
	UpdateRateHz            *float64 `json:"update_rate_hz,omitempty"`
	NoiseLevelNormalization *bool    `json:"noise_level_normalization,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON file retain their default values.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. Enum values are
// checked here so a bad file fails at load rather than at first use.
func (c *TuningConfig) Validate() error {
	if c.NbrAverage != nil {
		if *c.NbrAverage < 1 || *c.NbrAverage > 100 {
			return fmt.Errorf("nbr_average must be between 1 and 100, got %f", *c.NbrAverage)
		}
	}

	if c.ThresholdType != nil {
		if _, err := level.ParseThresholdType(*c.ThresholdType); err != nil {
			return err
		}
	}

	if c.FixedThreshold != nil {
		if *c.FixedThreshold < 1 || *c.FixedThreshold > 20000 {
			return fmt.Errorf("fixed_threshold must be between 1 and 20000, got %f", *c.FixedThreshold)
		}
	}

	if c.PeakSorting != nil {
		if _, err := level.ParsePeakSorting(*c.PeakSorting); err != nil {
			return err
		}
	}

	if c.HistoryLengthS != nil {
		if *c.HistoryLengthS < 0 {
			return fmt.Errorf("history_length_s must be non-negative, got %f", *c.HistoryLengthS)
		}
	}

	if c.UpdateRateHz != nil {
		if *c.UpdateRateHz <= 0 {
			return fmt.Errorf("update_rate_hz must be positive, got %f", *c.UpdateRateHz)
		}
	}

	if c.DataLength != nil {
		if *c.DataLength < 2 {
			return fmt.Errorf("data_length must be at least 2, got %d", *c.DataLength)
		}
	}

	if c.RangeStartM != nil && c.RangeEndM != nil {
		if *c.RangeEndM <= *c.RangeStartM {
			return fmt.Errorf("range [%f, %f] is empty", *c.RangeStartM, *c.RangeEndM)
		}
	}

	return nil
}

// GetNbrAverage returns the nbr_average value or the default.
func (c *TuningConfig) GetNbrAverage() float64 {
	if c.NbrAverage == nil {
		return 5
	}
	return *c.NbrAverage
}

// GetThresholdType returns the threshold_type value or the default.
func (c *TuningConfig) GetThresholdType() string {
	if c.ThresholdType == nil {
		return string(level.ThresholdFixed)
	}
	return *c.ThresholdType
}

// GetFixedThreshold returns the fixed_threshold value or the default.
func (c *TuningConfig) GetFixedThreshold() float64 {
	if c.FixedThreshold == nil {
		return 1800
	}
	return *c.FixedThreshold
}

// GetPeakSorting returns the peak_sorting value or the default.
func (c *TuningConfig) GetPeakSorting() string {
	if c.PeakSorting == nil {
		return string(level.SortStrongest)
	}
	return *c.PeakSorting
}

// GetHistoryLengthS returns the history_length_s value or the default.
func (c *TuningConfig) GetHistoryLengthS() float64 {
	if c.HistoryLengthS == nil {
		return 10
	}
	return *c.HistoryLengthS
}

// GetShowFirstAboveThreshold returns the show_first_above_threshold value or the default.
func (c *TuningConfig) GetShowFirstAboveThreshold() bool {
	if c.ShowFirstAboveThreshold == nil {
		return false
	}
	return *c.ShowFirstAboveThreshold
}

// GetRangeStartM returns the range_start_m value or the default.
func (c *TuningConfig) GetRangeStartM() float64 {
	if c.RangeStartM == nil {
		return 0.1
	}
	return *c.RangeStartM
}

// GetRangeEndM returns the range_end_m value or the default.
func (c *TuningConfig) GetRangeEndM() float64 {
	if c.RangeEndM == nil {
		return 0.6
	}
	return *c.RangeEndM
}

// GetDataLength returns the data_length value or the default.
func (c *TuningConfig) GetDataLength() int {
	if c.DataLength == nil {
		return 1035 // envelope bins for the default 0.5 m range
	}
	return *c.DataLength
}

// GetUpdateRateHz returns the update_rate_hz value or the default.
func (c *TuningConfig) GetUpdateRateHz() float64 {
	if c.UpdateRateHz == nil {
		return 40
	}
	return *c.UpdateRateHz
}

// GetNoiseLevelNormalization returns the noise_level_normalization value or the default.
func (c *TuningConfig) GetNoiseLevelNormalization() bool {
	if c.NoiseLevelNormalization == nil {
		return true
	}
	return *c.NoiseLevelNormalization
}

// ProcessingConfig assembles the detector configuration from the tuning
// values, applying defaults for unset fields.
func (c *TuningConfig) ProcessingConfig() (level.ProcessingConfig, error) {
	thresholdType, err := level.ParseThresholdType(c.GetThresholdType())
	if err != nil {
		return level.ProcessingConfig{}, err
	}
	peakSorting, err := level.ParsePeakSorting(c.GetPeakSorting())
	if err != nil {
		return level.ProcessingConfig{}, err
	}

	return level.ProcessingConfig{
		NbrAverage:              c.GetNbrAverage(),
		ThresholdType:           thresholdType,
		FixedThresholdLevel:     c.GetFixedThreshold(),
		PeakSorting:             peakSorting,
		HistoryLengthS:          c.GetHistoryLengthS(),
		ShowFirstAboveThreshold: c.GetShowFirstAboveThreshold(),
	}, nil
}

// SensorConfig assembles the sensor session configuration from the tuning
// values, applying defaults for unset fields.
func (c *TuningConfig) SensorConfig() level.SensorConfig {
	return level.SensorConfig{
		RangeStartM:             c.GetRangeStartM(),
		RangeEndM:               c.GetRangeEndM(),
		DataLength:              c.GetDataLength(),
		UpdateRateHz:            c.GetUpdateRateHz(),
		NoiseLevelNormalization: c.GetNoiseLevelNormalization(),
	}
}
