// Package level implements the streaming surface-level detector: it folds
// envelope sweeps from a ranging sensor into averaged mean sweeps, compares
// them against a threshold curve, and tracks the detected reflector
// distances over a rolling time window.
package level

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/banshee-data/level.report/internal/monitoring"
	"github.com/banshee-data/level.report/internal/units"
)

// ErrSweepLength is returned by Advance when an incoming sweep does not
// match the configured distance axis. The call mutates no state.
var ErrSweepLength = errors.New("sweep length does not match configured distance axis")

// Result is the immutable per-sweep output snapshot. Slices are copies and
// safe to retain. The mean sweep is NaN-filled until the first averaging
// cycle completes; the threshold carries the most recent computation.
type Result struct {
	SweepIndex int `json:"sweep_index"`

	Sweep         []float64 `json:"sweep"`
	LastMeanSweep []float64 `json:"last_mean_sweep"`
	Threshold     []float64 `json:"threshold"`

	// Emitted reports whether this call completed an averaging cycle and ran
	// detection. Peaks and PeakDistancesM are only set on emitted sweeps and
	// may still be empty when nothing crossed the threshold.
	Emitted        bool      `json:"emitted"`
	Peaks          []int     `json:"peaks,omitempty"`
	PeakDistancesM []float64 `json:"peak_distances_m,omitempty"`

	MainPeakHistory   []HistoryPoint `json:"main_peak_history"`
	MinorPeakHistory  []HistoryPoint `json:"minor_peak_history"`
	FirstAboveHistory []HistoryPoint `json:"first_above_history"`
}

// Processor owns all detector state for one session and advances it one
// sweep per call. Advance and UpdateConfig may be called from different
// goroutines; the internal mutex serializes them so config updates land
// atomically between sweeps.
type Processor struct {
	mu sync.Mutex

	sensor SensorConfig
	cfg    ProcessingConfig

	r  []float64 // distance axis, read-only after construction
	dr float64

	avg         *averager
	threshold   thresholdEngine
	mergeRadius int
	hist        historyTracker

	lastMeanSweep []float64
	lastThreshold []float64
	sweepIndex    int

	pendingCfg    *ProcessingConfig
	pendingEngine thresholdEngine
}

// NewProcessor validates the configuration pair and builds a processor.
// Configuration problems are fatal here, never silently defaulted.
func NewProcessor(sensor SensorConfig, cfg ProcessingConfig) (*Processor, error) {
	if err := sensor.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	engine, err := newThresholdEngine(cfg)
	if err != nil {
		return nil, err
	}

	r, err := units.RangeAxis(sensor.RangeStartM, sensor.RangeEndM, sensor.DataLength)
	if err != nil {
		return nil, err
	}
	dr := units.BinSpacing(r)

	lastMean := make([]float64, len(r))
	for i := range lastMean {
		lastMean[i] = math.NaN()
	}

	return &Processor{
		sensor:        sensor,
		cfg:           cfg,
		r:             r,
		dr:            dr,
		avg:           newAverager(len(r), cfg.NbrAverage),
		threshold:     engine,
		mergeRadius:   int(math.Round(PeakMergeLimitM / dr)),
		lastMeanSweep: lastMean,
	}, nil
}

// DistanceAxis returns the distance axis shared by all sweeps, in metres.
// Callers must not modify the returned slice.
func (p *Processor) DistanceAxis() []float64 {
	return p.r
}

// Config returns the active processing configuration.
func (p *Processor) Config() ProcessingConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingCfg != nil {
		return *p.pendingCfg
	}
	return p.cfg
}

// UpdateConfig validates a new processing configuration and stages it to be
// applied at the start of the next Advance call. The in-flight averaging
// cycle is never corrupted: the update lands between sweeps or not at all.
func (p *Processor) UpdateConfig(cfg ProcessingConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	engine, err := newThresholdEngine(cfg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingCfg = &cfg
	p.pendingEngine = engine
	return nil
}

// Advance feeds one sweep through the pipeline and returns the result
// snapshot. Every call increments the sweep index by exactly one; detection
// and history maintenance run only on calls that complete an averaging
// cycle.
func (p *Processor) Advance(sweep []float64) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(sweep) != len(p.r) {
		return nil, fmt.Errorf("%w: got %d bins, want %d", ErrSweepLength, len(sweep), len(p.r))
	}

	if p.pendingCfg != nil {
		p.cfg = *p.pendingCfg
		p.threshold = p.pendingEngine
		p.avg.setNbrAverage(p.cfg.NbrAverage)
		p.pendingCfg = nil
		p.pendingEngine = nil
		monitoring.Logf("applied config update at sweep %d", p.sweepIndex)
	}

	meanSweep := p.avg.accumulate(sweep)
	p.lastThreshold = p.threshold.compute(sweep)

	result := &Result{
		SweepIndex: p.sweepIndex,
		Sweep:      append([]float64(nil), sweep...),
		Threshold:  append([]float64(nil), p.lastThreshold...),
	}

	if meanSweep != nil {
		p.lastMeanSweep = meanSweep
		p.detect(meanSweep, p.lastThreshold, result)
	}

	result.LastMeanSweep = append([]float64(nil), p.lastMeanSweep...)

	updateRate := p.sensor.UpdateRateHz
	result.MainPeakHistory = p.hist.mainPeak.snapshot(p.sweepIndex, updateRate)
	result.MinorPeakHistory = p.hist.minorPeaks.snapshot(p.sweepIndex, updateRate)
	result.FirstAboveHistory = p.hist.firstAbove.snapshot(p.sweepIndex, updateRate)

	p.sweepIndex++

	return result, nil
}

// detect runs the emission-sweep stages: first-crossing scan, peak finding,
// merging, ranking, history append, and eviction.
func (p *Processor) detect(meanSweep, threshold []float64, result *Result) {
	firstBin, firstOK := findFirstCrossing(meanSweep, threshold)

	peaks := findPeaks(meanSweep, threshold)
	if len(peaks) > 1 {
		peaks = mergePeaks(peaks, p.mergeRadius)
		peaks = rankPeaks(peaks, meanSweep, p.r, p.cfg.PeakSorting)
	}

	var mainPeakM *float64
	var minorPeaksM []float64
	if len(peaks) > 0 {
		d := p.r[peaks[0]]
		mainPeakM = &d
		for _, pk := range peaks[1:] {
			minorPeaksM = append(minorPeaksM, p.r[pk])
		}
	}

	var firstAboveM *float64
	if firstOK {
		d := p.r[firstBin]
		firstAboveM = &d
	}

	p.hist.record(p.sweepIndex, mainPeakM, minorPeaksM, firstAboveM)
	p.hist.evict(p.sweepIndex, p.cfg.HistoryLengthS*p.sensor.UpdateRateHz)

	result.Emitted = true
	result.Peaks = peaks
	result.PeakDistancesM = make([]float64, len(peaks))
	for i, pk := range peaks {
		result.PeakDistancesM[i] = p.r[pk]
	}
}
