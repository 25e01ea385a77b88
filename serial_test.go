package main

import (
	"errors"
	"testing"

	"github.com/banshee-data/level.report/internal/level"
)

func TestParseSweepLine(t *testing.T) {
	seq, sweep, err := parseSweepLine("S,42,100,200,300.5,250")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq != 42 {
		t.Errorf("expected sequence 42, got %d", seq)
	}
	want := []float64{100, 200, 300.5, 250}
	if len(sweep) != len(want) {
		t.Fatalf("expected %d bins, got %d", len(want), len(sweep))
	}
	for i := range want {
		if sweep[i] != want[i] {
			t.Errorf("bin %d: expected %v, got %v", i, want[i], sweep[i])
		}
	}
}

func TestParseSweepLineNotSweep(t *testing.T) {
	for _, line := range []string{
		"",
		"OK",
		"E+",
		"module ready",
		"S,7", // sequence but no samples
		"X,1,2,3",
	} {
		if _, _, err := parseSweepLine(line); !errors.Is(err, errNotSweep) {
			t.Errorf("parseSweepLine(%q): expected errNotSweep, got %v", line, err)
		}
	}
}

func TestParseSweepLineMalformed(t *testing.T) {
	cases := []string{
		"S,abc,1,2,3", // bad sequence
		"S,1,2,xyz,4", // bad amplitude
		"S,1,2,,4",    // empty amplitude
	}
	for _, line := range cases {
		_, _, err := parseSweepLine(line)
		if err == nil {
			t.Errorf("parseSweepLine(%q): expected error", line)
		}
		if errors.Is(err, errNotSweep) {
			t.Errorf("parseSweepLine(%q): malformed frames must not be silently skipped", line)
		}
	}
}

func TestLatestResultEmpty(t *testing.T) {
	var latest latestResult
	if _, ok := latest.Latest(); ok {
		t.Error("expected no result before first store")
	}
}

func TestLatestResultStoreAndLoad(t *testing.T) {
	var latest latestResult
	latest.Store(&level.Result{SweepIndex: 7})

	result, ok := latest.Latest()
	if !ok {
		t.Fatal("expected a result after store")
	}
	if result.SweepIndex != 7 {
		t.Errorf("expected sweep index 7, got %d", result.SweepIndex)
	}

	latest.Store(&level.Result{SweepIndex: 8})
	result, _ = latest.Latest()
	if result.SweepIndex != 8 {
		t.Errorf("expected sweep index 8 after second store, got %d", result.SweepIndex)
	}
}

func TestMakeDevFrameParses(t *testing.T) {
	sensor := level.SensorConfig{
		RangeStartM:  0.1,
		RangeEndM:    0.6,
		DataLength:   100,
		UpdateRateHz: 40,
	}
	frame := makeDevFrame(sensor)

	seq, sweep, err := parseSweepLine(string(frame[:len(frame)-1])) // strip trailing newline
	if err != nil {
		t.Fatalf("dev frame must parse as a sweep: %v", err)
	}
	if seq != 0 {
		t.Errorf("expected sequence 0, got %d", seq)
	}
	if len(sweep) != sensor.DataLength {
		t.Fatalf("expected %d bins, got %d", sensor.DataLength, len(sweep))
	}

	// pulse peak must clear the default fixed threshold
	max := 0.0
	for _, v := range sweep {
		if v > max {
			max = v
		}
	}
	if max <= 1800 {
		t.Errorf("expected pulse above 1800, got max %v", max)
	}
}

func TestIsAllowedCommand(t *testing.T) {
	if !isAllowedCommand("E+") {
		t.Error("E+ must be allowed")
	}
	if isAllowedCommand("AX; rm -rf /") {
		t.Error("arbitrary strings must be rejected")
	}
	if isAllowedCommand("") {
		t.Error("empty command must be rejected")
	}
}
