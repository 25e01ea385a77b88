package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// errNotSweep marks lines that are not sweep frames (command echoes, status
// messages). Callers skip these rather than treating them as failures.
var errNotSweep = errors.New("not a sweep frame")

// parseSweepLine parses one framed envelope sweep of the form
//
//	S,<seq>,<a0>,<a1>,...,<aN-1>
//
// where seq is the module's sweep sequence counter and each a is an
// amplitude sample for one distance bin. Lines with any other prefix return
// errNotSweep.
func parseSweepLine(line string) (int, []float64, error) {
	segments := strings.Split(line, ",")
	if len(segments) < 3 || segments[0] != "S" {
		return 0, nil, errNotSweep
	}

	seq, err := strconv.Atoi(segments[1])
	if err != nil {
		return 0, nil, fmt.Errorf("failed to parse sweep sequence %q: %w", segments[1], err)
	}

	sweep := make([]float64, len(segments)-2)
	for i, s := range segments[2:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to parse amplitude at bin %d: %w", i, err)
		}
		sweep[i] = v
	}

	return seq, sweep, nil
}
