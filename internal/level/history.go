package level

// HistoryEntry records one detection at the sweep index it was made.
type HistoryEntry struct {
	SweepIndex int
	DistanceM  float64
}

// HistoryPoint is a display-ready history sample: time offset in seconds
// relative to the current sweep (zero or negative) and detection distance.
type HistoryPoint struct {
	TimeOffsetS float64 `json:"time_offset_s"`
	DistanceM   float64 `json:"distance_m"`
}

// historySeq is an append-only sequence of detections with head eviction.
// Entries are appended in non-decreasing sweep index order. A moving head
// index keeps eviction O(1) per entry; the backing slice is compacted once
// the dead prefix dominates.
type historySeq struct {
	entries []HistoryEntry
	head    int
}

func (h *historySeq) push(e HistoryEntry) {
	h.entries = append(h.entries, e)
}

func (h *historySeq) len() int {
	return len(h.entries) - h.head
}

// evict drops entries more than horizon sweeps behind current. An entry
// exactly at the horizon boundary is retained.
func (h *historySeq) evict(current int, horizonSweeps float64) {
	for h.head < len(h.entries) && float64(current-h.entries[h.head].SweepIndex) > horizonSweeps {
		h.entries[h.head] = HistoryEntry{}
		h.head++
	}
	if h.head > len(h.entries)/2 {
		h.entries = append(h.entries[:0:0], h.entries[h.head:]...)
		h.head = 0
	}
}

// snapshot converts the retained entries to display points relative to the
// given sweep index at the given sweep rate.
func (h *historySeq) snapshot(current int, updateRateHz float64) []HistoryPoint {
	points := make([]HistoryPoint, 0, h.len())
	for _, e := range h.entries[h.head:] {
		points = append(points, HistoryPoint{
			TimeOffsetS: float64(e.SweepIndex-current) / updateRateHz,
			DistanceM:   e.DistanceM,
		})
	}
	return points
}

// historyTracker owns the three independent detection history sequences:
// the main peak, the minor peaks, and the first distance above threshold.
type historyTracker struct {
	mainPeak   historySeq
	minorPeaks historySeq
	firstAbove historySeq
}

// record appends the detections from one emitted mean sweep. Absent values
// append nothing: a sweep without a detection leaves its sequence untouched.
func (t *historyTracker) record(sweepIndex int, mainPeakM *float64, minorPeaksM []float64, firstAboveM *float64) {
	if mainPeakM != nil {
		t.mainPeak.push(HistoryEntry{SweepIndex: sweepIndex, DistanceM: *mainPeakM})
	}
	for _, d := range minorPeaksM {
		t.minorPeaks.push(HistoryEntry{SweepIndex: sweepIndex, DistanceM: d})
	}
	if firstAboveM != nil {
		t.firstAbove.push(HistoryEntry{SweepIndex: sweepIndex, DistanceM: *firstAboveM})
	}
}

// evict applies the horizon to each sequence independently.
func (t *historyTracker) evict(current int, horizonSweeps float64) {
	t.mainPeak.evict(current, horizonSweeps)
	t.minorPeaks.evict(current, horizonSweeps)
	t.firstAbove.evict(current, horizonSweeps)
}
