package sweepmux

import (
	"io"
	"sync"
	"time"

	"github.com/banshee-data/level.report/internal/timeutil"
)

// MockPort implements Porter for dev mode and tests. Reads are fed from a
// pipe; writes (commands sent to the "sensor") are collected for
// inspection.
type MockPort struct {
	reader  io.Reader
	closeFn func() error

	mu       sync.Mutex
	commands []byte
	closed   bool
}

func (m *MockPort) Read(p []byte) (int, error) {
	return m.reader.Read(p)
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

// Commands returns everything written to the mock port so far.
func (m *MockPort) Commands() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.commands)
}

// NewMockSweepMux creates a SweepMux backed by a mock port that replays the
// given frame on a ticker, simulating a sensor streaming at the given rate.
func NewMockSweepMux(frame []byte, rateHz float64) *SweepMux[*MockPort] {
	return NewMockSweepMuxWithClock(frame, rateHz, timeutil.RealClock{})
}

// NewMockSweepMuxWithClock is NewMockSweepMux with an injectable clock, so
// tests can drive the replay deterministically.
func NewMockSweepMuxWithClock(frame []byte, rateHz float64, clock timeutil.Clock) *SweepMux[*MockPort] {
	r, w := io.Pipe()

	// closing the mux closes the pipe reader, which unblocks and stops the
	// replay goroutine
	mockPort := &MockPort{reader: r, closeFn: r.Close}

	interval := time.Duration(float64(time.Second) / rateHz)
	go func() {
		defer w.Close()
		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C() {
			if _, err := w.Write(frame); err != nil {
				return
			}
		}
	}()

	return NewSweepMux(mockPort)
}
