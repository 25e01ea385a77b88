// Package sweepmux provides an abstraction over the serial port of an
// envelope ranging module, with the ability for multiple clients to
// subscribe to the sweep frames it streams and to send commands to the
// single underlying device.
package sweepmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// SweepMux is a serial port multiplexer that allows multiple clients to
// subscribe to sweep lines from a single sensor port.
type SweepMux[T Porter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// SweepMuxInterface defines the interface for the SweepMux type.
type SweepMuxInterface interface {
	// Subscribe creates a new channel for receiving line events from the
	// sensor port. The channel ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the sensor port.
	SendCommand(string) error
	// Monitor reads lines from the sensor port and fans them out to
	// subscribers.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the port.
	Close() error

	// Initialize puts the module into framed envelope streaming mode.
	Initialize() error
}

// NewSweepMux creates a SweepMux instance backed by the given port.
func NewSweepMux[T Porter](port T) *SweepMux[T] {
	return &SweepMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SweepMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the sweep mux.
func (s *SweepMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Initialize configures the module for framed envelope output so that the
// stream can be parsed downstream.
func (s *SweepMux[T]) Initialize() error {
	for _, command := range []string{
		"OE", // enable framed envelope sweep output
		"OS", // prefix frames with the sweep sequence counter
		"E+", // start the envelope service stream
	} {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}
	return nil
}

// SendCommand sends a command to the sensor port.
func (s *SweepMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n" // ensure command ends with a newline
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor monitors the sensor port for sweep lines and sends them to
// subscribers. Slow subscribers are skipped rather than allowed to stall
// the stream.
func (s *SweepMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	// envelope frames are long: one amplitude per distance bin
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// read from the port in a separate goroutine so the blocking Scan does
	// not interfere with context cancellation in the outer loop
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			// if the channel is closed, we're done reading from the port
			if !ok {
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
					// skip full/blocked channels so the outer loop keeps up
					// with the sensor cadence
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SweepMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}
