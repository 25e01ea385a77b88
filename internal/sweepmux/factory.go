package sweepmux

import (
	"go.bug.st/serial"
)

// NewRealSweepMux creates a SweepMux instance backed by a real serial port
// at the given path. The envelope stream is dense (one amplitude per bin at
// the sensor sweep rate), so the port runs at the module's highest rate.
func NewRealSweepMux(path string) (*SweepMux[serial.Port], error) {
	mode := &serial.Mode{
		BaudRate: 921600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewSweepMux[serial.Port](port), nil
}
