package sweepmux

import "io"

// Porter defines the minimal interface needed for a sensor port. The
// abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}
