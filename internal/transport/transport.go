// Package transport opens and drives remote interactive shells on robot
// controllers. A Handle owns one shell process and its pseudo-terminal;
// everything above this package speaks bytes only.
package transport

import "time"

// Endpoint identifies a robot controller's shell endpoint.
type Endpoint struct {
	Addr string // controller address, e.g. "10.4.12.142"
	User string // login user on the controller
}

// Handle is one live interactive shell. Implementations must be safe for
// use from a single goroutine at a time; callers serialize access.
type Handle interface {
	// Write sends bytes to the shell's input. It fails if the underlying
	// process is no longer alive.
	Write(p []byte) error

	// ReadAvailable returns whatever output has arrived, waiting at most d.
	// A nil slice with nil error means nothing arrived before the deadline.
	ReadAvailable(d time.Duration) ([]byte, error)

	// IsAlive reports whether the underlying process is still running.
	IsAlive() bool

	// Terminate kills the underlying process and releases the terminal.
	// It is idempotent and safe to call on any exit path.
	Terminate()
}

// Dialer opens interactive shells. The production implementation is
// PTYDialer; tests substitute scripted handles.
type Dialer interface {
	Open(ep Endpoint) (Handle, error)
}
