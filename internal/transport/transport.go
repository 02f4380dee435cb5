// Package transport provides the duplex connections that carry board events
// in and commands out. A transport is dialled once per session; reconnection
// is left to the caller.
package transport

import (
	"context"
	"errors"
)

// ErrNotOpen is returned by Send when the connection is not currently open.
var ErrNotOpen = errors.New("transport is not open")

// Transport is a single persistent duplex connection. Each inbound frame is
// one JSON event object and each Send writes one JSON command object.
type Transport interface {
	// Frames delivers inbound frames in arrival order. The channel is closed
	// when the connection ends.
	Frames() <-chan []byte

	// Errors delivers non-fatal receive errors. Closed together with Frames.
	Errors() <-chan error

	// Send writes one frame. Returns ErrNotOpen when the connection is closed.
	Send(ctx context.Context, frame []byte) error

	// Close tears the connection down. Safe to call multiple times.
	Close() error
}

const bufferSize = 64
