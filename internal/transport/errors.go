package transport

import (
	"errors"
	"fmt"
)

// Domain errors for the transport package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, transport.ErrNoTransport) {
//	    // surface "service unavailable, try again shortly"
//	}
var (
	// ErrNoTransport is returned (wrapped in *NoTransportError) when no
	// configured transport supports the target device.
	ErrNoTransport = errors.New("transport: no healthy transport for device")

	// ErrUnsupportedCommand is returned when a transport cannot execute
	// the requested command (e.g. scenes over the LAN channel).
	ErrUnsupportedCommand = errors.New("transport: command not supported by this channel")

	// ErrUnknownDevice is returned when a transport is asked about a
	// device it has never seen.
	ErrUnknownDevice = errors.New("transport: unknown device")

	// ErrDiscoveryFailed is returned when every configured transport's
	// discovery pass failed.
	ErrDiscoveryFailed = errors.New("transport: discovery failed on all channels")
)

// NoTransportError reports that no transport could be resolved for a
// device. It carries the full health snapshot at resolution time for
// diagnostics and unwraps to ErrNoTransport.
type NoTransportError struct {
	DeviceID string
	Model    string
	Snapshot []Health
}

// Error implements the error interface.
func (e *NoTransportError) Error() string {
	return fmt.Sprintf("transport: no healthy transport for device %s (%s); %d transports checked",
		e.DeviceID, e.Model, len(e.Snapshot))
}

// Unwrap allows errors.Is(err, ErrNoTransport).
func (e *NoTransportError) Unwrap() error {
	return ErrNoTransport
}
