package common

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrDisconnected is returned when the peer closed its side of the connection (zero-byte read)
	ErrDisconnected = errors.New("peer disconnected")

	// ErrMalformed is wrapped by every decode error of the serializers
	ErrMalformed = errors.New("malformed message")

	// ErrProtocolViolation is returned for envelopes without any populated variant
	ErrProtocolViolation = errors.New("received message with no content")

	// ErrServerClosed is returned by Server.Run once the server was released
	ErrServerClosed = errors.New("server closed")

	// ErrNotConnected is returned by the client if no connection is established
	ErrNotConnected = errors.New("no active connection")

	// ErrFrameTooLarge is returned by length prefixed framing if a peer announces a frame above the limit
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// BindError is returned if a listening socket could not be created for an address.
// It is fatal for the call that tried to bind and is never retried.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	if IsAddrInUse(e.Err) {
		return fmt.Sprintf("address %s is already in use: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("failed to bind to address %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// IsAddrInUse reports whether err was caused by an address that is already bound
func IsAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
