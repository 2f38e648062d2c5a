// Package common provides core data structures and utilities shared across
// the dEcho service. It defines the message envelope, the error taxonomy,
// configuration structures and the logging setup used by other packages.
//
// The package focuses on:
//   - Envelope definition for client requests and server responses
//   - Error values shared by transport, server and client
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger registry
//
// Key Components:
//
//   - Request / Response: Tagged unions with exactly one populated variant
//     (Echo or Add). An envelope without a variant is a protocol violation.
//
//   - MessageType: Enumeration of the supported variants.
//
//   - BindError, ErrDisconnected, ErrMalformed, ErrProtocolViolation:
//     The error taxonomy. Only bind errors ever reach the caller of
//     Registry.Acquire; everything else is handled per connection.
//
//   - ServerConfig / ClientConfig: Configuration with defaults, validation
//     and a human-readable String representation.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger factory so all packages share one format and level.
package common
