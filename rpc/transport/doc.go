// Package transport defines the socket and framing abstractions of the dEcho
// service. It provides a common contract that all transport implementations
// must fulfill, so the server and client stay independent of the socket type.
//
// Key Components:
//
//   - IServerConnector / IClientConnector: Transport specific listen, dial and
//     socket tuning operations. Implemented by the tcp and unix subpackages.
//
//   - IFramer: Splits the byte stream of a connection into messages.
//
// Framing:
//
//   - raw: The bytes returned by a single read call form one message. This is
//     the historic wire behavior of the service and the default. It relies on
//     every message fitting into one read and is fragile if the network splits
//     or coalesces writes.
//
//   - length-prefixed: Every message is preceded by a 4 byte big endian length.
//     Partial reads are buffered until the full frame arrived, and writes send
//     header and payload with a single net.Buffers write.
package transport
