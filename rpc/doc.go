// Package rpc provides the network layer of dEcho, a TCP echo and addition service.
//
// The package is organized into several subpackages:
//
//   - common: Message envelope, error values, configuration structures and logging.
//
//   - transport: Connectors for TCP and Unix sockets and the framing that splits
//     a byte stream into messages (raw reads or length-prefixed frames).
//
//   - serializer: Envelope serialization (protobuf wire format, binary, JSON).
//
//   - server: Address-keyed registry of servers, accept loop and connection handling.
//
//   - client: Client for sending Echo and Add requests to a server.
package rpc
