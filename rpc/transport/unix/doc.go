// Package unix implements connectors for the dEcho service using Unix domain
// sockets. It provides cheaper communication for processes running on the
// same machine.
//
// The endpoint is the path of the socket file. It is used as the registry key
// exactly like a host:port address for TCP.
//
// Key Components:
//
//   - serverConnector: Creates Unix socket listeners. A socket file left behind
//     by a crashed process is removed before binding, a socket that is still
//     served by another process makes the bind fail with EADDRINUSE.
//
//   - clientConnector: Establishes connections using Unix domain sockets
package unix
