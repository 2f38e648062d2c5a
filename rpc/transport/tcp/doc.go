// Package tcp implements TCP socket based connectors for the dEcho service.
// It provides concrete implementations of the transport package's connector
// interfaces.
//
// Key Components:
//
//   - serverConnector: Binds TCP listeners (host:port) and tunes accepted sockets
//
//   - clientConnector: Dials TCP endpoints with a timeout and tunes the socket
//
// Both connectors apply the same SocketConf options: TCP_NODELAY, socket
// buffer sizes, keep-alive and linger.
package tcp
