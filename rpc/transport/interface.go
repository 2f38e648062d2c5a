package transport

import (
	"errors"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"io"
	"net"
	"time"
)

// --------------------------------------------------------------------------
// Connectors
// --------------------------------------------------------------------------

// IServerConnector defines the transport specific server operations
type IServerConnector interface {
	// Listen binds a listener to the endpoint. The returned listener must
	// support SetDeadline so the accept loop can poll the running flag
	Listen(endpoint string) (net.Listener, error)

	// UpgradeConnection applies protocol specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.SocketConf) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// IClientConnector defines the transport specific client operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint (timeout 0 = none)
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// UpgradeConnection applies protocol specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.SocketConf) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// ErrNoDeadline is returned for listeners that cannot be polled with a deadline
var ErrNoDeadline = errors.New("listener does not support deadlines")

// DeadlineListener is implemented by *net.TCPListener and *net.UnixListener
type DeadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// --------------------------------------------------------------------------
// Framing
// --------------------------------------------------------------------------

// IFramer splits a byte stream into messages
type IFramer interface {
	// ReadFrame reads the next message, using buf if it is large enough.
	// The returned slice is only valid until the next call with the same buffer.
	// A closed peer is reported as common.ErrDisconnected
	ReadFrame(r io.Reader, buf []byte) ([]byte, error)

	// WriteFrame writes data as one message
	WriteFrame(w io.Writer, data []byte) error

	// GetName returns the name of the framing (e.g., "raw", "length-prefixed")
	GetName() string
}
