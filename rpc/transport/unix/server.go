package unix

import (
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"net"
	"os"
	"time"
)

// staleProbeTimeout bounds the dial used to detect an abandoned socket file
const staleProbeTimeout = 100 * time.Millisecond

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// NewUnixServerConnector creates a new Unix socket server connector
func NewUnixServerConnector() transport.IServerConnector {
	return &serverConnector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(endpoint string) (net.Listener, error) {
	// Remove a socket file left behind by a crashed process. A socket that
	// still accepts connections and any other kind of file are kept, so the
	// bind fails with EADDRINUSE
	if fi, err := os.Lstat(endpoint); err == nil && fi.Mode()&os.ModeSocket != 0 {
		if conn, err := net.DialTimeout("unix", endpoint, staleProbeTimeout); err == nil {
			conn.Close()
		} else {
			_ = os.Remove(endpoint)
		}
	}

	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, err
	}

	// the socket file is removed once the listener is closed
	listener.(*net.UnixListener).SetUnlinkOnClose(true)
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.SocketConf) error {
	return upgradeConnection(conn, config)
}

// upgradeConnection applies the socket buffer sizes to a unix connection
func upgradeConnection(conn net.Conn, config common.SocketConf) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}

	if config.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}
	if config.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}
	return nil
}
