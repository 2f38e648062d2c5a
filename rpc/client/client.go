package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/serializer"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"sync"
	"time"
)

var (
	Logger = logger.GetLogger("client")
)

// Client holds a single connection to a dEcho server. All methods are safe for
// concurrent use, requests on one client are serialized
type Client struct {
	config     common.ClientConfig
	connector  transport.IClientConnector
	serializer serializer.IRPCSerializer
	framer     transport.IFramer

	// reqMu serializes requests and is held while waiting for the server.
	// connMu only guards conn, so Close never waits for a request in flight
	reqMu  sync.Mutex
	connMu sync.Mutex
	conn   net.Conn
	buf    []byte
}

// NewClient creates a new, unconnected client. Call Connect before sending requests
func NewClient(
	config common.ClientConfig,
	connector transport.IClientConnector,
	serializer serializer.IRPCSerializer,
	framer transport.IFramer,
) *Client {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = common.DefaultReadBufferSize
	}
	return &Client{
		config:     config,
		connector:  connector,
		serializer: serializer,
		framer:     framer,
		buf:        make([]byte, config.ReadBufferSize),
	}
}

// --------------------------------------------------------------------------
// Connection handling
// --------------------------------------------------------------------------

// Connect opens the connection to the configured endpoint.
// Connecting an already connected client is a no-op
func (c *Client) Connect() error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if c.current() != nil {
		return nil
	}

	conn, err := c.connector.Connect(c.config.Endpoint, c.config.Timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.config.Endpoint, err)
	}
	if err := c.connector.UpgradeConnection(conn, c.config.Socket); err != nil {
		Logger.Warningf("Failed to upgrade connection to %s: %v", c.config.Endpoint, err)
	}

	Logger.Debugf("Connected to %s via %s", conn.RemoteAddr(), c.connector.GetName())
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// Close shuts the connection down in both directions.
// A request that is waiting for its response fails with an error wrapping net.ErrClosed
func (c *Client) Close() error {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// LocalAddr returns the local address of the connection, or nil if not connected
func (c *Client) LocalAddr() net.Addr {
	conn := c.current()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

// --------------------------------------------------------------------------
// Raw messages
// --------------------------------------------------------------------------

// Send encodes and writes one request
func (c *Client) Send(req common.Request) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	return c.send(req)
}

// Receive reads and decodes one response
func (c *Client) Receive() (*common.Response, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()
	return c.receive()
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Echo sends content to the server and returns the echoed content
func (c *Client) Echo(content string) (string, error) {
	resp, err := c.invoke(*common.NewEchoRequest(content))
	if err != nil {
		return "", err
	}
	return resp.Echo.Content, nil
}

// Add asks the server for a+b. The server uses wrapping int32 arithmetic
func (c *Client) Add(a, b int32) (int32, error) {
	resp, err := c.invoke(*common.NewAddRequest(a, b))
	if err != nil {
		return 0, err
	}
	return resp.Add.Result, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invoke sends a request, waits for the response and checks that the
// response carries the same variant as the request
func (c *Client) invoke(req common.Request) (*common.Response, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if err := c.send(req); err != nil {
		return nil, err
	}
	resp, err := c.receive()
	if err != nil {
		return nil, err
	}
	if resp.Type() != req.Type() {
		return nil, fmt.Errorf("unexpected response type: %s, expected %s", resp.Type(), req.Type())
	}
	return resp, nil
}

// current returns the open connection or nil
func (c *Client) current() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) send(req common.Request) error {
	conn := c.current()
	if conn == nil {
		return common.ErrNotConnected
	}

	data, err := c.serializer.SerializeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", req.Type(), err)
	}
	if err := c.setDeadline(conn.SetWriteDeadline); err != nil {
		return err
	}
	return c.framer.WriteFrame(conn, data)
}

func (c *Client) receive() (*common.Response, error) {
	conn := c.current()
	if conn == nil {
		return nil, common.ErrNotConnected
	}

	if err := c.setDeadline(conn.SetReadDeadline); err != nil {
		return nil, err
	}
	data, err := c.framer.ReadFrame(conn, c.buf)
	if err != nil {
		return nil, err
	}

	resp := &common.Response{}
	if err := c.serializer.DeserializeResponse(data, resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

// setDeadline applies the configured timeout with the given setter (no timeout = no deadline)
func (c *Client) setDeadline(set func(time.Time) error) error {
	timeout := c.config.Timeout()
	if timeout <= 0 {
		return nil
	}
	return set(time.Now().Add(timeout))
}
