package server

import (
	"errors"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/serializer"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"net"
	"sync"
	"time"
)

// connection serves one accepted client: read a frame, decode it, dispatch it and
// write the reply, until the client leaves or the server stops
type connection struct {
	id          uint64
	conn        net.Conn
	isRunning   func() bool
	framer      transport.IFramer
	serializer  serializer.IRPCSerializer
	adapter     IRPCServerAdapter
	idleTimeout time.Duration
	bufferPool  *sync.Pool
	metrics     *serverMetrics
}

// serve runs the receive-dispatch-reply loop. The running flag is checked
// between messages, a step that already started is always completed
func (c *connection) serve() {
	defer func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			Logger.Debugf("Error closing connection %d: %v", c.id, err)
		}
	}()

	buf := c.bufferPool.Get().([]byte)
	defer c.bufferPool.Put(buf)

	remote := c.conn.RemoteAddr()
	for c.isRunning() {
		err := c.step(buf)
		if err == nil {
			continue
		}

		var netErr net.Error
		switch {
		case errors.Is(err, common.ErrDisconnected):
			Logger.Infof("Client %s disconnected", remote)
		case errors.Is(err, net.ErrClosed):
			Logger.Infof("Connection to %s closed by server", remote)
		case errors.As(err, &netErr) && netErr.Timeout():
			Logger.Infof("Client %s idle for %s, closing connection", remote, c.idleTimeout)
		default:
			c.metrics.ioErrors.Inc()
			Logger.Errorf("Error handling client %s: %v", remote, err)
		}
		return
	}
	Logger.Debugf("Server stopped, closing connection to %s", remote)
}

// step handles exactly one incoming message. Only I/O errors are returned,
// everything else is logged and the connection stays open
func (c *connection) step(buf []byte) error {
	if c.idleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return err
		}
	}

	data, err := c.framer.ReadFrame(c.conn, buf)
	if err != nil {
		return err
	}
	start := time.Now()

	var req common.Request
	if err := c.serializer.DeserializeRequest(data, &req); err != nil {
		c.metrics.decodeErrors.Inc()
		Logger.Errorf("Failed to decode message from %s: %v", c.conn.RemoteAddr(), err)
		return nil
	}

	resp, err := c.adapter.Handle(&req)
	if err != nil {
		if errors.Is(err, common.ErrProtocolViolation) {
			c.metrics.violations.Inc()
			Logger.Errorf("Protocol violation from %s: message without content", c.conn.RemoteAddr())
		} else {
			Logger.Errorf("Failed to handle %s request from %s: %v", req.Type(), c.conn.RemoteAddr(), err)
		}
		return nil
	}

	payload, err := c.serializer.SerializeResponse(*resp)
	if err != nil {
		Logger.Errorf("Failed to encode %s response for %s: %v", resp.Type(), c.conn.RemoteAddr(), err)
		return nil
	}

	c.metrics.requests(req.Type()).Inc()
	c.metrics.requestDurations.UpdateDuration(start)

	return c.framer.WriteFrame(c.conn, payload)
}
