package server

import (
	"errors"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logger for the server package
var Logger = logger.GetLogger("server")

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// State describes the lifecycle of a Server: Created -> Running -> Stopped.
// A server never goes back to an earlier state
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

// Server owns one bound listener and all connections accepted on it.
// Servers are only created by a Registry, which shares one instance per address
type Server struct {
	address  string
	registry *Registry
	listener transport.DeadlineListener
	metrics  *serverMetrics

	// running is observed by the accept loop and by every connection
	running atomic.Bool
	refs    atomic.Int64

	mu       sync.Mutex
	state    State
	released bool
	done     chan struct{}
	doneOnce sync.Once

	conns      *xsync.MapOf[uint64, net.Conn]
	nextConnID atomic.Uint64
}

func newServer(address string, listener transport.DeadlineListener, registry *Registry) *Server {
	s := &Server{
		address:  address,
		registry: registry,
		listener: listener,
		metrics:  newServerMetrics(registry.metrics, address),
		state:    StateCreated,
		done:     make(chan struct{}),
		conns:    xsync.NewMapOf[uint64, net.Conn](),
	}
	s.refs.Store(1)
	return s
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Run accepts connections until the server is stopped. It blocks the calling goroutine.
// Calling Run on a server that is already running waits until that run ends.
//
// A stopped server cannot run again and Run returns common.ErrServerClosed:
// its listener was closed by the last Release so the address could be bound again.
// Acquire the address from the registry to get a new server instead
func (s *Server) Run() error {
	s.mu.Lock()
	switch {
	case s.released || s.state == StateStopped:
		s.mu.Unlock()
		return common.ErrServerClosed
	case s.state == StateRunning:
		s.mu.Unlock()
		Logger.Debugf("Server on %s is already running, waiting for it to stop", s.address)
		<-s.done
		return nil
	}
	s.state = StateRunning
	s.running.Store(true)
	s.mu.Unlock()

	Logger.Infof("Server is running on %s (%s)", s.listener.Addr(), s.registry.connector.GetName())

	s.acceptLoop()
	s.finish()

	Logger.Infof("Server on %s stopped", s.address)
	return nil
}

// Stop releases one reference to the server. The server shuts down once the
// last reference is released. Returns true if this call shut the server down
func (s *Server) Stop() bool {
	return s.registry.Release(s.address)
}

// Done returns a channel that is closed once the server has fully stopped
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRunning reports whether the server is currently accepting connections
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// RefCount returns the number of holders that acquired the server and did not release it yet
func (s *Server) RefCount() int64 {
	return s.refs.Load()
}

// Address returns the address the server was acquired with
func (s *Server) Address() string {
	return s.address
}

// Addr returns the address the listener is actually bound to
// (differs from Address if port 0 was requested)
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ActiveConnections returns the number of open client connections
func (s *Server) ActiveConnections() int {
	return s.conns.Size()
}

// --------------------------------------------------------------------------
// Lifecycle (called by the Registry and Run)
// --------------------------------------------------------------------------

// acceptLoop polls the listener for new connections while the server is running.
// Every accept waits at most one poll interval, so a stop is observed promptly
func (s *Server) acceptLoop() {
	poll := s.registry.config.AcceptPoll()
	var backoff time.Duration

	for s.running.Load() {
		if err := s.listener.SetDeadline(time.Now().Add(poll)); err != nil && s.running.Load() {
			Logger.Warningf("Failed to set accept deadline on %s: %v", s.address, err)
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				// no pending connection
				continue
			case errors.Is(err, net.ErrClosed):
				return
			}

			s.metrics.acceptErrors.Inc()
			backoff = nextBackoff(backoff)
			Logger.Errorf("Error accepting connection on %s (retrying in %s): %v", s.address, backoff, err)
			time.Sleep(backoff)
			continue
		}

		backoff = 0
		s.spawn(conn)
	}
}

// spawn starts the handler goroutine for an accepted connection
func (s *Server) spawn(conn net.Conn) {
	id := s.nextConnID.Add(1)
	s.metrics.accepted.Inc()
	Logger.Infof("New client connected: %s", conn.RemoteAddr())

	if err := s.registry.connector.UpgradeConnection(conn, s.registry.config.Socket); err != nil {
		Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
	}

	c := &connection{
		id:          id,
		conn:        conn,
		isRunning:   s.running.Load,
		framer:      s.registry.framer,
		serializer:  s.registry.serializer,
		adapter:     s.registry.adapter,
		idleTimeout: s.registry.config.IdleTimeout(),
		bufferPool:  s.registry.bufferPool,
		metrics:     s.metrics,
	}

	s.conns.Store(id, conn)
	go func() {
		defer s.metrics.closed.Inc()
		defer s.conns.Delete(id)
		c.serve()
	}()
}

// shutdown flips the running flag and closes the listener. It is called by the
// registry once the last reference is released, so the address is free again on return
func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	s.released = true
	s.running.Store(false)

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		Logger.Warningf("Failed to close listener on %s: %v", s.address, err)
	}
	Logger.Infof("Shutting down server on %s", s.address)

	// a server that never ran has no loop left to finish it
	if s.state != StateRunning {
		s.state = StateStopped
		s.doneOnce.Do(func() { close(s.done) })
	}
}

// finish runs after the accept loop has exited
func (s *Server) finish() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if s.registry.config.ForceCloseOnStop {
		s.closeConnections()
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// closeConnections closes all live connections, unblocking their pending reads
func (s *Server) closeConnections() {
	s.conns.Range(func(id uint64, conn net.Conn) bool {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			Logger.Debugf("Failed to close connection %d on %s: %v", id, s.address, err)
		}
		return true
	})
}

// nextBackoff doubles the accept retry delay up to maxAcceptBackoff
func nextBackoff(current time.Duration) time.Duration {
	if current < minAcceptBackoff {
		return minAcceptBackoff
	}
	if current*2 > maxAcceptBackoff {
		return maxAcceptBackoff
	}
	return current * 2
}
