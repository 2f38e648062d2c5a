package server

import (
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/serializer"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"sort"
	"sync"
)

// Registry shares one Server per address between all holders that acquire it.
// Acquire and Release for the same address are serialized, so the reference
// count and the bound listener always agree
type Registry struct {
	config     common.ServerConfig
	connector  transport.IServerConnector
	serializer serializer.IRPCSerializer
	framer     transport.IFramer
	adapter    IRPCServerAdapter

	servers    *xsync.MapOf[string, *Server]
	bufferPool *sync.Pool
	metrics    *metrics.Set
}

// NewRegistry creates an empty registry. All servers created by it share the
// given connector, serializer, framer and adapter
func NewRegistry(
	config common.ServerConfig,
	connector transport.IServerConnector,
	serializer serializer.IRPCSerializer,
	framer transport.IFramer,
	adapter IRPCServerAdapter,
) *Registry {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = common.DefaultReadBufferSize
	}

	bufSize := config.ReadBufferSize
	r := &Registry{
		config:     config,
		connector:  connector,
		serializer: serializer,
		framer:     framer,
		adapter:    adapter,
		servers:    xsync.NewMapOf[string, *Server](),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufSize)
			},
		},
		metrics: metrics.NewSet(),
	}

	r.metrics.NewGauge("decho_servers", func() float64 {
		return float64(r.servers.Size())
	})
	r.metrics.NewGauge("decho_connections_active", func() float64 {
		active := 0
		r.servers.Range(func(_ string, s *Server) bool {
			active += s.ActiveConnections()
			return true
		})
		return float64(active)
	})

	return r
}

// Acquire returns the server for address, creating and binding it if there is none.
// Acquiring an existing server increments its reference count.
// If the address cannot be bound a *common.BindError is returned and nothing is registered
func (r *Registry) Acquire(address string) (*Server, error) {
	var bindErr error

	srv, _ := r.servers.Compute(address, func(old *Server, loaded bool) (*Server, bool) {
		if loaded {
			refs := old.refs.Add(1)
			Logger.Infof("Server for %s already exists, reference count is now %d", address, refs)
			return old, false
		}

		listener, err := r.connector.Listen(address)
		if err != nil {
			Logger.Errorf("Failed to bind %s: %v", address, err)
			bindErr = &common.BindError{Address: address, Err: err}
			return nil, true
		}
		dl, ok := listener.(transport.DeadlineListener)
		if !ok {
			_ = listener.Close()
			bindErr = &common.BindError{Address: address, Err: transport.ErrNoDeadline}
			return nil, true
		}

		Logger.Infof("Created server for %s, bound to %s", address, listener.Addr())
		return newServer(address, dl, r), false
	})

	if bindErr != nil {
		return nil, bindErr
	}
	return srv, nil
}

// Release gives up one reference to the server for address. When the count drops to
// zero the server is removed, its listener closed and its accept loop told to stop.
// Returns true if the server was shut down by this call
func (r *Registry) Release(address string) bool {
	stopped := false

	r.servers.Compute(address, func(old *Server, loaded bool) (*Server, bool) {
		if !loaded {
			Logger.Warningf("Release called for %s, but no server is registered", address)
			return nil, true
		}

		refs := old.refs.Add(-1)
		if refs > 0 {
			Logger.Infof("Server for %s is still referenced %d times", address, refs)
			return old, false
		}

		old.shutdown()
		stopped = true
		return nil, true
	})

	return stopped
}

// Get returns the server registered for address without touching its reference count
func (r *Registry) Get(address string) (*Server, bool) {
	return r.servers.Load(address)
}

// Len returns the number of registered servers
func (r *Registry) Len() int {
	return r.servers.Size()
}

// Addresses returns the sorted addresses of all registered servers
func (r *Registry) Addresses() []string {
	addresses := make([]string, 0, r.servers.Size())
	r.servers.Range(func(address string, _ *Server) bool {
		addresses = append(addresses, address)
		return true
	})
	sort.Strings(addresses)
	return addresses
}

// Close shuts down every registered server regardless of its reference count
func (r *Registry) Close() {
	for _, address := range r.Addresses() {
		r.servers.Compute(address, func(old *Server, loaded bool) (*Server, bool) {
			if loaded {
				old.refs.Store(0)
				old.shutdown()
			}
			return nil, true
		})
	}
}

// WritePrometheus writes the metrics of all servers of this registry in Prometheus text format
func (r *Registry) WritePrometheus(w io.Writer) {
	r.metrics.WritePrometheus(w)
}
