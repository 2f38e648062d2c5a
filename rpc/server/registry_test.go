package server

import (
	"errors"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/serializer"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/ValentinKolb/dEcho/rpc/transport/tcp"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testAddress = "127.0.0.1:0"

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func newTestRegistry(t *testing.T, framer transport.IFramer, configure func(*common.ServerConfig)) *Registry {
	t.Helper()
	return newTestRegistryWith(t, tcp.NewTCPServerConnector(), serializer.NewProtoSerializer(), framer, configure)
}

func newTestRegistryWith(
	t *testing.T,
	connector transport.IServerConnector,
	s serializer.IRPCSerializer,
	framer transport.IFramer,
	configure func(*common.ServerConfig),
) *Registry {
	t.Helper()

	config := common.DefaultServerConfig()
	config.AcceptPollMillisecond = 10
	if configure != nil {
		configure(&config)
	}
	if framer == nil {
		framer = transport.NewRawFramer()
	}

	r := NewRegistry(config, connector, s, framer, NewEchoAdapter())
	t.Cleanup(r.Close)
	return r
}

// startServer acquires address and runs the server in the background.
// The returned channel receives the result of Run
func startServer(t *testing.T, r *Registry, address string) (*Server, <-chan error) {
	t.Helper()

	srv, err := r.Acquire(address)
	if err != nil {
		t.Fatalf("Failed to acquire %s: %v", address, err)
	}

	result := make(chan error, 1)
	go func() {
		result <- srv.Run()
	}()

	waitFor(t, "server to run", srv.IsRunning)
	return srv, result
}

// waitFor polls cond until it is true or a second has passed
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, srv *Server) {
	t.Helper()

	select {
	case <-srv.Done():
	case <-time.After(time.Second):
		t.Fatalf("Server on %s did not stop", srv.Address())
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestAcquireSharesServer tests that acquiring the same address twice returns one server
func TestAcquireSharesServer(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	s1, err := r.Acquire(testAddress)
	if err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	s2, err := r.Acquire(testAddress)
	if err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}

	if s1 != s2 {
		t.Errorf("Expected the same server for both acquires")
	}
	if s1.RefCount() != 2 {
		t.Errorf("Expected reference count 2, got %d", s1.RefCount())
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 registered server, got %d", r.Len())
	}
	if s1.State() != StateCreated {
		t.Errorf("Expected state created, got %s", s1.State())
	}
}

// TestReleaseRefCounting tests that only the last release stops the server
func TestReleaseRefCounting(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	srv, result := startServer(t, r, testAddress)
	if _, err := r.Acquire(testAddress); err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}

	if r.Release(testAddress) {
		t.Fatalf("First release must not stop the server")
	}
	if srv.RefCount() != 1 {
		t.Errorf("Expected reference count 1, got %d", srv.RefCount())
	}
	if !srv.IsRunning() {
		t.Errorf("Server should still be running")
	}
	if _, ok := r.Get(testAddress); !ok {
		t.Errorf("Server should still be registered")
	}

	if !r.Release(testAddress) {
		t.Fatalf("Last release should stop the server")
	}
	if srv.IsRunning() {
		t.Errorf("Server should not be running after the last release")
	}
	if _, ok := r.Get(testAddress); ok {
		t.Errorf("Server should be removed after the last release")
	}

	waitDone(t, srv)
	if err := <-result; err != nil {
		t.Errorf("Run returned error: %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("Expected state stopped, got %s", srv.State())
	}
}

// TestRebindAfterRelease tests that a released address can be bound again immediately
func TestRebindAfterRelease(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	first, _ := startServer(t, r, testAddress)
	address := first.Addr().String()
	first.Stop()
	waitDone(t, first)

	second, _ := startServer(t, r, address)
	if !second.Stop() {
		t.Fatalf("Stop should shut down the only reference")
	}

	// no wait for the accept loop: the listener is closed when Stop returns
	third, err := r.Acquire(address)
	if err != nil {
		t.Fatalf("Failed to rebind %s: %v", address, err)
	}
	if third == second {
		t.Errorf("Expected a fresh server after the old one was released")
	}
	if third.Addr().String() != address {
		t.Errorf("Expected %s, got %s", address, third.Addr())
	}
}

// TestAcquireAddressInUse tests that a foreign listener causes a bind error
func TestAcquireAddressInUse(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	foreign, err := net.Listen("tcp", testAddress)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer foreign.Close()

	_, err = r.Acquire(foreign.Addr().String())
	var bindErr *common.BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("Expected BindError, got %v", err)
	}
	if bindErr.Address != foreign.Addr().String() {
		t.Errorf("Expected address %s in error, got %s", foreign.Addr(), bindErr.Address)
	}
	if !common.IsAddrInUse(err) {
		t.Errorf("Expected address in use, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Failed bind must not register a server, got %d", r.Len())
	}
}

// TestAcquireInvalidAddress tests that an unparsable address is a bind error
func TestAcquireInvalidAddress(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	_, err := r.Acquire("not an address")
	var bindErr *common.BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("Expected BindError, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Failed bind must not register a server")
	}
}

// TestReleaseUnknown tests that releasing an unknown address does nothing
func TestReleaseUnknown(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	if r.Release("127.0.0.1:1") {
		t.Errorf("Release of unknown address must return false")
	}
	if r.Len() != 0 {
		t.Errorf("Release must not register anything")
	}
}

// TestConcurrentAcquireRelease tests that concurrent holders agree on one server
// and exactly one release shuts it down
func TestConcurrentAcquireRelease(t *testing.T) {
	r := newTestRegistry(t, nil, nil)
	const holders = 50

	servers := make([]*Server, holders)
	var wg sync.WaitGroup
	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			srv, err := r.Acquire(testAddress)
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			servers[i] = srv
		}(i)
	}
	wg.Wait()

	for _, srv := range servers[1:] {
		if srv != servers[0] {
			t.Fatalf("Expected all holders to share one server")
		}
	}
	if servers[0].RefCount() != holders {
		t.Fatalf("Expected reference count %d, got %d", holders, servers[0].RefCount())
	}

	var stopped atomic.Int32
	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Release(testAddress) {
				stopped.Add(1)
			}
		}()
	}
	wg.Wait()

	if stopped.Load() != 1 {
		t.Errorf("Expected exactly one release to stop the server, got %d", stopped.Load())
	}
	if r.Len() != 0 {
		t.Errorf("Expected empty registry, got %d servers", r.Len())
	}
}

// TestRegistryClose tests that Close stops all servers regardless of references
func TestRegistryClose(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	running, _ := startServer(t, r, testAddress)
	if _, err := r.Acquire(testAddress); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	other, err := r.Acquire("localhost:0")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got := r.Addresses(); len(got) != 2 || got[0] != testAddress || got[1] != "localhost:0" {
		t.Errorf("Unexpected addresses: %v", got)
	}

	r.Close()

	if r.Len() != 0 {
		t.Errorf("Expected empty registry after Close, got %d", r.Len())
	}
	waitDone(t, running)
	waitDone(t, other)
	if other.State() != StateStopped {
		t.Errorf("Expected never started server to be stopped, got %s", other.State())
	}
}

// TestRunAfterStop tests that a released server cannot be started
func TestRunAfterStop(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	srv, err := r.Acquire(testAddress)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !srv.Stop() {
		t.Fatalf("Stop should shut down the only reference")
	}

	if err := srv.Run(); !errors.Is(err, common.ErrServerClosed) {
		t.Errorf("Expected ErrServerClosed, got %v", err)
	}
	waitDone(t, srv)
}

// TestRunJoinsRunningServer tests that a second Run waits for the running loop
func TestRunJoinsRunningServer(t *testing.T) {
	r := newTestRegistry(t, nil, nil)

	srv, first := startServer(t, r, testAddress)

	second := make(chan error, 1)
	go func() {
		second <- srv.Run()
	}()

	select {
	case err := <-second:
		t.Fatalf("Second Run returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	srv.Stop()
	for _, result := range []<-chan error{first, second} {
		select {
		case err := <-result:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("Run did not return after Stop")
		}
	}
}
